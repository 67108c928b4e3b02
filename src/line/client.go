// backend/src/line/client.go
package line

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/username/tofuledger/backend/src/logger"
)

const defaultAPIBaseURL = "https://api.line.me"

// Client talks to the LINE Messaging API. It is constructed once at
// startup and injected into whatever needs to send messages; there is no
// package-level client handle.
type Client struct {
	channelSecret string
	channelToken  string
	baseURL       string
	httpClient    *http.Client
}

func NewClient(channelSecret, channelToken, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	return &Client{
		channelSecret: channelSecret,
		channelToken:  channelToken,
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether both channel credentials are present. The
// webhook handler refuses all events until this holds.
func (c *Client) Configured() bool {
	return c.channelSecret != "" && c.channelToken != ""
}

// VerifySignature checks the X-Line-Signature header against an
// HMAC-SHA256 of the raw request body keyed by the channel secret.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.channelSecret))
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}

type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

// Reply answers one inbound event. LINE accepts each reply token exactly
// once, which matches the one-reply-per-event contract upstream.
func (c *Client) Reply(ctx context.Context, replyToken string, messages ...Message) error {
	return c.post(ctx, "/v2/bot/message/reply", replyRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
}

// Push sends messages outside of a reply context, used by the monthly
// reminder fan-out.
func (c *Client) Push(ctx context.Context, to string, messages ...Message) error {
	return c.post(ctx, "/v2/bot/message/push", pushRequest{
		To:       to,
		Messages: messages,
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.L.Error("LINE API call failed", "path", path, "status", resp.StatusCode, "body", string(respBody))
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	return nil
}
