// backend/src/line/events.go
package line

import "encoding/json"

// Event types delivered by the webhook.
const (
	EventTypeFollow   = "follow"
	EventTypeMessage  = "message"
	EventTypePostback = "postback"
)

// MessageTypeText is the only message subtype this bot handles.
const MessageTypeText = "text"

// WebhookBody is the envelope posted to the webhook endpoint.
type WebhookBody struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is one inbound chat event. Message and Postback are set only for
// their respective event types.
type Event struct {
	Type       string        `json:"type"`
	ReplyToken string        `json:"replyToken"`
	Timestamp  int64         `json:"timestamp"`
	Source     EventSource   `json:"source"`
	Message    *EventMessage `json:"message,omitempty"`
	Postback   *Postback     `json:"postback,omitempty"`
}

type EventSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type EventMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

type Postback struct {
	Data string `json:"data"`
}

// ParseWebhookBody decodes a raw webhook payload. The body must already
// have passed signature verification.
func ParseWebhookBody(body []byte) (*WebhookBody, error) {
	var parsed WebhookBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}
