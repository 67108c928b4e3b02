// backend/src/handlers/webhook_handler.go
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/username/tofuledger/backend/src/line"
	"github.com/username/tofuledger/backend/src/logger"
	"github.com/username/tofuledger/backend/src/services"
)

const maxWebhookBodyBytes = 1 << 20 // LINE batches are small; 1MB is generous

// WebhookHandler receives inbound chat events, verifies their signature,
// and hands the batch to the conversation service.
type WebhookHandler struct {
	client       *line.Client
	conversation *services.ConversationService
}

func NewWebhookHandler(client *line.Client, conversation *services.ConversationService) *WebhookHandler {
	return &WebhookHandler{client: client, conversation: conversation}
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	if !h.client.Configured() {
		ctxLogger.Error("Webhook rejected: LINE credentials not configured")
		sendJSONError(w, "Service not configured", http.StatusInternalServerError)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		ctxLogger.Error("Failed to read webhook body", "error", err)
		sendJSONError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Line-Signature")
	if signature == "" || !h.client.VerifySignature(body, signature) {
		ctxLogger.Warn("Webhook rejected: invalid signature")
		sendJSONError(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	parsed, err := line.ParseWebhookBody(body)
	if err != nil {
		ctxLogger.Error("Failed to parse webhook body", "error", err)
		sendJSONError(w, "Malformed webhook body", http.StatusBadRequest)
		return
	}

	ctxLogger.Info("Webhook batch received", "events", len(parsed.Events))
	h.conversation.HandleEvents(r.Context(), parsed.Events)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
