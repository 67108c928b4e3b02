// backend/src/handlers/cron_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/username/tofuledger/backend/src/logger"
	"github.com/username/tofuledger/backend/src/services"
)

// CronHandler exposes the scheduled-trigger endpoints. The schedule
// itself lives in the external cron; these endpoints only run one pass
// per invocation.
type CronHandler struct {
	reminderService *services.ReminderService
}

func NewCronHandler(reminderService *services.ReminderService) *CronHandler {
	return &CronHandler{reminderService: reminderService}
}

func (h *CronHandler) HandleMonthlyReminder(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	sent, err := h.reminderService.SendMonthlyReminders(r.Context())
	if err != nil {
		ctxLogger.Error("Monthly reminder fan-out failed", "error", err)
		sendJSONError(w, "Monthly reminder failed", http.StatusInternalServerError)
		return
	}

	ctxLogger.Info("Monthly reminder fan-out complete", "sent", sent)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"message": fmt.Sprintf("Sent monthly reminder to %d users", sent),
	})
}
