// backend/src/handlers/health_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/username/tofuledger/backend/src/config"
)

// HandleHealth reports which external credentials are configured, in the
// same shape the deployment checks expect.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	cfg := config.Cfg
	lineConfigured := cfg.LineChannelSecret != "" && cfg.LineChannelAccessToken != ""

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"environment": map[string]bool{
			"lineBot": lineConfigured,
			"cron":    cfg.CronSecret != "",
		},
		"configured": lineConfigured,
	})
}
