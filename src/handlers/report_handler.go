// backend/src/handlers/report_handler.go
package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/username/tofuledger/backend/src/logger"
	"github.com/username/tofuledger/backend/src/models"
	"github.com/username/tofuledger/backend/src/security/validation"
	"github.com/username/tofuledger/backend/src/services"
	"github.com/username/tofuledger/backend/src/store"
)

// ReportHandler serves the dashboard read model and the record CRUD
// forms behind it.
type ReportHandler struct {
	store         store.Store
	reportService services.ReportService
}

func NewReportHandler(st store.Store, reportService services.ReportService) *ReportHandler {
	return &ReportHandler{store: st, reportService: reportService}
}

func (h *ReportHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	data, err := h.reportService.GetReportData(userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Error building report data", "error", err)
		sendJSONError(w, "Error building report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *ReportHandler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var kind *models.RecordKind
	if kindStr := r.URL.Query().Get("kind"); kindStr != "" {
		if !models.ValidKind(kindStr) {
			sendJSONError(w, "Invalid kind filter", http.StatusBadRequest)
			return
		}
		k := models.RecordKind(kindStr)
		kind = &k
	}

	records, err := h.store.ListRecords(userID, kind)
	if err != nil {
		logger.FromContext(r.Context()).Error("Error listing records", "error", err)
		sendJSONError(w, "Error listing records", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

type recordPayload struct {
	Category   string `json:"category"`
	Amount     int64  `json:"amount"`
	Kind       string `json:"kind"`
	RecordedAt string `json:"recorded_at,omitempty"` // YYYY-MM-DD
}

func (p *recordPayload) toRecord(userID int64) (*models.Record, error) {
	category := validation.StripUnprintable(validation.SanitizeText(p.Category))
	if err := validation.ValidateRecordInput(category, p.Amount, p.Kind); err != nil {
		return nil, err
	}

	recordedAt := time.Now().UTC()
	if p.RecordedAt != "" {
		parsed, err := time.Parse("2006-01-02", p.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: recorded_at must be YYYY-MM-DD", validation.ErrValidationFailed)
		}
		recordedAt = parsed
	}

	return &models.Record{
		UserID:     userID,
		Category:   category,
		Amount:     p.Amount,
		Kind:       models.RecordKind(p.Kind),
		RecordedAt: recordedAt,
	}, nil
}

func (h *ReportHandler) HandleCreateRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendJSONError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	record, err := payload.toRecord(userID)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.InsertRecord(record); err != nil {
		logger.FromContext(r.Context()).Error("Error inserting record", "error", err)
		sendJSONError(w, "Error saving record", http.StatusInternalServerError)
		return
	}
	h.reportService.InvalidateUserCache(userID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(record)
}

func (h *ReportHandler) HandleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	recordID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid record id", http.StatusBadRequest)
		return
	}

	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendJSONError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	record, err := payload.toRecord(userID)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	record.ID = recordID

	if err := h.store.UpdateRecord(record); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendJSONError(w, "Record not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Error updating record", "recordID", recordID, "error", err)
		sendJSONError(w, "Error updating record", http.StatusInternalServerError)
		return
	}
	h.reportService.InvalidateUserCache(userID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

func (h *ReportHandler) HandleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	recordID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid record id", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteRecord(userID, recordID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendJSONError(w, "Record not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Error deleting record", "recordID", recordID, "error", err)
		sendJSONError(w, "Error deleting record", http.StatusInternalServerError)
		return
	}
	h.reportService.InvalidateUserCache(userID)

	w.WriteHeader(http.StatusNoContent)
}

// HandleExportCSV streams the report as CSV: one row per record plus the
// category breakdown with percentage shares. Text cells pass through the
// formula-injection guard before they reach a spreadsheet.
func (h *ReportHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	data, err := h.reportService.GetReportData(userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Error building report export", "error", err)
		sendJSONError(w, "Error building report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"section", "category", "kind", "amount", "share", "recorded_at"})

	writeRecords := func(section string, records []models.Record) {
		for _, record := range records {
			writer.Write([]string{
				section,
				validation.SanitizeForFormulaInjection(record.Category),
				string(record.Kind),
				strconv.FormatInt(record.Amount, 10),
				"",
				record.RecordedAt.Format("2006-01-02"),
			})
		}
	}
	writeRecords("income", data.Incomes)
	writeRecords("expense", data.Expenses)
	writeRecords("asset", data.Assets)

	for _, c := range data.Summary.ExpenseByCategory {
		writer.Write([]string{
			"expense_by_category",
			validation.SanitizeForFormulaInjection(c.Category),
			"",
			strconv.FormatInt(c.Amount, 10),
			c.Share,
			"",
		})
	}

	summary := data.Summary
	writer.Write([]string{"summary", "total_income", "", strconv.FormatInt(summary.TotalIncome, 10), "", ""})
	writer.Write([]string{"summary", "total_expense", "", strconv.FormatInt(summary.TotalExpense, 10), "", ""})
	writer.Write([]string{"summary", "unknown_expense", "", strconv.FormatInt(summary.UnknownExpense, 10), "", ""})
	writer.Write([]string{"summary", "net_asset", "", strconv.FormatInt(summary.NetAsset, 10), "", ""})
}
