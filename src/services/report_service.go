// backend/src/services/report_service.go
package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/tofuledger/backend/src/logger"
	"github.com/username/tofuledger/backend/src/models"
	"github.com/username/tofuledger/backend/src/store"
)

const (
	DefaultCacheExpiration = 5 * time.Minute
	CacheCleanupInterval   = 10 * time.Minute
)

var ErrReportFailed = errors.New("report computation failed")

// ReportData is the read model served to the dashboard: the derived
// summary plus the raw record lists behind it.
type ReportData struct {
	Summary  models.Summary  `json:"summary"`
	Incomes  []models.Record `json:"incomes"`
	Expenses []models.Record `json:"expenses"`
	Assets   []models.Record `json:"assets"`
}

// ReportService computes report summaries over a user's records.
type ReportService interface {
	GetSummary(userID int64) (*models.Summary, error)
	GetReportData(userID int64) (*ReportData, error)
	InvalidateUserCache(userID int64)
}

type reportServiceImpl struct {
	store    store.Store
	cache    *cache.Cache
	baseline int64
}

// NewReportService builds a report service. baseline is the fixed amount
// subtracted from income before taking the unknown-expense residual.
func NewReportService(st store.Store, summaryCache *cache.Cache, baseline int64) ReportService {
	return &reportServiceImpl{store: st, cache: summaryCache, baseline: baseline}
}

func summaryCacheKey(userID int64) string {
	return fmt.Sprintf("summary:%d", userID)
}

func (s *reportServiceImpl) GetSummary(userID int64) (*models.Summary, error) {
	if cached, found := s.cache.Get(summaryCacheKey(userID)); found {
		if summary, ok := cached.(*models.Summary); ok {
			return summary, nil
		}
	}

	records, err := s.store.ListRecords(userID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportFailed, err)
	}

	summary := ComputeSummary(records, s.baseline)
	s.cache.Set(summaryCacheKey(userID), &summary, cache.DefaultExpiration)
	return &summary, nil
}

func (s *reportServiceImpl) GetReportData(userID int64) (*ReportData, error) {
	records, err := s.store.ListRecords(userID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportFailed, err)
	}

	data := &ReportData{
		Summary:  ComputeSummary(records, s.baseline),
		Incomes:  []models.Record{},
		Expenses: []models.Record{},
		Assets:   []models.Record{},
	}
	for _, record := range records {
		switch record.Kind {
		case models.KindIncome:
			data.Incomes = append(data.Incomes, record)
		case models.KindExpense:
			data.Expenses = append(data.Expenses, record)
		case models.KindAsset, models.KindDebt:
			data.Assets = append(data.Assets, record)
		}
	}
	return data, nil
}

func (s *reportServiceImpl) InvalidateUserCache(userID int64) {
	s.cache.Delete(summaryCacheKey(userID))
	logger.L.Debug("Report cache invalidated", "userID", userID)
}

// ComputeSummary is a pure reduction over a record set. Calling it twice
// on the same input yields the same summary; there is no incremental
// state to invalidate.
//
// The unknown-expense residual is max(0, income - expense - baseline):
// a heuristic gap estimate of unlogged spending, clamped so it never
// goes negative even when expenses exceed income.
func ComputeSummary(records []models.Record, baseline int64) models.Summary {
	summary := models.Summary{ExpenseByCategory: []models.CategoryTotal{}}
	byCategory := make(map[string]int64)

	for _, record := range records {
		switch record.Kind {
		case models.KindIncome:
			summary.TotalIncome += record.Amount
		case models.KindExpense:
			summary.TotalExpense += record.Amount
			byCategory[record.Category] += record.Amount
		case models.KindAsset:
			summary.TotalAssets += record.Amount
		case models.KindDebt:
			summary.TotalDebts += record.Amount
		}
	}

	summary.NetAsset = summary.TotalAssets - summary.TotalDebts

	unknown := summary.TotalIncome - summary.TotalExpense - baseline
	if unknown < 0 {
		unknown = 0
	}
	summary.UnknownExpense = unknown

	summary.ExpenseByCategory = categoryTotals(byCategory, summary.TotalExpense)
	return summary
}

// categoryTotals flattens the per-category map into rows sorted by
// amount (largest first, ties by name) with each category's share of
// total expenses as an exact two-decimal percentage.
func categoryTotals(byCategory map[string]int64, totalExpense int64) []models.CategoryTotal {
	totals := make([]models.CategoryTotal, 0, len(byCategory))
	totalDec := decimal.NewFromInt(totalExpense)

	for category, amount := range byCategory {
		share := "0.00"
		if totalExpense > 0 {
			share = decimal.NewFromInt(amount).
				Mul(decimal.NewFromInt(100)).
				DivRound(totalDec, 2).
				StringFixed(2)
		}
		totals = append(totals, models.CategoryTotal{
			Category: category,
			Amount:   amount,
			Share:    share,
		})
	}

	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Amount != totals[j].Amount {
			return totals[i].Amount > totals[j].Amount
		}
		return totals[i].Category < totals[j].Category
	})
	return totals
}
