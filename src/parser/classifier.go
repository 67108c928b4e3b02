package parser

import (
	"strings"

	"github.com/username/tofuledger/backend/src/models"
)

// Keyword sets used to classify category labels. Matching is on
// lowercased substring containment, so "國泰信用卡" and "Credit Card"
// both count as debt.
var debtKeywords = []string{
	"信用卡", "卡債", "貸", "欠", "債",
	"credit", "loan", "debt", "owed",
}

var assetKeywords = []string{
	"銀行", "存款", "現金", "股票", "基金", "資產",
	"bank", "saving", "cash", "stock", "fund",
}

// Classify decides a record's kind from its category label and the
// conversational default. With an asset-like default a debt keyword in
// the label makes it a debt, anything else an asset. With an
// expense-like default the record is always an expense; income is never
// inferred from label text.
func Classify(category string, defaultKind models.RecordKind) models.RecordKind {
	if defaultKind == models.KindAsset || defaultKind == models.KindDebt {
		if containsAny(category, debtKeywords) {
			return models.KindDebt
		}
		return models.KindAsset
	}
	return models.KindExpense
}

// LooksLikeBalance reports whether a label reads as an asset or debt
// update rather than a day-to-day expense. The conversation controller
// uses it to switch to the asset-like default while the user is active.
func LooksLikeBalance(category string) bool {
	return containsAny(category, assetKeywords) || containsAny(category, debtKeywords)
}

func containsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
