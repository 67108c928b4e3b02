package models

import "time"

// RecordKind tags a financial record with how it counts in the report.
type RecordKind string

const (
	KindExpense RecordKind = "expense"
	KindIncome  RecordKind = "income"
	KindAsset   RecordKind = "asset"
	KindDebt    RecordKind = "debt"
)

// ValidKind reports whether s is one of the four record kinds.
func ValidKind(s string) bool {
	switch RecordKind(s) {
	case KindExpense, KindIncome, KindAsset, KindDebt:
		return true
	}
	return false
}

// UserState is the conversation state persisted per user.
type UserState string

const (
	StateNew                  UserState = "new"
	StateAwaitingDisclaimer   UserState = "awaiting_disclaimer"
	StateAwaitingInitialSetup UserState = "awaiting_initial_setup"
	StateActive               UserState = "active"
)

// User is one end user of the bot, keyed by the chat platform's user ID.
type User struct {
	ID                 int64     `json:"id"`
	LineUserID         string    `json:"line_user_id"`
	DisplayName        string    `json:"display_name"`
	State              UserState `json:"state"`
	DisclaimerAccepted bool      `json:"disclaimer_accepted"`
	SetupCompleted     bool      `json:"setup_completed"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Record is a single persisted financial entry. Amounts are whole NT$.
type Record struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Category   string     `json:"category"`
	Amount     int64      `json:"amount"`
	Kind       RecordKind `json:"kind"`
	RecordedAt time.Time  `json:"recorded_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CategoryTotal is one row of the expense breakdown. Share is the
// category's percentage of total expenses, two decimal places.
type CategoryTotal struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
	Share    string `json:"share"`
}

// Summary is the derived monthly-style report. It is recomputed from the
// record set on demand and never persisted.
type Summary struct {
	TotalIncome       int64           `json:"total_income"`
	TotalExpense      int64           `json:"total_expense"`
	UnknownExpense    int64           `json:"unknown_expense"`
	TotalAssets       int64           `json:"total_assets"`
	TotalDebts        int64           `json:"total_debts"`
	NetAsset          int64           `json:"net_asset"`
	ExpenseByCategory []CategoryTotal `json:"expense_by_category"`
}
