// backend/src/security/validation/field_validator.go
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/username/tofuledger/backend/src/models"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	MaxCategoryLength    = 100
	MaxDisplayNameLength = 255
	// Amounts are whole NT$; cap well below int64 overflow so sums over
	// any realistic record set stay exact.
	MaxRecordAmount = int64(1_000_000_000_000)
)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateRecordInput checks a record submitted through the dashboard
// CRUD forms. Chat-parsed records skip this; the parser's patterns only
// ever produce non-negative integers and non-empty labels.
func ValidateRecordInput(category string, amount int64, kind string) error {
	if err := ValidateStringNotEmpty(category, "category"); err != nil {
		return err
	}
	if err := ValidateStringMaxLength(category, MaxCategoryLength, "category"); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrValidationFailed)
	}
	if amount > MaxRecordAmount {
		return fmt.Errorf("%w: amount exceeds maximum of %d", ErrValidationFailed, MaxRecordAmount)
	}
	if !models.ValidKind(kind) {
		return fmt.Errorf("%w: kind must be one of expense, income, asset, debt", ErrValidationFailed)
	}
	return nil
}
