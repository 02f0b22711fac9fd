package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FreeLabel is rendered in place of a zero line total.
const FreeLabel = "Free"

// ErrInvalidAmount is returned when a price string cannot be parsed.
var ErrInvalidAmount = errors.New("invalid amount")

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(MaxAmount)
)

// ParseMoney converts a decimal string such as "49", "49.00" or "$15" into cents,
// rounding half-up to the nearest cent. Amounts above MaxAmount are rejected.
func ParseMoney(value string) (Money, error) {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(trimmed, "$")
	trimmed = strings.ReplaceAll(trimmed, ",", "")
	if trimmed == "" {
		return 0, fmt.Errorf("empty amount: %w", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", value, ErrInvalidAmount)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount %q: %w", value, ErrInvalidAmount)
	}
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) {
		return 0, fmt.Errorf("amount %q above %s: %w", value, Format(MaxAmount), ErrInvalidAmount)
	}
	return cents.IntPart(), nil
}

// Decimal returns the amount as a decimal in major units.
func Decimal(m Money) decimal.Decimal {
	return decimal.New(m, -2)
}

// Format renders the amount as "$49.00".
func Format(m Money) string {
	if m < 0 {
		return "-" + Format(-m)
	}
	return "$" + Decimal(m).StringFixed(2)
}

// FormatDiscount renders a discount as "-$4.90".
func FormatDiscount(m Money) string {
	if m < 0 {
		m = -m
	}
	return "-" + Format(m)
}

// FormatLine renders a line total, using the Free label when the unit price is zero.
func FormatLine(unit, total Money) string {
	if unit == 0 {
		return FreeLabel
	}
	return Format(total)
}
