package voucher

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/marketplace-cart/internal/pricing"
)

var (
	// ErrCodeRequired is returned when an empty code is submitted.
	ErrCodeRequired = errors.New("coupon code required")
	// ErrInvalidCoupon is returned when the code is not present in the table.
	ErrInvalidCoupon = errors.New("invalid coupon code")
)

// Kind selects how a rule derives its discount.
type Kind string

const (
	// KindPercent takes a share of the subtotal.
	KindPercent Kind = "percent"
	// KindFixed takes a flat amount, capped at the subtotal.
	KindFixed Kind = "fixed"
)

// Rule captures the discount behaviour of a single code.
type Rule struct {
	Code        string
	Kind        Kind
	PercentBps  int32
	Value       pricing.Money
	Description string
}

// Table is a fixed, in-memory mapping of normalized codes to rules.
type Table map[string]Rule

// DefaultTable returns the storefront coupon table.
func DefaultTable() Table {
	return NewTable(
		Rule{Code: "SAVE10", Kind: KindPercent, PercentBps: 1000, Description: "10% off"},
		Rule{Code: "SAVE20", Kind: KindPercent, PercentBps: 2000, Description: "20% off"},
		Rule{Code: "WELCOME", Kind: KindFixed, Value: 1500, Description: "$15 off"},
	)
}

// NewTable builds a table keyed by the normalized rule code.
func NewTable(rules ...Rule) Table {
	t := make(Table, len(rules))
	for _, r := range rules {
		r.Code = Normalize(r.Code)
		if r.Code == "" {
			continue
		}
		t[r.Code] = r
	}
	return t
}

// Normalize trims and upper-cases a submitted code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup resolves a submitted code to its rule.
func (t Table) Lookup(code string) (Rule, error) {
	normalized := Normalize(code)
	if normalized == "" {
		return Rule{}, ErrCodeRequired
	}
	rule, ok := t[normalized]
	if !ok {
		return Rule{}, ErrInvalidCoupon
	}
	return rule, nil
}

// Codes lists the known codes in sorted order.
func (t Table) Codes() []string {
	codes := make([]string, 0, len(t))
	for code := range t {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Compute determines the discount for the rule against the live subtotal.
// Percent discounts round half-up to the nearest cent; flat discounts never
// exceed the subtotal.
func Compute(subtotal pricing.Money, r Rule) pricing.Money {
	if subtotal <= 0 {
		return 0
	}
	var discount pricing.Money
	switch r.Kind {
	case KindPercent:
		if r.PercentBps <= 0 {
			return 0
		}
		discount = decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt32(r.PercentBps)).
			Div(decimal.NewFromInt(10_000)).
			Round(0).
			IntPart()
	default:
		discount = r.Value
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		return 0
	}
	return discount
}
