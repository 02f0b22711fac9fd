package pricing

import "errors"

// Money represents a monetary value stored in minor units (cents).
type Money = int64

const (
	// MaxAmount caps a single unit price at $1,000,000.
	MaxAmount Money = 100_000_000
	// MaxSubtotal caps any sum of line totals; amounts stay exact as JSON numbers.
	MaxSubtotal Money = 1 << 53
)

// ErrOverflow is returned when an amount would exceed MaxSubtotal.
var ErrOverflow = errors.New("amount exceeds limit")

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money
	Discount Money
	Tax      Money
	Total    Money
}

// Compute calculates totals for the provided items and discount. Digital goods
// carry no tax, so Tax is always zero.
// A subtotal beyond MaxSubtotal saturates; use Subtotal to detect it.
func Compute(items []Item, discount Money) Summary {
	subtotal, err := Subtotal(items)
	if err != nil {
		subtotal = MaxSubtotal
	}
	return Settle(subtotal, discount)
}

// Subtotal sums the line totals, failing with ErrOverflow past MaxSubtotal.
func Subtotal(items []Item) (Money, error) {
	var subtotal Money
	for _, it := range items {
		line, err := MulMoney(it.UnitPrice, it.Qty)
		if err != nil {
			return 0, err
		}
		if subtotal, err = AddMoney(subtotal, line); err != nil {
			return 0, err
		}
	}
	return subtotal, nil
}

// MulMoney returns unit*qty. Non-positive operands yield zero.
func MulMoney(unit Money, qty int) (Money, error) {
	if qty <= 0 || unit <= 0 {
		return 0, nil
	}
	if unit > MaxSubtotal || Money(qty) > MaxSubtotal/unit {
		return 0, ErrOverflow
	}
	return unit * Money(qty), nil
}

// AddMoney returns a+b for non-negative amounts within MaxSubtotal.
func AddMoney(a, b Money) (Money, error) {
	if a < 0 || b < 0 || a > MaxSubtotal || b > MaxSubtotal-a {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Settle applies a discount to an already known subtotal.
func Settle(subtotal, discount Money) Summary {
	if subtotal < 0 {
		subtotal = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	var tax Money
	total := subtotal - discount
	if total < 0 {
		total = 0
	}
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    total + tax,
	}
}

// LineTotal returns unit price multiplied by quantity, saturating at MaxSubtotal.
func LineTotal(unit Money, qty int) Money {
	total, err := MulMoney(unit, qty)
	if err != nil {
		return MaxSubtotal
	}
	return total
}
