package pricing

import (
	"errors"
	"testing"
)

func TestComputeSumsLines(t *testing.T) {
	summary := Compute([]Item{
		{Qty: 2, UnitPrice: 4_900},
		{Qty: 1, UnitPrice: 9_900},
		{Qty: 3, UnitPrice: 0},
	}, 0)
	if summary.Subtotal != 19_700 {
		t.Fatalf("expected subtotal 19700, got %d", summary.Subtotal)
	}
	if summary.Total != 19_700 {
		t.Fatalf("expected total 19700, got %d", summary.Total)
	}
	if summary.Tax != 0 {
		t.Fatalf("expected zero tax, got %d", summary.Tax)
	}
}

func TestComputeClampsDiscount(t *testing.T) {
	summary := Compute([]Item{{Qty: 1, UnitPrice: 1_000}}, 1_500)
	if summary.Discount != 1_000 {
		t.Fatalf("expected discount clamped to 1000, got %d", summary.Discount)
	}
	if summary.Total != 0 {
		t.Fatalf("expected zero total, got %d", summary.Total)
	}
}

func TestSettleIgnoresNegativeDiscount(t *testing.T) {
	summary := Settle(2_500, -100)
	if summary.Discount != 0 || summary.Total != 2_500 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestParseMoney(t *testing.T) {
	cases := map[string]Money{
		"49":      4_900,
		"49.00":   4_900,
		"$15":     1_500,
		" 0 ":     0,
		"19.995":  2_000,
		"1,299.5": 129_950,
	}
	for in, want := range cases {
		got, err := ParseMoney(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %d got %d", in, want, got)
		}
	}
	for _, bad := range []string{"", "abc", "-1"} {
		if _, err := ParseMoney(bad); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount for %q, got %v", bad, err)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format(4_410); got != "$44.10" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := FormatDiscount(490); got != "-$4.90" {
		t.Fatalf("unexpected discount format %q", got)
	}
	if got := FormatLine(0, 0); got != FreeLabel {
		t.Fatalf("expected Free label, got %q", got)
	}
	if got := FormatLine(4_900, 9_800); got != "$98.00" {
		t.Fatalf("unexpected line format %q", got)
	}
}

func TestParseMoneyRejectsHugeAmounts(t *testing.T) {
	for _, bad := range []string{"100000000000000000000", "1000000.01", "50000000000000000"} {
		if _, err := ParseMoney(bad); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount for %q, got %v", bad, err)
		}
	}
	got, err := ParseMoney("$1,000,000")
	if err != nil || got != MaxAmount {
		t.Fatalf("expected the ceiling to parse, got %d %v", got, err)
	}
}

func TestSubtotalDetectsOverflow(t *testing.T) {
	if _, err := Subtotal([]Item{{Qty: 2, UnitPrice: MaxSubtotal/2 + 1}}); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow for line total, got %v", err)
	}
	if _, err := Subtotal([]Item{{Qty: 1, UnitPrice: MaxSubtotal}, {Qty: 1, UnitPrice: 1}}); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow for running sum, got %v", err)
	}
	if got, err := Subtotal([]Item{{Qty: 3, UnitPrice: 4_900}, {Qty: -1, UnitPrice: 100}}); err != nil || got != 14_700 {
		t.Fatalf("unexpected subtotal %d %v", got, err)
	}
}

func TestComputeSaturatesInsteadOfWrapping(t *testing.T) {
	summary := Compute([]Item{{Qty: 1 << 30, UnitPrice: 1 << 40}}, 0)
	if summary.Subtotal != MaxSubtotal || summary.Total != MaxSubtotal {
		t.Fatalf("expected saturated totals, got %+v", summary)
	}
	if got := LineTotal(1<<40, 1<<30); got != MaxSubtotal {
		t.Fatalf("expected saturated line total, got %d", got)
	}
}
