package voucher

import (
	"errors"
	"testing"
)

func TestComputePercent(t *testing.T) {
	rule := Rule{Kind: KindPercent, PercentBps: 2000}
	discount := Compute(100_000, rule)
	if discount != 20_000 {
		t.Fatalf("expected 20000 discount, got %d", discount)
	}
}

func TestComputePercentRoundsHalfUp(t *testing.T) {
	rule := Rule{Kind: KindPercent, PercentBps: 1000}
	if got := Compute(1_999, rule); got != 200 {
		t.Fatalf("expected 200, got %d", got)
	}
	if got := Compute(1_994, rule); got != 199 {
		t.Fatalf("expected 199, got %d", got)
	}
}

func TestComputeFixedClampsToSubtotal(t *testing.T) {
	rule := Rule{Kind: KindFixed, Value: 1_500}
	if got := Compute(1_000, rule); got != 1_000 {
		t.Fatalf("expected discount clamped to 1000, got %d", got)
	}
	if got := Compute(5_000, rule); got != 1_500 {
		t.Fatalf("expected 1500, got %d", got)
	}
	if got := Compute(0, rule); got != 0 {
		t.Fatalf("expected 0 on empty subtotal, got %d", got)
	}
}

func TestLookupNormalizes(t *testing.T) {
	table := DefaultTable()
	rule, err := table.Lookup("  save10 ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rule.Code != "SAVE10" || rule.Description != "10% off" {
		t.Fatalf("unexpected rule %+v", rule)
	}
	if _, err := table.Lookup("BOGUS"); !errors.Is(err, ErrInvalidCoupon) {
		t.Fatalf("expected ErrInvalidCoupon, got %v", err)
	}
	if _, err := table.Lookup("   "); !errors.Is(err, ErrCodeRequired) {
		t.Fatalf("expected ErrCodeRequired, got %v", err)
	}
}

func TestCodesSorted(t *testing.T) {
	codes := DefaultTable().Codes()
	want := []string{"SAVE10", "SAVE20", "WELCOME"}
	if len(codes) != len(want) {
		t.Fatalf("unexpected codes %v", codes)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("unexpected codes %v", codes)
		}
	}
}
