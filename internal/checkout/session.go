package checkout

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/noah-isme/marketplace-cart/internal/cart"
	"github.com/noah-isme/marketplace-cart/internal/pricing"
	"github.com/noah-isme/marketplace-cart/internal/voucher"
)

// PaymentMethod selects how the simulated payment is collected.
type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentPayPal PaymentMethod = "paypal"
	PaymentStripe PaymentMethod = "stripe"
)

var ErrPaymentMethod = errors.New("unsupported payment method")

// ParsePaymentMethod normalises a submitted payment method.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw))); m {
	case PaymentCard, PaymentPayPal, PaymentStripe:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrPaymentMethod, raw)
	}
}

// Session is the checkout page state built from a consumed handoff. The
// discount is always derived from the active code and the carried subtotal.
type Session struct {
	ID string

	mu       sync.Mutex
	coupons  voucher.Table
	subtotal pricing.Money
	code     string
	method   PaymentMethod
	order    *Order
}

func newSession(id string, coupons voucher.Table, subtotal pricing.Money, code string) *Session {
	s := &Session{ID: id, coupons: coupons, subtotal: subtotal, method: PaymentCard}
	if _, err := coupons.Lookup(code); err == nil {
		s.code = voucher.Normalize(code)
	}
	return s
}

// Totals derives the amounts payable.
func (s *Session) Totals() cart.Totals {
	var discount pricing.Money
	if rule, err := s.coupons.Lookup(s.code); err == nil {
		discount = voucher.Compute(s.subtotal, rule)
	}
	summary := pricing.Settle(s.subtotal, discount)
	t := cart.Totals{
		Subtotal: summary.Subtotal,
		Discount: summary.Discount,
		Tax:      summary.Tax,
		Total:    summary.Total,
	}
	if summary.Discount > 0 {
		t.DiscountCode = s.code
	}
	return t
}

// ApplyCoupon replaces the active code. An unknown code removes the discount.
func (s *Session) ApplyCoupon(code string) (cart.Notice, error) {
	rule, err := s.coupons.Lookup(code)
	switch {
	case errors.Is(err, voucher.ErrCodeRequired):
		return cart.Notice{Kind: "error", Message: "Please enter a coupon code"}, err
	case err != nil:
		s.code = ""
		return cart.Notice{Kind: "error", Message: "Invalid coupon code"}, err
	}
	s.code = rule.Code
	return cart.Notice{Kind: "success", Message: fmt.Sprintf("Coupon %q applied successfully!", rule.Code)}, nil
}

// SetPaymentMethod switches the payment method.
func (s *Session) SetPaymentMethod(raw string) error {
	m, err := ParsePaymentMethod(raw)
	if err != nil {
		return err
	}
	s.method = m
	return nil
}

// PaymentMethod returns the selected payment method.
func (s *Session) PaymentMethod() PaymentMethod { return s.method }

// Order returns the placed order, if any.
func (s *Session) Order() (Order, bool) {
	if s.order == nil {
		return Order{}, false
	}
	return *s.order, true
}

// SessionView is the checkout summary prepared for display.
type SessionView struct {
	ID            string        `json:"id"`
	Subtotal      string        `json:"subtotal"`
	Discount      string        `json:"discount,omitempty"`
	DiscountCode  string        `json:"discountCode,omitempty"`
	ShowDiscount  bool          `json:"showDiscount"`
	Tax           string        `json:"tax"`
	Total         string        `json:"total"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Placed        bool          `json:"placed"`
}

// View renders the session.
func (s *Session) View() SessionView {
	t := s.Totals()
	v := SessionView{
		ID:            s.ID,
		Subtotal:      pricing.Format(t.Subtotal),
		Tax:           pricing.Format(t.Tax),
		Total:         pricing.Format(t.Total),
		PaymentMethod: s.method,
		Placed:        s.order != nil,
	}
	if t.Discount > 0 {
		v.ShowDiscount = true
		v.Discount = pricing.FormatDiscount(t.Discount)
		v.DiscountCode = t.DiscountCode
	}
	return v
}
