package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/marketplace-cart/internal/cart"
	"github.com/noah-isme/marketplace-cart/internal/events"
	"github.com/noah-isme/marketplace-cart/internal/handoff"
	"github.com/noah-isme/marketplace-cart/internal/obs"
	"github.com/noah-isme/marketplace-cart/internal/pricing"
	"github.com/noah-isme/marketplace-cart/internal/voucher"
)

var (
	ErrNoHandoff       = errors.New("no cart handed off for checkout")
	ErrAlreadyPlaced   = errors.New("order already placed")
	ErrSessionNotFound = errors.New("checkout session not found")
)

// Order is the confirmation returned once payment is simulated.
type Order struct {
	Number        string        `json:"orderNumber"`
	Total         pricing.Money `json:"total"`
	Email         string        `json:"email"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Summary       cart.Totals   `json:"summary"`
	PlacedAt      time.Time     `json:"placedAt"`
}

type orderPayload struct {
	Customer struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
	} `json:"customer"`
	Billing struct {
		Country string `json:"country"`
		City    string `json:"city"`
		State   string `json:"state"`
		Address string `json:"address"`
		ZipCode string `json:"zipCode"`
		Company string `json:"company"`
	} `json:"billing"`
	Payment struct {
		Method PaymentMethod `json:"method"`
		Amount pricing.Money `json:"amount"`
	} `json:"payment"`
	Order       cart.Totals `json:"order"`
	OrderNumber string      `json:"orderNumber"`
}

// Service starts checkout sessions from handed-off carts and places orders.
type Service struct {
	Store   handoff.Store
	Coupons voucher.Table
	// Delay simulates payment processing. Zero skips it.
	Delay  time.Duration
	Now    func() time.Time
	Rand   func(n int) int
	Events *events.Bus
	Logger zerolog.Logger
	// TTL expires idle checkout sessions, placed or not.
	TTL time.Duration

	validateOnce sync.Once
	validate     *validator.Validate

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	sess    *Session
	touched time.Time
}

func (s *Service) ttl() time.Duration {
	if s.TTL <= 0 {
		return time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) coupons() voucher.Table {
	if s.Coupons == nil {
		return voucher.DefaultTable()
	}
	return s.Coupons
}

func (s *Service) validator() *validator.Validate {
	s.validateOnce.Do(func() { s.validate = newValidator() })
	return s.validate
}

// Begin consumes the handoff written by the cart for sessionID and registers
// the resulting session, replacing any earlier one under the same id.
func (s *Service) Begin(ctx context.Context, sessionID string) (sess *Session, err error) {
	defer func() { obs.IncCheckout("begin", err) }()
	if s.Store == nil {
		return nil, errors.New("checkout: handoff store not configured")
	}
	snap, err := s.Store.Take(ctx, handoff.Key(sessionID))
	if err != nil {
		if errors.Is(err, handoff.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoHandoff, sessionID)
		}
		return nil, fmt.Errorf("take handoff: %w", err)
	}
	sess = newSession(sessionID, s.coupons(), snap.Subtotal, snap.DiscountCode)

	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = make(map[string]*entry)
	}
	s.sessions[sessionID] = &entry{sess: sess, touched: s.now()}
	s.mu.Unlock()
	return sess, nil
}

// Session returns a registered session and refreshes its idle timer. Expired
// sessions are dropped on access.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	now := s.now()
	if now.Sub(e.touched) > s.ttl() {
		delete(s.sessions, id)
		return nil, fmt.Errorf("%s expired: %w", id, ErrSessionNotFound)
	}
	e.touched = now
	return e.sess, nil
}

// Sweep drops sessions idle for longer than the TTL and returns how many were removed.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.ttl())
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.sessions {
		if e.touched.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// PlaceOrder validates the form, waits out the simulated payment and confirms
// the order. A session places at most one order.
func (s *Service) PlaceOrder(ctx context.Context, sess *Session, req OrderRequest) (order Order, err error) {
	defer func() { obs.IncCheckout("place_order", err) }()
	if sess == nil {
		return Order{}, errors.New("checkout: nil session")
	}
	if sess.order != nil {
		return Order{}, ErrAlreadyPlaced
	}
	req.Customer = req.Customer.trimmed()
	if err := validateForm(s.validator(), req, sess.method); err != nil {
		return Order{}, err
	}
	if err := s.wait(ctx); err != nil {
		return Order{}, err
	}

	totals := sess.Totals()
	now := s.now()
	order = Order{
		Number:        s.orderNumber(now),
		Total:         totals.Total,
		Email:         req.Customer.Email,
		PaymentMethod: sess.method,
		Summary:       totals,
		PlacedAt:      now.UTC(),
	}

	payload := buildPayload(req.Customer, order)
	s.Logger.Info().
		Str("session_id", sess.ID).
		Str("order_number", order.Number).
		Interface("order", payload).
		Msg("order placed")
	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicOrderPlaced, sess.ID, payload); err != nil {
			s.Logger.Warn().Err(err).Str("session_id", sess.ID).Msg("emit order placed")
		}
	}
	if obs.OrderAmount != nil {
		obs.OrderAmount.Observe(pricing.Decimal(order.Total).InexactFloat64())
	}
	sess.order = &order
	return order, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// orderNumber is the last eight digits of the millisecond clock followed by a
// random suffix in [0, 999].
func (s *Service) orderNumber(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	random := rand.IntN
	if s.Rand != nil {
		random = s.Rand
	}
	return ms + strconv.Itoa(random(1000))
}

func buildPayload(c Customer, order Order) orderPayload {
	var p orderPayload
	p.Customer.FirstName = c.FirstName
	p.Customer.LastName = c.LastName
	p.Customer.Email = c.Email
	p.Billing.Country = c.Country
	p.Billing.City = c.City
	p.Billing.State = c.State
	p.Billing.Address = c.Address
	p.Billing.ZipCode = c.ZipCode
	p.Billing.Company = c.Company
	p.Payment.Method = order.PaymentMethod
	p.Payment.Amount = order.Total
	p.Order = order.Summary
	p.OrderNumber = order.Number
	return p
}
