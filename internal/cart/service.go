package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/marketplace-cart/internal/events"
	"github.com/noah-isme/marketplace-cart/internal/handoff"
	"github.com/noah-isme/marketplace-cart/internal/obs"
	"github.com/noah-isme/marketplace-cart/internal/voucher"
)

// ErrNotFound indicates the requested cart session could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Service owns one ledger per cart session and routes every request through
// the ledger's named operations.
type Service struct {
	Options Options
	Handoff handoff.Store
	Events  *events.Bus
	Logger  zerolog.Logger
	// Seeds populate a cart created without rows.
	Seeds []SeedItem
	// TTL expires idle sessions.
	TTL time.Duration
	Now func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu     sync.Mutex
	ledger *Ledger
	// touched is guarded by Service.mu.
	touched time.Time
}

// ItemUpdate is a partial change to one line item. License is applied first,
// then a typed quantity, then a stepper press.
type ItemUpdate struct {
	License  *string
	Quantity *string
	Step     int
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 2 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create opens a session seeded with the provided rows, or the default seeds
// when none are given.
func (s *Service) Create(_ context.Context, seeds []SeedItem) (string, View, error) {
	if len(seeds) == 0 {
		seeds = s.Seeds
	}
	ledger, err := Load(s.Options, seeds)
	obs.IncLedgerMutation("create", err)
	if err != nil {
		return "", View{}, err
	}
	id := uuid.NewString()
	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = make(map[string]*session)
	}
	s.sessions[id] = &session{ledger: ledger, touched: s.now()}
	s.mu.Unlock()
	return id, ledger.View(), nil
}

// View returns the current projection of the cart.
func (s *Service) View(_ context.Context, id string) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.ledger.View(), nil
}

// AddItem adds a rendered row to the cart.
func (s *Service) AddItem(_ context.Context, id string, seed SeedItem) (View, error) {
	return s.mutate(id, "add_item", func(l *Ledger) error {
		item, err := seed.LineItem()
		if err != nil {
			return err
		}
		_, err = l.AddItem(item)
		return err
	})
}

// RemoveItem removes a line item. Unknown items are ignored.
func (s *Service) RemoveItem(ctx context.Context, id, itemID string) (View, error) {
	var emptied bool
	view, err := s.mutate(id, "remove_item", func(l *Ledger) error {
		if l.RemoveItem(itemID) && l.State() == StateEmpty {
			emptied = true
		}
		return nil
	})
	if err == nil && emptied {
		s.emit(ctx, events.TopicCartCleared, id, map[string]any{"reason": "last_item_removed"})
	}
	return view, err
}

// UpdateItem applies a partial line item change. The whole update is checked
// before anything is applied, so a rejected update leaves the item untouched.
func (s *Service) UpdateItem(_ context.Context, id, itemID string, upd ItemUpdate) (View, error) {
	return s.mutate(id, "update_item", func(l *Ledger) error {
		item, ok := l.Item(itemID)
		if !ok {
			return fmt.Errorf("update %s: %w", itemID, ErrItemNotFound)
		}
		if upd.Step < -1 || upd.Step > 1 {
			return fmt.Errorf("step %d: %w", upd.Step, ErrInvalidInput)
		}
		if upd.License != nil {
			if _, ok := item.tier(strings.TrimSpace(*upd.License)); !ok {
				return fmt.Errorf("update %s license %q: %w", itemID, *upd.License, ErrUnknownTier)
			}
		}

		if upd.License != nil {
			if _, err := l.SetLicenseTier(itemID, *upd.License); err != nil {
				return err
			}
		}
		if upd.Quantity != nil {
			if _, err := l.SetQuantityInput(itemID, *upd.Quantity); err != nil {
				return err
			}
		}
		var err error
		switch upd.Step {
		case 1:
			_, err = l.Increment(itemID)
		case -1:
			_, err = l.Decrement(itemID)
		}
		return err
	})
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, id string) (View, error) {
	view, err := s.mutate(id, "clear", func(l *Ledger) error {
		l.Clear()
		return nil
	})
	if err == nil {
		s.emit(ctx, events.TopicCartCleared, id, map[string]any{"reason": "cleared"})
	}
	return view, err
}

// ApplyCoupon applies a discount code and returns the notice to display.
func (s *Service) ApplyCoupon(ctx context.Context, id, code string) (View, Notice, error) {
	var notice Notice
	view, err := s.mutate(id, "apply_coupon", func(l *Ledger) error {
		var err error
		notice, err = l.ApplyDiscountCode(code)
		return err
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return View{}, Notice{}, err
	case errors.Is(err, voucher.ErrCodeRequired):
		obs.IncCoupon("cart", "empty")
	case err != nil:
		obs.IncCoupon("cart", "invalid")
		s.emit(ctx, events.TopicCouponRejected, id, map[string]any{"code": code})
	default:
		obs.IncCoupon("cart", "applied")
		s.emit(ctx, events.TopicCouponApplied, id, map[string]any{
			"code":     view.DiscountCode,
			"discount": view.Discount,
		})
	}
	return view, notice, err
}

// RemoveCoupon drops the active discount code.
func (s *Service) RemoveCoupon(_ context.Context, id string) (View, error) {
	return s.mutate(id, "remove_coupon", func(l *Ledger) error {
		l.ClearDiscount()
		return nil
	})
}

// Checkout writes the handoff snapshot for the checkout page. Empty carts are
// refused with ErrEmptyCart and nothing is written.
func (s *Service) Checkout(ctx context.Context, id string) (handoff.Snapshot, error) {
	if s.Handoff == nil {
		return handoff.Snapshot{}, errors.New("cart: handoff store not configured")
	}
	var snap handoff.Snapshot
	_, err := s.mutate(id, "checkout", func(l *Ledger) error {
		var err error
		snap, err = l.Checkout()
		if err != nil {
			return err
		}
		if err := s.Handoff.Put(ctx, handoff.Key(id), snap); err != nil {
			return fmt.Errorf("write handoff: %w", err)
		}
		return nil
	})
	if err != nil {
		return handoff.Snapshot{}, err
	}
	s.emit(ctx, events.TopicCheckoutStarted, id, snap)
	return snap, nil
}

// Sweep drops sessions idle for longer than the TTL and returns how many were removed.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.ttl())
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.touched.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// lookup returns a live session and refreshes its idle timer. Expired
// sessions are dropped on access.
func (s *Service) lookup(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	now := s.now()
	if now.Sub(sess.touched) > s.ttl() {
		delete(s.sessions, id)
		return nil, fmt.Errorf("%s expired: %w", id, ErrNotFound)
	}
	sess.touched = now
	return sess, nil
}

func (s *Service) mutate(id, op string, fn func(*Ledger) error) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	err = fn(sess.ledger)
	obs.IncLedgerMutation(op, err)
	return sess.ledger.View(), err
}

func (s *Service) emit(ctx context.Context, topic, id string, payload any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, id, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Str("session_id", id).Msg("emit cart event")
	}
}
