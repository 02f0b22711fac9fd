package handoff

import (
	"context"
	"errors"

	"github.com/noah-isme/marketplace-cart/internal/resilience"
)

// GuardedStore routes calls through a circuit breaker so an unreachable
// backend fails fast instead of stalling every checkout. A missing snapshot
// is a normal outcome and does not count against the backend.
type GuardedStore struct {
	Store   Store
	Breaker *resilience.Breaker
}

func countsAsFailure(err error) bool {
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, context.Canceled)
}

// Put writes through the breaker.
func (g GuardedStore) Put(ctx context.Context, key string, snap Snapshot) error {
	if g.Breaker == nil {
		return g.Store.Put(ctx, key, snap)
	}
	return g.Breaker.Do(ctx, func(ctx context.Context) error {
		return g.Store.Put(ctx, key, snap)
	}, countsAsFailure)
}

// Take reads through the breaker.
func (g GuardedStore) Take(ctx context.Context, key string) (Snapshot, error) {
	if g.Breaker == nil {
		return g.Store.Take(ctx, key)
	}
	var snap Snapshot
	err := g.Breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		snap, err = g.Store.Take(ctx, key)
		return err
	}, countsAsFailure)
	return snap, err
}
