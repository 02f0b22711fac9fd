package handoff_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marketplace-cart/internal/handoff"
	"github.com/noah-isme/marketplace-cart/internal/resilience"
)

func TestGuardedStoreMissingSnapshotKeepsCircuitClosed(t *testing.T) {
	breaker := &resilience.Breaker{Target: "handoff", MinRequests: 1}
	store := handoff.GuardedStore{Store: handoff.NewMemoryStore(time.Minute), Breaker: breaker}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Take(ctx, handoff.Key("absent"))
		require.ErrorIs(t, err, handoff.ErrNotFound)
	}
	require.Equal(t, resilience.Closed, breaker.State())

	require.NoError(t, store.Put(ctx, handoff.Key("s"), handoff.Snapshot{Subtotal: 700}))
	got, err := store.Take(ctx, handoff.Key("s"))
	require.NoError(t, err)
	require.Equal(t, int64(700), int64(got.Subtotal))
}

func TestGuardedStoreOpensWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	breaker := &resilience.Breaker{Target: "handoff", MinRequests: 2, OpenFor: time.Minute}
	store := handoff.GuardedStore{Store: handoff.RedisStore{R: client}, Breaker: breaker}
	ctx := context.Background()

	require.Error(t, store.Put(ctx, handoff.Key("s"), handoff.Snapshot{Subtotal: 100}))
	_, err = store.Take(ctx, handoff.Key("s"))
	require.Error(t, err)
	require.Equal(t, resilience.Open, breaker.State())

	_, err = store.Take(ctx, handoff.Key("s"))
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
}
