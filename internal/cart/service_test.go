package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServiceSessionsExpire(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := &Service{
		Seeds: defaultSeeds(),
		TTL:   time.Minute,
		Now:   func() time.Time { return now },
	}
	id, _, err := svc.Create(context.Background(), nil)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = svc.View(context.Background(), id)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = svc.View(context.Background(), id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceSweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := &Service{TTL: time.Minute, Now: func() time.Time { return now }}
	_, _, err := svc.Create(context.Background(), defaultSeeds())
	require.NoError(t, err)
	fresh, _, err := svc.Create(context.Background(), defaultSeeds())
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	_, err = svc.View(context.Background(), fresh)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	require.Equal(t, 1, svc.Sweep())
	_, err = svc.View(context.Background(), fresh)
	require.NoError(t, err)
}

func TestServiceCheckoutRequiresStore(t *testing.T) {
	svc := &Service{Seeds: defaultSeeds()}
	id, _, err := svc.Create(context.Background(), nil)
	require.NoError(t, err)
	_, err = svc.Checkout(context.Background(), id)
	require.Error(t, err)
}
