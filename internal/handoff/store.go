package handoff

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store passes a snapshot from one page to the next. Take consumes the value:
// a second Take for the same key reports ErrNotFound.
type Store interface {
	Put(ctx context.Context, key string, s Snapshot) error
	Take(ctx context.Context, key string) (Snapshot, error)
}

// RedisStore keeps snapshots in Redis with a short expiry.
type RedisStore struct {
	R   *redis.Client
	TTL time.Duration
}

func (s RedisStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return 30 * time.Minute
	}
	return s.TTL
}

// Put writes the snapshot, replacing any earlier one under the key.
func (s RedisStore) Put(ctx context.Context, key string, snap Snapshot) error {
	if s.R == nil {
		return errors.New("handoff: redis client not configured")
	}
	data, err := encode(snap)
	if err != nil {
		return err
	}
	if err := s.R.Set(ctx, key, data, s.ttl()).Err(); err != nil {
		return fmt.Errorf("handoff: put: %w", err)
	}
	return nil
}

// Take reads and deletes the snapshot in one round trip.
func (s RedisStore) Take(ctx context.Context, key string) (Snapshot, error) {
	if s.R == nil {
		return Snapshot{}, errors.New("handoff: redis client not configured")
	}
	data, err := s.R.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("handoff: take: %w", err)
	}
	return decode(data)
}

// Ping reports whether Redis is reachable.
func (s RedisStore) Ping(ctx context.Context) error {
	if s.R == nil {
		return errors.New("handoff: redis client not configured")
	}
	return s.R.Ping(ctx).Err()
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore is an in-process Store for single-instance runs and tests.
type MemoryStore struct {
	TTL time.Duration
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{TTL: ttl}
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Put stores the snapshot.
func (m *MemoryStore) Put(_ context.Context, key string, snap Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]memoryEntry)
	}
	entry := memoryEntry{data: data}
	if m.TTL > 0 {
		entry.expires = m.now().Add(m.TTL)
	}
	m.entries[key] = entry
	return nil
}

// Take returns and removes the snapshot.
func (m *MemoryStore) Take(_ context.Context, key string) (Snapshot, error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	delete(m.entries, key)
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		return Snapshot{}, ErrNotFound
	}
	return decode(entry.data)
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }
