// Package idempotency records processed event IDs so redelivered events are
// handled at most once within a retention window.
package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store checks and records processed event IDs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Contains returns true if the event ID has already been processed.
	Contains(ctx context.Context, eventID string) (bool, error)
	// Add marks an event ID as processed. It should be called after successful processing.
	Add(ctx context.Context, eventID string) error
}

// MemoryStore is an in-memory Store. Entries expire after the configured TTL.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store with the given TTL. Expired
// entries are lazily cleaned up on access.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Contains checks if the event ID exists and is not expired.
func (s *MemoryStore) Contains(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	ts, exists := s.entries[eventID]
	s.mu.RUnlock()

	if !exists {
		return false, nil
	}

	if s.now().Sub(ts) > s.ttl {
		s.mu.Lock()
		delete(s.entries, eventID)
		s.mu.Unlock()
		return false, nil
	}

	return true, nil
}

// Add marks the event ID as processed with the current timestamp.
func (s *MemoryStore) Add(_ context.Context, eventID string) error {
	s.mu.Lock()
	s.entries[eventID] = s.now()
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries in the store (including potentially expired ones).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// DefaultKeyPrefix namespaces event IDs in Redis.
const DefaultKeyPrefix = "storefront:webhook:event:"

// RedisStore is a Store backed by Redis keys with an expiry, shared by every
// API instance.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(eventID string) string {
	return s.prefix + eventID
}

// Contains reports whether the event ID key exists.
func (s *RedisStore) Contains(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", eventID, err)
	}
	return n > 0, nil
}

// Add stores the event ID key with the store TTL.
func (s *RedisStore) Add(ctx context.Context, eventID string) error {
	if err := s.client.Set(ctx, s.key(eventID), time.Now().UTC().Format(time.RFC3339), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", eventID, err)
	}
	return nil
}

// Once runs fn unless eventID was already processed. It reports whether fn
// ran. An empty eventID always runs fn. A failing store lookup is logged and
// fn runs anyway; the ID is recorded only when fn succeeds.
func Once(ctx context.Context, store Store, eventID string, logger *slog.Logger, fn func(ctx context.Context) error) (bool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if eventID == "" {
		return true, fn(ctx)
	}

	exists, err := store.Contains(ctx, eventID)
	if err != nil {
		logger.WarnContext(ctx, "idempotency store lookup failed, processing anyway",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
	} else if exists {
		logger.DebugContext(ctx, "skipping duplicate event", slog.String("event_id", eventID))
		return false, nil
	}

	if err := fn(ctx); err != nil {
		return true, err
	}

	if addErr := store.Add(ctx, eventID); addErr != nil {
		logger.WarnContext(ctx, "failed to record event ID in idempotency store",
			slog.String("event_id", eventID),
			slog.String("error", addErr.Error()),
		)
	}
	return true, nil
}
