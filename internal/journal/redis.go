package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/equiblock/engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis
// read-through cache for account history. Appends go to the primary
// and invalidate the affected account's cache; reads check Redis
// first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary journal.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) Append(ctx context.Context, event *model.Event) error {
	if err := s.primary.Append(ctx, event); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, accountKey(event.Account))
	return nil
}

func (s *CachedStore) ListByAccount(ctx context.Context, account string) ([]model.Event, error) {
	data, err := s.rdb.Get(ctx, accountKey(account)).Bytes()
	if err == nil {
		var events []model.Event
		if json.Unmarshal(data, &events) == nil {
			return events, nil
		}
	}

	// Cache miss.
	events, err := s.primary.ListByAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(events); err == nil {
		s.rdb.Set(ctx, accountKey(account), data, s.ttl)
	}
	return events, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListByKind(ctx context.Context, kind string) ([]model.Event, error) {
	return s.primary.ListByKind(ctx, kind)
}

func (s *CachedStore) ListRecent(ctx context.Context, limit int) ([]model.Event, error) {
	return s.primary.ListRecent(ctx, limit)
}

func accountKey(account string) string { return fmt.Sprintf("journal:%s", account) }
