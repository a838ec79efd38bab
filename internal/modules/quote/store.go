// README: Last-order stores keyed by session (Redis for deployments, in-memory for dev/tests).
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const lastOrderKey = "parcel:session:%s:last_order"

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, result OrderResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal last order: %w", err)
	}
	return s.rdb.Set(ctx, fmt.Sprintf(lastOrderKey, sessionID), payload, s.ttl).Err()
}

func (s *RedisStore) Last(ctx context.Context, sessionID string) (OrderResult, bool, error) {
	raw, err := s.rdb.Get(ctx, fmt.Sprintf(lastOrderKey, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return OrderResult{}, false, nil
	}
	if err != nil {
		return OrderResult{}, false, err
	}
	var result OrderResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return OrderResult{}, false, fmt.Errorf("unmarshal last order: %w", err)
	}
	return result, true, nil
}

type memoryEntry struct {
	result  OrderResult
	expires time.Time
}

// MemoryStore is a process-local Store. Expired entries are dropped lazily.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, result OrderResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, id)
		}
	}
	s.entries[sessionID] = memoryEntry{result: result, expires: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Last(_ context.Context, sessionID string) (OrderResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	if !ok {
		return OrderResult{}, false, nil
	}
	if s.expired(e, s.now()) {
		delete(s.entries, sessionID)
		return OrderResult{}, false, nil
	}
	return e.result, true, nil
}

func (s *MemoryStore) expired(e memoryEntry, now time.Time) bool {
	return s.ttl > 0 && now.After(e.expires)
}
