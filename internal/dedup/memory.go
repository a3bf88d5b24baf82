package dedup

import (
	"context"
	"time"

	"github.com/spec-kit/webhook-relay/pkg/lru"
)

// MemoryStore keeps claims in a process-local TTL LRU.
type MemoryStore struct {
	cache *lru.Cache[string, struct{}]
}

// NewMemoryStore creates a store holding at most capacity claims for ttl each.
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: lru.New[string, struct{}](capacity, ttl)}
}

func (s *MemoryStore) Reserve(_ context.Context, eventID string) (bool, error) {
	return s.cache.PutIfAbsent(eventID, struct{}{}), nil
}

func (s *MemoryStore) Release(_ context.Context, eventID string) error {
	s.cache.Delete(eventID)
	return nil
}
