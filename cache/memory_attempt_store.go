package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryAttemptStore is a single-process AttemptStore backed by a TTL cache.
// Entries expire on their own if the user abandons the flow mid-redirect.
type MemoryAttemptStore struct {
	cache *ttlcache.Cache[string, PendingAttempt]
}

// NewMemoryAttemptStore creates a memory store whose entries live for ttl.
// Call Stop when the store is no longer needed.
func NewMemoryAttemptStore(ttl time.Duration) *MemoryAttemptStore {
	c := ttlcache.New(
		ttlcache.WithTTL[string, PendingAttempt](ttl),
		ttlcache.WithDisableTouchOnHit[string, PendingAttempt](),
	)
	go c.Start()

	return &MemoryAttemptStore{cache: c}
}

func (s *MemoryAttemptStore) Put(_ context.Context, state string, attempt PendingAttempt) error {
	s.cache.Set(state, attempt, ttlcache.DefaultTTL)
	return nil
}

func (s *MemoryAttemptStore) Take(_ context.Context, state string) (*PendingAttempt, error) {
	// GetAndDelete holds the cache lock across lookup and removal, so
	// concurrent callbacks presenting the same state redeem at most once.
	item, found := s.cache.GetAndDelete(state)
	if !found {
		return nil, ErrAttemptNotFound
	}

	attempt := item.Value()
	return &attempt, nil
}

// Stop terminates the background expiration loop.
func (s *MemoryAttemptStore) Stop() {
	s.cache.Stop()
}

var _ AttemptStore = (*MemoryAttemptStore)(nil)
