// Package redis provides a redis-backed pending-attempt store for
// deployments that run more than one instance behind a load balancer.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/appgrid/platform-connect/cache"
)

// AttemptStore implements cache.AttemptStore on top of Redis. Expiry is
// delegated to Redis key TTLs; Take uses GETDEL so redemption is atomic even
// across instances.
type AttemptStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, prefix string, ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *AttemptStore) key(state string) string {
	return fmt.Sprintf("%s:attempt:%s", s.prefix, state)
}

func (s *AttemptStore) Put(ctx context.Context, state string, attempt cache.PendingAttempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal pending attempt: %w", err)
	}
	if err := s.client.Set(ctx, s.key(state), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store pending attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Take(ctx context.Context, state string) (*cache.PendingAttempt, error) {
	data, err := s.client.GetDel(ctx, s.key(state)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load pending attempt: %w", err)
	}

	var attempt cache.PendingAttempt
	if err := json.Unmarshal([]byte(data), &attempt); err != nil {
		return nil, fmt.Errorf("unmarshal pending attempt: %w", err)
	}
	return &attempt, nil
}

var _ cache.AttemptStore = (*AttemptStore)(nil)
