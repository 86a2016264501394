// Package cache holds the pending-attempt stores that bridge an authorization
// attempt across the browser redirect: the state parameter sent to the
// platform maps to the nonce the callback must verify against.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrAttemptNotFound is returned when a state has no pending attempt: unknown,
// expired, or already redeemed.
var ErrAttemptNotFound = errors.New("pending attempt not found or expired")

// PendingAttempt is the per-attempt state held between the authorize redirect
// and the callback.
type PendingAttempt struct {
	Nonce     string    `json:"nonce"`
	CreatedAt time.Time `json:"created_at"`
}

// AttemptStore binds state values to pending attempts. Take consumes the
// entry, so a state value is redeemable exactly once.
type AttemptStore interface {
	Put(ctx context.Context, state string, attempt PendingAttempt) error
	Take(ctx context.Context, state string) (*PendingAttempt, error)
}
