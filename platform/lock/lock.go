// Package lock provides advisory, TTL-bound mutual exclusion primitives.
// This is part of the platform layer and contains no business logic.
//
// Locks are best effort: a holder that crashes keeps the key until its TTL
// elapses, after which any caller may acquire it again. Release is a
// compare-and-delete on the owner token, so a late release never removes a
// newer holder's entry.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTTL bounds how long a crashed holder can block a key.
	DefaultTTL = 30 * time.Second
	// DefaultBackoff is the pause before the single retry.
	DefaultBackoff = 500 * time.Millisecond
	// DefaultMaxAttempts is one try plus one retry.
	DefaultMaxAttempts = 2
)

// Locker acquires and releases keyed locks owned by an opaque token.
type Locker interface {
	// Acquire sets key to owner if the key is not held. It reports whether
	// the caller now holds the lock.
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Release deletes key only when it is still held by owner.
	Release(ctx context.Context, key, owner string) (bool, error)
}

// Policy describes how callers retry acquisition.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	TTL         time.Duration
}

// DefaultPolicy returns the retry-once policy used for lead creation.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
		TTL:         DefaultTTL,
	}
}

// Normalize fills zero fields with defaults.
func (p Policy) Normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if p.TTL <= 0 {
		p.TTL = DefaultTTL
	}
	return p
}

// NewOwnerToken returns a unique token identifying one lock holder.
func NewOwnerToken() string {
	return uuid.NewString()
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
