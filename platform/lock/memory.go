package lock

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	owner     string
	expiresAt time.Time
}

// MemoryLocker is an in-process Locker. It only excludes callers inside the
// same process and is meant for single-instance deployments and tests.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryLocker creates a MemoryLocker using the wall clock.
func NewMemoryLocker() *MemoryLocker {
	return NewMemoryLockerWithClock(time.Now)
}

// NewMemoryLockerWithClock creates a MemoryLocker with an injected clock.
func NewMemoryLockerWithClock(now func() time.Time) *MemoryLocker {
	return &MemoryLocker{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// Acquire implements Locker.
func (l *MemoryLocker) Acquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.entries[key]; ok && now.Before(entry.expiresAt) {
		return false, nil
	}
	l.entries[key] = memoryEntry{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release implements Locker.
func (l *MemoryLocker) Release(_ context.Context, key, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || entry.owner != owner || !l.now().Before(entry.expiresAt) {
		return false, nil
	}
	delete(l.entries, key)
	return true, nil
}

var _ Locker = (*MemoryLocker)(nil)
