package inapp

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps notifications in process for tests and database-less runs.
type MemoryStore struct {
	mu    sync.Mutex
	items []Notification
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) Insert(_ context.Context, n Notification) (Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uuid.New()
	n.IsRead = false
	n.CreatedAt = m.now().UTC()
	m.items = append(m.items, n)
	return n, nil
}

func (m *MemoryStore) Page(_ context.Context, inbox Inbox, limit, offset int) ([]Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var owned []Notification
	for _, n := range m.items {
		if inbox.owns(n) {
			owned = append(owned, n)
		}
	}
	// newest first; insertion order breaks ties
	slices.Reverse(owned)
	slices.SortStableFunc(owned, func(a, b Notification) int { return b.CreatedAt.Compare(a.CreatedAt) })

	total := len(owned)
	if offset >= total {
		return []Notification{}, total, nil
	}
	return owned[offset:min(offset+limit, total)], total, nil
}

func (m *MemoryStore) Unread(_ context.Context, inbox Inbox) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	unread := 0
	for _, n := range m.items {
		if inbox.owns(n) && !n.IsRead {
			unread++
		}
	}
	return unread, nil
}

func (m *MemoryStore) MarkRead(_ context.Context, inbox Inbox, ids ...uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var marked int64
	for i := range m.items {
		if inbox.owns(m.items[i]) && (len(ids) == 0 || slices.Contains(ids, m.items[i].ID)) {
			m.items[i].IsRead = true
			marked++
		}
	}
	return marked, nil
}

func (m *MemoryStore) Remove(_ context.Context, inbox Inbox, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.items)
	m.items = slices.DeleteFunc(m.items, func(n Notification) bool { return inbox.owns(n) && n.ID == id })
	return len(m.items) < before, nil
}

func (in Inbox) owns(n Notification) bool {
	return n.TenantID == in.TenantID && n.UserID == in.UserID
}

var _ Store = (*MemoryStore)(nil)
