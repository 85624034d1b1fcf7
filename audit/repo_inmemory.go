package audit

import (
	"sort"
	"sync"
)

// InMemoryRepo is an in-memory implementation of Repo, used when no database
// is configured.
type InMemoryRepo struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewInMemoryRepo creates a new in-memory audit trail repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

// Append adds an entry to the trail
func (r *InMemoryRepo) Append(entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

// ListByUser returns a user's entries, newest first, capped at limit
func (r *InMemoryRepo) ListByUser(userID string, limit int) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0)
	for _, e := range r.entries {
		if e.UserID == userID {
			copied := *e
			entries = append(entries, &copied)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].At.After(entries[j].At)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
