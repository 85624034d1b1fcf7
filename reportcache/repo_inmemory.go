package reportcache

import "sync"

// InMemoryRepo is an in-memory implementation of Repo, used when no database
// is configured.
type InMemoryRepo struct {
	mu      sync.RWMutex
	entries map[Key]*CachedReport
}

// NewInMemoryRepo creates a new in-memory report cache repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		entries: make(map[Key]*CachedReport),
	}
}

// Get retrieves the cached report for a key. Returns nil when absent.
func (r *InMemoryRepo) Get(key Key) (*CachedReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[key]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

// Insert replaces any existing row for the same key with the new entry
func (r *InMemoryRepo) Insert(entry *CachedReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *entry
	r.entries[entry.Key] = &copied
	return nil
}

// DeleteByUser removes every cached report belonging to a user
func (r *InMemoryRepo) DeleteByUser(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.entries {
		if key.UserID == userID {
			delete(r.entries, key)
		}
	}
	return nil
}
