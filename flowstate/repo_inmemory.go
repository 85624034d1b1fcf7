package flowstate

import (
	"errors"
	"sync"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.RWMutex
	pending map[string]*PendingGrant
}

// NewInMemoryRepo creates a new in-memory pending grant repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		pending: make(map[string]*PendingGrant),
	}
}

// Upsert stores or replaces the pending grant for a browser context
func (r *InMemoryRepo) Upsert(contextID string, pending *PendingGrant) error {
	if contextID == "" {
		return errors.New("contextID cannot be empty")
	}
	if pending == nil {
		return errors.New("pending cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy to prevent external modifications
	r.pending[contextID] = &PendingGrant{
		ExpectedUserID:    pending.ExpectedUserID,
		ExpectedUserEmail: pending.ExpectedUserEmail,
		FlowMarker:        pending.FlowMarker,
		CreatedAt:         pending.CreatedAt,
	}

	return nil
}

// Get retrieves the pending grant for a browser context, nil when none exists
func (r *InMemoryRepo) Get(contextID string) (*PendingGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending, ok := r.pending[contextID]
	if !ok {
		return nil, nil
	}

	copied := *pending
	return &copied, nil
}

// Delete removes the pending grant for a browser context
func (r *InMemoryRepo) Delete(contextID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pending, contextID)
	return nil
}
