package grants

import (
	"sync"

	apperrors "github.com/imetrics/go-connect-server/internal/errors"
)

// InMemoryRepo is an in-memory implementation of Repo, used when no database
// is configured.
type InMemoryRepo struct {
	mu     sync.RWMutex
	grants map[string]*SecondaryGrant
}

// NewInMemoryRepo creates a new in-memory secondary grant repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		grants: make(map[string]*SecondaryGrant),
	}
}

// Upsert creates or replaces the grant for a user
func (r *InMemoryRepo) Upsert(grant *SecondaryGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *grant
	r.grants[grant.UserID] = &copied
	return nil
}

// Get retrieves the grant for a user
func (r *InMemoryRepo) Get(userID string) (*SecondaryGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	grant, ok := r.grants[userID]
	if !ok {
		return nil, apperrors.ErrGrantNotFound
	}
	copied := *grant
	return &copied, nil
}

// Delete removes the grant for a user. Deleting an absent grant is not an
// error.
func (r *InMemoryRepo) Delete(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.grants, userID)
	return nil
}
