package identity

import (
	"fmt"
	"sync"

	apperrors "github.com/imetrics/go-connect-server/internal/errors"
)

// InMemorySessionRepo is an in-memory implementation of Repo
type InMemorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]PrimarySession
}

// NewInMemorySessionRepo creates a new in-memory primary session repository
func NewInMemorySessionRepo() *InMemorySessionRepo {
	return &InMemorySessionRepo{
		sessions: make(map[string]PrimarySession),
	}
}

// Upsert creates or updates a primary session
func (r *InMemorySessionRepo) Upsert(sessionID string, session PrimarySession) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = session
	return nil
}

// Get retrieves a primary session by session ID
func (r *InMemorySessionRepo) Get(sessionID string) (PrimarySession, error) {
	if sessionID == "" {
		return PrimarySession{}, fmt.Errorf("sessionID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return PrimarySession{}, apperrors.ErrSessionNotFound
	}

	return session, nil
}

// Delete removes a primary session
func (r *InMemorySessionRepo) Delete(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}
