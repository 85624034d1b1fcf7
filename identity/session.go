package identity

import (
	"context"
	"time"
)

// PrimarySession is the identity the host application treats as the logged-in
// user. At most one is active per browser context. It must never be replaced
// as a side effect of a secondary OAuth grant.
type PrimarySession struct {
	UserID    string
	UserEmail string
	IssuedAt  time.Time
}

// SameIdentity reports whether two sessions refer to the same user. A nil
// session never matches.
func (s *PrimarySession) SameIdentity(other *PrimarySession) bool {
	if s == nil || other == nil {
		return false
	}
	return s.UserID == other.UserID && s.UserEmail == other.UserEmail
}

// Matches reports whether the session belongs to the given user.
func (s *PrimarySession) Matches(userID, userEmail string) bool {
	if s == nil {
		return false
	}
	return s.UserID == userID && s.UserEmail == userEmail
}

// AmbientReader reports whatever the host application currently considers the
// active primary session. It is threaded explicitly into coordinator
// operations so drift checks are comparisons over inputs, not hidden global
// reads. Returns nil when no session is active.
type AmbientReader interface {
	CurrentSession(ctx context.Context) (*PrimarySession, error)
}

// AmbientReaderFunc adapts a function to the AmbientReader interface.
type AmbientReaderFunc func(ctx context.Context) (*PrimarySession, error)

func (f AmbientReaderFunc) CurrentSession(ctx context.Context) (*PrimarySession, error) {
	return f(ctx)
}
