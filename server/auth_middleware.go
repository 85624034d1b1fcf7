package server

import (
	"context"
	"net/http"
	"time"

	"github.com/imetrics/go-connect-server/identity"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the authenticated primary session
	ContextKeySession ContextKey = "primary_session"
	// ContextKeySessionID stores the opaque session cookie value
	ContextKeySessionID ContextKey = "session_id"
)

// RequireSession is middleware that resolves the host application's session
// cookie to a primary session and injects it into the request context.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "not_authenticated", "Sign in before connecting analytics")
				return
			}

			session, err := s.sessions.Get(cookie.Value)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not_authenticated", "Invalid or expired session")
				return
			}

			if time.Since(session.IssuedAt) > s.config.GetMaxSessionAge() {
				_ = s.sessions.Delete(cookie.Value)
				writeError(w, http.StatusUnauthorized, "not_authenticated", "Session expired")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, &session)
			ctx = context.WithValue(ctx, ContextKeySessionID, cookie.Value)
			next(w, r.WithContext(ctx))
		}
	}
}

// sessionFromContext returns the primary session stored by RequireSession.
func sessionFromContext(ctx context.Context) *identity.PrimarySession {
	session, ok := ctx.Value(ContextKeySession).(*identity.PrimarySession)
	if !ok {
		return nil
	}
	return session
}

// ambientReaderFor builds a reader that re-resolves the request's session
// cookie against the session store on every call. Reading twice during
// callback processing is how identity drift is observed.
func (s *Server) ambientReaderFor(r *http.Request) identity.AmbientReader {
	return identity.AmbientReaderFunc(func(context.Context) (*identity.PrimarySession, error) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			return nil, nil
		}
		session, err := s.sessions.Get(cookie.Value)
		if err != nil {
			return nil, nil
		}
		return &session, nil
	})
}
