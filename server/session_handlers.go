package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/imetrics/go-connect-server/identity"
)

// SessionSyncHandler lets the host application propagate primary sessions to
// this service. POST upserts a session, DELETE removes it. The endpoint is
// expected to sit behind the host's internal network boundary.
func (s *Server) SessionSyncHandler() http.HandlerFunc {
	type syncRequest struct {
		SessionID string `json:"sessionId"`
		UserID    string `json:"userId"`
		UserEmail string `json:"userEmail"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req syncRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "Malformed session payload")
				return
			}
			if req.SessionID == "" || req.UserID == "" {
				writeError(w, http.StatusBadRequest, "invalid_request", "sessionId and userId are required")
				return
			}

			session := identity.PrimarySession{
				UserID:    req.UserID,
				UserEmail: req.UserEmail,
				IssuedAt:  time.Now(),
			}
			if err := s.sessions.Upsert(req.SessionID, session); err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", "Could not store session")
				return
			}
			w.WriteHeader(http.StatusNoContent)

		case http.MethodDelete:
			sessionID := r.URL.Query().Get("sessionId")
			if sessionID == "" {
				writeError(w, http.StatusBadRequest, "invalid_request", "sessionId is required")
				return
			}
			if err := s.sessions.Delete(sessionID); err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", "Could not delete session")
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// LogoutHandler ends the primary session. The side-channel slot for the
// browser context is cleared too, so an abandoned connection flow cannot
// outlive the session that started it.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			_ = s.sessions.Delete(cookie.Value)
		}
		if contextID := contextCookieValue(r); contextID != "" {
			_ = s.coord.ClearPendingGrant(contextID)
		}

		expireCookie(w, SessionCookieName)
		expireCookie(w, ContextCookieName)

		w.WriteHeader(http.StatusNoContent)
	}
}

func expireCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
