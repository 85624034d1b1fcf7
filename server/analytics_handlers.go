package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/imetrics/go-connect-server/internal/errors"
	"github.com/imetrics/go-connect-server/internal/utils"
	"github.com/imetrics/go-connect-server/provider"
)

// ConnectHandler starts the secondary connection flow for the signed-in user
// and redirects the user agent to the provider's authorization endpoint.
func (s *Server) ConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessionFromContext(r.Context())
		if session == nil {
			writeError(w, http.StatusUnauthorized, "not_authenticated", "Sign in before connecting analytics")
			return
		}

		contextID := s.ensureContextCookie(w, r)

		authURL, err := s.coord.InitiateSecondaryConnection(contextID, session)
		if err != nil {
			s.writeCoordinatorError(w, err)
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// CallbackHandler processes the provider redirect. The pending flow slot and
// the signed state parameter decide whether the callback is trusted; the
// ambient session is only consulted for the drift check.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		errorParam := r.FormValue("error")
		code := r.FormValue("code")
		state := r.FormValue("state")

		if errorParam != "" {
			// User denied or the provider failed; the deferred cleanup in
			// HandleCallback never runs, so clear the slot here.
			if contextID := contextCookieValue(r); contextID != "" {
				_ = s.coord.ClearPendingGrant(contextID)
			}
			writeError(w, http.StatusBadRequest, errorParam, r.FormValue("error_description"))
			return
		}

		if code == "" || state == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "Missing code or state parameter")
			return
		}

		contextID := contextCookieValue(r)
		if contextID == "" {
			writeError(w, http.StatusBadRequest, "no_pending_grant", "No connection flow in progress")
			return
		}

		grant, err := s.coord.HandleCallback(r.Context(), contextID, code, state, s.ambientReaderFor(r))
		if err != nil {
			if apperrors.Is(err, apperrors.ErrIdentityDrift) {
				// The one failure mode that must never be swallowed.
				log.Error().Str("context_id", contextID).Err(err).Msg("Identity drift detected during callback, no tokens persisted")
				writeError(w, http.StatusConflict, "security_violation", "Identity drift detected; the connection was aborted and nothing was saved")
				return
			}
			s.writeCoordinatorError(w, err)
			return
		}

		log.Info().Str("user_id", grant.UserID).Msg("Secondary grant connected")
		http.Redirect(w, r, "/?analytics=connected", http.StatusFound)
	}
}

// StatusHandler reports whether the signed-in user has an active secondary
// grant.
func (s *Server) StatusHandler() http.HandlerFunc {
	type statusResponse struct {
		Connected    bool       `json:"connected"`
		ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
		Scopes       []string   `json:"scopes,omitempty"`
		GrantedEmail string     `json:"grantedEmail,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		session := sessionFromContext(r.Context())

		grant, err := s.coord.Grant(session.UserID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrGrantNotFound) {
				writeJSON(w, http.StatusOK, statusResponse{Connected: false})
				return
			}
			s.writeCoordinatorError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, statusResponse{
			Connected:    true,
			ExpiresAt:    utils.Ptr(grant.ExpiresAt),
			Scopes:       grant.Scopes,
			GrantedEmail: grant.GrantedEmail,
		})
	}
}

// DisconnectHandler revokes and deletes the user's secondary grant along with
// any cached reports. Safe to call when nothing is connected.
func (s *Server) DisconnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessionFromContext(r.Context())

		if err := s.coord.DisconnectSecondaryGrant(r.Context(), session.UserID); err != nil {
			s.writeCoordinatorError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ReportHandler runs a reporting query for the signed-in user. Query
// parameters: resource, metrics, dimensions (comma separated), start, end.
func (s *Server) ReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessionFromContext(r.Context())

		resourceID := r.URL.Query().Get("resource")
		if resourceID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "Missing resource parameter")
			return
		}

		spec := provider.MetricSpec{
			Metrics:    splitParam(r.URL.Query().Get("metrics")),
			Dimensions: splitParam(r.URL.Query().Get("dimensions")),
		}
		if len(spec.Metrics) == 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "At least one metric is required")
			return
		}

		dateRange := provider.DateRange{
			Start: r.URL.Query().Get("start"),
			End:   r.URL.Query().Get("end"),
		}

		report, err := s.coord.FetchMetrics(r.Context(), session.UserID, resourceID, spec, dateRange)
		if err != nil {
			s.writeCoordinatorError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}

// AuditHandler lists the signed-in user's token audit trail, newest first.
func (s *Server) AuditHandler() http.HandlerFunc {
	const defaultAuditLimit = 50

	return func(w http.ResponseWriter, r *http.Request) {
		session := sessionFromContext(r.Context())

		entries, err := s.coord.ListAudit(session.UserID, defaultAuditLimit)
		if err != nil {
			s.writeCoordinatorError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, entries)
	}
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// writeCoordinatorError maps coordinator failures onto HTTP statuses. Every
// branch returns a tagged error code the UI can switch on.
func (s *Server) writeCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "not_authenticated", "Sign in before connecting analytics")
	case apperrors.Is(err, apperrors.ErrNoPendingGrant):
		writeError(w, http.StatusBadRequest, "no_pending_grant", "No connection flow in progress")
	case apperrors.Is(err, apperrors.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "invalid_state", "State parameter failed verification")
	case apperrors.Is(err, apperrors.ErrAuthorizationExpired):
		writeError(w, http.StatusBadRequest, "authorization_expired", "The authorization expired, restart the connection flow")
	case apperrors.Is(err, apperrors.ErrInvalidDateExpression):
		writeError(w, http.StatusBadRequest, "invalid_date_expression", "Unrecognized date expression")
	case apperrors.Is(err, apperrors.ErrGrantNotFound):
		writeError(w, http.StatusUnauthorized, "not_connected", "Connect your analytics account first")
	case apperrors.Is(err, apperrors.ErrReauthenticationRequired):
		writeError(w, http.StatusUnauthorized, "reauthentication_required", "Reconnect your analytics account")
	case apperrors.Is(err, apperrors.ErrTokenExchangeFailed):
		writeError(w, http.StatusBadGateway, "token_exchange_failed", "The provider rejected the token exchange, try again")
	case apperrors.Is(err, apperrors.ErrNetworkTimeout):
		writeError(w, http.StatusGatewayTimeout, "network_timeout", "The provider did not respond in time, try again")
	default:
		log.Err(err).Msg("Unhandled coordinator error")
		writeError(w, http.StatusInternalServerError, "internal_error", "Something went wrong")
	}
}

// ensureContextCookie returns the browser-context ID, minting a new one and
// setting the cookie when the request does not carry it yet.
func (s *Server) ensureContextCookie(w http.ResponseWriter, r *http.Request) string {
	if contextID := contextCookieValue(r); contextID != "" {
		return contextID
	}

	contextID := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     ContextCookieName,
		Value:    contextID,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return contextID
}

func contextCookieValue(r *http.Request) string {
	cookie, err := r.Cookie(ContextCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func splitParam(value string) []string {
	var parts []string
	for _, p := range strings.Split(value, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}
