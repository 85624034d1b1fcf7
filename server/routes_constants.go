package server

// Route path constants
// All routes are defined here to ensure consistency and prevent typos
const (
	// Analytics connection flow
	RouteConnect    = "/api/analytics/connect"
	RouteCallback   = "/api/analytics/callback"
	RouteStatus     = "/api/analytics/status"
	RouteDisconnect = "/api/analytics/disconnect"
	RouteReport     = "/api/analytics/report"
	RouteAudit      = "/api/analytics/audit"

	// Host application integration: primary session propagation and sign-out
	RouteInternalSession = "/internal/session"
	RouteLogout          = "/auth/logout"

	RouteHealth = "/healthz"
)

// Cookie names shared with the host application
const (
	SessionCookieName = "imetrics_session"
	ContextCookieName = "imetrics_ctx"
)
