package server

func (s *Server) initRoutes() {
	// Analytics connection flow (primary session required)
	s.RegisterRouteHandler("GET "+RouteConnect, ChainMiddleware(s.ConnectHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteStatus, ChainMiddleware(s.StatusHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("POST "+RouteDisconnect, ChainMiddleware(s.DisconnectHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteReport, ChainMiddleware(s.ReportHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteAudit, ChainMiddleware(s.AuditHandler(), s.APIMiddleware(s.RequireSession())...))

	// Provider redirects here; the side channel is consulted, not the session
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.APIMiddleware()...))

	// Host application integration
	s.RegisterRouteHandler("POST "+RouteInternalSession, ChainMiddleware(s.SessionSyncHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RouteInternalSession, ChainMiddleware(s.SessionSyncHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}
