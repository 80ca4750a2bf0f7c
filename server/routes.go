package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHome, ChainMiddleware(s.IndexHandler(), s.BaseMiddleware()...))

	// Login flow
	s.RegisterRouteFunc("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.BaseMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.BaseMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.BaseMiddleware()...))

	// Protected routes: the session guard runs after the base chain
	s.RegisterRouteFunc("GET "+RouteProtected, ChainMiddleware(s.ProtectedReportHandler(), s.BaseMiddleware(s.RequireSession())...))
	s.RegisterRouteFunc("GET "+RouteDocs, ChainMiddleware(s.DocsHandler(), s.BaseMiddleware(s.RequireSessionHTML())...))
	s.RegisterRouteFunc("GET "+RouteOpenAPI, ChainMiddleware(s.OpenAPIHandler(), s.BaseMiddleware(s.RequireSession())...))
}

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}
