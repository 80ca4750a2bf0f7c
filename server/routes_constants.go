package server

const (
	RouteHome      = "/"
	RouteLogin     = "/login"
	RouteCallback  = "/auth"
	RouteLogout    = "/logout"
	RouteProtected = "/protected"
	RouteDocs      = "/docs"
	RouteOpenAPI   = "/openapi.json"
)
