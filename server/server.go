package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-search-reporter/authflow"
	"github.com/jrsteele09/go-search-reporter/internal/config"
	"github.com/jrsteele09/go-search-reporter/searchconsole"
	"github.com/jrsteele09/go-search-reporter/sessions"
)

// Server wires the login flow, session store and report client behind the
// HTTP surface. All collaborators are constructed explicitly and injected;
// nothing lives at package scope.
type Server struct {
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	flow    *authflow.Service
	store   sessions.Store
	cookies *sessions.CookieCodec
	reports *searchconsole.Client
}

func New(cfg config.Config, flow *authflow.Service, store sessions.Store, cookies *sessions.CookieCodec, reports *searchconsole.Client) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		config:  cfg,
		flow:    flow,
		store:   store,
		cookies: cookies,
		reports: reports,
	}

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if !s.config.IsDev() {
		return
	}
	for _, route := range s.routes {
		log.Debug().Str("route", route).Msg("registered")
	}
}

// getScheme determines http/https, honouring a reverse proxy header.
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
