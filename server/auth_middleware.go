package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-search-reporter/sessions"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the current sessions.Session
	ContextKeySession ContextKey = "session"
	// ContextKeyIdentity stores the authenticated sessions.Identity
	ContextKeyIdentity ContextKey = "identity"
)

// RequireSession is the authenticated-access guard for API routes. It reads
// the signed session cookie, loads the session and requires an identity
// record; the wrapped handler never runs otherwise. It only reads state, so
// a rejected request leaves the session exactly as it was.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return s.requireSession(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, "unauthenticated", "Could not validate credentials.", http.StatusUnauthorized)
	})
}

// RequireSessionHTML guards browser-facing pages. An anonymous visitor is
// sent to the login page instead of a JSON error, carrying the original path
// so login returns them to it.
func (s *Server) RequireSessionHTML() func(http.HandlerFunc) http.HandlerFunc {
	return s.requireSession(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, RouteLogin+"?return="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
	})
}

func (s *Server) requireSession(reject http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session, ok := s.sessionFromRequest(r)
			if !ok || !session.Authenticated() {
				reject(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			ctx = context.WithValue(ctx, ContextKeyIdentity, *session.Identity)
			next(w, r.WithContext(ctx))
		}
	}
}

// sessionFromRequest resolves the browser session, if any. A missing,
// tampered or expired cookie is simply "no session".
func (s *Server) sessionFromRequest(r *http.Request) (sessions.Session, bool) {
	sessionID, err := s.cookies.Read(r)
	if err != nil {
		return sessions.Session{}, false
	}
	session, err := s.store.Get(sessionID)
	if err != nil {
		return sessions.Session{}, false
	}
	return session, true
}

// identityFromContext returns the identity injected by RequireSession.
func identityFromContext(ctx context.Context) (sessions.Identity, bool) {
	identity, ok := ctx.Value(ContextKeyIdentity).(sessions.Identity)
	return identity, ok
}

func writeJSONError(w http.ResponseWriter, code, description string, status int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}
