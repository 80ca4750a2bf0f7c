package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-search-reporter/internal/apperrors"
)

// LoginHandler starts the login flow: it ensures a browser session exists,
// binds a fresh state/nonce pair to it and redirects to the provider.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.sessionFromRequest(r)
		if !ok {
			created, err := s.store.Create()
			if err != nil {
				http.Error(w, "Failed to create session", http.StatusInternalServerError)
				return
			}
			isSecure := getScheme(r) == "https"
			if err := s.cookies.Set(w, created.ID, isSecure); err != nil {
				http.Error(w, "Failed to set session cookie", http.StatusInternalServerError)
				return
			}
			session = created
		}

		authURL, err := s.flow.Initiate(session.ID, sanitizeReturnURL(r.URL.Query().Get("return")))
		if err != nil {
			log.Err(err).Msg("login initiation failed")
			http.Error(w, "Failed to start login", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, authURL, http.StatusSeeOther)
	}
}

// CallbackHandler is the provider's redirect target. It hands code and state
// to the flow and maps the error taxonomy onto redirects: state problems and
// provider failures both land back on /login, with state problems logged as
// potential replay attacks.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if errParam := r.URL.Query().Get("error"); errParam != "" {
			log.Warn().Str("error", errParam).Msg("provider returned authorization error")
			redirectLoginError(w, r, "authorization_failed")
			return
		}

		state := r.URL.Query().Get("state")
		code := r.URL.Query().Get("code")
		if state == "" || code == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		session, ok := s.sessionFromRequest(r)
		if !ok {
			redirectLoginError(w, r, "session_expired")
			return
		}

		result, err := s.flow.Callback(r.Context(), session.ID, state, code)
		switch {
		case errors.Is(err, apperrors.ErrInvalidState):
			log.Warn().Str("session_id", session.ID).Msg("invalid or replayed callback state")
			redirectLoginError(w, r, "invalid_state")
			return
		case errors.Is(err, apperrors.ErrTokenExchangeFailed), errors.Is(err, apperrors.ErrInvalidIdentityToken):
			log.Err(err).Msg("login failed")
			redirectLoginError(w, r, "login_failed")
			return
		case err != nil:
			log.Err(err).Msg("callback failed")
			http.Error(w, "Login failed", http.StatusInternalServerError)
			return
		}

		target := result.ReturnURL
		if target == "" {
			target = RouteHome
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

// LogoutHandler discards the identity and the session, expires the cookie
// and returns to the home page. Logging out an anonymous or unknown session
// succeeds the same way.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionID, err := s.cookies.Read(r); err == nil {
			if err := s.flow.Logout(sessionID); err != nil {
				log.Err(err).Msg("logout failed")
			}
			if err := s.store.Delete(sessionID); err != nil {
				log.Err(err).Msg("session delete failed")
			}
		}

		s.cookies.Clear(w, getScheme(r) == "https")
		http.Redirect(w, r, RouteHome, http.StatusSeeOther)
	}
}

func redirectLoginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, RouteLogin+"?error="+url.QueryEscape(code), http.StatusSeeOther)
}

// sanitizeReturnURL only accepts local paths, so the post-login redirect can
// never leave the site.
func sanitizeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return ""
	}
	return raw
}
