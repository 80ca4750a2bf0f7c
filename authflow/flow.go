package authflow

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-search-reporter/authflow/staterepo"
	"github.com/jrsteele09/go-search-reporter/internal/apperrors"
	"github.com/jrsteele09/go-search-reporter/sessions"
)

// Config holds the provider registration for one OIDC client.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Result is the outcome of a successful callback.
type Result struct {
	Identity  sessions.Identity
	ReturnURL string
}

// outboundTimeout bounds every call to the provider: discovery, JWKS
// fetches, the code exchange and token refreshes.
const outboundTimeout = 15 * time.Second

// Service drives the authorization-code flow against one identity provider:
// Initiate issues the redirect, Callback consumes it, Logout discards the
// identity. A session is anonymous, pending (state saved) or authenticated
// (identity stored); every failure path lands back on anonymous.
type Service struct {
	oauth      *oauth2.Config
	verifier   *oidc.IDTokenVerifier
	states     staterepo.Repo
	store      sessions.Store
	httpClient *http.Client
}

// New discovers the provider metadata from cfg.IssuerURL and wires the flow.
// Discovery is retried with exponential backoff so a briefly unreachable
// provider does not kill startup.
func New(ctx context.Context, cfg Config, states staterepo.Repo, store sessions.Store) (*Service, error) {
	httpClient := &http.Client{Timeout: outboundTimeout}
	ctx = oidc.ClientContext(ctx, httpClient)

	provider, err := backoff.Retry(ctx, func() (*oidc.Provider, error) {
		return oidc.NewProvider(ctx, cfg.IssuerURL)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
	if err != nil {
		return nil, fmt.Errorf("[authflow New] provider discovery for %s: %w", cfg.IssuerURL, err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &Service{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier:   provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		states:     states,
		store:      store,
		httpClient: httpClient,
	}, nil
}

// Initiate starts a login attempt for the session: it binds a fresh
// state/nonce pair to the session and returns the provider authorization URL
// to redirect the browser to. access_type=offline asks for a refresh token.
func (s *Service) Initiate(sessionID, returnURL string) (string, error) {
	state := randomValue()
	nonce := randomValue()

	err := s.states.Save(state, &staterepo.FlowState{
		SessionID: sessionID,
		Nonce:     nonce,
		ReturnURL: returnURL,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("[authflow Initiate] saving flow state: %w", err)
	}

	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oidc.Nonce(nonce)), nil
}

// Callback completes a login attempt. The state value is consumed atomically
// before anything else, so a replayed redirect fails with ErrInvalidState
// without ever reaching the token endpoint. The authorization code is then
// exchanged and the ID token verified (signature, issuer, audience, nonce)
// before the identity is written to the session store.
func (s *Service) Callback(ctx context.Context, sessionID, state, code string) (Result, error) {
	ctx = oidc.ClientContext(ctx, s.httpClient)

	flowState, err := s.states.Consume(state)
	if err != nil {
		return Result{}, apperrors.Wrapf(apperrors.ErrInvalidState, "[authflow Callback] consuming state")
	}
	if flowState.SessionID != sessionID {
		log.Warn().Str("session_id", sessionID).Msg("callback state bound to a different session")
		return Result{}, apperrors.Wrapf(apperrors.ErrInvalidState, "[authflow Callback] state session mismatch")
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return Result{}, fmt.Errorf("[authflow Callback] %w: %w", apperrors.ErrTokenExchangeFailed, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return Result{}, apperrors.Wrapf(apperrors.ErrInvalidIdentityToken, "[authflow Callback] no id_token in response")
	}

	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Result{}, fmt.Errorf("[authflow Callback] %w: %w", apperrors.ErrInvalidIdentityToken, err)
	}

	var claims struct {
		Nonce string `json:"nonce"`
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Result{}, fmt.Errorf("[authflow Callback] %w: %w", apperrors.ErrInvalidIdentityToken, err)
	}
	if claims.Nonce != flowState.Nonce {
		return Result{}, apperrors.Wrapf(apperrors.ErrInvalidIdentityToken, "[authflow Callback] nonce mismatch")
	}

	identity := sessions.Identity{
		Subject:      claims.Sub,
		Email:        claims.Email,
		Name:         claims.Name,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
	}
	if err := s.store.PutIdentity(sessionID, identity); err != nil {
		return Result{}, fmt.Errorf("[authflow Callback] storing identity: %w", err)
	}

	return Result{Identity: identity, ReturnURL: flowState.ReturnURL}, nil
}

// Logout removes the identity record from the session. It is idempotent: an
// already anonymous or unknown session logs out without error.
func (s *Service) Logout(sessionID string) error {
	if err := s.store.ClearIdentity(sessionID); err != nil && !errors.Is(err, apperrors.ErrSessionNotFound) {
		return fmt.Errorf("[authflow Logout] clearing identity: %w", err)
	}
	return nil
}

// Refresh rotates an expired access token using the stored refresh token and
// returns the updated identity. Providers may or may not rotate the refresh
// token itself; the old one is kept when the response omits it.
func (s *Service) Refresh(ctx context.Context, identity sessions.Identity) (sessions.Identity, error) {
	if identity.RefreshToken == "" {
		return sessions.Identity{}, apperrors.Wrapf(apperrors.ErrUnauthenticated, "[authflow Refresh] no refresh token")
	}

	ctx = oidc.ClientContext(ctx, s.httpClient)
	token, err := s.oauth.TokenSource(ctx, &oauth2.Token{
		RefreshToken: identity.RefreshToken,
		Expiry:       time.Now().Add(-time.Minute), // force a refresh
	}).Token()
	if err != nil {
		return sessions.Identity{}, fmt.Errorf("[authflow Refresh] %w: %w", apperrors.ErrTokenExchangeFailed, err)
	}

	identity.AccessToken = token.AccessToken
	identity.TokenExpiry = token.Expiry
	if token.RefreshToken != "" {
		identity.RefreshToken = token.RefreshToken
	}
	return identity, nil
}

// randomValue creates a random base64url string for state and nonce values.
func randomValue() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
