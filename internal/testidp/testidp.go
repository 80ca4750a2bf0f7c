// Package testidp runs a minimal OpenID Connect provider on an httptest
// server: discovery document, JWKS, and a token endpoint that redeems codes
// issued through IssueCode. It exists so flow tests can exercise the real
// discovery, exchange and verification code paths.
package testidp

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const keyID = "testidp-key"

// IDP is a fake identity provider.
type IDP struct {
	ClientID     string
	ClientSecret string

	// RejectExchange makes the token endpoint refuse every code, the way a
	// provider refuses an expired or already-used one.
	RejectExchange bool

	// Email and Name are the identity claims embedded in issued ID tokens.
	Email string
	Name  string

	srv *httptest.Server
	key *rsa.PrivateKey

	mu            sync.Mutex
	codes         map[string]string // code -> nonce
	refreshTokens map[string]bool
	codeSeq       int
	tokenSeq      int
}

// New starts the provider. It is shut down with t.Cleanup.
func New(t *testing.T) *IDP {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idp := &IDP{
		ClientID:      "test-client",
		ClientSecret:  "test-secret",
		Email:         "john.doe@example.com",
		Name:          "John Doe",
		key:           key,
		codes:         make(map[string]string),
		refreshTokens: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", idp.discoveryHandler)
	mux.HandleFunc("GET /jwks", idp.jwksHandler)
	mux.HandleFunc("POST /token", idp.tokenHandler)

	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)

	return idp
}

// Issuer is the provider's issuer URL.
func (idp *IDP) Issuer() string {
	return idp.srv.URL
}

// IssueCode mints a single-use authorization code whose eventual ID token
// will carry the given nonce.
func (idp *IDP) IssueCode(nonce string) string {
	idp.mu.Lock()
	defer idp.mu.Unlock()

	idp.codeSeq++
	code := fmt.Sprintf("code-%d", idp.codeSeq)
	idp.codes[code] = nonce
	return code
}

// AccessTokensIssued reports how many token responses have been served.
func (idp *IDP) AccessTokensIssued() int {
	idp.mu.Lock()
	defer idp.mu.Unlock()
	return idp.tokenSeq
}

func (idp *IDP) discoveryHandler(w http.ResponseWriter, r *http.Request) {
	doc := map[string]any{
		"issuer":                                idp.srv.URL,
		"authorization_endpoint":                idp.srv.URL + "/authorize",
		"token_endpoint":                        idp.srv.URL + "/token",
		"jwks_uri":                              idp.srv.URL + "/jwks",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

func (idp *IDP) jwksHandler(w http.ResponseWriter, r *http.Request) {
	pub := idp.key.Public().(*rsa.PublicKey)
	jwks := map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"kid": keyID,
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jwks)
}

func (idp *IDP) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		tokenError(w, "invalid_request")
		return
	}
	if idp.RejectExchange {
		tokenError(w, "invalid_grant")
		return
	}

	var nonce string
	switch r.FormValue("grant_type") {
	case "authorization_code":
		code := r.FormValue("code")
		idp.mu.Lock()
		storedNonce, ok := idp.codes[code]
		delete(idp.codes, code)
		idp.mu.Unlock()
		if !ok {
			tokenError(w, "invalid_grant")
			return
		}
		nonce = storedNonce
	case "refresh_token":
		idp.mu.Lock()
		ok := idp.refreshTokens[r.FormValue("refresh_token")]
		idp.mu.Unlock()
		if !ok {
			tokenError(w, "invalid_grant")
			return
		}
	default:
		tokenError(w, "unsupported_grant_type")
		return
	}

	idp.mu.Lock()
	idp.tokenSeq++
	accessToken := fmt.Sprintf("access-%d", idp.tokenSeq)
	refreshToken := fmt.Sprintf("refresh-%d", idp.tokenSeq)
	idp.refreshTokens[refreshToken] = true
	idp.mu.Unlock()

	idToken, err := idp.signIDToken(nonce)
	if err != nil {
		tokenError(w, "server_error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"id_token":      idToken,
		"token_type":    "Bearer",
		"expires_in":    3600,
	})
}

func (idp *IDP) signIDToken(nonce string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   idp.srv.URL,
		"aud":   idp.ClientID,
		"sub":   "user-1",
		"email": idp.Email,
		"name":  idp.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID
	return token.SignedString(idp.key)
}

func tokenError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
