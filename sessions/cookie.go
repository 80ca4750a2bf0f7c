package sessions

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// CookieName is the browser cookie carrying the signed session identifier.
const CookieName = "session"

// CookieCodec signs and verifies the session cookie. The session ID travels
// in an HS256 JWT so a tampered cookie fails verification instead of being
// looked up. The signing key is derived from the configured secret with
// HKDF-SHA256 so the raw secret is never used directly as key material.
type CookieCodec struct {
	key []byte
}

// NewCookieCodec derives the cookie-signing key from secret.
func NewCookieCodec(secret string) (*CookieCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("[sessions NewCookieCodec] secret is required")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("session-cookie-v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("[sessions NewCookieCodec] deriving key: %w", err)
	}
	return &CookieCodec{key: key}, nil
}

// Set writes the signed session cookie. The caller decides secure because
// only it knows whether the request arrived over https, directly or via a
// reverse proxy.
func (c *CookieCodec) Set(w http.ResponseWriter, sessionID string, secure bool) error {
	claims := jwt.RegisteredClaims{
		Subject:  sessionID,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return fmt.Errorf("[sessions CookieCodec.Set] signing cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the session ID from the request cookie, verifying its
// signature. Missing, tampered or otherwise unusable cookies all report an
// error; callers treat that as "no session".
func (c *CookieCodec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", fmt.Errorf("[sessions CookieCodec.Read] no session cookie: %w", err)
	}

	claims := jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, &claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("[sessions CookieCodec.Read] verifying cookie: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("[sessions CookieCodec.Read] cookie has no session id")
	}
	return claims.Subject, nil
}

// Clear expires the session cookie.
func (c *CookieCodec) Clear(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
