package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// Identity is the record written by a successful login. Fields are fixed at
// exchange time; only the token fields rotate, via refresh.
type Identity struct {
	Subject      string // "sub" claim from the ID token
	Email        string
	Name         string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

// Session is one browser session. Identity is nil until the login flow
// completes and nil again after logout.
type Session struct {
	ID         string
	Identity   *Identity
	CreatedAt  time.Time
	LastAccess time.Time
}

// Authenticated reports whether the session holds an identity record.
func (s Session) Authenticated() bool {
	return s.Identity != nil
}

// newSessionID creates a cryptographically random base64url identifier.
// 32 random bytes make collisions negligible.
func newSessionID() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
