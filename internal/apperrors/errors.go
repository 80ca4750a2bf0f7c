package apperrors

import (
	"errors"
	"fmt"
)

// Error taxonomy for the login flow and the downstream report call
var (
	// Login flow errors
	ErrInvalidState         = errors.New("invalid or replayed state")
	ErrTokenExchangeFailed  = errors.New("token exchange failed")
	ErrInvalidIdentityToken = errors.New("invalid identity token")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrUnauthenticated = errors.New("unauthenticated")

	// Downstream API errors
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamRejected    = errors.New("upstream rejected request")
	ErrMalformedResponse   = errors.New("malformed upstream response")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
