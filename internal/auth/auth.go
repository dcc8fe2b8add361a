package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

// Authentication failures. Handlers map these onto the two 401 bodies; the
// distinction never reveals more than the original header shape check does.
var (
	ErrMissingHeader = errors.New("missing or invalid authorization header")
	ErrInvalidKey    = errors.New("invalid API key")
)

// Authenticator checks inbound bearer tokens against the single shared
// secret. The secret is fixed for the process lifetime.
type Authenticator struct {
	key []byte
}

// New creates an Authenticator for the given API key.
func New(apiKey string) *Authenticator {
	return &Authenticator{key: []byte(apiKey)}
}

// Authenticate validates an Authorization header value. The header must have
// the exact shape "Bearer <token>"; anything else is ErrMissingHeader. The
// token is compared in constant time so the check leaks nothing through
// timing.
func (a *Authenticator) Authenticate(headerValue string) error {
	parts := strings.SplitN(headerValue, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return ErrMissingHeader
	}

	if subtle.ConstantTimeCompare([]byte(parts[1]), a.key) != 1 {
		return ErrInvalidKey
	}
	return nil
}
