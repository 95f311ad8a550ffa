package authkit

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClass is the access/refresh distinction. Each class signs with its
// own key, so a leaked access key can never forge refresh tokens and a
// refresh token can never be replayed as an access token.
type TokenClass string

const (
	// TokenClassAccess is the short-lived per-request credential class.
	TokenClassAccess TokenClass = "access"
	// TokenClassRefresh is the longer-lived class used only to mint new pairs.
	TokenClassRefresh TokenClass = "refresh"
)

// ParseTokenClass validates a raw class value
func ParseTokenClass(s string) (TokenClass, bool) {
	switch TokenClass(s) {
	case TokenClassAccess, TokenClassRefresh:
		return TokenClass(s), true
	default:
		return "", false
	}
}

// IsValid checks if the class is one of the two known classes
func (c TokenClass) IsValid() bool {
	_, ok := ParseTokenClass(string(c))
	return ok
}

// AuthClaims exposes the claims we care about without tying callers to the
// concrete JWT implementation.
type AuthClaims interface {
	Subject() string
	TokenID() string
	Class() TokenClass
	Expires() time.Time
	IssuedAtTime() time.Time
}

// TokenClaims is the concrete implementation of AuthClaims
type TokenClaims struct {
	jwt.RegisteredClaims
	TokenClass string `json:"cls,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*TokenClaims)(nil)

// Subject returns the subject claim, the owning user's email
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// TokenID returns the jti claim, the unit of revocation
func (c *TokenClaims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Class returns the token class recorded in the claims
func (c *TokenClaims) Class() TokenClass {
	return TokenClass(c.TokenClass)
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAtTime returns the issued at time
func (c *TokenClaims) IssuedAtTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ensureTokenID assigns a random jti when the claims carry none. Token ids,
// not subjects, are the unit of revocation: a subject may hold several
// concurrently valid tokens across devices.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
