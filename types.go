package authkit

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging surface the package needs. Host
// applications plug in their own implementation via the With* options.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenService issues and validates class-keyed tokens against a user
// identity. Implementations must fail closed: Validate reports routine
// invalidity as false, never as an error.
type TokenService interface {
	IssueAccessToken(user *User) (string, error)
	IssueRefreshToken(user *User) (string, error)
	Validate(raw string, class TokenClass, expectedSubject string) bool
	Subject(raw string, class TokenClass) (string, error)
	Claims(raw string, class TokenClass) (*TokenClaims, error)
}

// Authenticator holds the credential lifecycle operations
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, rawRefreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, rawAccessToken string) error
}

// TokenPair is the result of login and refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

// BlacklistChecker is the read side of the revocation store, consulted on
// every authenticated request.
type BlacklistChecker interface {
	IsRevoked(ctx context.Context, tokenOrID string) (bool, error)
}

// Mailer accepts outbound messages for asynchronous delivery. Send must
// durably enqueue before returning; it never blocks on actual delivery.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// Transport is the delivery collaborator behind the Mailer queue.
type Transport interface {
	Deliver(ctx context.Context, to, subject, htmlBody string) error
}

// Config holds auth options
type Config interface {
	// GetAccessSigningKey returns the base64 encoded access class key material.
	GetAccessSigningKey() string
	// GetRefreshSigningKey returns the base64 encoded refresh class key material.
	GetRefreshSigningKey() string
	// GetAccessTokenTTL is the access token lifetime in minutes.
	GetAccessTokenTTL() int
	// GetRefreshTokenTTL is the refresh token lifetime in days.
	GetRefreshTokenTTL() int
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	// GetActivationURL is the front end base URL embedded in activation emails.
	GetActivationURL() string
}

// SimpleConfig is a plain value implementation of Config for hosts that do
// not carry their own configuration container.
type SimpleConfig struct {
	AccessSigningKey  string
	RefreshSigningKey string
	AccessTokenTTL    int
	RefreshTokenTTL   int
	Issuer            string
	Audience          []string
	ContextKey        string
	TokenLookup       string
	AuthScheme        string
	ActivationURL     string
}

func (c SimpleConfig) GetAccessSigningKey() string  { return c.AccessSigningKey }
func (c SimpleConfig) GetRefreshSigningKey() string { return c.RefreshSigningKey }

func (c SimpleConfig) GetAccessTokenTTL() int {
	if c.AccessTokenTTL <= 0 {
		return 30
	}
	return c.AccessTokenTTL
}

func (c SimpleConfig) GetRefreshTokenTTL() int {
	if c.RefreshTokenTTL <= 0 {
		return 14
	}
	return c.RefreshTokenTTL
}

func (c SimpleConfig) GetIssuer() string     { return c.Issuer }
func (c SimpleConfig) GetAudience() []string { return c.Audience }

func (c SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c SimpleConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "header:Authorization"
	}
	return c.TokenLookup
}

func (c SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c SimpleConfig) GetActivationURL() string { return c.ActivationURL }

// AccessTokenDuration converts the configured minutes into a duration.
func AccessTokenDuration(cfg Config) time.Duration {
	return time.Duration(cfg.GetAccessTokenTTL()) * time.Minute
}

// RefreshTokenDuration converts the configured days into a duration.
func RefreshTokenDuration(cfg Config) time.Duration {
	return time.Duration(cfg.GetRefreshTokenTTL()) * 24 * time.Hour
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
