package authkit

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenServiceImpl implements the TokenService interface with one HMAC key
// per token class.
type TokenServiceImpl struct {
	accessKey   []byte
	refreshKey  []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	issuer      string
	audience    jwt.ClaimStrings
	logger      Logger
}

// NewTokenService creates a new TokenService instance. Missing or
// undecodable key material is a startup failure, not a runtime condition:
// we error here so the host fails fast before serving traffic.
func NewTokenService(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	if logger == nil {
		logger = defLogger{}
	}

	accessKey, err := decodeSigningKey(cfg.GetAccessSigningKey())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "invalid access token signing key")
	}

	refreshKey, err := decodeSigningKey(cfg.GetRefreshSigningKey())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "invalid refresh token signing key")
	}

	return &TokenServiceImpl{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  AccessTokenDuration(cfg),
		refreshTTL: RefreshTokenDuration(cfg),
		issuer:     cfg.GetIssuer(),
		audience:   cfg.GetAudience(),
		logger:     logger,
	}, nil
}

func decodeSigningKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, errors.New("signing key must not be empty", errors.CategoryInternal)
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, errors.New("signing key decodes to zero bytes", errors.CategoryInternal)
	}
	return key, nil
}

// IssueAccessToken mints a short-lived token for the user, signed with the
// access class key.
func (ts *TokenServiceImpl) IssueAccessToken(user *User) (string, error) {
	return ts.issue(user, TokenClassAccess, ts.accessTTL)
}

// IssueRefreshToken mints a refresh class token used only to obtain new pairs.
func (ts *TokenServiceImpl) IssueRefreshToken(user *User) (string, error) {
	return ts.issue(user, TokenClassRefresh, ts.refreshTTL)
}

func (ts *TokenServiceImpl) issue(user *User, class TokenClass, ttl time.Duration) (string, error) {
	if user == nil {
		return "", errors.New("user must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.Email,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenClass: string(class),
	}

	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.keyFor(class))
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

func (ts *TokenServiceImpl) keyFor(class TokenClass) []byte {
	if class == TokenClassRefresh {
		return ts.refreshKey
	}
	return ts.accessKey
}

// Validate reports whether the token verifies under the key for class, is
// not expired, and matches the expected subject. It fails closed: any
// irregularity yields false, never an error.
func (ts *TokenServiceImpl) Validate(raw string, class TokenClass, expectedSubject string) bool {
	claims, err := ts.parse(raw, class)
	if err != nil {
		return false
	}

	return claims.Subject() == expectedSubject
}

// Subject decodes the subject from the token under the key for class. It is
// used on paths where the caller cannot yet supply an expected subject.
func (ts *TokenServiceImpl) Subject(raw string, class TokenClass) (string, error) {
	claims, err := ts.parse(raw, class)
	if err != nil {
		return "", err
	}
	return claims.Subject(), nil
}

// Claims decodes the full claim set from the token under the key for class.
func (ts *TokenServiceImpl) Claims(raw string, class TokenClass) (*TokenClaims, error) {
	return ts.parse(raw, class)
}

func (ts *TokenServiceImpl) parse(raw string, class TokenClass) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService parse encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.keyFor(class), nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenInvalid.Category, ErrTokenInvalid.Message).
			WithTextCode(ErrTokenInvalid.TextCode)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService parse could not decode or validate claims")
		return nil, ErrTokenInvalid
	}

	// The signature check alone rejects cross-class tokens since each class
	// signs with its own key; the cls claim is a second fence for hosts that
	// misconfigure both classes with the same key material.
	if claims.TokenClass != "" && claims.Class() != class {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
