package authkit

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes are stable identifiers surfaced to API clients alongside the
// HTTP status. Clients should branch on these, never on message text.
const (
	TextCodeUserNotFound          = "USER_NOT_FOUND"
	TextCodeAccountNotActivated   = "ACCOUNT_NOT_ACTIVATED"
	TextCodeAccountLocked         = "ACCOUNT_LOCKED"
	TextCodeInvalidCreds          = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword         = "EMPTY_PASSWORD"
	TextCodeTokenBlank            = "TOKEN_BLANK"
	TextCodeTokenInvalid          = "TOKEN_INVALID"
	TextCodeTokenExpired          = "TOKEN_EXPIRED"
	TextCodeTokenRevoked          = "TOKEN_REVOKED"
	TextCodeActivationCodeInvalid = "ACTIVATION_CODE_INVALID"
	TextCodeActivationCodeExpired = "ACTIVATION_CODE_EXPIRED"
	TextCodeActivationCodeUsed    = "ACTIVATION_CODE_USED"
	TextCodeRoleNotFound          = "ROLE_NOT_FOUND"
)

// ErrUserNotFound is returned when no account matches the given email.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAccountNotActivated is returned on login before the activation code
// has been consumed.
var ErrAccountNotActivated = goerrors.New("account not activated", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountNotActivated).
	WithCode(goerrors.CodeBadRequest)

// ErrAccountLocked is returned when the account has been locked by an operator.
var ErrAccountLocked = goerrors.New("account is locked", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountLocked).
	WithCode(goerrors.CodeForbidden)

// ErrMismatchedHashAndPassword is the single error we return for credential
// failures so callers cannot distinguish a bad password from a missing hash.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty plaintext passwords before hashing.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenBlank is returned when the token header or parameter is missing.
var ErrTokenBlank = goerrors.New("token must not be blank", goerrors.CategoryBadInput).
	WithTextCode(TextCodeTokenBlank).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenInvalid covers bad signatures, class mismatches, and subject
// mismatches. Raw crypto errors are always remapped to this before they
// reach a caller.
var ErrTokenInvalid = goerrors.New("token is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenExpired is returned when a token is past its expiry time.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenRevoked is returned when a token appears in the blacklist.
var ErrTokenRevoked = goerrors.New("token has been revoked", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(goerrors.CodeUnauthorized)

// ErrActivationCodeInvalid is returned when no activation code matches
// the submitted value.
var ErrActivationCodeInvalid = goerrors.New("activation code is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeActivationCodeInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrActivationCodeExpired signals that a replacement code has been sent;
// the caller should retry with the new code, not the stale one.
var ErrActivationCodeExpired = goerrors.New("activation code is expired, a new code has been sent", goerrors.CategoryAuth).
	WithTextCode(TextCodeActivationCodeExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrActivationCodeUsed rejects replay of an already-consumed code.
var ErrActivationCodeUsed = goerrors.New("activation code has already been used", goerrors.CategoryConflict).
	WithTextCode(TextCodeActivationCodeUsed).
	WithCode(goerrors.CodeConflict)

// ErrRoleNotFound means the role catalog is unseeded; registration cannot
// proceed without the default role.
var ErrRoleNotFound = goerrors.New("role not found", goerrors.CategoryInternal).
	WithTextCode(TextCodeRoleNotFound).
	WithCode(goerrors.CodeInternal)

// IsTokenExpiredError will check for expired tokens, including legacy
// errors that only carry the jwt library message.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
