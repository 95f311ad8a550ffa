package authkit

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// Auther implements the credential lifecycle: login, refresh, logout.
// Refresh rotates tokens, revoking the presented refresh token so each
// one is good for a single exchange.
type Auther struct {
	repos  RepositoryManager
	tokens TokenService
	logger Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repos RepositoryManager, tokens TokenService) *Auther {
	return &Auther{
		repos:  repos,
		tokens: tokens,
		logger: defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies the credentials and returns a fresh token pair.
func (s *Auther) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.verifiedUser(ctx, email)
	if err != nil {
		s.logger.Error("Login user lookup error", "email", email, "error", err)
		return nil, err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.logger.Warn("Login password mismatch", "email", email)
		return nil, err
	}

	return s.issuePair(user)
}

// Refresh exchanges a valid refresh token for a new pair. The presented
// token is revoked once the exchange succeeds, so replaying it fails
// with ErrTokenRevoked.
func (s *Auther) Refresh(ctx context.Context, rawRefreshToken string) (*TokenPair, error) {
	if rawRefreshToken == "" {
		return nil, ErrTokenBlank
	}

	claims, err := s.tokens.Claims(rawRefreshToken, TokenClassRefresh)
	if err != nil {
		s.logger.Error("Refresh token decode error", "error", err)
		return nil, err
	}

	revoked, err := s.repos.BlacklistTokens().IsRevoked(ctx, claims.TokenID())
	if err != nil {
		s.logger.Error("Refresh blacklist lookup error", "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token revocation")
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	user, err := s.verifiedUser(ctx, claims.Subject())
	if err != nil {
		s.logger.Error("Refresh user lookup error", "email", claims.Subject(), "error", err)
		return nil, err
	}

	if ok := s.tokens.Validate(rawRefreshToken, TokenClassRefresh, user.Email); !ok {
		return nil, ErrTokenInvalid
	}

	if err := s.repos.BlacklistTokens().Record(ctx, claims.TokenID(), rawRefreshToken, claims.Expires()); err != nil {
		s.logger.Error("Refresh rotation record error", "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rotate refresh token")
	}

	return s.issuePair(user)
}

// Logout revokes the presented access token. The token id and expiry go
// into the blacklist so the entry can be pruned once the token would
// have expired on its own.
func (s *Auther) Logout(ctx context.Context, rawAccessToken string) error {
	if rawAccessToken == "" {
		return ErrTokenBlank
	}

	claims, err := s.tokens.Claims(rawAccessToken, TokenClassAccess)
	if err != nil {
		s.logger.Error("Logout token decode error", "error", err)
		return err
	}

	user, err := s.verifiedUser(ctx, claims.Subject())
	if err != nil {
		s.logger.Error("Logout user lookup error", "email", claims.Subject(), "error", err)
		return err
	}

	if ok := s.tokens.Validate(rawAccessToken, TokenClassAccess, user.Email); !ok {
		return ErrTokenInvalid
	}

	if err := s.repos.BlacklistTokens().Record(ctx, claims.TokenID(), rawAccessToken, claims.Expires()); err != nil {
		s.logger.Error("Logout record error", "error", err)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke token")
	}

	return nil
}

// verifiedUser loads the account and enforces the status gates shared by
// every credential operation.
func (s *Auther) verifiedUser(ctx context.Context, email string) (*User, error) {
	user, err := s.repos.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	if user.IsLocked {
		return nil, ErrAccountLocked
	}

	if !user.IsActive {
		return nil, ErrAccountNotActivated
	}

	return user, nil
}

func (s *Auther) issuePair(user *User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		s.logger.Error("issue access token error", "error", err)
		return nil, err
	}

	refresh, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		s.logger.Error("issue refresh token error", "error", err)
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       user.ID.String(),
	}, nil
}

// Verify interface compliance
var _ Authenticator = (*Auther)(nil)
