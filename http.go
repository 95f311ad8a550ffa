package authkit

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/kyralabs/go-authkit/middleware/jwtware"
)

// HeaderXToken carries the raw token for refresh and logout requests.
const HeaderXToken = "x-token"

// RouteAuthenticator wires the credential flows and the request gateway
// into an HTTP router.
type RouteAuthenticator struct {
	auth         Authenticator
	tokens       TokenService
	repos        RepositoryManager
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, tokens TokenService, repos RepositoryManager, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		auth:   auther,
		tokens: tokens,
		repos:  repos,
		cfg:    cfg,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// ProtectedRoute authenticates requests with an access token, consults the
// revocation list, and binds the account to the request. Requests without a
// credential pass through; use RequireAuthenticated on handlers that need
// an identity.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.MakeClientRouteAuthErrorHandler(false)
	}

	return jwtware.New(jwtware.Config{
		ErrorHandler:   errorHandler,
		TokenValidator: gatewayValidator{AccessTokenValidator(a.tokens)},
		Blacklist:      a.repos.BlacklistTokens(),
		UserLoader:     a.loadAccount,
		ContextKey:     a.cfg.GetContextKey(),
		TokenLookup:    a.cfg.GetTokenLookup(),
		AuthScheme:     a.cfg.GetAuthScheme(),
		ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(c, ac)
			}
			return c
		},
	})
}

// RequireAuthenticated rejects requests the gateway let through without an
// identity.
func RequireAuthenticated(contextKey string) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if _, ok := GetRouterClaims(ctx, contextKey); !ok {
				return WriteError(ctx, ErrTokenInvalid)
			}
			return ctx.Next()
		}
	}
}

// loadAccount resolves the claims subject and enforces the same status
// gates the credential flows use.
func (a *RouteAuthenticator) loadAccount(ctx context.Context, subject string) (any, error) {
	user, err := a.repos.Users().GetByEmail(ctx, subject)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if user.IsLocked {
		return nil, ErrAccountLocked
	}

	if !user.IsActive {
		return nil, ErrAccountNotActivated
	}

	return user, nil
}

func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *goerrors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if !goerrors.As(err, &richErr) {
			richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "Invalid authentication token").
				WithTextCode(TextCodeTokenInvalid).
				WithCode(goerrors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	return WriteError(c, richErr)
}

// gatewayValidator narrows the package's TokenValidator to the claim
// surface the middleware expects.
type gatewayValidator struct {
	inner TokenValidator
}

func (g gatewayValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	return g.inner.Validate(tokenString)
}

// WriteError renders any error as the JSON envelope, mapping rich errors
// to their HTTP status and text code.
func WriteError(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = statusFromCategory(richErr.Category)
	}

	body := map[string]any{
		"code":    status,
		"message": richErr.Message,
	}
	if richErr.TextCode != "" {
		body["text_code"] = richErr.TextCode
	}
	if fields := validationFields(richErr); len(fields) > 0 {
		body["validation"] = fields
	}

	return c.JSON(status, body)
}

func statusFromCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return goerrors.CodeUnauthorized
	case goerrors.CategoryAuthz:
		return goerrors.CodeForbidden
	case goerrors.CategoryNotFound:
		return goerrors.CodeNotFound
	case goerrors.CategoryConflict:
		return goerrors.CodeConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return goerrors.CodeBadRequest
	default:
		return goerrors.CodeInternal
	}
}

// validationFields digs a field error map out of a wrapped ozzo error.
func validationFields(err error) map[string]string {
	var verrs validation.Errors
	if !goerrors.As(err, &verrs) {
		return nil
	}
	return FormatValidationErrorToMap(verrs)
}

// FormatValidationErrorToMap flattens validation errors into a field to
// message map suitable for a JSON response.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if !goerrors.As(err, &verrs) {
		if err != nil {
			out["error"] = err.Error()
		}
		return out
	}

	for field, ferr := range verrs {
		if ferr != nil {
			out[field] = ferr.Error()
		}
	}

	return out
}
