package authkit

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the credential lifecycle endpoints.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")

	app.Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("auth.refresh")

	app.Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("auth.logout")

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("auth.register")

	app.Get(controller.Routes.Activate, controller.ActivateAccount).
		SetName("auth.activate")
}

type AuthControllerRoutes struct {
	Login    string
	Refresh  string
	Logout   string
	Register string
	Activate string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Auther       Authenticator
	Register     *RegisterUserHandler
	Activate     *ActivateAccountHandler
	Routes       *AuthControllerRoutes
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: WriteError,
		Routes: &AuthControllerRoutes{
			Login:    "/auth/login",
			Refresh:  "/auth/refresh",
			Logout:   "/auth/logout",
			Register: "/auth/register",
			Activate: "/auth/activate-account",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Register == nil || c.Activate == nil {
		panic("Missing command handlers in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerHandlers(register *RegisterUserHandler, activate *ActivateAccountHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Register = register
		c.Activate = activate
		return c
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("login validate payload", "error", err)
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"code":       router.StatusBadRequest,
			"message":    "Error validating payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("login request", "payload", print.MaybePrettyJSON(payload))
	}

	pair, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Error("login error", "email", payload.Email, "error", err)
		return a.ErrorHandler(ctx, loginError(err))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"code":    router.StatusOK,
		"message": "ok",
		"data":    pair,
	})
}

func (a *AuthController) RefreshPost(ctx router.Context) error {
	raw := ctx.GetString(HeaderXToken, "")

	pair, err := a.Auther.Refresh(ctx.Context(), raw)
	if err != nil {
		a.Logger.Error("refresh error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"code":    router.StatusOK,
		"message": "ok",
		"data":    pair,
	})
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	raw := ctx.GetString(HeaderXToken, "")

	if err := a.Auther.Logout(ctx.Context(), raw); err != nil {
		a.Logger.Error("logout error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"code":    router.StatusOK,
		"message": "ok",
	})
}

// RegistrationCreatePayload is the registration payload
type RegistrationCreatePayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(8, 72),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload", "error", err)
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"code":       router.StatusBadRequest,
			"message":    "Error validating payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
	}

	if err := a.Register.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error", "email", payload.Email, "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"code":    router.StatusCreated,
		"message": "Successful user registration",
	})
}

func (a *AuthController) ActivateAccount(ctx router.Context) error {
	code := ctx.Query("token", "")

	req := ActivateAccountMessage{Code: code}

	if err := a.Activate.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("activate account error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"code":    router.StatusOK,
		"message": "Account activated",
	})
}

// loginError collapses credential failures so a caller cannot probe which
// accounts exist. Status gates keep their specific codes.
func loginError(err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.TextCode {
		case TextCodeAccountNotActivated, TextCodeAccountLocked:
			return err
		}
	}

	return goerrors.New("Invalid credentials", goerrors.CategoryAuth).
		WithTextCode(TextCodeInvalidCreds).
		WithCode(goerrors.CodeUnauthorized)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}
