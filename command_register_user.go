package authkit

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate checks the payload before any work happens
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 255)),
		validation.Field(&e.LastName, validation.Required, validation.Length(1, 255)),
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Phone, validation.By(validPhoneNumber)),
		validation.Field(&e.Password, validation.Required, validation.Length(8, 72)),
	)
}

// validPhoneNumber accepts E.164 style numbers, parsed leniently. Blank is
// fine, phone is optional at registration.
func validPhoneNumber(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return goerrors.New("must be a valid phone number", goerrors.CategoryValidation)
	}

	if !phonenumbers.IsValidNumber(num) {
		return goerrors.New("must be a valid phone number", goerrors.CategoryValidation)
	}

	return nil
}

// RegisterUserHandler creates an inactive account, generates its activation
// code, and queues the activation email. The account and the code commit in
// one transaction; the email is queued only after the commit succeeds so a
// rollback never leaks a code.
type RegisterUserHandler struct {
	repo   RepositoryManager
	mailer Mailer
	config Config
	logger Logger
}

func NewRegisterUserHandler(repo RepositoryManager, mailer Mailer, config Config) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:   repo,
		mailer: mailer,
		config: config,
		logger: defLogger{},
	}
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	user := &User{}
	var code *ActivationCode

	txCtx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(txCtx, nil, func(ctx context.Context, tx bun.Tx) error {
		role, err := h.repo.Roles().GetByNameTx(ctx, tx, RoleUser)
		if err != nil {
			return ErrRoleNotFound
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = event.Phone
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Role = role.Name
		user.IsActive = false
		user.IsLocked = false

		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		if code, err = h.repo.ActivationCodes().GenerateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create activation code")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if err := h.sendActivationEmail(ctx, user, code); err != nil {
		h.logger.Error("failed to queue activation email", "email", user.Email, "error", err)
	}

	return nil
}

func (h *RegisterUserHandler) sendActivationEmail(ctx context.Context, user *User, code *ActivationCode) error {
	if h.mailer == nil || code == nil {
		return nil
	}

	return h.mailer.Send(ctx, Email{
		To:       user.Email,
		Subject:  "Activate your account",
		Template: EmailTemplateAccountActivation,
		Variables: map[string]any{
			"username":        displayName(user),
			"confirmationUrl": activationLink(h.config, code.Code),
			"activationCode":  code.Code,
		},
	})
}

func displayName(user *User) string {
	if name := strings.TrimSpace(user.FullName()); name != "" {
		return name
	}

	if strings.Contains(user.Email, "@") {
		return strings.Split(user.Email, "@")[0]
	}

	return user.Email
}

func activationLink(config Config, code string) string {
	if config == nil || config.GetActivationURL() == "" {
		return ""
	}

	base := config.GetActivationURL()
	if strings.Contains(base, "?") {
		return base + "&token=" + code
	}

	return base + "?token=" + code
}
