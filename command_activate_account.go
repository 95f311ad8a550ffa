package authkit

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ActivateAccountMessage struct {
	Code string `json:"code"`
}

func (e ActivateAccountMessage) Type() string { return "user.activate" }

// Validate checks the payload before any work happens
func (e ActivateAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Code,
			validation.Required,
			validation.Length(ActivationCodeLength, ActivationCodeLength),
			is.Digit,
		),
	)
}

// ActivateAccountHandler consumes an activation code and flips the account
// to active. An expired code triggers a replacement, emailed to the same
// address, and the activation itself fails so the caller retries with the
// new code. A consumed code is rejected outright.
type ActivateAccountHandler struct {
	repo   RepositoryManager
	mailer Mailer
	config Config
	logger Logger
}

func NewActivateAccountHandler(repo RepositoryManager, mailer Mailer, config Config) *ActivateAccountHandler {
	return &ActivateAccountHandler{
		repo:   repo,
		mailer: mailer,
		config: config,
		logger: defLogger{},
	}
}

func (h *ActivateAccountHandler) WithLogger(logger Logger) *ActivateAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid activation payload")
	}

	code, err := h.repo.ActivationCodes().GetByCode(ctx, event.Code)
	if err != nil {
		return ErrActivationCodeInvalid
	}

	if code.IsConsumed() {
		return ErrActivationCodeUsed
	}

	if code.IsExpired(time.Now()) {
		return h.issueReplacement(ctx, code)
	}

	txCtx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(txCtx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Users().ActivateTx(ctx, tx, code.UserID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not activate user")
		}

		return h.repo.ActivationCodes().MarkValidatedTx(ctx, tx, code)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account activation transaction failed")
	}

	return nil
}

// issueReplacement creates a fresh code for the same account and queues it.
// It always returns ErrActivationCodeExpired, the original code stays dead.
func (h *ActivateAccountHandler) issueReplacement(ctx context.Context, expired *ActivationCode) error {
	user := expired.User
	if user == nil {
		return ErrActivationCodeExpired
	}

	var replacement *ActivationCode

	txCtx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(txCtx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		replacement, err = h.repo.ActivationCodes().GenerateTx(ctx, tx, user)
		return err
	})

	if err != nil {
		h.logger.Error("failed to issue replacement activation code", "email", user.Email, "error", err)
		return ErrActivationCodeExpired
	}

	if h.mailer != nil {
		err := h.mailer.Send(ctx, Email{
			To:       user.Email,
			Subject:  "Your new activation code",
			Template: EmailTemplateAccountActivation,
			Variables: map[string]any{
				"username":        displayName(user),
				"confirmationUrl": activationLink(h.config, replacement.Code),
				"activationCode":  replacement.Code,
			},
		})
		if err != nil {
			h.logger.Error("failed to queue replacement activation email", "email", user.Email, "error", err)
		}
	}

	return ErrActivationCodeExpired
}
