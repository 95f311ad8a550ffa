package authkit

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivationCodeLength is the number of digits in a generated code.
const ActivationCodeLength = 6

// ActivationCodeTTL is the window in which a freshly generated code can
// activate an account.
const ActivationCodeTTL = 15 * time.Minute

// ActivationCodes stores pending one-time activation codes. At most one
// unconsumed, unexpired code per user is treated as authoritative; expired
// codes are superseded by new rows rather than reactivated.
type ActivationCodes interface {
	Generate(ctx context.Context, user *User) (*ActivationCode, error)
	GenerateTx(ctx context.Context, tx bun.IDB, user *User) (*ActivationCode, error)
	GetByCode(ctx context.Context, code string) (*ActivationCode, error)
	MarkValidated(ctx context.Context, code *ActivationCode) error
	MarkValidatedTx(ctx context.Context, tx bun.IDB, code *ActivationCode) error
}

type activationCodes struct {
	db *bun.DB
}

func NewActivationCodesRepository(db *bun.DB) ActivationCodes {
	return &activationCodes{db: db}
}

func (r *activationCodes) Generate(ctx context.Context, user *User) (*ActivationCode, error) {
	return r.GenerateTx(ctx, r.db, user)
}

func (r *activationCodes) GenerateTx(ctx context.Context, tx bun.IDB, user *User) (*ActivationCode, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, goerrors.New("activation code requires a persisted user", goerrors.CategoryInternal)
	}

	code, err := generateNumericCode(ActivationCodeLength)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate activation code")
	}

	now := time.Now()
	record := &ActivationCode{
		ID:        uuid.New(),
		Code:      code,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(ActivationCodeTTL),
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (r *activationCodes) GetByCode(ctx context.Context, code string) (*ActivationCode, error) {
	record := &ActivationCode{}
	err := r.db.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.code = ?", code).
		Order("act.created_at DESC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"code": code})
		}
		return nil, err
	}

	return record, nil
}

func (r *activationCodes) MarkValidated(ctx context.Context, code *ActivationCode) error {
	return r.MarkValidatedTx(ctx, r.db, code)
}

// MarkValidatedTx stamps ValidatedAt exactly once. The guard in the WHERE
// clause makes consumption atomic: two concurrent activations cannot both
// succeed on the same code.
func (r *activationCodes) MarkValidatedTx(ctx context.Context, tx bun.IDB, code *ActivationCode) error {
	if code == nil {
		return ErrActivationCodeInvalid
	}

	if code.IsConsumed() {
		return ErrActivationCodeUsed
	}

	now := time.Now()
	res, err := tx.NewUpdate().
		Model((*ActivationCode)(nil)).
		Set("validated_at = ?", now).
		Where("id = ?", code.ID).
		Where("validated_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrActivationCodeUsed
	}

	code.ValidatedAt = &now
	return nil
}

// generateNumericCode draws each digit from crypto/rand. Six digits keeps
// the code typeable from an email while the short expiry window bounds
// brute force attempts.
func generateNumericCode(length int) (string, error) {
	const digits = "0123456789"

	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		out[i] = digits[n.Int64()]
	}

	return string(out), nil
}
