package authkit

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// BlacklistTokens records revoked token ids until their natural expiry.
// IsRevoked runs on every authenticated request, so lookups go through the
// primary key and the raw token index only.
type BlacklistTokens interface {
	BlacklistChecker

	Record(ctx context.Context, tokenID, rawToken string, expiresAt time.Time) error
	RecordTx(ctx context.Context, tx bun.IDB, tokenID, rawToken string, expiresAt time.Time) error
	Prune(ctx context.Context, now time.Time) (int64, error)
}

type blacklistTokens struct {
	db *bun.DB
}

var _ BlacklistTokens = (*blacklistTokens)(nil)

func NewBlacklistTokensRepository(db *bun.DB) BlacklistTokens {
	return &blacklistTokens{db: db}
}

func (r *blacklistTokens) Record(ctx context.Context, tokenID, rawToken string, expiresAt time.Time) error {
	return r.RecordTx(ctx, r.db, tokenID, rawToken, expiresAt)
}

// RecordTx is an idempotent insert: recording a token that is already
// revoked is a no-op, indistinguishable from success.
func (r *blacklistTokens) RecordTx(ctx context.Context, tx bun.IDB, tokenID, rawToken string, expiresAt time.Time) error {
	record := &BlacklistToken{
		ID:         tokenID,
		Token:      rawToken,
		ExpiryTime: expiresAt,
	}

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)

	return err
}

// IsRevoked reports whether the value matches a revoked token id or raw
// token string.
func (r *blacklistTokens) IsRevoked(ctx context.Context, tokenOrID string) (bool, error) {
	if tokenOrID == "" {
		return false, nil
	}

	exists, err := r.db.NewSelect().
		Model((*BlacklistToken)(nil)).
		Where("?TableAlias.id = ? OR ?TableAlias.token = ?", tokenOrID, tokenOrID).
		Exists(ctx)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// Prune removes entries whose expiry has passed. Pruning is a storage
// optimization: a pruned token is already unusable through the token
// service's own expiry check.
func (r *blacklistTokens) Prune(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*BlacklistToken)(nil)).
		Where("expiry_time < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
