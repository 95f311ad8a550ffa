package authkit

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles is the role catalog, read-only from this package's point of view
// except for test seeding.
type Roles interface {
	GetByName(ctx context.Context, name string) (*Role, error)
	GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error)
	Seed(ctx context.Context, names ...string) error
}

type roles struct {
	db *bun.DB
}

func NewRolesRepository(db *bun.DB) Roles {
	return &roles{db: db}
}

func (r *roles) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.GetByNameTx(ctx, r.db, name)
}

func (r *roles) GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error) {
	record := &Role{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"name": name})
		}
		return nil, err
	}

	return record, nil
}

// Seed inserts the given role names, skipping any that already exist.
func (r *roles) Seed(ctx context.Context, names ...string) error {
	for _, name := range names {
		role := &Role{ID: uuid.New(), Name: name}
		_, err := r.db.NewInsert().
			Model(role).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}
