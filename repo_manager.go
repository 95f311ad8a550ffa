package authkit

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Roles() Roles
	ActivationCodes() ActivationCodes
	BlacklistTokens() BlacklistTokens
}

type mngr struct {
	db              *bun.DB
	users           Users
	roles           Roles
	activationCodes ActivationCodes
	blacklistTokens BlacklistTokens
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:              db,
		users:           NewUsersRepository(db),
		roles:           NewRolesRepository(db),
		activationCodes: NewActivationCodesRepository(db),
		blacklistTokens: NewBlacklistTokensRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.roles == nil {
		return errors.New("repository roles should be initialized")
	}

	if m.activationCodes == nil {
		return errors.New("repository activationCodes should be initialized")
	}

	if m.blacklistTokens == nil {
		return errors.New("repository blacklistTokens should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Roles() Roles {
	return m.roles
}

func (m mngr) ActivationCodes() ActivationCodes {
	return m.activationCodes
}

func (m mngr) BlacklistTokens() BlacklistTokens {
	return m.blacklistTokens
}
