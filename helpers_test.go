package authkit_test

import (
	"context"
	"database/sql"
	"encoding/base64"
	"sync"
	"testing"

	"github.com/kyralabs/go-authkit"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    first_name TEXT,
    last_name TEXT,
    email TEXT NOT NULL UNIQUE,
    phone_number TEXT,
    password_hash TEXT,
    user_role TEXT NOT NULL DEFAULT 'USER',
    is_active BOOLEAN NOT NULL DEFAULT 0,
    is_locked BOOLEAN NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP NULL
);`

	sqliteCreateRoles = `CREATE TABLE roles (
    id TEXT NOT NULL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

	sqliteCreateActivationCodes = `CREATE TABLE activation_codes (
    id TEXT NOT NULL PRIMARY KEY,
    code TEXT NOT NULL,
    user_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    validated_at TIMESTAMP NULL,
    FOREIGN KEY (user_id) REFERENCES users (id)
);`

	sqliteCreateBlacklistTokens = `CREATE TABLE blacklist_tokens (
    id TEXT NOT NULL PRIMARY KEY,
    token TEXT NOT NULL,
    expiry_time TIMESTAMP NOT NULL
);`
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	for _, stmt := range []string{
		sqliteCreateUsers,
		sqliteCreateRoles,
		sqliteCreateActivationCodes,
		sqliteCreateBlacklistTokens,
	} {
		_, err = bunDB.Exec(stmt)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = bunDB.Close()
	})

	return bunDB
}

func setupRepos(t *testing.T) authkit.RepositoryManager {
	t.Helper()

	repos := authkit.NewRepositoryManager(setupTestDB(t))
	require.NoError(t, repos.Validate())
	require.NoError(t, repos.Roles().Seed(context.Background(), authkit.AllRoles()...))

	return repos
}

// testConfig gives tests full control over TTLs, including negative values
// to mint already expired tokens.
type testConfig struct {
	accessKey     string
	refreshKey    string
	accessTTL     int
	refreshTTL    int
	issuer        string
	audience      []string
	activationURL string
}

func (c testConfig) GetAccessSigningKey() string  { return c.accessKey }
func (c testConfig) GetRefreshSigningKey() string { return c.refreshKey }
func (c testConfig) GetAccessTokenTTL() int       { return c.accessTTL }
func (c testConfig) GetRefreshTokenTTL() int      { return c.refreshTTL }
func (c testConfig) GetIssuer() string            { return c.issuer }
func (c testConfig) GetAudience() []string        { return c.audience }
func (c testConfig) GetContextKey() string        { return "user" }
func (c testConfig) GetTokenLookup() string       { return "header:Authorization" }
func (c testConfig) GetAuthScheme() string        { return "Bearer" }
func (c testConfig) GetActivationURL() string     { return c.activationURL }

func newTestConfig() testConfig {
	return testConfig{
		accessKey:     base64.StdEncoding.EncodeToString([]byte("test-access-signing-key")),
		refreshKey:    base64.StdEncoding.EncodeToString([]byte("test-refresh-signing-key")),
		accessTTL:     30,
		refreshTTL:    14,
		issuer:        "authkit-test",
		audience:      []string{"authkit-test"},
		activationURL: "http://localhost/auth/activate-account",
	}
}

func newTokenService(t *testing.T, cfg authkit.Config) *authkit.TokenServiceImpl {
	t.Helper()

	tokens, err := authkit.NewTokenService(cfg, nil)
	require.NoError(t, err)
	return tokens
}

var (
	testHashOnce sync.Once
	testHash     string
)

// testPasswordHash hashes the shared test password once; bcrypt at the
// production cost is too slow to run per test.
func testPasswordHash(t *testing.T) string {
	t.Helper()

	testHashOnce.Do(func() {
		hash, err := authkit.HashPassword("s3cret-password")
		if err != nil {
			panic(err)
		}
		testHash = hash
	})

	return testHash
}

const testPassword = "s3cret-password"

func createTestUser(t *testing.T, repos authkit.RepositoryManager, email string, active, locked bool) *authkit.User {
	t.Helper()

	user, err := repos.Users().Create(context.Background(), &authkit.User{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        email,
		PasswordHash: testPasswordHash(t),
		IsActive:     active,
		IsLocked:     locked,
	})
	require.NoError(t, err)
	require.NotNil(t, user)

	return user
}
