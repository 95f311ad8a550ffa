package authkit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlacklistRecordAndIsRevoked(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour)

	require.NoError(t, repos.BlacklistTokens().Record(ctx, "jti-1", "raw.jwt.one", expiry))

	t.Run("revoked by token id", func(t *testing.T) {
		revoked, err := repos.BlacklistTokens().IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("revoked by raw token", func(t *testing.T) {
		revoked, err := repos.BlacklistTokens().IsRevoked(ctx, "raw.jwt.one")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("unknown token", func(t *testing.T) {
		revoked, err := repos.BlacklistTokens().IsRevoked(ctx, "jti-unknown")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("empty value is never revoked", func(t *testing.T) {
		revoked, err := repos.BlacklistTokens().IsRevoked(ctx, "")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("recording twice is a no-op", func(t *testing.T) {
		require.NoError(t, repos.BlacklistTokens().Record(ctx, "jti-1", "raw.jwt.one", expiry))

		revoked, err := repos.BlacklistTokens().IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)
	})
}

func TestBlacklistPrune(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repos.BlacklistTokens().Record(ctx, "jti-old", "raw.old", now.Add(-time.Hour)))
	require.NoError(t, repos.BlacklistTokens().Record(ctx, "jti-live", "raw.live", now.Add(time.Hour)))

	pruned, err := repos.BlacklistTokens().Prune(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	revoked, err := repos.BlacklistTokens().IsRevoked(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = repos.BlacklistTokens().IsRevoked(ctx, "jti-live")
	require.NoError(t, err)
	assert.True(t, revoked)
}
