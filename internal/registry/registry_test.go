package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-grantgate/grantgate/internal/cache"
	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/store"
	"github.com/go-grantgate/grantgate/internal/token"
	"github.com/go-grantgate/grantgate/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	s, err := store.New("sqlite", dsn)
	require.NoError(t, err)
	r := New(s, cache.NewMemoryCache[models.Token](), 30*time.Second)
	return r, s
}

func seedGrantWithToken(
	t *testing.T,
	s *store.Store,
	tt models.TokenType,
	clientID string,
	ttl time.Duration,
) (*models.AuthorizationGrant, *models.Token) {
	t.Helper()
	g := &models.AuthorizationGrant{
		GrantID:   uuid.New().String(),
		GrantType: models.GrantTypeAuthorizationCode,
		ClientID:  clientID,
		UserID:    "user-1",
		Scopes:    "openid profile",
		CreatedAt: time.Now(),
	}
	tok, err := token.Mint(tt, g.GrantID, clientID, "user-1", "openid profile", ttl)
	require.NoError(t, err)
	require.NoError(t, s.CreateGrantWithToken(context.Background(), g, tok))
	return g, tok
}

func TestFindByAccessToken(t *testing.T) {
	r, s := newTestRegistry(t)
	ctx := context.Background()
	g, tok := seedGrantWithToken(t, s, models.TokenTypeAccessToken, "client-1", time.Hour)

	found, grant, err := r.FindByAccessToken(ctx, tok.RawToken)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, found.ID)
	assert.Equal(t, g.GrantID, grant.GrantID)
	assert.False(t, found.Cached)

	// Second lookup is served from cache
	found, _, err = r.FindByAccessToken(ctx, tok.RawToken)
	require.NoError(t, err)
	assert.True(t, found.Cached)

	_, _, err = r.FindByAccessToken(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByAccessTokenWrongType(t *testing.T) {
	r, s := newTestRegistry(t)
	_, refresh := seedGrantWithToken(t, s, models.TokenTypeRefreshToken, "client-1", time.Hour)

	// A refresh token value does not resolve through the access lookup
	_, _, err := r.FindByAccessToken(context.Background(), refresh.RawToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByAccessTokenStaleCacheEntry(t *testing.T) {
	r, s := newTestRegistry(t)
	ctx := context.Background()
	g, tok := seedGrantWithToken(t, s, models.TokenTypeAccessToken, "client-1", time.Hour)

	// Warm the cache, then revoke behind its back
	_, _, err := r.FindByAccessToken(ctx, tok.RawToken)
	require.NoError(t, err)
	_, err = s.DeleteGrantCascade(ctx, g.GrantID)
	require.NoError(t, err)

	// The stale entry is detected via the missing grant and dropped
	_, _, err = r.FindByAccessToken(ctx, tok.RawToken)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = r.FindByAccessToken(ctx, tok.RawToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByRefreshTokenClientScoped(t *testing.T) {
	r, s := newTestRegistry(t)
	ctx := context.Background()
	g, refresh := seedGrantWithToken(t, s, models.TokenTypeRefreshToken, "client-1", time.Hour)

	found, grant, err := r.FindByRefreshToken(ctx, "client-1", refresh.RawToken)
	require.NoError(t, err)
	assert.Equal(t, refresh.ID, found.ID)
	assert.Equal(t, g.GrantID, grant.GrantID)

	// Another client presenting the same value sees nothing
	_, _, err = r.FindByRefreshToken(ctx, "client-2", refresh.RawToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByCode(t *testing.T) {
	r, s := newTestRegistry(t)
	ctx := context.Background()
	g, code := seedGrantWithToken(t, s, models.TokenTypeAuthorizationCode, "client-1", 5*time.Minute)

	found, grant, err := r.FindByCode(ctx, code.RawToken)
	require.NoError(t, err)
	assert.Equal(t, code.TokenHash, found.TokenHash)
	assert.Equal(t, g.GrantID, grant.GrantID)
}

func TestFindByValueAnyType(t *testing.T) {
	r, s := newTestRegistry(t)
	ctx := context.Background()
	_, access := seedGrantWithToken(t, s, models.TokenTypeAccessToken, "client-1", time.Hour)
	_, refresh := seedGrantWithToken(t, s, models.TokenTypeRefreshToken, "client-1", time.Hour)

	for _, raw := range []string{access.RawToken, refresh.RawToken} {
		found, _, err := r.FindByValue(ctx, raw)
		require.NoError(t, err)
		assert.Equal(t, util.SHA256Hex(raw), found.TokenHash)
	}
}

func TestRemoveGrant(t *testing.T) {
	r, s := newTestRegistry(t)
	ctx := context.Background()
	g, access := seedGrantWithToken(t, s, models.TokenTypeAccessToken, "client-1", time.Hour)

	refresh, err := token.Mint(models.TokenTypeRefreshToken,
		g.GrantID, "client-1", "user-1", "openid profile", time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.CreateToken(ctx, refresh))

	// Warm the cache so removal has something to purge
	_, _, err = r.FindByAccessToken(ctx, access.RawToken)
	require.NoError(t, err)

	removed, err := r.RemoveGrant(ctx, g.GrantID)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	_, _, err = r.FindByAccessToken(ctx, access.RawToken)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = r.FindByRefreshToken(ctx, "client-1", refresh.RawToken)
	assert.ErrorIs(t, err, ErrNotFound)

	// Removing again reports the grant gone
	_, err = r.RemoveGrant(ctx, g.GrantID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCacheTTLCappedByTokenLifetime(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	s, err := store.New("sqlite", dsn)
	require.NoError(t, err)
	// Cache TTL far beyond the token lifetime
	r := New(s, cache.NewMemoryCache[models.Token](), time.Hour)
	ctx := context.Background()

	g, access := seedGrantWithToken(t, s, models.TokenTypeAccessToken, "client-1", 50*time.Millisecond)

	_, _, err = r.FindByAccessToken(ctx, access.RawToken)
	require.NoError(t, err)

	// Delete the row directly; the cache entry must die with the token's expiry
	_, err = s.DeleteGrantCascade(ctx, g.GrantID)
	require.NoError(t, err)
	time.Sleep(80 * time.Millisecond)

	_, _, err = r.FindByAccessToken(ctx, access.RawToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryWithoutCache(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	s, err := store.New("sqlite", dsn)
	require.NoError(t, err)
	r := New(s, nil, 0)
	ctx := context.Background()

	_, access := seedGrantWithToken(t, s, models.TokenTypeAccessToken, "client-1", time.Hour)

	found, _, err := r.FindByAccessToken(ctx, access.RawToken)
	require.NoError(t, err)
	assert.False(t, found.Cached)

	r.InvalidateHashes(ctx, []string{access.TokenHash})
}
