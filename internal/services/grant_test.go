package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-grantgate/grantgate/internal/cache"
	"github.com/go-grantgate/grantgate/internal/config"
	"github.com/go-grantgate/grantgate/internal/metrics"
	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/registry"
	"github.com/go-grantgate/grantgate/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	cfg      *config.Config
	store    *store.Store
	registry *registry.Registry
	grants   *GrantService
	uma      *UmaService
	clients  *ClientService
	sweeper  *Sweeper
}

func newTestConfig() *config.Config {
	return &config.Config{
		BaseURL:                     "http://localhost:8080",
		JWTSecret:                   "test-secret",
		AuthCodeExpiration:          5 * time.Minute,
		AccessTokenExpiration:       time.Hour,
		RefreshTokenExpiration:      720 * time.Hour,
		IDTokenExpiration:           time.Hour,
		RegistrationTokenExpiration: 8760 * time.Hour,
		IntrospectionScope:          "introspection",
		UmaTicketExpiration:         2 * time.Hour,
		UmaProtectionScope:          "uma_protection",
		TokenCacheTTL:               30 * time.Second,
		SweepInterval:               time.Minute,
		SweepBatchSize:              200,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	s, err := store.New("sqlite", dsn)
	require.NoError(t, err)

	cfg := newTestConfig()
	reg := registry.New(s, cache.NewMemoryCache[models.Token](), cfg.TokenCacheTTL)
	m := metrics.NewNoopMetrics()
	audit := NewAuditService(s, false, 0)

	return &testEnv{
		cfg:      cfg,
		store:    s,
		registry: reg,
		grants:   NewGrantService(cfg, s, reg, m, audit),
		uma:      NewUmaService(cfg, s, reg, m, audit),
		clients:  NewClientService(cfg, s, audit),
		sweeper:  NewSweeper(cfg, s, m, audit),
	}
}

func confidentialClient(id, scopes, grantTypes string) *models.Client {
	return &models.Client{
		ClientID:     id,
		ClientSecret: "$2a$10$notactuallycheckedinservicetests",
		ClientType:   models.ClientTypeConfidential,
		Scopes:       scopes,
		GrantTypes:   grantTypes,
		IsActive:     true,
	}
}

func publicClient(id, scopes, grantTypes string) *models.Client {
	return &models.Client{
		ClientID:   id,
		ClientType: models.ClientTypePublic,
		Scopes:     scopes,
		GrantTypes: grantTypes,
		IsActive:   true,
	}
}

func issueCode(t *testing.T, env *testEnv, client *models.Client, scopes string) *models.Token {
	t.Helper()
	_, code, err := env.grants.CreateFromCode(context.Background(), client, AuthorizeParams{
		ClientID:           client.ClientID,
		UserID:             "user-1",
		Scopes:             scopes,
		AuthenticationTime: time.Now(),
		Nonce:              "nonce-1",
	})
	require.NoError(t, err)
	return code
}

func TestCreateFromCode(t *testing.T) {
	env := newTestEnv(t)
	client := confidentialClient("client-1", "openid profile", "authorization_code refresh_token")

	grant, code, err := env.grants.CreateFromCode(context.Background(), client, AuthorizeParams{
		ClientID: "client-1",
		UserID:   "user-1",
		Scopes:   "openid profile",
		Nonce:    "n-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.GrantTypeAuthorizationCode, grant.GrantType)
	assert.Equal(t, "n-1", grant.Nonce)
	assert.NotEmpty(t, code.RawToken)
	assert.Equal(t, models.TokenTypeAuthorizationCode, code.TokenType)

	// Grant and code are visible together
	found, foundGrant, err := env.registry.FindByCode(context.Background(), code.RawToken)
	require.NoError(t, err)
	assert.Equal(t, code.ID, found.ID)
	assert.Equal(t, grant.GrantID, foundGrant.GrantID)
}

func TestCreateFromCodeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	noCode := confidentialClient("client-1", "openid", "client_credentials")
	_, _, err := env.grants.CreateFromCode(ctx, noCode, AuthorizeParams{
		UserID: "user-1", Scopes: "openid",
	})
	assert.ErrorIs(t, err, ErrUnauthorizedGrantType)

	client := confidentialClient("client-1", "openid", "authorization_code")
	_, _, err = env.grants.CreateFromCode(ctx, client, AuthorizeParams{
		UserID: "user-1", Scopes: "openid admin",
	})
	assert.ErrorIs(t, err, ErrInvalidScope)

	_, _, err = env.grants.CreateFromCode(ctx, client, AuthorizeParams{
		UserID: "user-1", Scopes: "",
	})
	assert.ErrorIs(t, err, ErrInvalidScope)

	_, _, err = env.grants.CreateFromCode(ctx, client, AuthorizeParams{
		UserID: "", Scopes: "openid",
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestExchangeCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := confidentialClient("client-1", "openid profile", "authorization_code refresh_token")
	code := issueCode(t, env, client, "openid profile")

	set, err := env.grants.ExchangeCode(ctx, client, code.RawToken, "")
	require.NoError(t, err)

	assert.NotNil(t, set.AccessToken)
	assert.NotNil(t, set.RefreshToken)
	assert.NotEmpty(t, set.IDToken)
	assert.Equal(t, "openid profile", set.Scope)
	assert.InDelta(t, env.cfg.AccessTokenExpiration.Seconds(), float64(set.ExpiresIn), 2)

	// The code is spent
	_, _, err = env.registry.FindByCode(ctx, code.RawToken)
	assert.ErrorIs(t, err, registry.ErrNotFound)

	// The issued access token resolves
	_, _, err = env.registry.FindByAccessToken(ctx, set.AccessToken.RawToken)
	require.NoError(t, err)
}

func TestExchangeCodeNoOpenidScope(t *testing.T) {
	env := newTestEnv(t)
	client := confidentialClient("client-1", "profile email", "authorization_code refresh_token")
	code := issueCode(t, env, client, "profile email")

	set, err := env.grants.ExchangeCode(context.Background(), client, code.RawToken, "")
	require.NoError(t, err)
	assert.Empty(t, set.IDToken)
}

func TestExchangeCodeScopeNarrowing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := confidentialClient("client-1", "openid profile email", "authorization_code refresh_token")

	code := issueCode(t, env, client, "openid profile email")
	set, err := env.grants.ExchangeCode(ctx, client, code.RawToken, "openid profile")
	require.NoError(t, err)
	assert.Equal(t, "openid profile", set.Scope)
	assert.Equal(t, "openid profile", set.AccessToken.Scopes)

	// Widening beyond the grant is rejected
	code = issueCode(t, env, client, "openid")
	_, err = env.grants.ExchangeCode(ctx, client, code.RawToken, "openid email")
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestExchangeCodeWrongClient(t *testing.T) {
	env := newTestEnv(t)
	client := confidentialClient("client-1", "openid", "authorization_code")
	other := confidentialClient("client-2", "openid", "authorization_code")
	code := issueCode(t, env, client, "openid")

	_, err := env.grants.ExchangeCode(context.Background(), other, code.RawToken, "")
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchangeCodeUnknown(t *testing.T) {
	env := newTestEnv(t)
	client := confidentialClient("client-1", "openid", "authorization_code")

	_, err := env.grants.ExchangeCode(context.Background(), client, "no-such-code", "")
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchangeCodeReplayRevokesGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := confidentialClient("client-1", "openid profile", "authorization_code refresh_token")
	code := issueCode(t, env, client, "openid profile")

	set, err := env.grants.ExchangeCode(ctx, client, code.RawToken, "")
	require.NoError(t, err)

	// Replaying the spent code fails and tears down the first exchange too
	_, err = env.grants.ExchangeCode(ctx, client, code.RawToken, "")
	assert.ErrorIs(t, err, ErrInvalidGrant)

	_, _, err = env.registry.FindByAccessToken(ctx, set.AccessToken.RawToken)
	assert.ErrorIs(t, err, registry.ErrNotFound)
	_, _, err = env.registry.FindByRefreshToken(ctx, "client-1", set.RefreshToken.RawToken)
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestClientCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := confidentialClient("client-1", "api:read api:write", "client_credentials")

	set, err := env.grants.ClientCredentials(ctx, client, "api:read")
	require.NoError(t, err)
	assert.Equal(t, "api:read", set.Scope)
	assert.Nil(t, set.RefreshToken)
	assert.Empty(t, set.IDToken)
	assert.Empty(t, set.AccessToken.UserID)

	// Empty request defaults to the client's registered scopes
	set, err = env.grants.ClientCredentials(ctx, client, "")
	require.NoError(t, err)
	assert.Equal(t, "api:read api:write", set.Scope)
}

func TestClientCredentialsRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pub := publicClient("client-1", "api:read", "client_credentials")
	_, err := env.grants.ClientCredentials(ctx, pub, "api:read")
	assert.ErrorIs(t, err, ErrInvalidClient)

	noCC := confidentialClient("client-2", "api:read", "authorization_code")
	_, err = env.grants.ClientCredentials(ctx, noCC, "api:read")
	assert.ErrorIs(t, err, ErrUnauthorizedGrantType)

	client := confidentialClient("client-3", "api:read offline_access", "client_credentials")
	_, err = env.grants.ClientCredentials(ctx, client, "offline_access")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = env.grants.ClientCredentials(ctx, client, "api:admin")
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestRefreshWithoutRotation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := confidentialClient("client-1", "openid profile", "authorization_code refresh_token")
	code := issueCode(t, env, client, "openid profile")
	set, err := env.grants.ExchangeCode(ctx, client, code.RawToken, "")
	require.NoError(t, err)

	refreshed, err := env.grants.Refresh(ctx, client, set.RefreshToken.RawToken, "")
	require.NoError(t, err)
	assert.NotNil(t, refreshed.AccessToken)
	assert.Nil(t, refreshed.RefreshToken)

	// The same refresh token keeps working
	again, err := env.grants.Refresh(ctx, client, set.RefreshToken.RawToken, "")
	require.NoError(t, err)
	assert.NotEqual(t, refreshed.AccessToken.RawToken, again.AccessToken.RawToken)
}

func TestRefreshWithRotation(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.EnableTokenRotation = true
	ctx := context.Background()
	client := confidentialClient("client-1", "openid profile", "authorization_code refresh_token")
	code := issueCode(t, env, client, "openid profile")
	set, err := env.grants.ExchangeCode(ctx, client, code.RawToken, "")
	require.NoError(t, err)
	originalExpiry := set.RefreshToken.ExpiresAt

	refreshed, err := env.grants.Refresh(ctx, client, set.RefreshToken.RawToken, "")
	require.NoError(t, err)
	require.NotNil(t, refreshed.RefreshToken)
	assert.NotEqual(t, set.RefreshToken.RawToken, refreshed.RefreshToken.RawToken)

	// Rotation never extends the refresh window
	assert.WithinDuration(t, originalExpiry, refreshed.RefreshToken.ExpiresAt, time.Second)

	// The retired refresh token and the prior access token are dead
	_, err = env.grants.Refresh(ctx, client, set.RefreshToken.RawToken, "")
	assert.ErrorIs(t, err, ErrInvalidGrant)
	_, _, err = env.registry.FindByAccessToken(ctx, set.AccessToken.RawToken)
	assert.ErrorIs(t, err, registry.ErrNotFound)

	// The rotated one works
	_, err = env.grants.Refresh(ctx, client, refreshed.RefreshToken.RawToken, "")
	require.NoError(t, err)
}

func TestRefreshScopeRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := confidentialClient("client-1", "openid profile email", "authorization_code refresh_token")
	code := issueCode(t, env, client, "openid profile")
	set, err := env.grants.ExchangeCode(ctx, client, code.RawToken, "")
	require.NoError(t, err)

	narrowed, err := env.grants.Refresh(ctx, client, set.RefreshToken.RawToken, "openid")
	require.NoError(t, err)
	assert.Equal(t, "openid", narrowed.Scope)

	// email is registered for the client but outside the refresh token's scopes
	_, err = env.grants.Refresh(ctx, client, set.RefreshToken.RawToken, "openid email")
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestRefreshUnknownOrCrossClient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := confidentialClient("client-1", "openid", "authorization_code refresh_token")
	other := confidentialClient("client-2", "openid", "authorization_code refresh_token")
	code := issueCode(t, env, client, "openid")
	set, err := env.grants.ExchangeCode(ctx, client, code.RawToken, "")
	require.NoError(t, err)

	_, err = env.grants.Refresh(ctx, client, "no-such-token", "")
	assert.ErrorIs(t, err, ErrInvalidGrant)

	_, err = env.grants.Refresh(ctx, other, set.RefreshToken.RawToken, "")
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestRevokeCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := confidentialClient("client-1", "openid profile", "authorization_code refresh_token")
	code := issueCode(t, env, client, "openid profile")
	set, err := env.grants.ExchangeCode(ctx, client, code.RawToken, "")
	require.NoError(t, err)

	// Revoking the refresh token kills its access token sibling too
	require.NoError(t, env.grants.Revoke(ctx, client, set.RefreshToken.RawToken))

	_, _, err = env.registry.FindByAccessToken(ctx, set.AccessToken.RawToken)
	assert.ErrorIs(t, err, registry.ErrNotFound)
	_, _, err = env.registry.FindByRefreshToken(ctx, "client-1", set.RefreshToken.RawToken)
	assert.ErrorIs(t, err, registry.ErrNotFound)

	// Idempotent: revoking again, or revoking garbage, succeeds
	assert.NoError(t, env.grants.Revoke(ctx, client, set.RefreshToken.RawToken))
	assert.NoError(t, env.grants.Revoke(ctx, client, "never-issued"))
}

func TestRevokePublicClientPolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := publicClient("client-1", "openid", "authorization_code")

	err := env.grants.Revoke(ctx, pub, "anything")
	assert.ErrorIs(t, err, ErrAccessDenied)

	env.cfg.AllowPublicClientRevocation = true
	assert.NoError(t, env.grants.Revoke(ctx, pub, "anything"))
}

func TestRevokeCrossClient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := confidentialClient("client-1", "openid", "authorization_code refresh_token")
	other := confidentialClient("client-2", "openid revoke_any", "authorization_code")

	code := issueCode(t, env, owner, "openid")
	set, err := env.grants.ExchangeCode(ctx, owner, code.RawToken, "")
	require.NoError(t, err)

	// Without the policy flag the request reads as unknown token and the
	// target survives
	require.NoError(t, env.grants.Revoke(ctx, other, set.AccessToken.RawToken))
	_, _, err = env.registry.FindByAccessToken(ctx, set.AccessToken.RawToken)
	require.NoError(t, err)

	// With the flag and the revoke_any scope the cascade goes through
	env.cfg.AllowCrossClientRevocation = true
	require.NoError(t, env.grants.Revoke(ctx, other, set.AccessToken.RawToken))
	_, _, err = env.registry.FindByAccessToken(ctx, set.AccessToken.RawToken)
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestIntrospect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inspector := confidentialClient("inspector", "introspection", "client_credentials")
	callerSet, err := env.grants.ClientCredentials(ctx, inspector, "introspection")
	require.NoError(t, err)

	client := confidentialClient("client-1", "openid profile", "authorization_code refresh_token")
	authTime := time.Now().Add(-time.Minute)
	_, code, err := env.grants.CreateFromCode(ctx, client, AuthorizeParams{
		UserID:             "user-1",
		Scopes:             "openid profile",
		AcrValues:          "level1",
		AmrValues:          "pwd",
		AuthenticationTime: authTime,
	})
	require.NoError(t, err)
	set, err := env.grants.ExchangeCode(ctx, client, code.RawToken, "")
	require.NoError(t, err)

	resp, err := env.grants.Introspect(ctx, callerSet.AccessToken.RawToken, set.AccessToken.RawToken)
	require.NoError(t, err)
	assert.True(t, resp.Active)
	assert.Equal(t, "openid profile", resp.Scope)
	assert.Equal(t, "client-1", resp.ClientID)
	assert.Equal(t, "user-1", resp.Sub)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "level1", resp.Acr)
	assert.Equal(t, authTime.Unix(), resp.AuthTime)
	assert.Greater(t, resp.Exp, resp.Iat)
}

func TestIntrospectCallerGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Caller without the introspection scope is refused outright
	plain := confidentialClient("plain", "api:read", "client_credentials")
	plainSet, err := env.grants.ClientCredentials(ctx, plain, "api:read")
	require.NoError(t, err)

	_, err = env.grants.Introspect(ctx, plainSet.AccessToken.RawToken, "whatever")
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = env.grants.Introspect(ctx, "not-a-token", "whatever")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestIntrospectInactiveTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inspector := confidentialClient("inspector", "introspection", "client_credentials")
	callerSet, err := env.grants.ClientCredentials(ctx, inspector, "introspection")
	require.NoError(t, err)

	// Unknown target is inactive, not an error
	resp, err := env.grants.Introspect(ctx, callerSet.AccessToken.RawToken, "never-issued")
	require.NoError(t, err)
	assert.False(t, resp.Active)
	assert.Empty(t, resp.Scope)

	// A revoked token goes inactive too
	client := confidentialClient("client-1", "openid", "authorization_code")
	code := issueCode(t, env, client, "openid")
	set, err := env.grants.ExchangeCode(ctx, client, code.RawToken, "")
	require.NoError(t, err)
	require.NoError(t, env.grants.Revoke(ctx, client, set.AccessToken.RawToken))

	resp, err = env.grants.Introspect(ctx, callerSet.AccessToken.RawToken, set.AccessToken.RawToken)
	require.NoError(t, err)
	assert.False(t, resp.Active)
}

func TestIntrospectStorageErrorSurfaces(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inspector := confidentialClient("inspector", "introspection", "client_credentials")
	callerSet, err := env.grants.ClientCredentials(ctx, inspector, "introspection")
	require.NoError(t, err)

	sqlDB, err := env.store.DB().DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	// A failing store is a server error, not a credential problem
	_, err = env.grants.Introspect(ctx, callerSet.AccessToken.RawToken, "whatever")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccessDenied)
}
