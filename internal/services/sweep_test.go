package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/store"
	"github.com/go-grantgate/grantgate/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedExpiredGrant(t *testing.T, env *testEnv) (*models.AuthorizationGrant, *models.Token) {
	t.Helper()
	g := &models.AuthorizationGrant{
		GrantID:   uuid.New().String(),
		GrantType: models.GrantTypeAuthorizationCode,
		ClientID:  "client-1",
		UserID:    "user-1",
		Scopes:    "openid",
		CreatedAt: time.Now(),
	}
	tok, err := token.Mint(models.TokenTypeAccessToken,
		g.GrantID, "client-1", "user-1", "openid", -time.Minute)
	require.NoError(t, err)
	require.NoError(t, env.store.CreateGrantWithToken(context.Background(), g, tok))
	return g, tok
}

func TestSweepRemovesExpiredState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expiredGrant, expiredTok := seedExpiredGrant(t, env)

	// A live grant that must survive the pass
	client := confidentialClient("client-1", "openid", "authorization_code refresh_token")
	code := issueCode(t, env, client, "openid")
	set, err := env.grants.ExchangeCode(ctx, client, code.RawToken, "")
	require.NoError(t, err)

	// A lapsed issued ticket
	require.NoError(t, env.store.CreateTicket(ctx, &models.UmaPermissionTicket{
		Ticket:     "lapsed-ticket",
		ResourceID: "res-1",
		ScopeIDs:   "read",
		Status:     models.TicketStatusIssued,
		ExpiresAt:  time.Now().Add(-time.Minute),
		CreatedAt:  time.Now().Add(-time.Hour),
		Deletable:  true,
	}))

	env.sweeper.RunOnce(ctx)

	// Expired token and its now-empty grant are gone
	_, err = env.store.GetTokenByHash(ctx, expiredTok.TokenHash)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
	_, err = env.store.GetGrant(ctx, expiredGrant.GrantID)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)

	// The lapsed ticket was marked and collected in the same pass
	_, err = env.store.GetTicket(ctx, "lapsed-ticket")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)

	// Live state is untouched
	_, _, err = env.registry.FindByAccessToken(ctx, set.AccessToken.RawToken)
	require.NoError(t, err)
}

func TestSweepSparesConsumedTickets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pat := mintPAT(t, env)
	seedResource(t, env, "res-1", "read")

	resp, err := env.uma.RegisterPermission(ctx, pat, PermissionRequest{
		ResourceID: "res-1", ScopeIDs: []string{"read"},
	})
	require.NoError(t, err)

	requester := confidentialClient("requester", "read", string(models.GrantTypeUmaTicket))
	set, err := env.uma.ExchangeTicket(ctx, requester, resp.Ticket)
	require.NoError(t, err)

	// Force the ticket past its deadline; consumed state still protects it
	err = env.store.DB().Model(&models.UmaPermissionTicket{}).
		Where("ticket = ?", resp.Ticket).
		Update("expires_at", time.Now().Add(-time.Hour)).Error
	require.NoError(t, err)

	env.sweeper.RunOnce(ctx)

	ticket, err := env.store.GetTicket(ctx, resp.Ticket)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusConsumed, ticket.Status)

	// And the RPT grant it backs is still live
	_, _, err = env.registry.FindByAccessToken(ctx, set.AccessToken.RawToken)
	require.NoError(t, err)
}

func TestSweepBatchesUntilDrained(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.SweepBatchSize = 2
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedExpiredGrant(t, env)
	}

	env.sweeper.RunOnce(ctx)

	n, err := env.store.DeleteExpiredTokensBatch(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepRunOnceConcurrent(t *testing.T) {
	env := newTestEnv(t)
	seedExpiredGrant(t, env)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.sweeper.RunOnce(context.Background())
		}()
	}
	wg.Wait()

	// Whoever ran, the work is done exactly once and nothing deadlocked
	n, err := env.store.DeleteExpiredTokensBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepStartStop(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.SweepInterval = 10 * time.Millisecond
	seedExpiredGrant(t, env)

	env.sweeper.Start()
	time.Sleep(50 * time.Millisecond)
	env.sweeper.Stop()

	_, err := env.store.GetGrant(context.Background(), "whatever")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}
