package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-grantgate/grantgate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestStoreWithPostgres re-runs the single-use invariants against a real
// PostgreSQL server. The conditional-mutation race guards behave differently
// under MVCC than under SQLite's writer lock, so these cannot be trusted on
// SQLite alone.
func TestStoreWithPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PostgreSQL integration test in short mode")
	}

	defer func() {
		if r := recover(); r != nil {
			t.Skipf("Skipping PostgreSQL test: Docker not available (panic: %v)", r)
		}
	}()

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("Skipping PostgreSQL test: Docker not available (%v)", err)
		return
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	t.Run("ExchangeCodeSingleUse", func(t *testing.T) {
		s := newPostgresStore(t, pgContainer)
		g := newTestGrant(t, s, models.GrantTypeAuthorizationCode)
		code := mintToken(t, models.TokenTypeAuthorizationCode, g.GrantID, 5*time.Minute)
		require.NoError(t, s.CreateToken(ctx, code))

		const racers = 8
		var wg sync.WaitGroup
		errs := make([]error, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				access := mintToken(t, models.TokenTypeAccessToken, g.GrantID, time.Hour)
				errs[i] = s.ExchangeCodeTokens(ctx, code.TokenHash, []*models.Token{access})
			}(i)
		}
		wg.Wait()

		successes := 0
		for _, err := range errs {
			if err == nil {
				successes++
			}
		}
		assert.Equal(t, 1, successes, "exactly one exchange may win")

		var remaining int64
		require.NoError(t, s.db.Model(&models.Token{}).
			Where("grant_id = ?", g.GrantID).Count(&remaining).Error)
		assert.EqualValues(t, 1, remaining, "only the winner's token survives")
	})

	t.Run("ConsumeTicketOnce", func(t *testing.T) {
		s := newPostgresStore(t, pgContainer)
		require.NoError(t, s.CreateTicket(ctx, &models.UmaPermissionTicket{
			Ticket:     "pg-ticket",
			ResourceID: "res-1",
			ScopeIDs:   "read",
			Status:     models.TicketStatusIssued,
			ExpiresAt:  time.Now().Add(time.Hour),
			CreatedAt:  time.Now(),
			Deletable:  true,
		}))

		const racers = 8
		var wg sync.WaitGroup
		errs := make([]error, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				grant := &models.AuthorizationGrant{
					GrantID:   fmt.Sprintf("pg-grant-%d", i),
					GrantType: models.GrantTypeUmaTicket,
					ClientID:  "client-1",
					Scopes:    "read",
					TicketID:  "pg-ticket",
					CreatedAt: time.Now(),
				}
				rpt := mintToken(t, models.TokenTypeAccessToken, grant.GrantID, time.Hour)
				errs[i] = s.ConsumeTicket(ctx, "pg-ticket", grant, []*models.Token{rpt})
			}(i)
		}
		wg.Wait()

		successes := 0
		for _, err := range errs {
			if err == nil {
				successes++
			}
		}
		assert.Equal(t, 1, successes, "exactly one consume may win")

		ticket, err := s.GetTicket(ctx, "pg-ticket")
		require.NoError(t, err)
		assert.Equal(t, models.TicketStatusConsumed, ticket.Status)
		assert.False(t, ticket.Deletable)
	})

	t.Run("RefreshVersusRevoke", func(t *testing.T) {
		s := newPostgresStore(t, pgContainer)
		g := newTestGrant(t, s, models.GrantTypeAuthorizationCode)
		refresh := mintToken(t, models.TokenTypeRefreshToken, g.GrantID, time.Hour)
		require.NoError(t, s.CreateToken(ctx, refresh))

		_, err := s.DeleteGrantCascade(ctx, g.GrantID)
		require.NoError(t, err)

		newAccess := mintToken(t, models.TokenTypeAccessToken, g.GrantID, time.Hour)
		err = s.RefreshTokens(ctx, refresh.TokenHash, g.GrantID, true, true,
			[]*models.Token{newAccess})
		assert.ErrorIs(t, err, ErrTokenGone)
	})

	t.Run("DuplicateHashTranslation", func(t *testing.T) {
		s := newPostgresStore(t, pgContainer)
		g := newTestGrant(t, s, models.GrantTypeAuthorizationCode)

		tok := mintToken(t, models.TokenTypeAccessToken, g.GrantID, time.Hour)
		require.NoError(t, s.CreateToken(ctx, tok))

		dup := mintToken(t, models.TokenTypeAccessToken, g.GrantID, time.Hour)
		dup.TokenHash = tok.TokenHash
		assert.ErrorIs(t, s.CreateToken(ctx, dup), ErrDuplicateToken)
	})
}

// newPostgresStore creates an isolated database inside the container for one
// subtest, matching the per-test temp-file isolation of the SQLite helper.
func newPostgresStore(t *testing.T, pgContainer *postgres.PostgresContainer) *Store {
	t.Helper()
	ctx := context.Background()

	dbName := fmt.Sprintf("test_%d", time.Now().UnixNano())
	_, _, err := pgContainer.Exec(ctx,
		[]string{"psql", "-U", "testuser", "-d", "testdb", "-c",
			"CREATE DATABASE " + dbName})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _, _ = pgContainer.Exec(context.Background(),
			[]string{"psql", "-U", "testuser", "-d", "testdb", "-c",
				"DROP DATABASE IF EXISTS " + dbName})
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf(
		"host=%s port=%s user=testuser password=testpass dbname=%s sslmode=disable",
		host, port.Port(), dbName,
	)

	s, err := New("postgres", dsn)
	require.NoError(t, err)
	return s
}
