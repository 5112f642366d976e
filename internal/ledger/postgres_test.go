package ledger

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgres connects to TEST_DATABASE_URL and makes sure the wallets
// table exists. Tests are skipped when the variable is not set.
func newTestPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS wallets (
        id      UUID PRIMARY KEY,
        balance NUMERIC(21, 2) NOT NULL CHECK (balance >= 0)
    )`)
	require.NoError(t, err)
	return pool
}

func insertWallet(t *testing.T, pool *pgxpool.Pool, balance string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `INSERT INTO wallets (id, balance) VALUES ($1, $2::numeric)`, id, balance)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM wallets WHERE id = $1`, id)
	})
	return id
}

func TestPostgresStore_ApplyDeltaOutcomes(t *testing.T) {
	pool := newTestPostgres(t)
	store := NewPostgresStore(pool, 5*time.Second)
	ctx := context.Background()
	id := insertWallet(t, pool, "0.00")

	res, err := store.ApplyDelta(ctx, id, decimal.RequireFromString("1000.00"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, "1000.00", res.Balance.StringFixed(2))

	res, err = store.ApplyDelta(ctx, id, decimal.RequireFromString("-999999.00"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInsufficientFunds, res.Outcome)

	balance, err := store.FindBalance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1000)))

	missing := uuid.New()
	res, err = store.ApplyDelta(ctx, missing, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, OutcomeWalletNotFound, res.Outcome)

	_, err = store.FindBalance(ctx, missing)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestPostgresStore_ConcurrentDepositsAreNotLost(t *testing.T) {
	pool := newTestPostgres(t)
	store := NewPostgresStore(pool, 30*time.Second)
	ctx := context.Background()
	id := insertWallet(t, pool, "0.00")

	const (
		workers = 20
		perWork = 10
	)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := 0; i < perWork; i++ {
				_, err := store.ApplyDelta(ctx, id, decimal.NewFromInt(1))
				assert.NoError(t, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	balance, err := store.FindBalance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "200.00", balance.StringFixed(2))
}

func TestPostgresStore_TimeoutIsAnError(t *testing.T) {
	pool := newTestPostgres(t)
	store := NewPostgresStore(pool, time.Second)
	id := insertWallet(t, pool, "5.00")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ApplyDelta(ctx, id, decimal.NewFromInt(1))
	require.Error(t, err)

	balance, err := store.FindBalance(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "5.00", balance.StringFixed(2))
}
