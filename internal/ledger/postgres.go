package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const defaultStoreTimeout = 5 * time.Second

// applyDeltaQuery runs the conditional update and the existence probe in one
// statement. The UPDATE takes the row lock, so concurrent deltas on the same
// wallet are serialized by PostgreSQL and each re-evaluates the balance guard
// against the latest committed row.
const applyDeltaQuery = `
WITH updated AS (
    UPDATE wallets
       SET balance = balance + $2::numeric
     WHERE id = $1::uuid
       AND balance + $2::numeric >= 0
    RETURNING balance
)
SELECT EXISTS (SELECT 1 FROM updated)
           OR EXISTS (SELECT 1 FROM wallets WHERE id = $1::uuid),
       (SELECT balance FROM updated)`

const findBalanceQuery = `SELECT balance FROM wallets WHERE id = $1`

// PostgresStore keeps wallet balances in the PostgreSQL wallets table.
type PostgresStore struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresStore constructs a Postgres-backed ledger. A non-positive
// timeout falls back to five seconds.
func NewPostgresStore(db *pgxpool.Pool, timeout time.Duration) *PostgresStore {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &PostgresStore{db: db, timeout: timeout}
}

// ApplyDelta adds delta to the wallet balance unless the result would be negative.
func (s *PostgresStore) ApplyDelta(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal) (ApplyResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		exists  bool
		balance decimal.NullDecimal
	)
	if err := s.db.QueryRow(ctx, applyDeltaQuery, walletID, delta).Scan(&exists, &balance); err != nil {
		return ApplyResult{}, fmt.Errorf("apply delta to wallet %s: %w", walletID, err)
	}

	switch {
	case !exists:
		return WalletNotFound(), nil
	case !balance.Valid:
		return InsufficientFunds(), nil
	default:
		return Updated(balance.Decimal), nil
	}
}

// FindBalance returns the committed balance for the wallet.
func (s *PostgresStore) FindBalance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var balance decimal.Decimal
	if err := s.db.QueryRow(ctx, findBalanceQuery, walletID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Decimal{}, ErrWalletNotFound
		}
		return decimal.Decimal{}, fmt.Errorf("find balance of wallet %s: %w", walletID, err)
	}
	return balance, nil
}
