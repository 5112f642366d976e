package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InMemory is a concurrency-safe ledger used by unit tests and local development.
type InMemory struct {
	mu       sync.RWMutex
	balances map[uuid.UUID]decimal.Decimal
}

// NewInMemory creates an empty in-memory ledger.
func NewInMemory() *InMemory {
	return &InMemory{balances: make(map[uuid.UUID]decimal.Decimal)}
}

// CreateWallet registers a wallet with an opening balance. Wallets are
// normally created out-of-band; this exists for tests and dev seeding.
func (l *InMemory) CreateWallet(id uuid.UUID, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return errors.New("opening balance must not be negative")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[id]; exists {
		return errors.New("wallet exists")
	}
	l.balances[id] = balance
	return nil
}

func (l *InMemory) ApplyDelta(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal) (ApplyResult, error) {
	if err := ctx.Err(); err != nil {
		return ApplyResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[walletID]
	if !ok {
		return WalletNotFound(), nil
	}
	next := balance.Add(delta)
	if next.IsNegative() {
		return InsufficientFunds(), nil
	}
	l.balances[walletID] = next
	return Updated(next), nil
}

func (l *InMemory) FindBalance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Decimal{}, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, ok := l.balances[walletID]
	if !ok {
		return decimal.Decimal{}, ErrWalletNotFound
	}
	return balance, nil
}
