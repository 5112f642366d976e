package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrWalletNotFound is returned by FindBalance when no row exists for the id.
var ErrWalletNotFound = errors.New("wallet not found")

// Outcome tags the result of a single ApplyDelta call.
type Outcome int

const (
	// OutcomeUpdated means the delta was committed.
	OutcomeUpdated Outcome = iota + 1
	// OutcomeWalletNotFound means no wallet row exists for the id.
	OutcomeWalletNotFound
	// OutcomeInsufficientFunds means the wallet exists but balance+delta would be negative.
	OutcomeInsufficientFunds
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	case OutcomeWalletNotFound:
		return "wallet_not_found"
	case OutcomeInsufficientFunds:
		return "insufficient_funds"
	default:
		return "unknown"
	}
}

// ApplyResult captures the outcome of an atomic delta application. Balance is
// only meaningful when Outcome is OutcomeUpdated.
type ApplyResult struct {
	Outcome Outcome
	Balance decimal.Decimal
}

// Updated builds the result of a committed delta.
func Updated(balance decimal.Decimal) ApplyResult {
	return ApplyResult{Outcome: OutcomeUpdated, Balance: balance}
}

// WalletNotFound builds the result for an unknown wallet.
func WalletNotFound() ApplyResult {
	return ApplyResult{Outcome: OutcomeWalletNotFound}
}

// InsufficientFunds builds the result for a rejected withdrawal.
func InsufficientFunds() ApplyResult {
	return ApplyResult{Outcome: OutcomeInsufficientFunds}
}

// Store defines the contract implemented by ledger backends (e.g. Postgres).
//
// ApplyDelta must decide existence, non-negativity and the write as one
// indivisible step with respect to every other ApplyDelta on the same wallet.
// Transport or timeout failures are returned as errors, never as an Outcome.
type Store interface {
	ApplyDelta(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal) (ApplyResult, error)
	FindBalance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
}
