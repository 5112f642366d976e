package wallet

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrWalletNotFound means no wallet exists for the requested id.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds means a withdrawal would take the balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// OperationError ties a domain error to the wallet it concerns.
type OperationError struct {
	WalletID uuid.UUID
	Err      error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.WalletID)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func notFound(id uuid.UUID) error {
	return &OperationError{WalletID: id, Err: ErrWalletNotFound}
}

func insufficientFunds(id uuid.UUID) error {
	return &OperationError{WalletID: id, Err: ErrInsufficientFunds}
}
