package wallet

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationType is the kind of balance mutation requested by a caller.
type OperationType string

const (
	OperationDeposit  OperationType = "DEPOSIT"
	OperationWithdraw OperationType = "WITHDRAW"
)

// OperationTypes lists every accepted operation type in declaration order.
func OperationTypes() []OperationType {
	return []OperationType{OperationDeposit, OperationWithdraw}
}

// Valid reports whether t is one of the declared operation types.
func (t OperationType) Valid() bool {
	switch t {
	case OperationDeposit, OperationWithdraw:
		return true
	default:
		return false
	}
}

// Operation is a validated request to change a wallet balance. Amount is
// positive with at most two fractional digits.
type Operation struct {
	WalletID uuid.UUID
	Type     OperationType
	Amount   decimal.Decimal
}

// Delta returns the signed amount the operation adds to the balance.
func (o Operation) Delta() decimal.Decimal {
	if o.Type == OperationWithdraw {
		return o.Amount.Neg()
	}
	return o.Amount
}

// Balance encapsulates available funds for a wallet.
type Balance struct {
	WalletID uuid.UUID
	Amount   decimal.Decimal
}
