package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/congo-pay/wallet_ledger/internal/ledger"
	"github.com/congo-pay/wallet_ledger/internal/notification"
)

// Service exposes wallet operations backed by the ledger.
type Service struct {
	ledger   ledger.Store
	notifier notification.Notifier
}

// NewService builds a wallet service instance. notifier may be nil.
func NewService(store ledger.Store, notifier notification.Notifier) *Service {
	return &Service{ledger: store, notifier: notifier}
}

// Operate applies a deposit or withdrawal with a single atomic ledger call and
// returns the committed balance.
func (s *Service) Operate(ctx context.Context, op Operation) (Balance, error) {
	if !op.Type.Valid() {
		return Balance{}, fmt.Errorf("unsupported operation type %q", op.Type)
	}

	res, err := s.ledger.ApplyDelta(ctx, op.WalletID, op.Delta())
	if err != nil {
		return Balance{}, fmt.Errorf("%s wallet %s: %w", op.Type, op.WalletID, err)
	}

	switch res.Outcome {
	case ledger.OutcomeUpdated:
	case ledger.OutcomeWalletNotFound:
		return Balance{}, notFound(op.WalletID)
	case ledger.OutcomeInsufficientFunds:
		return Balance{}, insufficientFunds(op.WalletID)
	default:
		return Balance{}, fmt.Errorf("%s wallet %s: unexpected ledger outcome %s", op.Type, op.WalletID, res.Outcome)
	}

	s.notify(ctx, op)
	return Balance{WalletID: op.WalletID, Amount: res.Balance}, nil
}

// GetBalance returns the current ledger balance for the wallet.
func (s *Service) GetBalance(ctx context.Context, id uuid.UUID) (Balance, error) {
	amount, err := s.ledger.FindBalance(ctx, id)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return Balance{}, notFound(id)
		}
		return Balance{}, fmt.Errorf("balance of wallet %s: %w", id, err)
	}
	return Balance{WalletID: id, Amount: amount}, nil
}

// notify runs after commit, so delivery failures cannot undo the operation.
func (s *Service) notify(ctx context.Context, op Operation) {
	if s.notifier == nil {
		return
	}
	msg := notification.Message{
		Kind:        notification.KindDeposit,
		Destination: op.WalletID.String(),
		Body:        fmt.Sprintf("Wallet credited with %s", op.Amount.StringFixed(2)),
	}
	if op.Type == OperationWithdraw {
		msg.Kind = notification.KindWithdrawal
		msg.Body = fmt.Sprintf("Wallet debited by %s", op.Amount.StringFixed(2))
	}
	_ = s.notifier.Send(ctx, msg)
}
