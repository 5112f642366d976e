package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/wallet_ledger/internal/ledger"
	"github.com/congo-pay/wallet_ledger/internal/notification"
)

type testNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

// failingStore returns err from every call.
type failingStore struct {
	err error
}

func (s failingStore) ApplyDelta(context.Context, uuid.UUID, decimal.Decimal) (ledger.ApplyResult, error) {
	return ledger.ApplyResult{}, s.err
}

func (s failingStore) FindBalance(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return decimal.Decimal{}, s.err
}

// countingStore records how many times ApplyDelta was invoked.
type countingStore struct {
	*ledger.InMemory
	mu    sync.Mutex
	calls int
}

func (s *countingStore) ApplyDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (ledger.ApplyResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.InMemory.ApplyDelta(ctx, id, delta)
}

func newWallet(t *testing.T, store *ledger.InMemory, balance string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, store.CreateWallet(id, decimal.RequireFromString(balance)))
	return id
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOperateDepositThenOverdraw(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil)
	ctx := context.Background()
	id := newWallet(t, store, "0.00")

	bal, err := svc.Operate(ctx, Operation{WalletID: id, Type: OperationDeposit, Amount: amount("1000.00")})
	require.NoError(t, err)
	assert.Equal(t, id, bal.WalletID)
	assert.Equal(t, "1000.00", bal.Amount.StringFixed(2))

	_, err = svc.Operate(ctx, Operation{WalletID: id, Type: OperationWithdraw, Amount: amount("999999.00")})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, id, opErr.WalletID)

	bal, err = svc.GetBalance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", bal.Amount.StringFixed(2))
}

func TestOperateWithdrawExactBalance(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil)
	id := newWallet(t, store, "12.34")

	bal, err := svc.Operate(context.Background(), Operation{WalletID: id, Type: OperationWithdraw, Amount: amount("12.34")})
	require.NoError(t, err)
	assert.True(t, bal.Amount.IsZero())
}

func TestOperateUnknownWallet(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil)
	ctx := context.Background()
	missing := uuid.New()

	for _, typ := range OperationTypes() {
		_, err := svc.Operate(ctx, Operation{WalletID: missing, Type: typ, Amount: amount("10.00")})
		require.ErrorIs(t, err, ErrWalletNotFound, typ)
		assert.NotErrorIs(t, err, ErrInsufficientFunds)
	}

	_, err := svc.GetBalance(ctx, missing)
	require.ErrorIs(t, err, ErrWalletNotFound)
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, missing, opErr.WalletID)
}

func TestOperateCallsStoreOnce(t *testing.T) {
	store := &countingStore{InMemory: ledger.NewInMemory()}
	id := uuid.New()
	require.NoError(t, store.CreateWallet(id, decimal.Zero))
	svc := NewService(store, nil)

	_, err := svc.Operate(context.Background(), Operation{WalletID: id, Type: OperationDeposit, Amount: amount("1")})
	require.NoError(t, err)
	_, err = svc.Operate(context.Background(), Operation{WalletID: id, Type: OperationWithdraw, Amount: amount("5")})
	require.Error(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestOperateRejectsUnknownType(t *testing.T) {
	store := &countingStore{InMemory: ledger.NewInMemory()}
	svc := NewService(store, nil)

	_, err := svc.Operate(context.Background(), Operation{WalletID: uuid.New(), Type: "REFUND", Amount: amount("1")})
	require.Error(t, err)
	assert.Zero(t, store.calls)
}

func TestStoreFailuresAreNotDomainErrors(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(failingStore{err: boom}, nil)
	ctx := context.Background()

	_, err := svc.Operate(ctx, Operation{WalletID: uuid.New(), Type: OperationDeposit, Amount: amount("1")})
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrWalletNotFound)
	assert.NotErrorIs(t, err, ErrInsufficientFunds)

	_, err = svc.GetBalance(ctx, uuid.New())
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrWalletNotFound)

	svc = NewService(failingStore{err: context.DeadlineExceeded}, nil)
	_, err = svc.Operate(ctx, Operation{WalletID: uuid.New(), Type: OperationWithdraw, Amount: amount("1")})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrInsufficientFunds)
}

func TestConcurrentDepositsAreNotLost(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil)
	ctx := context.Background()
	id := newWallet(t, store, "7.25")

	const n = 2000
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Operate(ctx, Operation{WalletID: id, Type: OperationDeposit, Amount: amount("1.00")})
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	bal, err := svc.GetBalance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "2007.25", bal.Amount.StringFixed(2))
}

func TestConcurrentMixedOperationsKeepBalanceNonNegative(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil)
	ctx := context.Background()
	id := newWallet(t, store, "50.00")

	const n = 1000
	var (
		wg                    sync.WaitGroup
		mu                    sync.Mutex
		deposits, withdrawals int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			typ := OperationWithdraw
			if i%3 == 0 {
				typ = OperationDeposit
			}
			bal, err := svc.Operate(ctx, Operation{WalletID: id, Type: typ, Amount: amount("0.75")})
			if errors.Is(err, ErrInsufficientFunds) {
				return
			}
			if !assert.NoError(t, err) {
				return
			}
			assert.False(t, bal.Amount.IsNegative(), "negative balance %s", bal.Amount)
			mu.Lock()
			if typ == OperationDeposit {
				deposits++
			} else {
				withdrawals++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	bal, err := svc.GetBalance(ctx, id)
	require.NoError(t, err)
	expected := amount("50.00").Add(amount("0.75").Mul(decimal.NewFromInt(int64(deposits - withdrawals))))
	assert.True(t, expected.Equal(bal.Amount), "expected %s, got %s", expected, bal.Amount)
	assert.False(t, bal.Amount.IsNegative())
}

func TestGetBalanceIsIdempotent(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil)
	id := newWallet(t, store, "3.10")

	first, err := svc.GetBalance(context.Background(), id)
	require.NoError(t, err)
	second, err := svc.GetBalance(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, first.Amount.Equal(second.Amount))
}

func TestOperateNotifiesOnlyOnSuccess(t *testing.T) {
	store := ledger.NewInMemory()
	notifier := &testNotifier{}
	svc := NewService(store, notifier)
	ctx := context.Background()
	id := newWallet(t, store, "0.00")

	_, err := svc.Operate(ctx, Operation{WalletID: id, Type: OperationDeposit, Amount: amount("5")})
	require.NoError(t, err)
	_, err = svc.Operate(ctx, Operation{WalletID: id, Type: OperationWithdraw, Amount: amount("2.5")})
	require.NoError(t, err)
	_, err = svc.Operate(ctx, Operation{WalletID: id, Type: OperationWithdraw, Amount: amount("100")})
	require.Error(t, err)

	require.Len(t, notifier.messages, 2)
	assert.Equal(t, notification.KindDeposit, notifier.messages[0].Kind)
	assert.Equal(t, id.String(), notifier.messages[0].Destination)
	assert.Equal(t, "Wallet credited with 5.00", notifier.messages[0].Body)
	assert.Equal(t, notification.KindWithdrawal, notifier.messages[1].Kind)
	assert.Equal(t, "Wallet debited by 2.50", notifier.messages[1].Body)
}

func TestOperationDelta(t *testing.T) {
	dep := Operation{Type: OperationDeposit, Amount: amount("4.20")}
	wd := Operation{Type: OperationWithdraw, Amount: amount("4.20")}
	assert.Equal(t, "4.2", dep.Delta().String())
	assert.Equal(t, "-4.2", wd.Delta().String())
}
