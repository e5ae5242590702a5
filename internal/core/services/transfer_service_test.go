package services_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/core/services"
	"github.com/SscSPs/ledger_engine/internal/repositories/memory"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func fastRetries(maxAttempts int) services.TransferOption {
	return services.WithRetryPolicy(services.RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	})
}

func seedAccount(t *testing.T, store *memory.Store, id, balance string) {
	t.Helper()
	require.NoError(t, store.PutAccount(domain.Account{
		AccountID: id,
		UserID:    "user-" + id,
		Balance:   decimalOf(balance),
	}))
}

func balanceOf(t *testing.T, store portsrepo.AccountReader, id string) decimal.Decimal {
	t.Helper()
	acc, err := store.FindAccountByID(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

func transfer(from, to, amount, key string) domain.TransferRequest {
	return domain.TransferRequest{
		FromAccountID:  from,
		ToAccountID:    to,
		Amount:         decimalOf(amount),
		IdempotencyKey: key,
	}
}

// --- Test Suite Setup ---

type TransferServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	service *services.TransferService
}

func (suite *TransferServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = memory.NewStore()
	seedAccount(suite.T(), suite.store, "acc-a", "100.00")
	seedAccount(suite.T(), suite.store, "acc-b", "50.00")
	suite.service = services.NewTransferService(suite.store, fastRetries(5))
}

func (suite *TransferServiceTestSuite) assertBalances(a, b string) {
	suite.True(balanceOf(suite.T(), suite.store, "acc-a").Equal(decimalOf(a)), "acc-a balance")
	suite.True(balanceOf(suite.T(), suite.store, "acc-b").Equal(decimalOf(b)), "acc-b balance")
}

// --- Test Cases ---

func (suite *TransferServiceTestSuite) TestTransfer_Success() {
	result, err := suite.service.Transfer(suite.ctx, transfer("acc-a", "acc-b", "30.00", "key-1"))

	suite.Require().NoError(err)
	suite.Require().True(result.Success)
	suite.Equal(domain.Completed, result.Status)
	suite.False(result.Replayed)
	suite.NotEmpty(result.TransactionID)
	suite.assertBalances("70.00", "80.00")

	sender, _ := suite.store.FindAccountByID(suite.ctx, "acc-a")
	receiver, _ := suite.store.FindAccountByID(suite.ctx, "acc-b")
	suite.Equal(int64(1), sender.Version)
	suite.Equal(int64(1), receiver.Version)

	txn, entries, err := suite.service.GetTransaction(suite.ctx, result.TransactionID)
	suite.Require().NoError(err)
	suite.Equal(domain.Completed, txn.Status)
	suite.NotNil(txn.CompletedAt)
	suite.Equal("key-1", txn.IdempotencyKey)
	suite.True(txn.Amount.Equal(decimalOf("30")))

	suite.Require().Len(entries, 2)
	byType := map[domain.EntryType]domain.LedgerEntry{}
	for _, e := range entries {
		byType[e.Type()] = e
	}
	suite.Equal("acc-a", byType[domain.Debit].AccountID)
	suite.True(byType[domain.Debit].BalanceAfter.Equal(decimalOf("70")))
	suite.Equal("acc-b", byType[domain.Credit].AccountID)
	suite.True(byType[domain.Credit].BalanceAfter.Equal(decimalOf("80")))
}

func (suite *TransferServiceTestSuite) TestTransfer_InsufficientFunds() {
	seedAccount(suite.T(), suite.store, "acc-a", "70.00")

	result, err := suite.service.Transfer(suite.ctx, transfer("acc-a", "acc-b", "1000.00", "key-poor"))

	suite.Require().NoError(err)
	suite.False(result.Success)
	suite.Equal(apperrors.KindInsufficientFunds, result.ErrorKind)
	suite.Equal("Insufficient funds. You have 70.00, need 1000.00", result.ErrorMessage)
	suite.Equal(domain.Failed, result.Status)
	suite.Require().NotNil(result.Details)
	suite.True(result.Details.Available.Equal(decimalOf("70")))
	suite.True(result.Details.Requested.Equal(decimalOf("1000")))
	suite.assertBalances("70.00", "50.00")

	txn, entries, err := suite.service.GetTransaction(suite.ctx, result.TransactionID)
	suite.Require().NoError(err)
	suite.Equal(domain.Failed, txn.Status)
	suite.Equal(apperrors.KindInsufficientFunds, txn.FailureKind)
	suite.Empty(entries)

	replay, err := suite.service.Transfer(suite.ctx, transfer("acc-a", "acc-b", "1000.00", "key-poor"))
	suite.Require().NoError(err)
	suite.True(replay.Replayed)
	suite.Equal(result.TransactionID, replay.TransactionID)
	suite.Equal(apperrors.KindInsufficientFunds, replay.ErrorKind)
	suite.Equal(result.ErrorMessage, replay.ErrorMessage)
	suite.Require().NotNil(replay.Details)
	suite.True(replay.Details.Available.Equal(decimalOf("70")))
	suite.True(replay.Details.Requested.Equal(decimalOf("1000")))
}

func (suite *TransferServiceTestSuite) TestTransfer_PreconditionFailures() {
	tests := []struct {
		name string
		req  domain.TransferRequest
		kind apperrors.ErrorKind
	}{
		{"same account", transfer("acc-a", "acc-a", "10", "k1"), apperrors.KindSameAccount},
		{"zero amount", transfer("acc-a", "acc-b", "0", "k2"), apperrors.KindInvalidAmount},
		{"negative amount", transfer("acc-a", "acc-b", "-5", "k3"), apperrors.KindInvalidAmount},
		{"too precise", transfer("acc-a", "acc-b", "1.005", "k4"), apperrors.KindInvalidAmount},
		{"missing sender", transfer(" ", "acc-b", "10", "k5"), apperrors.KindInvalidRequest},
		{"missing receiver", transfer("acc-a", "", "10", "k6"), apperrors.KindInvalidRequest},
		{"key too long", transfer("acc-a", "acc-b", "10", strings.Repeat("k", 101)), apperrors.KindInvalidRequest},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			result, err := suite.service.Transfer(suite.ctx, tt.req)
			suite.Require().NoError(err)
			suite.False(result.Success)
			suite.Equal(tt.kind, result.ErrorKind)
			suite.Empty(result.TransactionID)
			suite.Empty(result.Status)
		})
	}
	suite.assertBalances("100.00", "50.00")
}

func (suite *TransferServiceTestSuite) TestTransfer_TrailingZerosAreNotPrecision() {
	result, err := suite.service.Transfer(suite.ctx, transfer("acc-a", "acc-b", "10.500", "k-zeros"))
	suite.Require().NoError(err)
	suite.True(result.Success)
	suite.assertBalances("89.50", "60.50")
}

func (suite *TransferServiceTestSuite) TestTransfer_AccountNotFound() {
	result, err := suite.service.Transfer(suite.ctx, transfer("ghost", "acc-b", "10", "k-nf-1"))
	suite.Require().NoError(err)
	suite.Equal(apperrors.KindAccountNotFound, result.ErrorKind)
	suite.Equal(apperrors.Sender, result.Details.Which)
	suite.Equal("Sender account not found: ghost", result.ErrorMessage)
	suite.Empty(result.TransactionID)

	result, err = suite.service.Transfer(suite.ctx, transfer("acc-a", "ghost", "10", "k-nf-2"))
	suite.Require().NoError(err)
	suite.Equal(apperrors.KindAccountNotFound, result.ErrorKind)
	suite.Equal(apperrors.Receiver, result.Details.Which)

	_, err = suite.store.FindTransactionByIdempotencyKey(suite.ctx, "k-nf-1")
	suite.ErrorIs(err, apperrors.ErrNotFound)
	_, err = suite.store.FindTransactionByIdempotencyKey(suite.ctx, "k-nf-2")
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.assertBalances("100.00", "50.00")
}

func (suite *TransferServiceTestSuite) TestTransfer_IdempotentReplay() {
	first, err := suite.service.Transfer(suite.ctx, transfer("acc-a", "acc-b", "30", "key-replay"))
	suite.Require().NoError(err)
	suite.Require().True(first.Success)

	second, err := suite.service.Transfer(suite.ctx, transfer("acc-a", "acc-b", "30", "key-replay"))
	suite.Require().NoError(err)
	suite.True(second.Success)
	suite.True(second.Replayed)
	suite.Equal(first.TransactionID, second.TransactionID)
	suite.assertBalances("70.00", "80.00")
}

func (suite *TransferServiceTestSuite) TestTransfer_ReplayAfterBalanceDrained() {
	first, err := suite.service.Transfer(suite.ctx, transfer("acc-a", "acc-b", "100", "key-all"))
	suite.Require().NoError(err)
	suite.Require().True(first.Success)

	// A retry of the same request must not turn into an insufficient-funds failure.
	again, err := suite.service.Transfer(suite.ctx, transfer("acc-a", "acc-b", "100", "key-all"))
	suite.Require().NoError(err)
	suite.True(again.Success)
	suite.Equal(first.TransactionID, again.TransactionID)
	suite.assertBalances("0.00", "150.00")
}

func (suite *TransferServiceTestSuite) TestTransfer_SynthesizedKeys() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := services.NewTransferService(suite.store, fastRetries(5), services.WithClock(clock))

	first, err := svc.Transfer(suite.ctx, transfer("acc-a", "acc-b", "10", ""))
	suite.Require().NoError(err)
	suite.Require().True(first.Success)

	now = now.Add(time.Minute)
	dup, err := svc.Transfer(suite.ctx, transfer("acc-a", "acc-b", "10.00", ""))
	suite.Require().NoError(err)
	suite.True(dup.Replayed)
	suite.Equal(first.TransactionID, dup.TransactionID)

	withNonce := transfer("acc-a", "acc-b", "10", "")
	withNonce.Nonce = "second-click"
	distinct, err := svc.Transfer(suite.ctx, withNonce)
	suite.Require().NoError(err)
	suite.False(distinct.Replayed)
	suite.NotEqual(first.TransactionID, distinct.TransactionID)

	now = now.Add(10 * time.Minute)
	later, err := svc.Transfer(suite.ctx, transfer("acc-a", "acc-b", "10", ""))
	suite.Require().NoError(err)
	suite.False(later.Replayed)
	suite.NotEqual(first.TransactionID, later.TransactionID)

	suite.assertBalances("70.00", "80.00")
}

func (suite *TransferServiceTestSuite) TestTransfer_CancelledBeforeStart() {
	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	result, err := suite.service.Transfer(ctx, transfer("acc-a", "acc-b", "10", "key-cancel"))
	suite.Nil(result)
	suite.ErrorIs(err, context.Canceled)
	suite.assertBalances("100.00", "50.00")
}

func (suite *TransferServiceTestSuite) TestListRecentTransactions() {
	for i := 0; i < 3; i++ {
		_, err := suite.service.Transfer(suite.ctx, transfer("acc-a", "acc-b", "1", fmt.Sprintf("key-list-%d", i)))
		suite.Require().NoError(err)
	}

	txns, err := suite.service.ListRecentTransactions(suite.ctx, "acc-b", 2)
	suite.Require().NoError(err)
	suite.Len(txns, 2)

	txns, err = suite.service.ListRecentTransactions(suite.ctx, "acc-a", 0)
	suite.Require().NoError(err)
	suite.Len(txns, 3)

	_, err = suite.service.ListRecentTransactions(suite.ctx, "ghost", 5)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *TransferServiceTestSuite) TestGetTransaction_NotFound() {
	_, _, err := suite.service.GetTransaction(suite.ctx, "missing")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func TestTransferServiceSuite(t *testing.T) {
	suite.Run(t, new(TransferServiceTestSuite))
}

// --- Fault injection ---

// flakyStore fails the first n balance updates with err, then behaves normally.
type flakyStore struct {
	*memory.Store
	remaining atomic.Int32
	err       error
}

func (f *flakyStore) RunInTx(ctx context.Context, fn portsrepo.TxFunc) error {
	return f.Store.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return fn(ctx, &flakyTx{LedgerTx: tx, store: f})
	})
}

type flakyTx struct {
	portsrepo.LedgerTx
	store *flakyStore
}

func (t *flakyTx) UpdateAccountBalance(ctx context.Context, account domain.Account, expectedVersion int64) error {
	if t.store.remaining.Add(-1) >= 0 {
		return t.store.err
	}
	return t.LedgerTx.UpdateAccountBalance(ctx, account, expectedVersion)
}

func newFlakyStore(t *testing.T, failures int32, err error) *flakyStore {
	f := &flakyStore{Store: memory.NewStore(), err: err}
	f.remaining.Store(failures)
	seedAccount(t, f.Store, "acc-a", "100.00")
	seedAccount(t, f.Store, "acc-b", "50.00")
	return f
}

func TestTransfer_RetriesTransientConflicts(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"version fence", apperrors.ErrConcurrencyConflict},
		{"serialization failure", &pgconn.PgError{Code: "40001"}},
		{"deadlock victim", &pgconn.PgError{Code: "40P01"}},
		{"lock timeout", apperrors.ErrLockTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFlakyStore(t, 2, tt.err)
			svc := services.NewTransferService(store, fastRetries(5))

			result, err := svc.Transfer(context.Background(), transfer("acc-a", "acc-b", "30", "key-flaky"))
			require.NoError(t, err)
			assert.True(t, result.Success)
			assert.True(t, balanceOf(t, store, "acc-a").Equal(decimalOf("70")))
			assert.True(t, balanceOf(t, store, "acc-b").Equal(decimalOf("80")))

			entries, err := store.FindLedgerEntriesByTransactionID(context.Background(), result.TransactionID)
			require.NoError(t, err)
			assert.Len(t, entries, 2)
		})
	}
}

func TestTransfer_RetryBudgetExhausted(t *testing.T) {
	store := newFlakyStore(t, 1000, apperrors.ErrConcurrencyConflict)
	svc := services.NewTransferService(store, fastRetries(3))

	result, err := svc.Transfer(context.Background(), transfer("acc-a", "acc-b", "30", "key-exhausted"))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, apperrors.KindTransferFailed, result.ErrorKind)
	assert.Equal(t, apperrors.ReasonTransientExhausted, result.Details.Reason)
	assert.Empty(t, result.TransactionID)

	// every attempt rolled back, including its PENDING row
	_, err = store.FindTransactionByIdempotencyKey(context.Background(), "key-exhausted")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.True(t, balanceOf(t, store, "acc-a").Equal(decimalOf("100")))
	assert.Equal(t, int32(1000-3), store.remaining.Load())
}

func TestTransfer_UnexpectedFaultIsReturned(t *testing.T) {
	fault := errors.New("storage corrupted")
	store := newFlakyStore(t, 1, fault)
	svc := services.NewTransferService(store, fastRetries(5))

	result, err := svc.Transfer(context.Background(), transfer("acc-a", "acc-b", "30", "key-fault"))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, fault)
	assert.True(t, balanceOf(t, store, "acc-a").Equal(decimalOf("100")))
}

// --- Concurrency ---

func TestTransfer_ConcurrentSameKeyAppliesOnce(t *testing.T) {
	store := memory.NewStore()
	seedAccount(t, store, "acc-a", "100.00")
	seedAccount(t, store, "acc-b", "0.00")
	svc := services.NewTransferService(store, fastRetries(10))

	const callers = 16
	results := make([]*domain.TransferResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Transfer(context.Background(), transfer("acc-a", "acc-b", "25", "key-race"))
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	txID := results[0].TransactionID
	replays := 0
	for _, res := range results {
		require.NotNil(t, res)
		assert.True(t, res.Success)
		assert.Equal(t, txID, res.TransactionID)
		if res.Replayed {
			replays++
		}
	}
	assert.Equal(t, callers-1, replays)
	assert.True(t, balanceOf(t, store, "acc-a").Equal(decimalOf("75")))
	assert.True(t, balanceOf(t, store, "acc-b").Equal(decimalOf("25")))
}

func TestTransfer_OpposingTransfersDoNotDeadlock(t *testing.T) {
	store := memory.NewStore(memory.WithLockTimeout(5 * time.Second))
	seedAccount(t, store, "acc-a", "1000.00")
	seedAccount(t, store, "acc-b", "1000.00")
	// a single attempt means any lock-order deadlock surfaces as a timeout failure
	svc := services.NewTransferService(store, fastRetries(1))

	const perDirection = 50
	var wg sync.WaitGroup
	var failures atomic.Int32
	run := func(from, to string, i int) {
		defer wg.Done()
		res, err := svc.Transfer(context.Background(), transfer(from, to, "1", fmt.Sprintf("%s-%s-%d", from, to, i)))
		if err != nil || !res.Success {
			failures.Add(1)
		}
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < perDirection; i++ {
			wg.Add(2)
			go run("acc-a", "acc-b", i)
			go run("acc-b", "acc-a", i)
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("opposing transfers did not finish")
	}

	assert.Zero(t, failures.Load())
	assert.True(t, balanceOf(t, store, "acc-a").Equal(decimalOf("1000")))
	assert.True(t, balanceOf(t, store, "acc-b").Equal(decimalOf("1000")))
}

func TestTransfer_ConservationUnderConcurrentLoad(t *testing.T) {
	store := memory.NewStore()
	ids := []string{"acc-1", "acc-2", "acc-3", "acc-4", "acc-5"}
	initial := decimalOf("100.00")
	for _, id := range ids {
		seedAccount(t, store, id, initial.StringFixed(2))
	}
	svc := services.NewTransferService(store, fastRetries(10))

	const workers = 8
	const perWorker = 40
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(w)))
			for i := 0; i < perWorker; i++ {
				from := ids[rng.Intn(len(ids))]
				to := ids[rng.Intn(len(ids))]
				amount := decimal.NewFromInt(int64(rng.Intn(40) + 1))
				_, err := svc.Transfer(context.Background(), domain.TransferRequest{
					FromAccountID:  from,
					ToAccountID:    to,
					Amount:         amount,
					IdempotencyKey: fmt.Sprintf("w%d-%d", w, i),
				})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	total := decimal.Zero
	for _, id := range ids {
		acc, err := store.FindAccountByID(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, acc.Balance.IsNegative(), id)
		total = total.Add(acc.Balance)

		// balance equals the seed plus the net of its own ledger entries
		net := decimal.Zero
		for _, e := range store.LedgerEntriesByAccountID(id) {
			if e.Type() == domain.Credit {
				net = net.Add(e.Amount())
			} else {
				net = net.Sub(e.Amount())
			}
			assert.False(t, e.BalanceAfter.IsNegative())
		}
		assert.True(t, initial.Add(net).Equal(acc.Balance), "ledger replay for %s", id)
	}
	assert.True(t, total.Equal(initial.Mul(decimal.NewFromInt(int64(len(ids))))), "total balance conserved")
}

// --- Idempotency cache ---

type MockIdempotencyCache struct {
	mock.Mock
}

func (m *MockIdempotencyCache) GetOutcome(ctx context.Context, key string) (*domain.TransferResult, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.TransferResult), args.Bool(1), args.Error(2)
}

func (m *MockIdempotencyCache) PutOutcome(ctx context.Context, key string, result *domain.TransferResult) error {
	args := m.Called(ctx, key, result)
	return args.Error(0)
}

func TestTransfer_CacheHitSkipsStore(t *testing.T) {
	store := memory.NewStore()
	seedAccount(t, store, "acc-a", "100.00")
	seedAccount(t, store, "acc-b", "50.00")

	cache := new(MockIdempotencyCache)
	cache.On("GetOutcome", mock.Anything, "key-cached").
		Return(&domain.TransferResult{Success: true, TransactionID: "txn-cached", Status: domain.Completed}, true, nil).Once()

	svc := services.NewTransferService(store, services.WithIdempotencyCache(cache))
	result, err := svc.Transfer(context.Background(), transfer("acc-a", "acc-b", "30", "key-cached"))

	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, "txn-cached", result.TransactionID)
	assert.True(t, balanceOf(t, store, "acc-a").Equal(decimalOf("100")))
	cache.AssertExpectations(t)
}

func TestTransfer_CacheMissStoresOutcome(t *testing.T) {
	store := memory.NewStore()
	seedAccount(t, store, "acc-a", "100.00")
	seedAccount(t, store, "acc-b", "50.00")

	cache := new(MockIdempotencyCache)
	cache.On("GetOutcome", mock.Anything, "key-new").Return(nil, false, nil).Once()
	cache.On("PutOutcome", mock.Anything, "key-new", mock.MatchedBy(func(r *domain.TransferResult) bool {
		return r.Success && !r.Replayed && r.TransactionID != ""
	})).Return(nil).Once()

	svc := services.NewTransferService(store, services.WithIdempotencyCache(cache))
	result, err := svc.Transfer(context.Background(), transfer("acc-a", "acc-b", "30", "key-new"))

	require.NoError(t, err)
	assert.True(t, result.Success)
	cache.AssertExpectations(t)
}

func TestTransfer_CachedFailureKeepsShortfall(t *testing.T) {
	store := memory.NewStore()
	seedAccount(t, store, "acc-a", "70.00")
	seedAccount(t, store, "acc-b", "50.00")

	var cached *domain.TransferResult
	cache := new(MockIdempotencyCache)
	cache.On("GetOutcome", mock.Anything, "key-short").Return(nil, false, nil).Once()
	cache.On("PutOutcome", mock.Anything, "key-short", mock.Anything).Run(func(args mock.Arguments) {
		cached = args.Get(2).(*domain.TransferResult)
	}).Return(nil).Once()

	svc := services.NewTransferService(store, services.WithIdempotencyCache(cache))
	result, err := svc.Transfer(context.Background(), transfer("acc-a", "acc-b", "1000", "key-short"))
	require.NoError(t, err)
	assert.Equal(t, apperrors.KindInsufficientFunds, result.ErrorKind)

	require.NotNil(t, cached)
	require.NotNil(t, cached.Details)
	assert.True(t, cached.Details.Available.Equal(decimalOf("70")))
	assert.True(t, cached.Details.Requested.Equal(decimalOf("1000")))
	cache.AssertExpectations(t)
}

func TestTransfer_CacheErrorsAreNotFatal(t *testing.T) {
	store := memory.NewStore()
	seedAccount(t, store, "acc-a", "100.00")
	seedAccount(t, store, "acc-b", "50.00")

	cache := new(MockIdempotencyCache)
	cache.On("GetOutcome", mock.Anything, mock.Anything).Return(nil, false, errors.New("redis down"))
	cache.On("PutOutcome", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	svc := services.NewTransferService(store, services.WithIdempotencyCache(cache))
	result, err := svc.Transfer(context.Background(), transfer("acc-a", "acc-b", "30", "key-degraded"))

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, balanceOf(t, store, "acc-a").Equal(decimalOf("70")))
}
