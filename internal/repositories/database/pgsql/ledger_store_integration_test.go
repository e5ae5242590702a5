//go:build integration

package pgsql_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/core/services"
	"github.com/SscSPs/ledger_engine/internal/repositories/database/pgsql"
	"github.com/SscSPs/ledger_engine/pkg/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupLedgerDatabase starts a disposable PostgreSQL container, applies the schema
// migrations and returns a pool connected to it.
func setupLedgerDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dir, err := filepath.Abs("../../../../migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dsn, "file://"+filepath.ToSlash(dir), slog.Default()))

	pool, err := database.NewPgxPool(ctx, dsn, true)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedAccount(t *testing.T, pool *pgxpool.Pool, id, userID, balance string) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO accounts (account_id, user_id, balance) VALUES ($1, $2, $3)`,
		id, userID, decimal.RequireFromString(balance))
	require.NoError(t, err)
}

func balanceOf(t *testing.T, store *pgsql.PgxLedgerStore, id string) decimal.Decimal {
	t.Helper()
	acc, err := store.FindAccountByID(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

func TestIntegration_TransferLifecycle(t *testing.T) {
	pool := setupLedgerDatabase(t)
	seedAccount(t, pool, "acc-x", "user-x", "100.00")
	seedAccount(t, pool, "acc-y", "user-y", "50.00")

	store := pgsql.NewLedgerStore(pool, pgsql.WithLockTimeout(time.Second))
	svc := services.NewTransferService(store)
	ctx := context.Background()

	res, err := svc.Transfer(ctx, domain.TransferRequest{
		FromAccountID: "acc-x", ToAccountID: "acc-y",
		Amount: decimal.RequireFromString("30.00"), IdempotencyKey: "it-1",
	})
	require.NoError(t, err)
	require.True(t, res.Success, "transfer should succeed: %+v", res)

	x, err := store.FindAccountByID(ctx, "acc-x")
	require.NoError(t, err)
	assert.True(t, x.Balance.Equal(decimal.RequireFromString("70.00")))
	assert.Equal(t, int64(1), x.Version)
	assert.True(t, balanceOf(t, store, "acc-y").Equal(decimal.RequireFromString("80.00")))

	txn, entries, err := svc.GetTransaction(ctx, res.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.Completed, txn.Status)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.Debit, entries[0].Type())
	assert.True(t, entries[0].BalanceAfter.Equal(decimal.RequireFromString("70.00")))
	assert.Equal(t, domain.Credit, entries[1].Type())
	assert.True(t, entries[1].BalanceAfter.Equal(decimal.RequireFromString("80.00")))

	// replay
	again, err := svc.Transfer(ctx, domain.TransferRequest{
		FromAccountID: "acc-x", ToAccountID: "acc-y",
		Amount: decimal.RequireFromString("30.00"), IdempotencyKey: "it-1",
	})
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, res.TransactionID, again.TransactionID)
	assert.True(t, balanceOf(t, store, "acc-x").Equal(decimal.RequireFromString("70.00")))

	// insufficient funds leaves a FAILED row and no balance change
	failed, err := svc.Transfer(ctx, domain.TransferRequest{
		FromAccountID: "acc-x", ToAccountID: "acc-y",
		Amount: decimal.RequireFromString("1000.00"), IdempotencyKey: "it-2",
	})
	require.NoError(t, err)
	assert.False(t, failed.Success)
	assert.Equal(t, apperrors.KindInsufficientFunds, failed.ErrorKind)
	require.NotEmpty(t, failed.TransactionID)
	failedTxn, failedEntries, err := svc.GetTransaction(ctx, failed.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.Failed, failedTxn.Status)
	assert.Empty(t, failedEntries)
	assert.True(t, balanceOf(t, store, "acc-x").Equal(decimal.RequireFromString("70.00")))

	recent, err := svc.ListRecentTransactions(ctx, "acc-y", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, failed.TransactionID, recent[0].TransactionID)

	acc, err := store.FindAccountByUserID(ctx, "user-y")
	require.NoError(t, err)
	assert.Equal(t, "acc-y", acc.AccountID)
}

func TestIntegration_DuplicateKeyAtCommit(t *testing.T) {
	pool := setupLedgerDatabase(t)
	seedAccount(t, pool, "acc-x", "user-x", "10.00")
	seedAccount(t, pool, "acc-y", "user-y", "0")

	store := pgsql.NewLedgerStore(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	insert := func(id string) error {
		return store.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			txn := domain.NewPendingTransaction(id, "dup", "acc-x", "acc-y", decimal.NewFromInt(1), now)
			if err := tx.InsertTransaction(ctx, txn); err != nil {
				return err
			}
			if err := txn.Fail(apperrors.KindInsufficientFunds, "test", now); err != nil {
				return err
			}
			return tx.UpdateTransactionStatus(ctx, txn)
		})
	}

	require.NoError(t, insert("t-1"))
	assert.ErrorIs(t, insert("t-2"), apperrors.ErrDuplicateIdempotencyKey)
}

func TestIntegration_ConcurrentTransfersConserveMoney(t *testing.T) {
	pool := setupLedgerDatabase(t)
	ids := []string{"acc-1", "acc-2", "acc-3", "acc-4"}
	for i, id := range ids {
		seedAccount(t, pool, id, fmt.Sprintf("user-%d", i), "100.00")
	}

	store := pgsql.NewLedgerStore(pool, pgsql.WithLockTimeout(2*time.Second))
	svc := services.NewTransferService(store, services.WithRetryPolicy(services.RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   5 * time.Millisecond,
		MaxDelay:    100 * time.Millisecond,
	}))
	ctx := context.Background()

	const workers = 8
	const perWorker = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				from := ids[(w+i)%len(ids)]
				to := ids[(w+i+1+w%2)%len(ids)]
				if from == to {
					continue
				}
				_, err := svc.Transfer(ctx, domain.TransferRequest{
					FromAccountID:  from,
					ToAccountID:    to,
					Amount:         decimal.RequireFromString("7.25"),
					IdempotencyKey: fmt.Sprintf("w%d-%d", w, i),
				})
				if err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	total := decimal.Zero
	for _, id := range ids {
		total = total.Add(balanceOf(t, store, id))
	}
	assert.True(t, total.Equal(decimal.RequireFromString("400.00")), "total drifted to %s", total)

	var debits, credits decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(debit_amount), 0), COALESCE(SUM(credit_amount), 0) FROM ledger_entries`).
		Scan(&debits, &credits))
	assert.True(t, debits.Equal(credits), "debits %s != credits %s", debits, credits)

	// every account's balance equals its opening balance plus its ledger
	for _, id := range ids {
		var net decimal.Decimal
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT COALESCE(SUM(COALESCE(credit_amount, 0) - COALESCE(debit_amount, 0)), 0)
			   FROM ledger_entries WHERE account_id = $1`, id).Scan(&net))
		assert.True(t, decimal.RequireFromString("100.00").Add(net).Equal(balanceOf(t, store, id)), "account %s", id)
	}

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE status = 'PENDING'`).Scan(&pending))
	assert.Zero(t, pending)
}

func TestIntegration_OpposingTransfersDoNotDeadlock(t *testing.T) {
	pool := setupLedgerDatabase(t)
	seedAccount(t, pool, "acc-a", "user-a", "500.00")
	seedAccount(t, pool, "acc-b", "user-b", "500.00")

	store := pgsql.NewLedgerStore(pool, pgsql.WithLockTimeout(5*time.Second))
	// serializable snapshots turn every lost lock race into a retry
	svc := services.NewTransferService(store, services.WithRetryPolicy(services.RetryPolicy{
		MaxAttempts: 100,
		BaseDelay:   time.Millisecond,
		MaxDelay:    20 * time.Millisecond,
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []error
	for i := 0; i < 20; i++ {
		from, to := "acc-a", "acc-b"
		if i%2 == 1 {
			from, to = to, from
		}
		wg.Add(1)
		go func(i int, from, to string) {
			defer wg.Done()
			res, err := svc.Transfer(ctx, domain.TransferRequest{
				FromAccountID: from, ToAccountID: to,
				Amount: decimal.NewFromInt(1), IdempotencyKey: fmt.Sprintf("opp-%d", i),
			})
			if err == nil && !res.Success {
				err = errors.New(res.ErrorMessage)
			}
			if err != nil {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
		}(i, from, to)
	}
	wg.Wait()

	assert.Empty(t, failures)
	assert.True(t, balanceOf(t, store, "acc-a").Equal(decimal.RequireFromString("500.00")))
	assert.True(t, balanceOf(t, store, "acc-b").Equal(decimal.RequireFromString("500.00")))
}
