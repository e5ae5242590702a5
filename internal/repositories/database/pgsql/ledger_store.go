package pgsql

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxLedgerStore implements portsrepo.LedgerStore on PostgreSQL. Each RunInTx is one
// SERIALIZABLE transaction whose row locks are bounded by lock_timeout.
type PgxLedgerStore struct {
	BaseRepository
	lockTimeout time.Duration
}

// StoreOption configures a PgxLedgerStore.
type StoreOption func(*PgxLedgerStore)

// WithLockTimeout sets lock_timeout for every unit of work. Zero leaves the server default.
func WithLockTimeout(d time.Duration) StoreOption {
	return func(s *PgxLedgerStore) {
		s.lockTimeout = d
	}
}

// NewLedgerStore creates a ledger store backed by pool.
func NewLedgerStore(pool *pgxpool.Pool, options ...StoreOption) *PgxLedgerStore {
	s := &PgxLedgerStore{BaseRepository: BaseRepository{Pool: pool}}
	for _, option := range options {
		option(s)
	}
	return s
}

var _ portsrepo.LedgerStore = (*PgxLedgerStore)(nil)

// RunInTx implements portsrepo.TransactionManager. Commit and rollback run detached
// from ctx so a caller that leaves mid-unit cannot strand a half-finished transaction.
func (s *PgxLedgerStore) RunInTx(ctx context.Context, fn portsrepo.TxFunc) (err error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := s.Rollback(context.WithoutCancel(ctx), tx); rbErr != nil {
			middleware.GetLoggerFromCtx(ctx).Error("Rollback failed", slog.String("error", rbErr.Error()))
		}
	}()

	if s.lockTimeout > 0 {
		// set_config with is_local=true behaves like SET LOCAL but accepts a bind parameter.
		timeout := fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())
		if _, err = tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", timeout); err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	if err = fn(ctx, &pgxLedgerTx{tx: tx}); err != nil {
		return err
	}
	return s.Commit(context.WithoutCancel(ctx), tx)
}

// pgxLedgerTx is the LedgerTx view of one open pgx transaction.
type pgxLedgerTx struct {
	tx pgx.Tx
}

var _ portsrepo.LedgerTx = (*pgxLedgerTx)(nil)
