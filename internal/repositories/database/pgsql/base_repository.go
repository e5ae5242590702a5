package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Constraint names from migrations that map to domain errors.
const (
	idempotencyKeyConstraint = "uq_transactions_idempotency_key"
	balanceCheckConstraint   = "chk_accounts_balance_non_negative"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// Begin starts a new serializable database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapPgError(err))
	}
	return nil
}

// Rollback rolls back a transaction. Rolling back a finished transaction is a no-op.
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// mapPgError attaches the matching apperrors sentinel to PostgreSQL errors the
// engine reacts to. The original error stays in the chain for classification.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == "23505" && pgErr.ConstraintName == idempotencyKeyConstraint:
		return fmt.Errorf("%w: %w", apperrors.ErrDuplicateIdempotencyKey, err)
	case pgErr.Code == "23505":
		return fmt.Errorf("%w: %w", apperrors.ErrDuplicate, err)
	case pgErr.Code == "23514" && pgErr.ConstraintName == balanceCheckConstraint:
		return fmt.Errorf("%w: balance would become negative: %w", apperrors.ErrValidation, err)
	case pgErr.Code == "55P03":
		return fmt.Errorf("%w: %w", apperrors.ErrLockTimeout, err)
	}
	return err
}
