package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/models"
	"github.com/SscSPs/ledger_engine/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `account_id, user_id, balance, version, created_at, last_updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var m models.Account
	if err := row.Scan(
		&m.AccountID,
		&m.UserID,
		&m.Balance,
		&m.Version,
		&m.CreatedAt,
		&m.LastUpdatedAt,
	); err != nil {
		return nil, err
	}
	account := mapping.ToDomainAccount(m)
	return &account, nil
}

func findAccount(ctx context.Context, q querier, query string, arg string) (*domain.Account, error) {
	account, err := scanAccount(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, mapPgError(err)
	}
	return account, nil
}

// FindAccountByID retrieves an account by its ID.
func (s *PgxLedgerStore) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	account, err := findAccount(ctx, s.Pool, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by ID %s: %w", accountID, err)
	}
	return account, nil
}

// FindAccountByUserID retrieves the oldest account owned by userID.
func (s *PgxLedgerStore) FindAccountByUserID(ctx context.Context, userID string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at, account_id
		LIMIT 1;
	`
	account, err := findAccount(ctx, s.Pool, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account for user %s: %w", userID, err)
	}
	return account, nil
}

// LockAccount selects one account FOR UPDATE. Callers lock several accounts one
// statement at a time in LockOrder, so the acquisition order never depends on the
// plan PostgreSQL picks for a multi-row lock.
func (t *pgxLedgerTx) LockAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1 FOR UPDATE;`
	account, err := findAccount(ctx, t.tx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %s: %w", accountID, err)
	}
	return account, nil
}

// UpdateAccountBalance writes balance and version, fenced on expectedVersion.
func (t *pgxLedgerTx) UpdateAccountBalance(ctx context.Context, account domain.Account, expectedVersion int64) error {
	m := mapping.ToModelAccount(account)
	query := `
		UPDATE accounts
		SET balance = $2, version = $3, last_updated_at = $4
		WHERE account_id = $1 AND version = $5;
	`
	cmdTag, err := t.tx.Exec(ctx, query, m.AccountID, m.Balance, m.Version, m.LastUpdatedAt, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update balance of account %s: %w", m.AccountID, mapPgError(err))
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("account %s no longer at version %d: %w", m.AccountID, expectedVersion, apperrors.ErrConcurrencyConflict)
	}
	return nil
}
