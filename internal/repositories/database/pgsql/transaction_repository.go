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

const transactionColumns = `transaction_id, idempotency_key, from_account_id, to_account_id, amount, status, created_at, completed_at, failure_kind, failure_reason, failure_available`

const ledgerEntryColumns = `entry_id, transaction_id, account_id, debit_amount, credit_amount, balance_after, created_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var m models.Transaction
	if err := row.Scan(
		&m.TransactionID,
		&m.IdempotencyKey,
		&m.FromAccountID,
		&m.ToAccountID,
		&m.Amount,
		&m.Status,
		&m.CreatedAt,
		&m.CompletedAt,
		&m.FailureKind,
		&m.FailureReason,
		&m.FailureAvailable,
	); err != nil {
		return nil, err
	}
	txn := mapping.ToDomainTransaction(m)
	return &txn, nil
}

func (s *PgxLedgerStore) findTransaction(ctx context.Context, where string, arg string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where + ` = $1;`
	txn, err := scanTransaction(s.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return txn, nil
}

// FindTransactionByID retrieves a transaction by its ID.
func (s *PgxLedgerStore) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.findTransaction(ctx, "transaction_id", transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}
	return txn, nil
}

// FindTransactionByIdempotencyKey retrieves the transaction committed under key.
func (s *PgxLedgerStore) FindTransactionByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	txn, err := s.findTransaction(ctx, "idempotency_key", key)
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction by idempotency key: %w", err)
	}
	return txn, nil
}

// FindLedgerEntriesByTransactionID lists a transaction's entries, debit first.
func (s *PgxLedgerStore) FindLedgerEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerEntryColumns + `
		FROM ledger_entries
		WHERE transaction_id = $1
		ORDER BY debit_amount IS NULL, created_at, entry_id;
	`
	rows, err := s.Pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries for transaction %s: %w", transactionID, err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, 2)
	for rows.Next() {
		var m models.LedgerEntry
		if err := rows.Scan(
			&m.EntryID,
			&m.TransactionID,
			&m.AccountID,
			&m.DebitAmount,
			&m.CreditAmount,
			&m.BalanceAfter,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry row: %w", err)
		}
		entries = append(entries, mapping.ToDomainLedgerEntry(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entry rows: %w", err)
	}
	return entries, nil
}

// ListRecentTransactionsByAccountID returns up to limit transactions touching the account, newest first.
func (s *PgxLedgerStore) ListRecentTransactionsByAccountID(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at DESC, transaction_id DESC
		LIMIT $2;
	`
	rows, err := s.Pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txns, nil
}

// InsertTransaction stores a new transaction row. A reused idempotency key surfaces
// as apperrors.ErrDuplicateIdempotencyKey.
func (t *pgxLedgerTx) InsertTransaction(ctx context.Context, txn domain.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	m := mapping.ToModelTransaction(txn)
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := t.tx.Exec(ctx, query,
		m.TransactionID,
		m.IdempotencyKey,
		m.FromAccountID,
		m.ToAccountID,
		m.Amount,
		m.Status,
		m.CreatedAt,
		m.CompletedAt,
		m.FailureKind,
		m.FailureReason,
		m.FailureAvailable,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", m.TransactionID, mapPgError(err))
	}
	return nil
}

// UpdateTransactionStatus moves a PENDING row to its terminal state.
func (t *pgxLedgerTx) UpdateTransactionStatus(ctx context.Context, txn domain.Transaction) error {
	if !txn.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is not terminal", apperrors.ErrInvalidStatusTransition, txn.Status)
	}
	m := mapping.ToModelTransaction(txn)
	query := `
		UPDATE transactions
		SET status = $2, completed_at = $3, failure_kind = $4, failure_reason = $5, failure_available = $6
		WHERE transaction_id = $1 AND status = $7;
	`
	cmdTag, err := t.tx.Exec(ctx, query,
		m.TransactionID,
		m.Status,
		m.CompletedAt,
		m.FailureKind,
		m.FailureReason,
		m.FailureAvailable,
		models.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to update status of transaction %s: %w", m.TransactionID, mapPgError(err))
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %s is not pending", apperrors.ErrInvalidStatusTransition, m.TransactionID)
	}
	return nil
}

// InsertLedgerEntries appends entries in one batch.
func (t *pgxLedgerTx) InsertLedgerEntries(ctx context.Context, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO ledger_entries (` + ledgerEntryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	batch := &pgx.Batch{}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		m := mapping.ToModelLedgerEntry(e)
		batch.Queue(query,
			m.EntryID,
			m.TransactionID,
			m.AccountID,
			m.DebitAmount,
			m.CreditAmount,
			m.BalanceAfter,
			m.CreatedAt,
		)
	}

	br := t.tx.SendBatch(ctx, batch)
	// Close reports the first failing statement of the batch.
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to insert ledger entries: %w", mapPgError(err))
	}
	return nil
}
