package repositories

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// TransactionReader defines read operations for transfer transactions and their entries.
type TransactionReader interface {
	// FindTransactionByID retrieves a transaction by its id.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindTransactionByIdempotencyKey retrieves the transaction committed under key.
	FindTransactionByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)

	// FindLedgerEntriesByTransactionID retrieves the ledger entries of one transaction.
	FindLedgerEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error)

	// ListRecentTransactionsByAccountID returns up to limit transactions where the account
	// is sender or receiver, newest first.
	ListRecentTransactionsByAccountID(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)
}

// LedgerWriter defines the append/transition operations available inside a LedgerTx.
type LedgerWriter interface {
	// InsertTransaction stores a new transaction. A taken idempotency key returns
	// apperrors.ErrDuplicateIdempotencyKey, either here or at commit.
	InsertTransaction(ctx context.Context, txn domain.Transaction) error

	// UpdateTransactionStatus persists a PENDING -> terminal transition.
	UpdateTransactionStatus(ctx context.Context, txn domain.Transaction) error

	// InsertLedgerEntries appends ledger entries. Entries are never updated afterwards.
	InsertLedgerEntries(ctx context.Context, entries []domain.LedgerEntry) error
}

// LedgerTx is the store as seen from inside one atomic unit.
type LedgerTx interface {
	AccountTransactionSupport
	LedgerWriter
}

// LedgerStore is the full contract the transfer engine needs from durable storage.
type LedgerStore interface {
	TransactionManager
	AccountReader
	TransactionReader
}
