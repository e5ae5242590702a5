package repositories

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// AccountReader defines read-only account lookups. Results are snapshots for display;
// the transfer engine always re-reads accounts under lock.
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountByUserID retrieves the account owned by the given user.
	FindAccountByUserID(ctx context.Context, userID string) (*domain.Account, error)
}

// AccountTransactionSupport defines account operations that must run inside a LedgerTx.
type AccountTransactionSupport interface {
	// LockAccount selects one account and holds an exclusive row lock on it until the
	// enclosing transaction ends. Returns apperrors.ErrNotFound if it does not exist.
	LockAccount(ctx context.Context, accountID string) (*domain.Account, error)

	// UpdateAccountBalance writes account.Balance and account.Version, but only if the
	// stored version still equals expectedVersion. A miss returns apperrors.ErrConcurrencyConflict.
	UpdateAccountBalance(ctx context.Context, account domain.Account, expectedVersion int64) error
}
