package repositories

import (
	"context"
)

// TxFunc is the body of one atomic unit. It must be replayable: everything it needs is
// re-read through tx, so the caller can run it again after a transient failure.
type TxFunc func(ctx context.Context, tx LedgerTx) error

// TransactionManager runs a TxFunc inside one serializable database transaction.
type TransactionManager interface {
	// RunInTx begins a serializable transaction, calls fn and commits if fn returns nil.
	// Any error from fn, or from the commit, rolls the whole unit back.
	RunInTx(ctx context.Context, fn TxFunc) error
}
