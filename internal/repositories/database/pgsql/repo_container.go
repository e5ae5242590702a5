package pgsql

import (
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires the PostgreSQL ledger store. The idempotency cache is
// left for the caller to attach.
func NewRepositoryProvider(dbPool *pgxpool.Pool, options ...StoreOption) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		LedgerStore: NewLedgerStore(dbPool, options...),
	}
}
