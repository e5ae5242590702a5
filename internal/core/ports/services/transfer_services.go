package services

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// TransferSvc moves funds between two accounts.
type TransferSvc interface {
	// Transfer executes one transfer. Business failures come back inside the result
	// with a nil error; a non-nil error means an unexpected store fault.
	Transfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error)
}

// TransactionQuerySvc reads back committed transfers.
type TransactionQuerySvc interface {
	// GetTransaction returns a transaction together with its ledger entries.
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, []domain.LedgerEntry, error)

	// ListRecentTransactions returns the newest transactions touching accountID.
	ListRecentTransactions(ctx context.Context, accountID string, count int) ([]domain.Transaction, error)
}

// TransferSvcFacade combines all transfer-related service interfaces.
type TransferSvcFacade interface {
	TransferSvc
	TransactionQuerySvc
}
