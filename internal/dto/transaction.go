package dto

import (
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// TransactionResponse defines the data returned for a transfer transaction.
type TransactionResponse struct {
	TransactionID  string              `json:"transactionID"`
	IdempotencyKey string              `json:"idempotencyKey"`
	FromAccountID  string              `json:"fromAccountID"`
	ToAccountID    string              `json:"toAccountID"`
	Amount         string              `json:"amount"`
	Status         string              `json:"status"`
	CreatedAt      time.Time           `json:"createdAt"`
	CompletedAt    *time.Time          `json:"completedAt,omitempty"`
	FailureKind    apperrors.ErrorKind `json:"failureKind,omitempty"`
	FailureReason  string              `json:"failureReason,omitempty"`
}

// LedgerEntryResponse defines the data returned for one ledger line.
type LedgerEntryResponse struct {
	EntryID      string    `json:"entryID"`
	AccountID    string    `json:"accountID"`
	Type         string    `json:"type"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balanceAfter"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TransactionDetailResponse is a transaction together with its ledger entries.
type TransactionDetailResponse struct {
	TransactionResponse
	Entries []LedgerEntryResponse `json:"entries"`
}

// ListRecentTransactionsParams defines query parameters for the recent transactions listing.
type ListRecentTransactionsParams struct {
	Count int `form:"count,default=10" binding:"omitempty,min=1,max=100"`
}

// ListTransactionsResponse wraps a list of transactions.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:  txn.TransactionID,
		IdempotencyKey: txn.IdempotencyKey,
		FromAccountID:  txn.FromAccountID,
		ToAccountID:    txn.ToAccountID,
		Amount:         txn.Amount.StringFixed(domain.AmountScale),
		Status:         string(txn.Status),
		CreatedAt:      txn.CreatedAt,
		CompletedAt:    txn.CompletedAt,
		FailureKind:    txn.FailureKind,
		FailureReason:  txn.FailureReason,
	}
}

// ToListTransactionsResponse converts a slice of domain.Transaction.
func ToListTransactionsResponse(txns []domain.Transaction) ListTransactionsResponse {
	res := make([]TransactionResponse, len(txns))
	for i := range txns {
		res[i] = ToTransactionResponse(&txns[i])
	}
	return ListTransactionsResponse{Transactions: res}
}

// ToTransactionDetailResponse converts a transaction and its entries.
func ToTransactionDetailResponse(txn *domain.Transaction, entries []domain.LedgerEntry) TransactionDetailResponse {
	lines := make([]LedgerEntryResponse, len(entries))
	for i, e := range entries {
		lines[i] = LedgerEntryResponse{
			EntryID:      e.EntryID,
			AccountID:    e.AccountID,
			Type:         string(e.Type()),
			Amount:       e.Amount().StringFixed(domain.AmountScale),
			BalanceAfter: e.BalanceAfter.StringFixed(domain.AmountScale),
			CreatedAt:    e.CreatedAt,
		}
	}
	return TransactionDetailResponse{
		TransactionResponse: ToTransactionResponse(txn),
		Entries:             lines,
	}
}
