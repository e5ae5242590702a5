package domain

import (
	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/shopspring/decimal"
)

// TransferRequest is the engine's input. IdempotencyKey may be empty, in which case
// one is synthesized from the request tuple, Nonce and the current idempotency window.
type TransferRequest struct {
	FromAccountID  string
	ToAccountID    string
	Amount         decimal.Decimal
	IdempotencyKey string
	Nonce          string
}

// TransferResult is the caller-facing outcome of a transfer.
type TransferResult struct {
	Success       bool                `json:"success"`
	TransactionID string              `json:"transactionId,omitempty"`
	Status        TransactionStatus   `json:"status,omitempty"`
	ErrorKind     apperrors.ErrorKind `json:"errorKind,omitempty"`
	ErrorMessage  string              `json:"errorMessage,omitempty"`
	Replayed      bool                `json:"replayed,omitempty"`

	// Details carries the typed failure. Only its kind, message and shortfall fields are serialized.
	Details *apperrors.TransferError `json:"details,omitempty"`
}

// CompletedResult builds a successful result.
func CompletedResult(transactionID string) *TransferResult {
	return &TransferResult{
		Success:       true,
		TransactionID: transactionID,
		Status:        Completed,
	}
}

// FailedResult builds a failed result from a typed transfer error. transactionID is
// empty unless a FAILED transaction row was persisted.
func FailedResult(transactionID string, te *apperrors.TransferError) *TransferResult {
	res := &TransferResult{
		Success:       false,
		TransactionID: transactionID,
		ErrorKind:     te.Kind,
		ErrorMessage:  te.Message,
		Details:       te,
	}
	if transactionID != "" {
		res.Status = Failed
	}
	return res
}

// ResultFromTransaction rebuilds the outcome of an already-terminal transaction.
func ResultFromTransaction(txn Transaction) *TransferResult {
	switch txn.Status {
	case Completed:
		return CompletedResult(txn.TransactionID)
	case Failed:
		return &TransferResult{
			Success:       false,
			TransactionID: txn.TransactionID,
			Status:        Failed,
			ErrorKind:     txn.FailureKind,
			ErrorMessage:  txn.FailureReason,
			Details:       txn.FailureDetails(),
		}
	default:
		return &TransferResult{
			Success:       false,
			TransactionID: txn.TransactionID,
			Status:        txn.Status,
		}
	}
}
