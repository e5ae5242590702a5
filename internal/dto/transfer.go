package dto

import (
	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransferRequest is the body of POST /transfers. Amount accepts a JSON number or string.
type TransferRequest struct {
	FromAccountID  string          `json:"fromAccountID" binding:"required,max=64"`
	ToAccountID    string          `json:"toAccountID" binding:"required,max=64"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotencyKey" binding:"omitempty,max=100"`
	Nonce          string          `json:"nonce" binding:"omitempty,max=100"`
}

// ToDomain converts the request. headerKey is used when the body carries no key.
func (r TransferRequest) ToDomain(headerKey string) domain.TransferRequest {
	key := r.IdempotencyKey
	if key == "" {
		key = headerKey
	}
	return domain.TransferRequest{
		FromAccountID:  r.FromAccountID,
		ToAccountID:    r.ToAccountID,
		Amount:         r.Amount,
		IdempotencyKey: key,
		Nonce:          r.Nonce,
	}
}

// TransferResponse is the wire shape of a transfer outcome.
type TransferResponse struct {
	Success       bool                `json:"success"`
	TransactionID string              `json:"transactionId,omitempty"`
	Status        string              `json:"status,omitempty"`
	ErrorKind     apperrors.ErrorKind `json:"errorKind,omitempty"`
	ErrorMessage  string              `json:"errorMessage,omitempty"`
}

// ToTransferResponse converts a domain.TransferResult to TransferResponse DTO
func ToTransferResponse(res *domain.TransferResult) TransferResponse {
	return TransferResponse{
		Success:       res.Success,
		TransactionID: res.TransactionID,
		Status:        string(res.Status),
		ErrorKind:     res.ErrorKind,
		ErrorMessage:  res.ErrorMessage,
	}
}
