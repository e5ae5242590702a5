package dto

import (
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// AccountResponse defines the display snapshot returned for an account.
type AccountResponse struct {
	AccountID     string    `json:"accountID"`
	UserID        string    `json:"userID"`
	Balance       string    `json:"balance"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:     acc.AccountID,
		UserID:        acc.UserID,
		Balance:       acc.Balance.StringFixed(domain.AmountScale),
		CreatedAt:     acc.CreatedAt,
		LastUpdatedAt: acc.LastUpdatedAt,
	}
}
