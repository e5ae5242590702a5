package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a balance-holding account within the core domain.
// Balance and Version are written only by the transfer engine.
type Account struct {
	AccountID     string          `json:"accountID"` // Primary Key (UUID)
	UserID        string          `json:"userID"`    // Owning user, display lookups only
	Balance       decimal.Decimal `json:"balance"`   // Never negative
	Version       int64           `json:"version"`   // Bumped by exactly one per committed mutation
	CreatedAt     time.Time       `json:"createdAt"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
}

// CanDebit reports whether the account holds at least amount.
func (a Account) CanDebit(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// Debited returns a copy of the account with amount removed and the version bumped.
func (a Account) Debited(amount decimal.Decimal, now time.Time) Account {
	a.Balance = a.Balance.Sub(amount)
	a.Version++
	a.LastUpdatedAt = now
	return a
}

// Credited returns a copy of the account with amount added and the version bumped.
func (a Account) Credited(amount decimal.Decimal, now time.Time) Account {
	a.Balance = a.Balance.Add(amount)
	a.Version++
	a.LastUpdatedAt = now
	return a
}
