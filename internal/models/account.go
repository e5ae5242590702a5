package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the accounts table row.
type Account struct {
	AccountID     string          `db:"account_id"`
	UserID        string          `db:"user_id"`
	Balance       decimal.Decimal `db:"balance"`
	Version       int64           `db:"version"`
	CreatedAt     time.Time       `db:"created_at"`
	LastUpdatedAt time.Time       `db:"last_updated_at"`
}
