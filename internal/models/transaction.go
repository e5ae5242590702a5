package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus mirrors the transactions.status column.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

// Transaction is the transactions table row.
type Transaction struct {
	TransactionID  string            `db:"transaction_id"`
	IdempotencyKey string            `db:"idempotency_key"`
	FromAccountID  string            `db:"from_account_id"`
	ToAccountID    string            `db:"to_account_id"`
	Amount         decimal.Decimal   `db:"amount"`
	Status         TransactionStatus `db:"status"`
	CreatedAt      time.Time         `db:"created_at"`
	CompletedAt    sql.NullTime      `db:"completed_at"`   // Nullable
	FailureKind    sql.NullString    `db:"failure_kind"`   // Nullable
	FailureReason  sql.NullString    `db:"failure_reason"` // Nullable

	FailureAvailable decimal.NullDecimal `db:"failure_available"` // Nullable
}
