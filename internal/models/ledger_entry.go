package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is the ledger_entries table row. Exactly one of DebitAmount and
// CreditAmount is valid.
type LedgerEntry struct {
	EntryID       string              `db:"entry_id"`
	TransactionID string              `db:"transaction_id"`
	AccountID     string              `db:"account_id"`
	DebitAmount   decimal.NullDecimal `db:"debit_amount"`
	CreditAmount  decimal.NullDecimal `db:"credit_amount"`
	BalanceAfter  decimal.Decimal     `db:"balance_after"`
	CreatedAt     time.Time           `db:"created_at"`
}
