package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/shopspring/decimal"
)

// EntryType indicates whether a ledger entry debits or credits its account.
type EntryType string

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

// LedgerEntry is one append-only line of the double-entry ledger.
// Exactly one of DebitAmount and CreditAmount is set.
type LedgerEntry struct {
	EntryID       string           `json:"entryID"`
	TransactionID string           `json:"transactionID"`
	AccountID     string           `json:"accountID"`
	DebitAmount   *decimal.Decimal `json:"debitAmount,omitempty"`
	CreditAmount  *decimal.Decimal `json:"creditAmount,omitempty"`
	BalanceAfter  decimal.Decimal  `json:"balanceAfter"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// Type reports which side of the ledger the entry sits on.
func (e LedgerEntry) Type() EntryType {
	if e.DebitAmount != nil {
		return Debit
	}
	return Credit
}

// Amount returns the set amount regardless of side.
func (e LedgerEntry) Amount() decimal.Decimal {
	if e.DebitAmount != nil {
		return *e.DebitAmount
	}
	if e.CreditAmount != nil {
		return *e.CreditAmount
	}
	return decimal.Zero
}

// Validate enforces the debit-xor-credit rule and a non-negative snapshot.
func (e LedgerEntry) Validate() error {
	if (e.DebitAmount == nil) == (e.CreditAmount == nil) {
		return fmt.Errorf("%w: entry %s must set exactly one of debit or credit", apperrors.ErrValidation, e.EntryID)
	}
	if !e.Amount().IsPositive() {
		return fmt.Errorf("%w: entry %s amount must be positive", apperrors.ErrValidation, e.EntryID)
	}
	if e.BalanceAfter.IsNegative() {
		return fmt.Errorf("%w: entry %s balance after is negative", apperrors.ErrValidation, e.EntryID)
	}
	return nil
}
