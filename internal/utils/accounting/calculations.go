package accounting

import (
	"fmt"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BuildTransferEntries produces the debit/credit pair for one transfer. sender and
// receiver must already carry their post-mutation balances.
func BuildTransferEntries(transactionID string, sender, receiver domain.Account, amount decimal.Decimal, now time.Time, newID func() string) []domain.LedgerEntry {
	debit := amount
	credit := amount

	return []domain.LedgerEntry{
		{
			EntryID:       newID(),
			TransactionID: transactionID,
			AccountID:     sender.AccountID,
			DebitAmount:   &debit,
			BalanceAfter:  sender.Balance,
			CreatedAt:     now,
		},
		{
			EntryID:       newID(),
			TransactionID: transactionID,
			AccountID:     receiver.AccountID,
			CreditAmount:  &credit,
			BalanceAfter:  receiver.Balance,
			CreatedAt:     now,
		},
	}
}

// ValidateConservation checks that entries form one debit and one credit, each equal
// to amount, so the transfer nets to zero.
func ValidateConservation(entries []domain.LedgerEntry, amount decimal.Decimal) error {
	if len(entries) != 2 {
		return fmt.Errorf("transfer must have exactly two ledger entries, got %d", len(entries))
	}

	debits := decimal.Zero
	credits := decimal.Zero
	debitCount, creditCount := 0, 0

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		switch e.Type() {
		case domain.Debit:
			debits = debits.Add(e.Amount())
			debitCount++
		case domain.Credit:
			credits = credits.Add(e.Amount())
			creditCount++
		}
	}

	if debitCount != 1 || creditCount != 1 {
		return fmt.Errorf("transfer needs one debit and one credit, got %d debits and %d credits", debitCount, creditCount)
	}
	if !debits.Equal(amount) || !credits.Equal(amount) {
		return fmt.Errorf("ledger entries do not balance: debits %s, credits %s, amount %s", debits, credits, amount)
	}
	return nil
}
