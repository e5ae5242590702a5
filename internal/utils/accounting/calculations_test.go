package accounting_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("entry_%d", n)
	}
}

func TestBuildTransferEntries(t *testing.T) {
	now := time.Now()
	amount := decimal.RequireFromString("30.00")
	sender := domain.Account{AccountID: "x", Balance: decimal.RequireFromString("70.00")}
	receiver := domain.Account{AccountID: "y", Balance: decimal.RequireFromString("80.00")}

	entries := accounting.BuildTransferEntries("txn_1", sender, receiver, amount, now, sequentialIDs())
	require.Len(t, entries, 2)

	debit, credit := entries[0], entries[1]
	assert.Equal(t, domain.Debit, debit.Type())
	assert.Equal(t, "x", debit.AccountID)
	assert.True(t, debit.BalanceAfter.Equal(decimal.RequireFromString("70.00")))
	assert.Nil(t, debit.CreditAmount)

	assert.Equal(t, domain.Credit, credit.Type())
	assert.Equal(t, "y", credit.AccountID)
	assert.True(t, credit.BalanceAfter.Equal(decimal.RequireFromString("80.00")))
	assert.Nil(t, credit.DebitAmount)

	assert.NotEqual(t, debit.EntryID, credit.EntryID)
	assert.NoError(t, accounting.ValidateConservation(entries, amount))
}

func TestValidateConservation(t *testing.T) {
	amount := decimal.NewFromInt(10)
	other := decimal.NewFromInt(9)

	tests := []struct {
		name    string
		entries []domain.LedgerEntry
		wantErr string
	}{
		{
			name:    "single entry",
			entries: []domain.LedgerEntry{{EntryID: "a", DebitAmount: &amount}},
			wantErr: "exactly two",
		},
		{
			name: "two debits",
			entries: []domain.LedgerEntry{
				{EntryID: "a", DebitAmount: &amount},
				{EntryID: "b", DebitAmount: &amount},
			},
			wantErr: "one debit and one credit",
		},
		{
			name: "unbalanced",
			entries: []domain.LedgerEntry{
				{EntryID: "a", DebitAmount: &amount},
				{EntryID: "b", CreditAmount: &other},
			},
			wantErr: "do not balance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := accounting.ValidateConservation(tt.entries, amount)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
