package mapping

import (
	"database/sql"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/models"
	"github.com/shopspring/decimal"
)

// ToModelTransaction converts a domain Transaction to a model Transaction
func ToModelTransaction(d domain.Transaction) models.Transaction {
	m := models.Transaction{
		TransactionID:  d.TransactionID,
		IdempotencyKey: d.IdempotencyKey,
		FromAccountID:  d.FromAccountID,
		ToAccountID:    d.ToAccountID,
		Amount:         d.Amount,
		Status:         models.TransactionStatus(d.Status),
		CreatedAt:      d.CreatedAt,
		FailureKind:    nullString(string(d.FailureKind)),
		FailureReason:  nullString(d.FailureReason),
	}
	if d.CompletedAt != nil {
		m.CompletedAt = sql.NullTime{Time: *d.CompletedAt, Valid: true}
	}
	if d.FailureAvailable != nil {
		m.FailureAvailable = decimal.NewNullDecimal(*d.FailureAvailable)
	}
	return m
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	d := domain.Transaction{
		TransactionID:  m.TransactionID,
		IdempotencyKey: m.IdempotencyKey,
		FromAccountID:  m.FromAccountID,
		ToAccountID:    m.ToAccountID,
		Amount:         m.Amount,
		Status:         domain.TransactionStatus(m.Status),
		CreatedAt:      m.CreatedAt,
		FailureKind:    apperrors.ErrorKind(m.FailureKind.String),
		FailureReason:  m.FailureReason.String,
	}
	if m.CompletedAt.Valid {
		completedAt := m.CompletedAt.Time
		d.CompletedAt = &completedAt
	}
	if m.FailureAvailable.Valid {
		available := m.FailureAvailable.Decimal
		d.FailureAvailable = &available
	}
	return d
}

// ToDomainTransactionSlice converts a slice of model Transactions to domain Transactions
func ToDomainTransactionSlice(ms []models.Transaction) []domain.Transaction {
	ds := make([]domain.Transaction, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTransaction(m)
	}
	return ds
}

// ToModelLedgerEntry converts a domain LedgerEntry to a model LedgerEntry
func ToModelLedgerEntry(d domain.LedgerEntry) models.LedgerEntry {
	m := models.LedgerEntry{
		EntryID:       d.EntryID,
		TransactionID: d.TransactionID,
		AccountID:     d.AccountID,
		BalanceAfter:  d.BalanceAfter,
		CreatedAt:     d.CreatedAt,
	}
	if d.DebitAmount != nil {
		m.DebitAmount = decimal.NewNullDecimal(*d.DebitAmount)
	}
	if d.CreditAmount != nil {
		m.CreditAmount = decimal.NewNullDecimal(*d.CreditAmount)
	}
	return m
}

// ToDomainLedgerEntry converts a model LedgerEntry to a domain LedgerEntry
func ToDomainLedgerEntry(m models.LedgerEntry) domain.LedgerEntry {
	d := domain.LedgerEntry{
		EntryID:       m.EntryID,
		TransactionID: m.TransactionID,
		AccountID:     m.AccountID,
		BalanceAfter:  m.BalanceAfter,
		CreatedAt:     m.CreatedAt,
	}
	if m.DebitAmount.Valid {
		debit := m.DebitAmount.Decimal
		d.DebitAmount = &debit
	}
	if m.CreditAmount.Valid {
		credit := m.CreditAmount.Decimal
		d.CreditAmount = &credit
	}
	return d
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
