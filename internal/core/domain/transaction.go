package domain

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a transfer.
type TransactionStatus string

const (
	Pending   TransactionStatus = "PENDING"
	Completed TransactionStatus = "COMPLETED"
	Failed    TransactionStatus = "FAILED"
)

// IsTerminal reports whether the status can no longer change.
func (s TransactionStatus) IsTerminal() bool {
	return s == Completed || s == Failed
}

// CanTransitionTo reports whether moving from s to next is legal.
// Only PENDING -> COMPLETED and PENDING -> FAILED are.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return s == Pending && next.IsTerminal()
}

// Transaction represents a single transfer of funds between two accounts.
type Transaction struct {
	TransactionID  string              `json:"transactionID"`
	IdempotencyKey string              `json:"idempotencyKey"`
	FromAccountID  string              `json:"fromAccountID"`
	ToAccountID    string              `json:"toAccountID"`
	Amount         decimal.Decimal     `json:"amount"`
	Status         TransactionStatus   `json:"status"`
	CreatedAt      time.Time           `json:"createdAt"`
	CompletedAt    *time.Time          `json:"completedAt,omitempty"`
	FailureKind    apperrors.ErrorKind `json:"failureKind,omitempty"`
	FailureReason  string              `json:"failureReason,omitempty"`

	// FailureAvailable is the sender balance seen when an INSUFFICIENT_FUNDS row was written.
	FailureAvailable *decimal.Decimal `json:"failureAvailable,omitempty"`
}

// NewPendingTransaction builds a transaction in PENDING state.
func NewPendingTransaction(id, idempotencyKey, from, to string, amount decimal.Decimal, now time.Time) Transaction {
	return Transaction{
		TransactionID:  id,
		IdempotencyKey: idempotencyKey,
		FromAccountID:  from,
		ToAccountID:    to,
		Amount:         amount,
		Status:         Pending,
		CreatedAt:      now,
	}
}

// Complete moves the transaction to COMPLETED.
func (t *Transaction) Complete(now time.Time) error {
	if !t.Status.CanTransitionTo(Completed) {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidStatusTransition, t.Status, Completed)
	}
	t.Status = Completed
	t.CompletedAt = &now
	return nil
}

// Fail moves the transaction to FAILED, recording why.
func (t *Transaction) Fail(kind apperrors.ErrorKind, reason string, now time.Time) error {
	if !t.Status.CanTransitionTo(Failed) {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidStatusTransition, t.Status, Failed)
	}
	t.Status = Failed
	t.CompletedAt = &now
	t.FailureKind = kind
	t.FailureReason = reason
	return nil
}

// FailWith moves the transaction to FAILED from a typed transfer error, keeping the
// balance shortfall so a replay can report it again.
func (t *Transaction) FailWith(te *apperrors.TransferError, now time.Time) error {
	if err := t.Fail(te.Kind, te.Message, now); err != nil {
		return err
	}
	if te.Kind == apperrors.KindInsufficientFunds {
		available := te.Available
		t.FailureAvailable = &available
	}
	return nil
}

// FailureDetails rebuilds the typed error recorded on a FAILED transaction.
func (t Transaction) FailureDetails() *apperrors.TransferError {
	if t.Status != Failed {
		return nil
	}
	te := &apperrors.TransferError{
		Kind:    t.FailureKind,
		Message: t.FailureReason,
	}
	if t.FailureKind == apperrors.KindInsufficientFunds {
		te.Requested = t.Amount
		if t.FailureAvailable != nil {
			te.Available = *t.FailureAvailable
		}
	}
	return te
}

// Validate checks the static invariants of a transaction record.
func (t Transaction) Validate() error {
	if t.IdempotencyKey == "" {
		return fmt.Errorf("%w: idempotency key is required", apperrors.ErrValidation)
	}
	if utf8.RuneCountInString(t.IdempotencyKey) > MaxIdempotencyKeyLength {
		return fmt.Errorf("%w: idempotency key longer than %d characters", apperrors.ErrValidation, MaxIdempotencyKeyLength)
	}
	if t.FromAccountID == "" || t.ToAccountID == "" {
		return fmt.Errorf("%w: both accounts are required", apperrors.ErrValidation)
	}
	if t.FromAccountID == t.ToAccountID {
		return fmt.Errorf("%w: sender and receiver must differ", apperrors.ErrValidation)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	return nil
}

// MaxIdempotencyKeyLength matches the transactions.idempotency_key column width.
const MaxIdempotencyKeyLength = 100

// AmountScale is the number of decimal places money columns hold.
const AmountScale int32 = 2
