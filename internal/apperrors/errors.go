package apperrors

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrDuplicateIdempotencyKey is returned by a ledger store when committing a transaction
// whose idempotency key is already taken. It wraps ErrDuplicate.
var ErrDuplicateIdempotencyKey = fmt.Errorf("%w: idempotency key already used", ErrDuplicate)

// ErrConcurrencyConflict indicates that a row changed underneath the current attempt
// (optimistic version fence miss or a serialization failure reported by the store).
var ErrConcurrencyConflict = errors.New("concurrent update detected")

// ErrLockTimeout indicates that a row lock could not be acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for account lock")

// ErrInvalidStatusTransition is returned when a transaction is moved out of a terminal state.
var ErrInvalidStatusTransition = errors.New("invalid transaction status transition")

// PostgreSQL SQLSTATE codes the engine cares about.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
)

// ErrorKind is the stable, caller-visible classification of a transfer failure.
type ErrorKind string

const (
	KindInvalidAmount           ErrorKind = "INVALID_AMOUNT"
	KindSameAccount             ErrorKind = "SAME_ACCOUNT"
	KindInvalidRequest          ErrorKind = "INVALID_REQUEST"
	KindAccountNotFound         ErrorKind = "ACCOUNT_NOT_FOUND"
	KindInsufficientFunds       ErrorKind = "INSUFFICIENT_FUNDS"
	KindConcurrencyConflict     ErrorKind = "CONCURRENCY_CONFLICT"
	KindDuplicateIdempotencyKey ErrorKind = "DUPLICATE_IDEMPOTENCY_KEY"
	KindTransferFailed          ErrorKind = "TRANSFER_FAILED"
)

// Party identifies which side of a transfer an error refers to.
type Party string

const (
	Sender   Party = "sender"
	Receiver Party = "receiver"
)

// ReasonTransientExhausted is the TransferFailed reason used when the retry budget runs out.
const ReasonTransientExhausted = "transient-exhausted"

// TransferError is a business-level transfer failure. It is permanent: retrying the
// same request against the same state yields the same error.
type TransferError struct {
	Kind      ErrorKind       `json:"kind"`
	Message   string          `json:"message"`
	Which     Party           `json:"which,omitempty"`  // set for KindAccountNotFound
	Available decimal.Decimal `json:"available"`        // set for KindInsufficientFunds
	Requested decimal.Decimal `json:"requested"`        // set for KindInsufficientFunds
	Reason    string          `json:"reason,omitempty"` // set for KindTransferFailed
	Err       error           `json:"-"`
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// NewInvalidAmountError reports a non-positive transfer amount.
func NewInvalidAmountError(amount decimal.Decimal) *TransferError {
	return &TransferError{
		Kind:      KindInvalidAmount,
		Message:   "Amount must be greater than zero",
		Requested: amount,
		Err:       ErrValidation,
	}
}

// NewAmountPrecisionError reports an amount carrying more decimal places than the ledger stores.
func NewAmountPrecisionError(amount decimal.Decimal, places int32) *TransferError {
	return &TransferError{
		Kind:      KindInvalidAmount,
		Message:   fmt.Sprintf("Amount must have at most %d decimal places", places),
		Requested: amount,
		Err:       ErrValidation,
	}
}

// NewSameAccountError reports a transfer whose sender and receiver are identical.
func NewSameAccountError() *TransferError {
	return &TransferError{
		Kind:    KindSameAccount,
		Message: "Cannot transfer to the same account",
		Err:     ErrValidation,
	}
}

// NewInvalidRequestError reports a malformed request, e.g. a missing account id.
func NewInvalidRequestError(msg string) *TransferError {
	return &TransferError{
		Kind:    KindInvalidRequest,
		Message: msg,
		Err:     ErrValidation,
	}
}

// NewAccountNotFoundError reports that the sender or receiver account does not exist.
func NewAccountNotFoundError(which Party, accountID string) *TransferError {
	msg := "Sender account not found"
	if which == Receiver {
		msg = "Receiver account not found"
	}
	return &TransferError{
		Kind:    KindAccountNotFound,
		Message: fmt.Sprintf("%s: %s", msg, accountID),
		Which:   which,
		Err:     ErrNotFound,
	}
}

// NewInsufficientFundsError reports a sender balance below the requested amount.
func NewInsufficientFundsError(available, requested decimal.Decimal) *TransferError {
	return &TransferError{
		Kind:      KindInsufficientFunds,
		Message:   fmt.Sprintf("Insufficient funds. You have %s, need %s", available.StringFixed(2), requested.StringFixed(2)),
		Available: available,
		Requested: requested,
	}
}

// NewTransferFailedError reports a terminal failure after retries or an unrecoverable fault.
func NewTransferFailedError(reason string, cause error) *TransferError {
	return &TransferError{
		Kind:    KindTransferFailed,
		Message: "Transfer could not be completed. Please try again.",
		Reason:  reason,
		Err:     cause,
	}
}

// AsTransferError unwraps err into a *TransferError if it is one.
func AsTransferError(err error) (*TransferError, bool) {
	var te *TransferError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// IsTransient classifies err as retriable. Business failures, validation errors and
// caller cancellation are never transient.
func IsTransient(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if _, ok := AsTransferError(err); ok {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrLockTimeout) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgQueryCanceled:
			return true
		}
		return false
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	return false
}
