package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/utils/accounting"
	"github.com/google/uuid"
)

// Limits for ListRecentTransactions.
const (
	DefaultRecentTransactions = 10
	MaxRecentTransactions     = 100
)

// TransferService moves funds between accounts. All fields are set at construction;
// concurrent Transfer calls share nothing but the store.
type TransferService struct {
	BaseService
	store   portsrepo.LedgerStore
	retrier *Retrier
	guard   *IdempotencyGuard
	now     func() time.Time
	newID   func() string
}

// TransferOption configures a TransferService.
type TransferOption func(*transferConfig)

type transferConfig struct {
	policy      RetryPolicy
	retrierOpts []RetrierOption
	cache       portsrepo.IdempotencyCache
	window      time.Duration
	now         func() time.Time
	newID       func() string
}

// WithRetryPolicy sets attempt and backoff bounds.
func WithRetryPolicy(policy RetryPolicy, options ...RetrierOption) TransferOption {
	return func(c *transferConfig) {
		c.policy = policy
		c.retrierOpts = options
	}
}

// WithIdempotencyCache adds a fast-path outcome cache.
func WithIdempotencyCache(cache portsrepo.IdempotencyCache) TransferOption {
	return func(c *transferConfig) {
		c.cache = cache
	}
}

// WithIdempotencyWindow sets the bucket width for synthesized keys.
func WithIdempotencyWindow(window time.Duration) TransferOption {
	return func(c *transferConfig) {
		c.window = window
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) TransferOption {
	return func(c *transferConfig) {
		c.now = now
	}
}

// WithIDGenerator overrides the transaction and entry id source.
func WithIDGenerator(newID func() string) TransferOption {
	return func(c *transferConfig) {
		c.newID = newID
	}
}

// NewTransferService creates a transfer engine over store.
func NewTransferService(store portsrepo.LedgerStore, options ...TransferOption) *TransferService {
	cfg := transferConfig{
		policy: DefaultRetryPolicy(),
		window: DefaultIdempotencyWindow,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, option := range options {
		option(&cfg)
	}

	return &TransferService{
		store:   store,
		retrier: NewRetrier(cfg.policy, cfg.retrierOpts...),
		guard:   NewIdempotencyGuard(store, cfg.cache, cfg.window),
		now:     cfg.now,
		newID:   cfg.newID,
	}
}

// Transfer moves req.Amount from req.FromAccountID to req.ToAccountID exactly once per
// idempotency key. Business failures come back as an unsuccessful result with a nil
// error; the error is reserved for faults the caller cannot act on.
func (s *TransferService) Transfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	req.FromAccountID = strings.TrimSpace(req.FromAccountID)
	req.ToAccountID = strings.TrimSpace(req.ToAccountID)

	logger := s.GetLogger(ctx).With(
		slog.String("from_account_id", req.FromAccountID),
		slog.String("to_account_id", req.ToAccountID),
		slog.String("amount", req.Amount.String()),
	)

	if te := validateTransferRequest(req); te != nil {
		logger.Warn("Transfer rejected", slog.String("error_kind", string(te.Kind)), slog.String("reason", te.Message))
		return domain.FailedResult("", te), nil
	}

	key, err := s.guard.ResolveKey(req, s.now())
	if err != nil {
		if te, ok := apperrors.AsTransferError(err); ok {
			logger.Warn("Transfer rejected", slog.String("error_kind", string(te.Kind)), slog.String("reason", te.Message))
			return domain.FailedResult("", te), nil
		}
		return nil, err
	}
	logger = logger.With(slog.String("idempotency_key", key))

	if replay, ok, err := s.guard.Lookup(ctx, key); err != nil {
		logger.Error("Idempotency lookup failed", slog.String("error", err.Error()))
		return nil, err
	} else if ok {
		logger.Info("Transfer replayed from recorded outcome", slog.String("transaction_id", replay.TransactionID))
		return replay, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("transfer aborted before start: %w", err)
	}

	result, err := Retry(ctx, s.retrier, func(ctx context.Context) (*domain.TransferResult, error) {
		return s.attempt(ctx, req, key)
	})

	switch {
	case err == nil:
		s.guard.Remember(ctx, key, result)
		if result.Success {
			logger.Info("Transfer completed", slog.String("transaction_id", result.TransactionID))
		} else {
			logger.Warn("Transfer failed",
				slog.String("transaction_id", result.TransactionID),
				slog.String("error_kind", string(result.ErrorKind)))
		}
		return result, nil

	case errors.Is(err, apperrors.ErrDuplicateIdempotencyKey):
		replay, rerr := s.guard.ResolveDuplicate(context.WithoutCancel(ctx), key)
		if rerr != nil {
			logger.Error("Failed to resolve duplicate idempotency key", slog.String("error", rerr.Error()))
			return nil, rerr
		}
		logger.Info("Concurrent duplicate resolved to existing transaction", slog.String("transaction_id", replay.TransactionID))
		return replay, nil
	}

	if te, ok := apperrors.AsTransferError(err); ok {
		logger.Warn("Transfer failed", slog.String("error_kind", string(te.Kind)), slog.String("error", te.Error()))
		return domain.FailedResult("", te), nil
	}

	logger.Error("Transfer aborted by unexpected fault", slog.String("error", err.Error()))
	return nil, fmt.Errorf("transfer %s -> %s: %w", req.FromAccountID, req.ToAccountID, err)
}

// attempt runs one atomic unit. It reads everything it needs through the unit, so the
// retrier may call it again after a transient failure.
func (s *TransferService) attempt(ctx context.Context, req domain.TransferRequest, key string) (*domain.TransferResult, error) {
	var result *domain.TransferResult

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		sender, receiver, err := lockTransferAccounts(ctx, tx, req.FromAccountID, req.ToAccountID)
		if err != nil {
			return err
		}

		// Locks are held; finish the unit even if the caller goes away.
		ctx = context.WithoutCancel(ctx)
		now := s.now()
		txn := domain.NewPendingTransaction(s.newID(), key, sender.AccountID, receiver.AccountID, req.Amount, now)

		if !sender.CanDebit(req.Amount) {
			te := apperrors.NewInsufficientFundsError(sender.Balance, req.Amount)
			if err := tx.InsertTransaction(ctx, txn); err != nil {
				return err
			}
			if err := txn.FailWith(te, now); err != nil {
				return err
			}
			if err := tx.UpdateTransactionStatus(ctx, txn); err != nil {
				return err
			}
			result = domain.FailedResult(txn.TransactionID, te)
			return nil
		}

		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}

		debited := sender.Debited(req.Amount, now)
		if err := tx.UpdateAccountBalance(ctx, debited, sender.Version); err != nil {
			return fmt.Errorf("debit sender %s: %w", sender.AccountID, err)
		}
		credited := receiver.Credited(req.Amount, now)
		if err := tx.UpdateAccountBalance(ctx, credited, receiver.Version); err != nil {
			return fmt.Errorf("credit receiver %s: %w", receiver.AccountID, err)
		}

		entries := accounting.BuildTransferEntries(txn.TransactionID, debited, credited, req.Amount, now, s.newID)
		if err := accounting.ValidateConservation(entries, req.Amount); err != nil {
			return err
		}
		if err := tx.InsertLedgerEntries(ctx, entries); err != nil {
			return err
		}

		if err := txn.Complete(now); err != nil {
			return err
		}
		if err := tx.UpdateTransactionStatus(ctx, txn); err != nil {
			return err
		}

		result = domain.CompletedResult(txn.TransactionID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockTransferAccounts locks both accounts in LockOrder and returns them as sender
// and receiver snapshots taken under the lock.
func lockTransferAccounts(ctx context.Context, tx portsrepo.LedgerTx, fromID, toID string) (domain.Account, domain.Account, error) {
	locked := make(map[string]domain.Account, 2)
	for _, id := range LockOrder(fromID, toID) {
		account, err := tx.LockAccount(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return domain.Account{}, domain.Account{}, err
		}
		locked[id] = *account
	}

	sender, ok := locked[fromID]
	if !ok {
		return domain.Account{}, domain.Account{}, apperrors.NewAccountNotFoundError(apperrors.Sender, fromID)
	}
	receiver, ok := locked[toID]
	if !ok {
		return domain.Account{}, domain.Account{}, apperrors.NewAccountNotFoundError(apperrors.Receiver, toID)
	}
	return sender, receiver, nil
}

func validateTransferRequest(req domain.TransferRequest) *apperrors.TransferError {
	if req.FromAccountID == "" {
		return apperrors.NewInvalidRequestError("Sender account id is required")
	}
	if req.ToAccountID == "" {
		return apperrors.NewInvalidRequestError("Receiver account id is required")
	}
	if !req.Amount.IsPositive() {
		return apperrors.NewInvalidAmountError(req.Amount)
	}
	if !req.Amount.Equal(req.Amount.Truncate(domain.AmountScale)) {
		return apperrors.NewAmountPrecisionError(req.Amount, domain.AmountScale)
	}
	if req.FromAccountID == req.ToAccountID {
		return apperrors.NewSameAccountError()
	}
	return nil
}

// GetTransaction returns a transaction with its ledger entries.
func (s *TransferService) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, []domain.LedgerEntry, error) {
	txn, err := s.store.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find transaction", slog.String("transaction_id", transactionID))
		}
		return nil, nil, err
	}

	entries, err := s.store.FindLedgerEntriesByTransactionID(ctx, transactionID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load ledger entries", slog.String("transaction_id", transactionID))
		return nil, nil, err
	}
	return txn, entries, nil
}

// ListRecentTransactions returns the account's newest transactions. count is clamped
// to [1, MaxRecentTransactions]; zero or less means DefaultRecentTransactions.
func (s *TransferService) ListRecentTransactions(ctx context.Context, accountID string, count int) ([]domain.Transaction, error) {
	switch {
	case count <= 0:
		count = DefaultRecentTransactions
	case count > MaxRecentTransactions:
		count = MaxRecentTransactions
	}

	if _, err := s.store.FindAccountByID(ctx, accountID); err != nil {
		return nil, err
	}

	txns, err := s.store.ListRecentTransactionsByAccountID(ctx, accountID, count)
	if err != nil {
		s.LogError(ctx, err, "Failed to list recent transactions", slog.String("account_id", accountID))
		return nil, err
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	return txns, nil
}
