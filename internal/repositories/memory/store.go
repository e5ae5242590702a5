// Package memory is an in-process LedgerStore. It honours the same contract as the
// PostgreSQL store: exclusive per-account locks with a timeout, version-fenced balance
// writes, a unique idempotency key and all-or-nothing commits.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
)

// DefaultLockTimeout bounds how long LockAccount waits for a held account.
const DefaultLockTimeout = 2 * time.Second

// Store keeps accounts, transactions and ledger entries in maps guarded by one mutex.
// Account locks are separate one-slot semaphores so waiting never blocks readers.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]domain.Account
	transactions map[string]domain.Transaction
	byKey        map[string]string
	entries      map[string][]domain.LedgerEntry

	locksMu     sync.Mutex
	locks       map[string]chan struct{}
	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout sets how long LockAccount waits before giving up with ErrLockTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// NewStore creates an empty store.
func NewStore(options ...Option) *Store {
	s := &Store{
		accounts:     make(map[string]domain.Account),
		transactions: make(map[string]domain.Transaction),
		byKey:        make(map[string]string),
		entries:      make(map[string][]domain.LedgerEntry),
		locks:        make(map[string]chan struct{}),
		lockTimeout:  DefaultLockTimeout,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

var _ portsrepo.LedgerStore = (*Store)(nil)

// PutAccount inserts or replaces an account. Accounts are provisioned outside the
// transfer engine; this is how fixtures and local runs seed them.
func (s *Store) PutAccount(account domain.Account) error {
	if strings.TrimSpace(account.AccountID) == "" {
		return fmt.Errorf("%w: account id is required", apperrors.ErrValidation)
	}
	if account.Balance.IsNegative() {
		return fmt.Errorf("%w: balance must not be negative", apperrors.ErrValidation)
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.LastUpdatedAt.IsZero() {
		account.LastUpdatedAt = account.CreatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.AccountID] = account
	return nil
}

// FindAccountByID implements portsrepo.AccountReader.
func (s *Store) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}
	return &account, nil
}

// FindAccountByUserID implements portsrepo.AccountReader. With several accounts per
// user the oldest wins.
func (s *Store) FindAccountByUserID(_ context.Context, userID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.Account
	for _, account := range s.accounts {
		if account.UserID != userID {
			continue
		}
		if found == nil || account.CreatedAt.Before(found.CreatedAt) ||
			(account.CreatedAt.Equal(found.CreatedAt) && account.AccountID < found.AccountID) {
			acc := account
			found = &acc
		}
	}
	if found == nil {
		return nil, fmt.Errorf("account for user %s: %w", userID, apperrors.ErrNotFound)
	}
	return found, nil
}

// FindTransactionByID implements portsrepo.TransactionReader.
func (s *Store) FindTransactionByID(_ context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.transactions[transactionID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
	}
	return &txn, nil
}

// FindTransactionByIdempotencyKey implements portsrepo.TransactionReader.
func (s *Store) FindTransactionByIdempotencyKey(_ context.Context, key string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, fmt.Errorf("transaction with idempotency key %s: %w", key, apperrors.ErrNotFound)
	}
	txn := s.transactions[id]
	return &txn, nil
}

// FindLedgerEntriesByTransactionID implements portsrepo.TransactionReader.
func (s *Store) FindLedgerEntriesByTransactionID(_ context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.entries[transactionID]), nil
}

// ListRecentTransactionsByAccountID implements portsrepo.TransactionReader.
func (s *Store) ListRecentTransactionsByAccountID(_ context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txns := make([]domain.Transaction, 0)
	for _, txn := range s.transactions {
		if txn.FromAccountID == accountID || txn.ToAccountID == accountID {
			txns = append(txns, txn)
		}
	}
	slices.SortFunc(txns, func(a, b domain.Transaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.TransactionID, a.TransactionID)
	})
	if limit > 0 && len(txns) > limit {
		txns = txns[:limit]
	}
	return txns, nil
}

// LedgerEntriesByAccountID returns every committed entry posted to accountID in
// creation order.
func (s *Store) LedgerEntriesByAccountID(accountID string) []domain.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.LedgerEntry
	for _, entries := range s.entries {
		for _, e := range entries {
			if e.AccountID == accountID {
				out = append(out, e)
			}
		}
	}
	slices.SortFunc(out, func(a, b domain.LedgerEntry) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// RunInTx implements portsrepo.TransactionManager. Writes made through tx are
// buffered and applied at once when fn returns nil; any error discards them.
// Locks are released when the unit ends either way.
func (s *Store) RunInTx(ctx context.Context, fn portsrepo.TxFunc) error {
	tx := newLedgerTx(s)
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx)
}

// lockFor returns the account's lock, or nil if the account does not exist. Accounts
// are never removed, so the lock map stays bounded by the account map.
func (s *Store) lockFor(accountID string) chan struct{} {
	s.mu.RLock()
	_, exists := s.accounts[accountID]
	s.mu.RUnlock()
	if !exists {
		return nil
	}

	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[accountID]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[accountID] = lock
	}
	return lock
}

func (s *Store) commit(tx *ledgerTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, txn := range tx.newTxns {
		if _, taken := s.byKey[txn.IdempotencyKey]; taken {
			return fmt.Errorf("commit transaction %s: %w", txn.TransactionID, apperrors.ErrDuplicateIdempotencyKey)
		}
	}
	for id, write := range tx.accountWrites {
		current, ok := s.accounts[id]
		if !ok || current.Version != write.expectedVersion {
			return fmt.Errorf("commit account %s: %w", id, apperrors.ErrConcurrencyConflict)
		}
	}
	for txnID := range tx.newEntries {
		if _, ok := tx.newTxns[txnID]; !ok {
			if _, ok := s.transactions[txnID]; !ok {
				return fmt.Errorf("%w: ledger entries reference unknown transaction %s", apperrors.ErrValidation, txnID)
			}
		}
	}

	for id, write := range tx.accountWrites {
		s.accounts[id] = write.account
	}
	for _, id := range tx.txnOrder {
		txn := tx.newTxns[id]
		s.transactions[id] = txn
		s.byKey[txn.IdempotencyKey] = id
	}
	for txnID, entries := range tx.newEntries {
		s.entries[txnID] = append(s.entries[txnID], entries...)
	}
	return nil
}

type accountWrite struct {
	account         domain.Account
	expectedVersion int64
}

// ledgerTx is one unit of work against Store.
type ledgerTx struct {
	store *Store
	held  map[string]chan struct{}

	accountWrites map[string]accountWrite
	newTxns       map[string]domain.Transaction
	txnOrder      []string
	newEntries    map[string][]domain.LedgerEntry
}

func newLedgerTx(s *Store) *ledgerTx {
	return &ledgerTx{
		store:         s,
		held:          make(map[string]chan struct{}),
		accountWrites: make(map[string]accountWrite),
		newTxns:       make(map[string]domain.Transaction),
		newEntries:    make(map[string][]domain.LedgerEntry),
	}
}

func (tx *ledgerTx) release() {
	for id, lock := range tx.held {
		<-lock
		delete(tx.held, id)
	}
}

// LockAccount waits for the account's lock, giving up when ctx ends or the store's
// lock timeout passes. A missing account holds no lock.
func (tx *ledgerTx) LockAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	if _, ok := tx.held[accountID]; !ok {
		lock := tx.store.lockFor(accountID)
		if lock == nil {
			return nil, fmt.Errorf("lock account %s: %w", accountID, apperrors.ErrNotFound)
		}
		timer := time.NewTimer(tx.store.lockTimeout)
		defer timer.Stop()

		select {
		case lock <- struct{}{}:
			tx.held[accountID] = lock
		case <-ctx.Done():
			return nil, fmt.Errorf("lock account %s: %w", accountID, ctx.Err())
		case <-timer.C:
			return nil, fmt.Errorf("lock account %s: %w", accountID, apperrors.ErrLockTimeout)
		}
	}

	if write, ok := tx.accountWrites[accountID]; ok {
		account := write.account
		return &account, nil
	}

	account, err := tx.store.FindAccountByID(ctx, accountID)
	if err != nil {
		<-tx.held[accountID]
		delete(tx.held, accountID)
		return nil, err
	}
	return account, nil
}

func (tx *ledgerTx) UpdateAccountBalance(_ context.Context, account domain.Account, expectedVersion int64) error {
	if _, ok := tx.held[account.AccountID]; !ok {
		return fmt.Errorf("update account %s without holding its lock", account.AccountID)
	}
	if account.Balance.IsNegative() {
		return fmt.Errorf("%w: balance of %s would become negative", apperrors.ErrValidation, account.AccountID)
	}

	baseline := expectedVersion
	if write, ok := tx.accountWrites[account.AccountID]; ok {
		if write.account.Version != expectedVersion {
			return fmt.Errorf("update account %s: %w", account.AccountID, apperrors.ErrConcurrencyConflict)
		}
		baseline = write.expectedVersion
	} else {
		current, err := tx.store.FindAccountByID(context.Background(), account.AccountID)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return fmt.Errorf("update account %s: %w", account.AccountID, apperrors.ErrConcurrencyConflict)
		}
	}

	tx.accountWrites[account.AccountID] = accountWrite{account: account, expectedVersion: baseline}
	return nil
}

func (tx *ledgerTx) InsertTransaction(ctx context.Context, txn domain.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	if _, dup := tx.newTxns[txn.TransactionID]; dup {
		return fmt.Errorf("transaction %s: %w", txn.TransactionID, apperrors.ErrDuplicate)
	}
	for _, pending := range tx.newTxns {
		if pending.IdempotencyKey == txn.IdempotencyKey {
			return fmt.Errorf("transaction %s: %w", txn.TransactionID, apperrors.ErrDuplicateIdempotencyKey)
		}
	}
	if _, err := tx.store.FindTransactionByIdempotencyKey(ctx, txn.IdempotencyKey); err == nil {
		return fmt.Errorf("transaction %s: %w", txn.TransactionID, apperrors.ErrDuplicateIdempotencyKey)
	}

	tx.newTxns[txn.TransactionID] = txn
	tx.txnOrder = append(tx.txnOrder, txn.TransactionID)
	return nil
}

func (tx *ledgerTx) UpdateTransactionStatus(_ context.Context, txn domain.Transaction) error {
	current, ok := tx.newTxns[txn.TransactionID]
	if !ok {
		return fmt.Errorf("transaction %s not created in this unit: %w", txn.TransactionID, apperrors.ErrInvalidStatusTransition)
	}
	if !current.Status.CanTransitionTo(txn.Status) {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidStatusTransition, current.Status, txn.Status)
	}
	tx.newTxns[txn.TransactionID] = txn
	return nil
}

func (tx *ledgerTx) InsertLedgerEntries(_ context.Context, entries []domain.LedgerEntry) error {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	for _, e := range entries {
		tx.newEntries[e.TransactionID] = append(tx.newEntries[e.TransactionID], e)
	}
	return nil
}
