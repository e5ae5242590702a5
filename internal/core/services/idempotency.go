package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
)

// SynthesizedKeyPrefix marks idempotency keys derived by the engine rather than supplied by a client.
const SynthesizedKeyPrefix = "syn:"

// DefaultIdempotencyWindow is the bucket width used when synthesizing keys.
const DefaultIdempotencyWindow = 5 * time.Minute

// SynthesizeKey derives a deterministic key from the request fields and the start of
// the idempotency window containing now. Two identical requests inside one window
// collapse to the same key; the same request in a later window is a new transfer.
func SynthesizeKey(req domain.TransferRequest, window time.Duration, now time.Time) string {
	if window <= 0 {
		window = DefaultIdempotencyWindow
	}
	bucket := now.UTC().Truncate(window).Unix()

	h := sha256.New()
	for _, part := range []string{
		req.FromAccountID,
		req.ToAccountID,
		req.Amount.String(),
		req.Nonce,
		strconv.FormatInt(bucket, 10),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return SynthesizedKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// IdempotencyGuard resolves the key a transfer runs under and answers replays.
// The store's unique constraint is authoritative; the lookups here only spare a
// replay the cost of locking accounts.
type IdempotencyGuard struct {
	BaseService
	reader portsrepo.TransactionReader
	cache  portsrepo.IdempotencyCache
	window time.Duration
}

// NewIdempotencyGuard creates a guard. cache may be nil.
func NewIdempotencyGuard(reader portsrepo.TransactionReader, cache portsrepo.IdempotencyCache, window time.Duration) *IdempotencyGuard {
	if window <= 0 {
		window = DefaultIdempotencyWindow
	}
	return &IdempotencyGuard{reader: reader, cache: cache, window: window}
}

// ResolveKey returns the client key, trimmed, or a synthesized one when none was given.
func (g *IdempotencyGuard) ResolveKey(req domain.TransferRequest, now time.Time) (string, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return SynthesizeKey(req, g.window, now), nil
	}
	if utf8.RuneCountInString(key) > domain.MaxIdempotencyKeyLength {
		return "", apperrors.NewInvalidRequestError(
			fmt.Sprintf("Idempotency key must be at most %d characters", domain.MaxIdempotencyKeyLength))
	}
	return key, nil
}

// Lookup returns the recorded outcome for key if one exists. Cache faults are
// logged and ignored; store faults are returned.
func (g *IdempotencyGuard) Lookup(ctx context.Context, key string) (*domain.TransferResult, bool, error) {
	if g.cache != nil {
		result, ok, err := g.cache.GetOutcome(ctx, key)
		if err != nil {
			g.LogWarn(ctx, err, "Idempotency cache lookup failed", slog.String("idempotency_key", key))
		} else if ok {
			replay := *result
			replay.Replayed = true
			return &replay, true, nil
		}
	}

	txn, err := g.reader.FindTransactionByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	if !txn.Status.IsTerminal() {
		return nil, false, nil
	}

	result := domain.ResultFromTransaction(*txn)
	g.Remember(ctx, key, result)
	result.Replayed = true
	return result, true, nil
}

// ResolveDuplicate loads the outcome that won the race for key. It is called after
// the store rejected a commit for reusing the key, so the row must exist.
func (g *IdempotencyGuard) ResolveDuplicate(ctx context.Context, key string) (*domain.TransferResult, error) {
	txn, err := g.reader.FindTransactionByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction for duplicate idempotency key: %w", err)
	}

	result := domain.ResultFromTransaction(*txn)
	g.Remember(ctx, key, result)
	result.Replayed = true
	return result, nil
}

// Remember stores a committed outcome in the cache, if one is configured.
func (g *IdempotencyGuard) Remember(ctx context.Context, key string, result *domain.TransferResult) {
	if g.cache == nil || result == nil || result.TransactionID == "" {
		return
	}
	stored := *result
	stored.Replayed = false
	if err := g.cache.PutOutcome(ctx, key, &stored); err != nil {
		g.LogWarn(ctx, err, "Failed to cache transfer outcome", slog.String("idempotency_key", key))
	}
}
