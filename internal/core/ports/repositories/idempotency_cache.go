package repositories

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// IdempotencyCache remembers terminal transfer outcomes by idempotency key. It only
// shortens replays; the store's uniqueness constraint stays authoritative.
type IdempotencyCache interface {
	// GetOutcome returns the cached outcome for key, or (nil, false, nil) on a miss.
	GetOutcome(ctx context.Context, key string) (*domain.TransferResult, bool, error)

	// PutOutcome caches a terminal outcome for key.
	PutOutcome(ctx context.Context, key string, result *domain.TransferResult) error
}
