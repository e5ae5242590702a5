package services

import (
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	transferOpts := []TransferOption{
		WithRetryPolicy(RetryPolicy{
			MaxAttempts: cfg.TransferMaxAttempts,
			BaseDelay:   cfg.TransferBaseDelay,
			MaxDelay:    cfg.TransferMaxDelay,
		}),
		WithIdempotencyWindow(cfg.IdempotencyWindow),
	}
	if repos.IdempotencyCache != nil {
		transferOpts = append(transferOpts, WithIdempotencyCache(repos.IdempotencyCache))
	}

	return &portssvc.ServiceContainer{
		Account:  NewAccountService(repos.LedgerStore),
		Transfer: NewTransferService(repos.LedgerStore, transferOpts...),
	}
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.AccountSvcFacade  = (*accountService)(nil)
	_ portssvc.TransferSvcFacade = (*TransferService)(nil)
)
