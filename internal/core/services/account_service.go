package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
)

// accountService serves display-only account lookups. The snapshots it returns are
// never used to decide a transfer; the engine re-reads accounts under lock.
type accountService struct {
	BaseService
	accountRepo portsrepo.AccountReader
}

// NewAccountService creates a new account service.
func NewAccountService(repo portsrepo.AccountReader) portssvc.AccountSvcFacade {
	return &accountService{accountRepo: repo}
}

func (s *accountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, errors.Join(apperrors.ErrValidation, errors.New("account id is required"))
	}

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogDebug(ctx, "Account not found", slog.String("account_id", accountID))
		} else {
			s.LogError(ctx, err, "Failed to find account", slog.String("account_id", accountID))
		}
		return nil, err
	}
	return account, nil
}

func (s *accountService) GetAccountByUserID(ctx context.Context, userID string) (*domain.Account, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.Join(apperrors.ErrValidation, errors.New("user id is required"))
	}

	account, err := s.accountRepo.FindAccountByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogDebug(ctx, "No account for user", slog.String("user_id", userID))
		} else {
			s.LogError(ctx, err, "Failed to find account for user", slog.String("user_id", userID))
		}
		return nil, err
	}
	return account, nil
}
