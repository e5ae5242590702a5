package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ParseSeedAccounts reads "accountID:userID:balance" triples separated by commas.
func ParseSeedAccounts(seed string, now time.Time) ([]domain.Account, error) {
	var accounts []domain.Account
	for _, item := range strings.Split(seed, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: seed account %q must be accountID:userID:balance", apperrors.ErrValidation, item)
		}
		balance, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("%w: seed account %q balance: %v", apperrors.ErrValidation, item, err)
		}
		accounts = append(accounts, domain.Account{
			AccountID:     strings.TrimSpace(parts[0]),
			UserID:        strings.TrimSpace(parts[1]),
			Balance:       balance,
			CreatedAt:     now,
			LastUpdatedAt: now,
		})
	}
	return accounts, nil
}

// Seed parses seed and puts every account into the store.
func (s *Store) Seed(seed string, now time.Time) (int, error) {
	accounts, err := ParseSeedAccounts(seed, now)
	if err != nil {
		return 0, err
	}
	for _, acc := range accounts {
		if err := s.PutAccount(acc); err != nil {
			return 0, err
		}
	}
	return len(accounts), nil
}
