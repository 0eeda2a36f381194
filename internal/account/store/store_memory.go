package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"warden/internal/account/models"
	id "warden/pkg/domain"
)

// InMemoryAccountStore keeps accounts in a map. Used by unit tests and by
// deployments without Postgres configured.
type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[id.UserID]*models.Account
}

func NewInMemory() *InMemoryAccountStore {
	return &InMemoryAccountStore{accounts: make(map[id.UserID]*models.Account)}
}

func (s *InMemoryAccountStore) FindByID(_ context.Context, userID id.UserID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, exists := s.accounts[userID]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *InMemoryAccountStore) Save(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *account
	s.accounts[account.ID] = &copied
	return nil
}

func (s *InMemoryAccountStore) ListBanned(_ context.Context, filter *BannedFilter, page, pageSize int) ([]*models.Account, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Account
	for _, account := range s.accounts {
		if !account.Banned || !matchesBannedFilter(account, filter) {
			continue
		}
		copied := *account
		matched = append(matched, &copied)
	}

	// BanEndsAt ascending, permanent (nil expiry) last, ID as tiebreaker so
	// paging is deterministic.
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].BanEndsAt, matched[j].BanEndsAt
		switch {
		case a == nil && b == nil:
			return matched[i].ID.String() < matched[j].ID.String()
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return matched[i].ID.String() < matched[j].ID.String()
		default:
			return a.Before(*b)
		}
	})

	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func matchesBannedFilter(account *models.Account, filter *BannedFilter) bool {
	if filter == nil {
		return true
	}
	if filter.PermanentOnly {
		return account.BanEndsAt == nil
	}
	if account.BanEndsAt == nil {
		return false
	}
	if !account.BanEndsAt.After(filter.ExpiresAfter) {
		return false
	}
	if filter.ExpiresBefore != nil && !account.BanEndsAt.Before(*filter.ExpiresBefore) {
		return false
	}
	return true
}

func (s *InMemoryAccountStore) CountCreatedAfter(_ context.Context, t time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, account := range s.accounts {
		if account.CreatedAt.After(t) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryAccountStore) ListCreatedBetween(_ context.Context, start, end time.Time) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Account
	for _, account := range s.accounts {
		if account.CreatedAt.Before(start) || !account.CreatedAt.Before(end) {
			continue
		}
		copied := *account
		matched = append(matched, &copied)
	}
	return matched, nil
}

func (s *InMemoryAccountStore) CountAll(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.accounts)), nil
}

func (s *InMemoryAccountStore) CountBanned(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, account := range s.accounts {
		if account.Banned {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryAccountStore) CountActiveInPeriod(_ context.Context, cohortStart, cohortEnd, activityStart, activityEnd time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, account := range s.accounts {
		if account.LastActiveAt == nil {
			continue
		}
		if betweenInclusive(account.CreatedAt, cohortStart, cohortEnd) &&
			betweenInclusive(*account.LastActiveAt, activityStart, activityEnd) {
			count++
		}
	}
	return count, nil
}

func betweenInclusive(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
