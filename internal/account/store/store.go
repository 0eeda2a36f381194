// Package store persists accounts. Stores are pure I/O; restriction rules and
// filter construction belong to the service layer.
package store

import (
	"context"
	"time"

	"warden/internal/account/models"
	id "warden/pkg/domain"
	pkgerrors "warden/pkg/platform/sentinel"
)

// ErrNotFound keeps storage-specific lookups consistent across in-memory and
// postgres implementations.
var ErrNotFound = pkgerrors.ErrNotFound

// BannedFilter narrows a banned-account listing. A nil filter matches every
// banned account.
type BannedFilter struct {
	// PermanentOnly selects restrictions with no expiry.
	PermanentOnly bool
	// ExpiresAfter / ExpiresBefore bound the expiry instant (both exclusive)
	// for temporal restrictions. Ignored when PermanentOnly is set.
	ExpiresAfter  time.Time
	ExpiresBefore *time.Time
}

// AccountStore is the persistence port for accounts.
//
// ListBanned returns banned accounts ordered by BanEndsAt ascending with
// permanent restrictions (nil expiry) last, ties broken by account ID, plus
// the total match count for paging. Page numbering starts at 1.
type AccountStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.Account, error)
	Save(ctx context.Context, account *models.Account) error
	ListBanned(ctx context.Context, filter *BannedFilter, page, pageSize int) ([]*models.Account, int, error)
	CountCreatedAfter(ctx context.Context, t time.Time) (int64, error)
	ListCreatedBetween(ctx context.Context, start, end time.Time) ([]*models.Account, error)
	CountAll(ctx context.Context) (int64, error)
	CountBanned(ctx context.Context) (int64, error)
	CountActiveInPeriod(ctx context.Context, cohortStart, cohortEnd, activityStart, activityEnd time.Time) (int64, error)
}
