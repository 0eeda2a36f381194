// Package history persists the append-only ban lifecycle audit trail.
// No update or delete operation is exposed; ordering within one account is
// guaranteed by the service serializing mutations per account.
package history

import (
	"context"

	"warden/internal/restriction/models"
	id "warden/pkg/domain"
)

// Store is the persistence port for ban events.
//
// ListByUser returns events newest-first by ImposedAt (RecordedAt as
// tiebreaker) so the most recent restriction leads the history view.
type Store interface {
	Append(ctx context.Context, event *models.BanEvent) error
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.BanEvent, error)
}
