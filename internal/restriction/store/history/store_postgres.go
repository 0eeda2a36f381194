package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"warden/internal/restriction/models"
	id "warden/pkg/domain"
	txcontext "warden/pkg/platform/tx"
)

// PostgresStore persists ban events in PostgreSQL. Append participates in a
// context transaction when one is present, which the unban path relies on to
// keep the audit append and the state clear atomic.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event *models.BanEvent) error {
	query := `
		INSERT INTO ban_events (id, user_id, event_type, reason, duration, imposed_at, lifted_at, actor, lift_reason, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(event.ID),
		uuid.UUID(event.UserID),
		string(event.Type),
		event.Reason,
		string(event.Duration),
		event.ImposedAt,
		event.LiftedAt,
		event.Actor,
		event.LiftReason,
		event.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("append ban event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.BanEvent, error) {
	query := `
		SELECT id, user_id, event_type, reason, duration, imposed_at, lifted_at, actor, lift_reason, recorded_at
		FROM ban_events
		WHERE user_id = $1
		ORDER BY imposed_at DESC, recorded_at DESC
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list ban events: %w", err)
	}
	defer rows.Close()

	var events []*models.BanEvent
	for rows.Next() {
		var (
			event     models.BanEvent
			eventID   uuid.UUID
			accountID uuid.UUID
			eventType string
			duration  string
		)
		if err := rows.Scan(
			&eventID,
			&accountID,
			&eventType,
			&event.Reason,
			&duration,
			&event.ImposedAt,
			&event.LiftedAt,
			&event.Actor,
			&event.LiftReason,
			&event.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ban event: %w", err)
		}
		event.ID = id.EventID(eventID)
		event.UserID = id.UserID(accountID)
		event.Type = models.BanEventType(eventType)
		event.Duration = models.BanDuration(duration)
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ban events: %w", err)
	}
	return events, nil
}
