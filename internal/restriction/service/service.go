// Package service implements the ban lifecycle engine: imposing and lifting
// restrictions, stamping the audit trail, and fanning out notifications and
// lifecycle events. All state transitions for one account are serialized so
// the audit trail and the account row can never disagree.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	accountmodels "warden/internal/account/models"
	"warden/internal/account/store"
	"warden/internal/restriction/announcer"
	"warden/internal/restriction/metrics"
	"warden/internal/restriction/models"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/requestcontext"
)

const notifySubject = "Account restriction notice"

// Service orchestrates ban and unban transitions.
type Service struct {
	accounts AccountStore
	history  HistoryStore
	tx       TxRunner
	notifier Notifier
	announce Announcer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	locks    *accountLocks
}

// Option configures optional collaborators on the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithAnnouncer(a Announcer) Option {
	return func(s *Service) { s.announce = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) { s.tx = tx }
}

// New creates the lifecycle engine over the given stores. By default it runs
// without notifications, announcements or metrics and treats each store call
// as its own unit of work.
func New(accounts AccountStore, history HistoryStore, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		history:  history,
		tx:       PassthroughTx(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("warden/restriction"),
		locks:    newAccountLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ban imposes a restriction on the account. The account row and the imposed
// audit event are written in one unit of work; the owner notification and the
// lifecycle announcement happen after commit and never fail the ban.
func (s *Service) Ban(ctx context.Context, userID id.UserID, reason string, duration models.BanDuration) (*models.BanResult, error) {
	ctx, span := s.tracer.Start(ctx, "restriction.Ban",
		trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "ban reason is required")
	}
	if !duration.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid ban duration")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	account, err := s.findAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	endsAt := banEnd(duration, now)
	actor := requestcontext.Actor(ctx)

	event, err := models.NewImposedEvent(userID, reason, duration, actor, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		account.ApplyBan(reason, endsAt)
		if err := s.accounts.Save(ctx, account); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "save account")
		}
		if err := s.history.Append(ctx, event); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "append audit event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notified := s.notifyBan(ctx, account, reason, duration, endsAt)

	if s.metrics != nil {
		s.metrics.IncrementBans()
	}
	s.announceEvent(ctx, announcer.Event{
		Type:       string(models.BanEventImposed),
		UserID:     userID.String(),
		Reason:     reason,
		Duration:   duration.String(),
		BanEndsAt:  endsAt,
		Actor:      actor,
		OccurredAt: now,
	})

	s.logger.InfoContext(ctx, "restriction imposed",
		"user_id", userID.String(),
		"duration", duration.String(),
		"notified", notified,
	)

	return &models.BanResult{
		UserID:    userID,
		Duration:  duration.String(),
		Reason:    reason,
		BanEndsAt: endsAt,
		Notified:  notified,
	}, nil
}

// Unban lifts the restriction on a banned account. The lifted audit event is
// appended and the account fields cleared in one unit of work; if the append
// cannot be recorded the account stays banned.
func (s *Service) Unban(ctx context.Context, userID id.UserID, liftReason string) (*models.UnbanResult, error) {
	ctx, span := s.tracer.Start(ctx, "restriction.Unban",
		trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	actor := requestcontext.Actor(ctx)
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "operator identity is required to lift a restriction")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	account, err := s.findAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !account.Banned {
		return nil, dErrors.New(dErrors.CodeInvalidState, "account is not banned")
	}

	now := requestcontext.Now(ctx)
	closingReason, duration, imposedAt, err := s.openRestriction(ctx, account, now)
	if err != nil {
		return nil, err
	}

	event, err := models.NewLiftedEvent(userID, closingReason, duration, imposedAt, actor, liftReason, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.history.Append(ctx, event); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "append audit event")
		}
		account.ClearBan()
		if err := s.accounts.Save(ctx, account); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "save account")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementUnbans()
	}
	s.announceEvent(ctx, announcer.Event{
		Type:       string(models.BanEventLifted),
		UserID:     userID.String(),
		Reason:     closingReason,
		Duration:   duration.String(),
		Actor:      actor,
		LiftReason: liftReason,
		OccurredAt: now,
	})

	s.logger.InfoContext(ctx, "restriction lifted",
		"user_id", userID.String(),
		"actor", actor,
	)

	return &models.UnbanResult{
		UserID:        userID,
		ClearedReason: closingReason,
	}, nil
}

// History returns the full audit trail for one account, newest restriction
// first. Unknown accounts are rejected before touching the trail.
func (s *Service) History(ctx context.Context, userID id.UserID) ([]*models.BanEvent, error) {
	ctx, span := s.tracer.Start(ctx, "restriction.History",
		trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if _, err := s.findAccount(ctx, userID); err != nil {
		return nil, err
	}

	events, err := s.history.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list audit events")
	}
	return events, nil
}

func (s *Service) findAccount(ctx context.Context, userID id.UserID) (*accountmodels.Account, error) {
	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "find account")
	}
	return account, nil
}

// openRestriction recovers the reason, duration and imposition instant of the
// restriction currently on the account, preferring the latest imposed audit
// event. Accounts banned before the audit trail existed get an approximation:
// permanent when there is no expiry, otherwise the expiry minus seven days.
func (s *Service) openRestriction(ctx context.Context, account *accountmodels.Account, now time.Time) (string, models.BanDuration, time.Time, error) {
	events, err := s.history.ListByUser(ctx, account.ID)
	if err != nil {
		return "", "", time.Time{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "list audit events")
	}
	for _, event := range events {
		if event.Type == models.BanEventImposed {
			return event.Reason, event.Duration, event.ImposedAt, nil
		}
	}

	reason := ""
	if account.BanReason != nil {
		reason = *account.BanReason
	}
	if account.BanEndsAt == nil {
		return reason, models.BanDurationPermanent, now, nil
	}
	return reason, models.BanDuration7Days, account.BanEndsAt.AddDate(0, 0, -7), nil
}

func (s *Service) notifyBan(ctx context.Context, account *accountmodels.Account, reason string, duration models.BanDuration, endsAt *time.Time) bool {
	if s.notifier == nil {
		return false
	}
	body := "Your account has been restricted (" + duration.Label() + ") for the following reason:\n" + reason + "\n\n"
	if endsAt != nil {
		body += "Your account will be reactivated on " + endsAt.Format("02/01/2006 at 15:04") + "."
	} else {
		body += "This restriction is permanent."
	}
	if err := s.notifier.Send(ctx, account.Email, notifySubject, body); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementNotifyFailures()
		}
		s.logger.WarnContext(ctx, "ban notification failed",
			"user_id", account.ID.String(),
			"error", err,
		)
		return false
	}
	return true
}

func (s *Service) announceEvent(ctx context.Context, event announcer.Event) {
	if s.announce == nil {
		return
	}
	s.announce.Announce(ctx, event)
}

// banEnd resolves the expiry for a duration at the given instant. Permanent
// restrictions have no expiry.
func banEnd(duration models.BanDuration, now time.Time) *time.Time {
	days, ok := duration.Days()
	if !ok {
		return nil
	}
	endsAt := now.AddDate(0, 0, days)
	return &endsAt
}
