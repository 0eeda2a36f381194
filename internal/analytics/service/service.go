// Package service implements the read-only temporal query layer: filtered
// banned-account listings and account-creation analytics. It never writes to
// accounts or the audit trail.
package service

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"warden/internal/account/store"
	"warden/internal/analytics/models"
	restriction "warden/internal/restriction/models"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/requestcontext"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service answers analytics queries over the account store.
type Service struct {
	accounts store.AccountStore
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures optional collaborators on the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(accounts store.AccountStore, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		logger:   slog.Default(),
		tracer:   otel.Tracer("warden/analytics"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListBanned returns one page of banned accounts, optionally narrowed to a
// duration bucket. A permanent filter matches only restrictions without an
// expiry; a temporal filter matches expiries within (now, now + duration).
// Results are ordered by expiry ascending with permanent restrictions last.
func (s *Service) ListBanned(ctx context.Context, durationFilter *restriction.BanDuration, page, pageSize int) (*restriction.BannedAccountPage, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.ListBanned")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	now := requestcontext.Now(ctx)
	filter, err := bannedFilter(durationFilter, now)
	if err != nil {
		return nil, err
	}

	accounts, total, err := s.accounts.ListBanned(ctx, filter, page, pageSize)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list banned accounts")
	}

	result := &restriction.BannedAccountPage{
		Accounts: make([]restriction.BannedAccountSummary, 0, len(accounts)),
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
	for _, account := range accounts {
		reason := ""
		if account.BanReason != nil {
			reason = *account.BanReason
		}
		result.Accounts = append(result.Accounts, restriction.BannedAccountSummary{
			UserID:        account.ID,
			Username:      account.Username,
			Email:         account.Email,
			Reason:        reason,
			BanEndsAt:     account.BanEndsAt,
			RemainingTime: account.RemainingBanTime(now),
		})
	}
	return result, nil
}

func bannedFilter(durationFilter *restriction.BanDuration, now time.Time) (*store.BannedFilter, error) {
	if durationFilter == nil {
		return nil, nil
	}
	if !durationFilter.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid ban duration filter")
	}
	days, ok := durationFilter.Days()
	if !ok {
		return &store.BannedFilter{PermanentOnly: true}, nil
	}
	before := now.AddDate(0, 0, days)
	return &store.BannedFilter{ExpiresAfter: now, ExpiresBefore: &before}, nil
}

// CountCreatedAfter counts accounts created strictly after t.
func (s *Service) CountCreatedAfter(ctx context.Context, t time.Time) (int64, error) {
	count, err := s.accounts.CountCreatedAfter(ctx, t)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "count accounts")
	}
	return count, nil
}

// CountNewByPeriod counts accounts created within the period's lookback
// window ending at the request time.
func (s *Service) CountNewByPeriod(ctx context.Context, period models.Period) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.CountNewByPeriod")
	defer span.End()

	if _, err := models.ParsePeriod(string(period)); err != nil {
		return 0, err
	}
	now := requestcontext.Now(ctx)
	return s.CountCreatedAfter(ctx, period.WindowStart(now))
}

// GrowthPercentage compares the last seven days of signups against the seven
// days before them. A prior window of zero yields 100 when the current window
// has signups and 0 when it does not; otherwise the relative change is
// rounded half away from zero to two decimals.
func (s *Service) GrowthPercentage(ctx context.Context) (float64, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.GrowthPercentage")
	defer span.End()

	now := requestcontext.Now(ctx)
	current, err := s.CountCreatedAfter(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return 0, err
	}
	priorWindowTotal, err := s.CountCreatedAfter(ctx, now.AddDate(0, 0, -14))
	if err != nil {
		return 0, err
	}
	previous := priorWindowTotal - current

	if previous == 0 {
		if current > 0 {
			return 100.0, nil
		}
		return 0.0, nil
	}
	growth := float64(current-previous) / float64(previous) * 100
	return math.Round(growth*100) / 100, nil
}

// BucketedCounts groups account creations between start and end (inclusive
// dates) by day, week or month. Week buckets start on the previous-or-same
// Monday, month buckets on the first of the month. Entries are ordered by
// bucket date ascending.
func (s *Service) BucketedCounts(ctx context.Context, start, end time.Time, unit models.BucketUnit) ([]models.Bucket, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.BucketedCounts")
	defer span.End()

	if _, err := models.ParseBucketUnit(string(unit)); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "end date must not precede start date")
	}

	accounts, err := s.accounts.ListCreatedBetween(ctx, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list accounts")
	}

	counts := make(map[string]int)
	for _, account := range accounts {
		counts[bucketStart(account.CreatedAt, unit).Format("2006-01-02")]++
	}

	buckets := make([]models.Bucket, 0, len(counts))
	for date, count := range counts {
		buckets = append(buckets, models.Bucket{Date: date, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Date < buckets[j].Date })
	return buckets, nil
}

// bucketStart normalizes a creation instant to its bucket's first day in UTC.
func bucketStart(createdAt time.Time, unit models.BucketUnit) time.Time {
	day := createdAt.UTC().Truncate(24 * time.Hour)
	switch unit {
	case models.BucketWeek:
		// Monday-based weeks; Weekday() counts Sunday as 0.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case models.BucketMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// Snapshot reports the current account census.
func (s *Service) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.Snapshot")
	defer span.End()

	total, err := s.accounts.CountAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "count accounts")
	}
	banned, err := s.accounts.CountBanned(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "count banned accounts")
	}
	return &models.Snapshot{
		Total:  total,
		Banned: banned,
		Active: total - banned,
	}, nil
}

// ActiveInPeriod counts accounts from the cohort window that were last active
// within the activity window. Bounds are inclusive.
func (s *Service) ActiveInPeriod(ctx context.Context, cohortStart, cohortEnd, activityStart, activityEnd time.Time) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.ActiveInPeriod")
	defer span.End()

	if cohortEnd.Before(cohortStart) || activityEnd.Before(activityStart) {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "period end cannot precede its start")
	}

	count, err := s.accounts.CountActiveInPeriod(ctx, cohortStart, cohortEnd, activityStart, activityEnd)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "count active accounts")
	}
	return count, nil
}
