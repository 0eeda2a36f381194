package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	accountmodels "warden/internal/account/models"
	accountstore "warden/internal/account/store"
	"warden/internal/restriction/mocks"
	"warden/internal/restriction/models"
	"warden/internal/restriction/store/history"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/requestcontext"
)

type serviceFixture struct {
	accounts *accountstore.InMemoryAccountStore
	history  *history.InMemoryStore
	notifier *mocks.MockNotifier
	service  *Service
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	accounts := accountstore.NewInMemory()
	hist := history.NewInMemory()
	svc := New(accounts, hist, WithNotifier(notifier))
	return &serviceFixture{
		accounts: accounts,
		history:  hist,
		notifier: notifier,
		service:  svc,
	}
}

func (f *serviceFixture) seedAccount(t *testing.T, email string) id.UserID {
	t.Helper()
	userID, err := id.ParseUserID("b3b9c0de-0000-4000-8000-000000000001")
	require.NoError(t, err)
	account, err := accountmodels.New(userID, "marc", email, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, f.accounts.Save(context.Background(), account))
	return userID
}

func operatorCtx(now time.Time) context.Context {
	ctx := requestcontext.WithActor(context.Background(), "ops@example.com")
	return requestcontext.WithTime(ctx, now)
}

func TestBan_TemporalSetsExpiryAndNotifies(t *testing.T) {
	f := newFixture(t)
	userID := f.seedAccount(t, "marc@example.com")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ctx := operatorCtx(now)

	f.notifier.EXPECT().
		Send(gomock.Any(), "marc@example.com", gomock.Any(), gomock.Any()).
		Return(nil)

	result, err := f.service.Ban(ctx, userID, "spam", models.BanDuration7Days)
	require.NoError(t, err)

	require.NotNil(t, result.BanEndsAt)
	assert.Equal(t, time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC), *result.BanEndsAt)
	assert.True(t, result.Notified)

	account, err := f.accounts.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, account.Banned)
	require.NotNil(t, account.BanReason)
	assert.Equal(t, "spam", *account.BanReason)

	events, err := f.history.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.BanEventImposed, events[0].Type)
	assert.Equal(t, "ops@example.com", events[0].Actor)
	assert.Equal(t, now, events[0].ImposedAt)
}

func TestBan_PermanentHasNoExpiry(t *testing.T) {
	f := newFixture(t)
	userID := f.seedAccount(t, "marc@example.com")
	ctx := operatorCtx(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	f.notifier.EXPECT().
		Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	result, err := f.service.Ban(ctx, userID, "fraud", models.BanDurationPermanent)
	require.NoError(t, err)
	assert.Nil(t, result.BanEndsAt)

	account, err := f.accounts.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, account.Banned)
	assert.Nil(t, account.BanEndsAt)
}

func TestBan_NotificationNamesDurationAndExpiry(t *testing.T) {
	f := newFixture(t)
	userID := f.seedAccount(t, "marc@example.com")
	ctx := operatorCtx(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	var body string
	f.notifier.EXPECT().
		Send(gomock.Any(), "marc@example.com", notifySubject, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, b string) error {
			body = b
			return nil
		})

	_, err := f.service.Ban(ctx, userID, "spam", models.BanDuration30Days)
	require.NoError(t, err)

	assert.Contains(t, body, "30-day ban")
	assert.Contains(t, body, "spam")
	assert.Contains(t, body, "31/01/2024")
}

func TestBan_NotificationFailureDoesNotFailBan(t *testing.T) {
	f := newFixture(t)
	userID := f.seedAccount(t, "marc@example.com")
	ctx := operatorCtx(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	f.notifier.EXPECT().
		Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("smtp relay down"))

	result, err := f.service.Ban(ctx, userID, "spam", models.BanDuration30Days)
	require.NoError(t, err)
	assert.False(t, result.Notified)

	account, err := f.accounts.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, account.Banned)
}

func TestBan_ValidationAndUnknownAccount(t *testing.T) {
	f := newFixture(t)
	ctx := operatorCtx(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	userID, err := id.ParseUserID("b3b9c0de-0000-4000-8000-0000000000ff")
	require.NoError(t, err)

	_, err = f.service.Ban(ctx, userID, "", models.BanDuration7Days)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = f.service.Ban(ctx, userID, "spam", models.BanDuration("48h"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = f.service.Ban(ctx, userID, "spam", models.BanDuration7Days)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestUnban_ClearsStateAndRecordsLiftedEvent(t *testing.T) {
	f := newFixture(t)
	userID := f.seedAccount(t, "marc@example.com")
	imposedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	f.notifier.EXPECT().
		Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	_, err := f.service.Ban(operatorCtx(imposedAt), userID, "spam", models.BanDuration7Days)
	require.NoError(t, err)

	liftedAt := imposedAt.AddDate(0, 0, 3)
	result, err := f.service.Unban(operatorCtx(liftedAt), userID, "appeal accepted")
	require.NoError(t, err)
	assert.Equal(t, "spam", result.ClearedReason)

	account, err := f.accounts.FindByID(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, account.Banned)
	assert.Nil(t, account.BanReason)
	assert.Nil(t, account.BanEndsAt)

	events, err := f.history.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 2)

	var lifted *models.BanEvent
	for _, event := range events {
		if event.Type == models.BanEventLifted {
			lifted = event
		}
	}
	require.NotNil(t, lifted)
	assert.Equal(t, imposedAt, lifted.ImposedAt)
	require.NotNil(t, lifted.LiftedAt)
	assert.Equal(t, liftedAt, *lifted.LiftedAt)
	assert.Equal(t, "ops@example.com", lifted.Actor)
	require.NotNil(t, lifted.LiftReason)
	assert.Equal(t, "appeal accepted", *lifted.LiftReason)
}

func TestUnban_NotBannedIsRejected(t *testing.T) {
	f := newFixture(t)
	userID := f.seedAccount(t, "marc@example.com")
	ctx := operatorCtx(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := f.service.Unban(ctx, userID, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestUnban_SecondLiftIsRejected(t *testing.T) {
	f := newFixture(t)
	userID := f.seedAccount(t, "marc@example.com")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	f.notifier.EXPECT().
		Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	_, err := f.service.Ban(operatorCtx(now), userID, "spam", models.BanDuration7Days)
	require.NoError(t, err)

	_, err = f.service.Unban(operatorCtx(now.Add(time.Hour)), userID, "")
	require.NoError(t, err)

	_, err = f.service.Unban(operatorCtx(now.Add(2*time.Hour)), userID, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	events, err := f.history.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	var liftedCount int
	for _, event := range events {
		if event.Type == models.BanEventLifted {
			liftedCount++
		}
	}
	assert.Equal(t, 1, liftedCount, "a restriction is closed exactly once")
}

// failingHistoryStore rejects appends on demand while leaving reads intact.
type failingHistoryStore struct {
	*history.InMemoryStore
	failAppend bool
}

func (s *failingHistoryStore) Append(ctx context.Context, event *models.BanEvent) error {
	if s.failAppend {
		return errors.New("audit storage down")
	}
	return s.InMemoryStore.Append(ctx, event)
}

func TestUnban_HistoryAppendFailureKeepsAccountBanned(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	accounts := accountstore.NewInMemory()
	hist := &failingHistoryStore{InMemoryStore: history.NewInMemory()}
	svc := New(accounts, hist, WithNotifier(notifier))

	userID, err := id.ParseUserID("b3b9c0de-0000-4000-8000-000000000001")
	require.NoError(t, err)
	account, err := accountmodels.New(userID, "marc", "marc@example.com", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, accounts.Save(context.Background(), account))

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	notifier.EXPECT().
		Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	_, err = svc.Ban(operatorCtx(now), userID, "spam", models.BanDuration7Days)
	require.NoError(t, err)

	hist.failAppend = true
	_, err = svc.Unban(operatorCtx(now.Add(time.Hour)), userID, "appeal accepted")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

	got, err := accounts.FindByID(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, got.Banned, "a lift that cannot be recorded must not clear the account")
	require.NotNil(t, got.BanReason)
	assert.Equal(t, "spam", *got.BanReason)
	assert.NotNil(t, got.BanEndsAt)
}

func TestUnban_RequiresOperatorIdentity(t *testing.T) {
	f := newFixture(t)
	userID := f.seedAccount(t, "marc@example.com")
	ctx := requestcontext.WithTime(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := f.service.Unban(ctx, userID, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestUnban_ApproximatesLegacyRestriction(t *testing.T) {
	// Accounts banned before the audit trail existed have no imposed event;
	// the lifted event gets an approximated imposition instant.
	f := newFixture(t)
	userID := f.seedAccount(t, "marc@example.com")

	account, err := f.accounts.FindByID(context.Background(), userID)
	require.NoError(t, err)
	endsAt := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	account.ApplyBan("legacy", &endsAt)
	require.NoError(t, f.accounts.Save(context.Background(), account))

	now := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	result, err := f.service.Unban(operatorCtx(now), userID, "")
	require.NoError(t, err)
	assert.Equal(t, "legacy", result.ClearedReason)

	events, err := f.history.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.BanEventLifted, events[0].Type)
	assert.Equal(t, endsAt.AddDate(0, 0, -7), events[0].ImposedAt)
}

func TestHistory_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	userID, err := id.ParseUserID("b3b9c0de-0000-4000-8000-0000000000aa")
	require.NoError(t, err)

	_, err = f.service.History(context.Background(), userID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestHistory_NewestRestrictionFirst(t *testing.T) {
	f := newFixture(t)
	userID := f.seedAccount(t, "marc@example.com")

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	f.notifier.EXPECT().
		Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).
		Times(2)

	_, err := f.service.Ban(operatorCtx(first), userID, "first offence", models.BanDuration7Days)
	require.NoError(t, err)
	_, err = f.service.Unban(operatorCtx(first.AddDate(0, 0, 2)), userID, "")
	require.NoError(t, err)
	_, err = f.service.Ban(operatorCtx(second), userID, "second offence", models.BanDuration30Days)
	require.NoError(t, err)

	events, err := f.service.History(operatorCtx(second), userID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "second offence", events[0].Reason)
}
