//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"warden/internal/account/models"
	"warden/internal/account/store"
	id "warden/pkg/domain"
	"warden/pkg/testutil/containers"
)

type PostgresAccountSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresAccountStore
}

func TestPostgresAccountSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAccountSuite))
}

func (s *PostgresAccountSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresAccountSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "accounts"))
}

func (s *PostgresAccountSuite) newAccount(createdAt time.Time) *models.Account {
	userID, err := id.ParseUserID(uuid.NewString())
	s.Require().NoError(err)
	account, err := models.New(userID, "user-"+userID.String()[:8], userID.String()[:8]+"@example.com", createdAt)
	s.Require().NoError(err)
	return account
}

func (s *PostgresAccountSuite) TestSaveAndFindRoundtrip() {
	ctx := context.Background()
	createdAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	account := s.newAccount(createdAt)
	endsAt := createdAt.AddDate(0, 0, 7)
	account.ApplyBan("spam", &endsAt)

	s.Require().NoError(s.store.Save(ctx, account))

	found, err := s.store.FindByID(ctx, account.ID)
	s.Require().NoError(err)
	s.Equal(account.ID, found.ID)
	s.Equal(account.Username, found.Username)
	s.True(found.Banned)
	s.Require().NotNil(found.BanReason)
	s.Equal("spam", *found.BanReason)
	s.Require().NotNil(found.BanEndsAt)
	s.True(endsAt.Equal(found.BanEndsAt.UTC()))
}

func (s *PostgresAccountSuite) TestFindMissingReturnsNotFound() {
	userID, err := id.ParseUserID(uuid.NewString())
	s.Require().NoError(err)

	_, err = s.store.FindByID(context.Background(), userID)
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresAccountSuite) TestSaveIsUpsert() {
	ctx := context.Background()
	account := s.newAccount(time.Now().UTC())
	s.Require().NoError(s.store.Save(ctx, account))

	account.ApplyBan("fraud", nil)
	s.Require().NoError(s.store.Save(ctx, account))

	found, err := s.store.FindByID(ctx, account.ID)
	s.Require().NoError(err)
	s.True(found.Banned)
	s.Nil(found.BanEndsAt)
}

func (s *PostgresAccountSuite) TestListBannedOrderingAndPaging() {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	permanent := s.newAccount(now)
	permanent.ApplyBan("fraud", nil)
	s.Require().NoError(s.store.Save(ctx, permanent))

	later := s.newAccount(now)
	laterEnd := now.AddDate(0, 0, 20)
	later.ApplyBan("abuse", &laterEnd)
	s.Require().NoError(s.store.Save(ctx, later))

	soon := s.newAccount(now)
	soonEnd := now.AddDate(0, 0, 2)
	soon.ApplyBan("spam", &soonEnd)
	s.Require().NoError(s.store.Save(ctx, soon))

	clean := s.newAccount(now)
	s.Require().NoError(s.store.Save(ctx, clean))

	accounts, total, err := s.store.ListBanned(ctx, nil, 1, 10)
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(accounts, 3)
	s.Equal(soon.ID, accounts[0].ID)
	s.Equal(later.ID, accounts[1].ID)
	s.Equal(permanent.ID, accounts[2].ID)

	firstPage, total, err := s.store.ListBanned(ctx, nil, 1, 2)
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Len(firstPage, 2)

	secondPage, _, err := s.store.ListBanned(ctx, nil, 2, 2)
	s.Require().NoError(err)
	s.Require().Len(secondPage, 1)
	s.Equal(permanent.ID, secondPage[0].ID)
}

func (s *PostgresAccountSuite) TestListBannedFilters() {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	permanent := s.newAccount(now)
	permanent.ApplyBan("fraud", nil)
	s.Require().NoError(s.store.Save(ctx, permanent))

	temporal := s.newAccount(now)
	endsAt := now.AddDate(0, 0, 5)
	temporal.ApplyBan("spam", &endsAt)
	s.Require().NoError(s.store.Save(ctx, temporal))

	permOnly, _, err := s.store.ListBanned(ctx, &store.BannedFilter{PermanentOnly: true}, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(permOnly, 1)
	s.Nil(permOnly[0].BanEndsAt)

	window := now.AddDate(0, 0, 7)
	temporalOnly, _, err := s.store.ListBanned(ctx, &store.BannedFilter{
		ExpiresAfter:  now,
		ExpiresBefore: &window,
	}, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(temporalOnly, 1)
	s.Equal(temporal.ID, temporalOnly[0].ID)
}

func (s *PostgresAccountSuite) TestCreationCounts() {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Save(ctx, s.newAccount(base)))
	s.Require().NoError(s.store.Save(ctx, s.newAccount(base.AddDate(0, 0, 10))))
	s.Require().NoError(s.store.Save(ctx, s.newAccount(base.AddDate(0, 1, 0))))

	count, err := s.store.CountCreatedAfter(ctx, base.AddDate(0, 0, 5))
	s.Require().NoError(err)
	s.Equal(int64(2), count)

	between, err := s.store.ListCreatedBetween(ctx, base, base.AddDate(0, 0, 15))
	s.Require().NoError(err)
	s.Len(between, 2)

	all, err := s.store.CountAll(ctx)
	s.Require().NoError(err)
	s.Equal(int64(3), all)
}
