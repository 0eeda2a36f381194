//go:build integration

package otp_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/internal/otp"
	"warden/internal/platform/redis"
	"warden/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *otp.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = otp.NewRedisStore(&redis.Client{Client: s.redis.Client})
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestPutAndConsume() {
	ctx := context.Background()

	s.Require().NoError(s.store.Put(ctx, "marc@example.com", "123456", time.Minute))

	code, err := s.store.Consume(ctx, "marc@example.com")
	s.Require().NoError(err)
	s.Equal("123456", code)
}

func (s *RedisStoreSuite) TestConsumeIsDestructive() {
	ctx := context.Background()

	s.Require().NoError(s.store.Put(ctx, "marc@example.com", "123456", time.Minute))

	_, err := s.store.Consume(ctx, "marc@example.com")
	s.Require().NoError(err)

	_, err = s.store.Consume(ctx, "marc@example.com")
	s.ErrorIs(err, otp.ErrNotFound)
}

func (s *RedisStoreSuite) TestConsumeMissingKey() {
	_, err := s.store.Consume(context.Background(), "nobody@example.com")
	s.ErrorIs(err, otp.ErrNotFound)
}

func (s *RedisStoreSuite) TestCodeExpires() {
	ctx := context.Background()

	s.Require().NoError(s.store.Put(ctx, "marc@example.com", "123456", time.Second))

	s.Eventually(func() bool {
		_, err := s.store.Consume(ctx, "marc@example.com")
		return errors.Is(err, otp.ErrNotFound)
	}, 5*time.Second, 200*time.Millisecond)
}

func (s *RedisStoreSuite) TestFreshRequestReplacesCode() {
	ctx := context.Background()

	s.Require().NoError(s.store.Put(ctx, "marc@example.com", "111111", time.Minute))
	s.Require().NoError(s.store.Put(ctx, "marc@example.com", "222222", time.Minute))

	code, err := s.store.Consume(ctx, "marc@example.com")
	s.Require().NoError(err)
	s.Equal("222222", code)
}
