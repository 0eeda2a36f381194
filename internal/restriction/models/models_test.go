package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
)

func TestParseBanDuration(t *testing.T) {
	t.Run("accepts supported variants", func(t *testing.T) {
		for _, raw := range []string{"7d", "30d", "permanent"} {
			d, err := ParseBanDuration(raw)
			require.NoError(t, err)
			assert.True(t, d.IsValid())
		}
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseBanDuration("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects unknown", func(t *testing.T) {
		_, err := ParseBanDuration("14d")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestBanDurationDays(t *testing.T) {
	days, ok := BanDuration7Days.Days()
	assert.True(t, ok)
	assert.Equal(t, 7, days)

	days, ok = BanDuration30Days.Days()
	assert.True(t, ok)
	assert.Equal(t, 30, days)

	_, ok = BanDurationPermanent.Days()
	assert.False(t, ok)
}

func TestNewLiftedEvent_RequiresActor(t *testing.T) {
	now := time.Now()
	_, err := NewLiftedEvent(id.UserID(uuid.New()), "spam", BanDuration7Days, now.AddDate(0, 0, -7), "", "appeal accepted", now)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestNewImposedEvent_RequiresReason(t *testing.T) {
	_, err := NewImposedEvent(id.UserID(uuid.New()), "", BanDuration7Days, "ops.alice", time.Now())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
