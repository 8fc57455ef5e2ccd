package domain_test

import (
	"testing"
	"time"

	"github.com/pixamint/credit_ledger_app/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateExpiration(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	t.Run("NonPositiveValidityNeverExpires", func(t *testing.T) {
		assert.Nil(t, domain.CalculateExpiration(0, nil, now))
		assert.Nil(t, domain.CalculateExpiration(-1, nil, now))
		// A period end does not override a non-expiring grant.
		assert.Nil(t, domain.CalculateExpiration(0, &periodEnd, now))
	})

	t.Run("PeriodEndWins", func(t *testing.T) {
		got := domain.CalculateExpiration(30, &periodEnd, now)
		require.NotNil(t, got)
		assert.True(t, got.Equal(periodEnd))
	})

	t.Run("ValidityDaysFromNow", func(t *testing.T) {
		got := domain.CalculateExpiration(30, nil, now)
		require.NotNil(t, got)
		assert.True(t, got.Equal(now.AddDate(0, 0, 30)))
	})

	t.Run("ReturnedPointerIsACopy", func(t *testing.T) {
		end := periodEnd
		got := domain.CalculateExpiration(30, &end, now)
		require.NotNil(t, got)
		end = end.AddDate(1, 0, 0)
		assert.True(t, got.Equal(periodEnd))
	})
}

func TestIsConsumable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	base := domain.CreditEntry{
		Type:      domain.TransactionTypeGrant,
		Status:    domain.CreditStatusActive,
		Remaining: 10,
	}

	t.Run("ActiveGrantWithRemaining", func(t *testing.T) {
		e := base
		assert.True(t, e.IsConsumable(now))

		e.ExpiresAt = &future
		assert.True(t, e.IsConsumable(now))
	})

	t.Run("ExpiredGrant", func(t *testing.T) {
		e := base
		e.ExpiresAt = &past
		assert.False(t, e.IsConsumable(now))
	})

	t.Run("ExpiryEqualToNowIsNotConsumable", func(t *testing.T) {
		e := base
		e.ExpiresAt = &now
		assert.False(t, e.IsConsumable(now))
	})

	t.Run("DrainedGrant", func(t *testing.T) {
		e := base
		e.Remaining = 0
		assert.False(t, e.IsConsumable(now))
	})

	t.Run("NonActiveStatuses", func(t *testing.T) {
		for _, status := range []domain.CreditStatus{domain.CreditStatusExpired, domain.CreditStatusDeleted, domain.CreditStatusRevoked} {
			e := base
			e.Status = status
			assert.False(t, e.IsConsumable(now), string(status))
		}
	})

	t.Run("ConsumeEntryIsNeverConsumable", func(t *testing.T) {
		e := base
		e.Type = domain.TransactionTypeConsume
		assert.False(t, e.IsConsumable(now))
	})
}
