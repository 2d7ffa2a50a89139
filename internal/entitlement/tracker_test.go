package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

func TestReserve(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		used     int
		wantUsed int
		wantErr  error
	}{
		{name: "first session", total: 5, used: 0, wantUsed: 1},
		{name: "last session", total: 5, used: 4, wantUsed: 5},
		{name: "exhausted", total: 5, used: 5, wantUsed: 5, wantErr: apperr.ErrEntitlementExhausted},
		{name: "empty package", total: 0, used: 0, wantUsed: 0, wantErr: apperr.ErrEntitlementExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := models.Subscription{ID: "s1", TotalSessions: tt.total, SessionsUsed: tt.used}
			got, err := Reserve(sub)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantUsed, got.SessionsUsed)
			assert.Equal(t, tt.used, sub.SessionsUsed, "input must not be mutated")
			assert.Equal(t, tt.total-got.SessionsUsed, Remaining(got))
		})
	}
}

func TestCanUpgrade(t *testing.T) {
	tests := []struct {
		tier   models.Tier
		status models.SubscriptionStatus
		want   bool
	}{
		{models.TierGuidance, models.SubscriptionActive, true},
		{models.TierPlanning, models.SubscriptionActive, true},
		{models.TierMentorship, models.SubscriptionActive, false},
		{models.TierGuidance, models.SubscriptionUpgraded, false},
		{models.TierGuidance, models.SubscriptionExpired, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier)+"/"+string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, CanUpgrade(models.Subscription{Tier: tt.tier, Status: tt.status}))
		})
	}
}

func TestNextTier(t *testing.T) {
	next, ok := NextTier(models.TierGuidance)
	assert.True(t, ok)
	assert.Equal(t, models.TierPlanning, next)

	next, ok = NextTier(models.TierPlanning)
	assert.True(t, ok)
	assert.Equal(t, models.TierMentorship, next)

	_, ok = NextTier(models.TierMentorship)
	assert.False(t, ok)
}

func TestRefundPolicy(t *testing.T) {
	start := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	window := RefundPolicy{Mode: RefundWindow, Window: 24 * time.Hour}

	assert.True(t, window.Refundable(start, start.Add(-48*time.Hour)))
	assert.True(t, window.Refundable(start, start.Add(-24*time.Hour)))
	assert.False(t, window.Refundable(start, start.Add(-time.Hour)))
	assert.True(t, RefundPolicy{Mode: RefundAlways}.Refundable(start, start))
	assert.False(t, RefundPolicy{Mode: RefundNever}.Refundable(start, start.Add(-72*time.Hour)))

	assert.NoError(t, window.Validate())
	assert.Error(t, RefundPolicy{Mode: "sometimes"}.Validate())
}

func TestRefund_NeverBelowZero(t *testing.T) {
	assert.Equal(t, 2, Refund(models.Subscription{SessionsUsed: 3}).SessionsUsed)
	assert.Equal(t, 0, Refund(models.Subscription{SessionsUsed: 0}).SessionsUsed)
}
