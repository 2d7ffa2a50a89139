package subscription

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
	"github.com/magabrotheeeer/mentorship-booking/internal/storage/memstore"
)

type MetricsMock struct{ mock.Mock }

func (m *MetricsMock) Upgrade(err error) { m.Called(err) }

var now = time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*UpgradeService, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	for _, p := range []models.Package{
		{ID: "early-guidance", Tier: models.TierGuidance, Segment: models.SegmentEarlyCareer, TotalSessions: 2},
		{ID: "early-planning", Tier: models.TierPlanning, Segment: models.SegmentEarlyCareer, TotalSessions: 5},
		{ID: "early-mentorship", Tier: models.TierMentorship, Segment: models.SegmentEarlyCareer, TotalSessions: 10},
		{ID: "mid-guidance", Tier: models.TierGuidance, Segment: models.SegmentMidCareer, TotalSessions: 2},
		{ID: "mid-planning", Tier: models.TierPlanning, Segment: models.SegmentMidCareer, TotalSessions: 5},
		{ID: "early-planning-small", Tier: models.TierPlanning, Segment: models.SegmentEarlyCareer, TotalSessions: 1},
	} {
		store.AddPackage(p)
	}

	metrics := &MetricsMock{}
	metrics.On("Upgrade", mock.Anything).Return()

	svc := NewUpgradeService(store, 720*time.Hour, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return now }
	return svc, store
}

func addSub(store *memstore.Store, id, userID string, tier models.Tier, segment models.Segment, pkgID string, used int, expires *time.Time) {
	store.AddSubscription(models.Subscription{
		ID:            id,
		UserID:        userID,
		PackageID:     pkgID,
		Tier:          tier,
		Segment:       segment,
		Status:        models.SubscriptionActive,
		TotalSessions: 2,
		SessionsUsed:  used,
		CurrentPhase:  2,
		PurchasedAt:   now.AddDate(0, -1, 0),
		ExpiresAt:     expires,
	})
}

func activeCount(store *memstore.Store, userID string) int {
	_, subs := store.Snapshot()
	n := 0
	for _, s := range subs {
		if s.UserID == userID && s.Status == models.SubscriptionActive {
			n++
		}
	}
	return n
}

func TestUpgrade_Ordering(t *testing.T) {
	tests := []struct {
		name     string
		tier     models.Tier
		segment  models.Segment
		pkg      string
		target   string
		used     int
		wantErr  error
		wantTier models.Tier
		noActive bool
	}{
		{name: "guidance to planning", tier: models.TierGuidance, segment: models.SegmentEarlyCareer, pkg: "early-guidance", target: "early-planning", wantTier: models.TierPlanning},
		{name: "guidance to mentorship skips a tier", tier: models.TierGuidance, segment: models.SegmentEarlyCareer, pkg: "early-guidance", target: "early-mentorship", wantTier: models.TierMentorship},
		{name: "planning to guidance", tier: models.TierPlanning, segment: models.SegmentEarlyCareer, pkg: "early-planning", target: "early-guidance", wantErr: apperr.ErrUpgradeIneligible},
		{name: "same tier", tier: models.TierPlanning, segment: models.SegmentEarlyCareer, pkg: "early-planning", target: "early-planning", wantErr: apperr.ErrUpgradeIneligible},
		{name: "mentorship cannot upgrade", tier: models.TierMentorship, segment: models.SegmentEarlyCareer, pkg: "early-mentorship", target: "early-mentorship", wantErr: apperr.ErrUpgradeIneligible},
		{name: "segment mismatch", tier: models.TierGuidance, segment: models.SegmentMidCareer, pkg: "mid-guidance", target: "early-planning", wantErr: apperr.ErrUpgradeIneligible},
		{name: "fewer sessions than used", tier: models.TierGuidance, segment: models.SegmentEarlyCareer, pkg: "early-guidance", target: "early-planning-small", used: 2, wantErr: apperr.ErrUpgradeIneligible},
		{name: "unknown package", tier: models.TierGuidance, segment: models.SegmentEarlyCareer, pkg: "early-guidance", target: "nope", wantErr: apperr.ErrNotFound},
		{name: "no active subscription", target: "early-planning", wantErr: apperr.ErrNotFound, noActive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			if !tt.noActive {
				addSub(store, "old", "u1", tt.tier, tt.segment, tt.pkg, tt.used, nil)
			}

			got, err := svc.Upgrade(context.Background(), "u1", tt.target)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				if !tt.noActive {
					assert.Equal(t, 1, activeCount(store, "u1"), "failed upgrade must keep the old subscription active")
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, models.SubscriptionActive, got.Status)
			assert.Equal(t, tt.used, got.SessionsUsed)
			assert.Equal(t, 2, got.CurrentPhase)
			assert.Equal(t, "old", got.UpgradedFrom)
			assert.Equal(t, 1, activeCount(store, "u1"))

			_, subs := store.Snapshot()
			for _, s := range subs {
				if s.ID == "old" {
					assert.Equal(t, models.SubscriptionUpgraded, s.Status)
				}
			}
		})
	}
}

func TestUpgrade_ExpiryCarriesRemainingDays(t *testing.T) {
	svc, store := newTestService(t)
	oldExpiry := now.Add(10*24*time.Hour + time.Hour)
	addSub(store, "old", "u1", models.TierGuidance, models.SegmentEarlyCareer, "early-guidance", 1, &oldExpiry)

	got, err := svc.Upgrade(context.Background(), "u1", "early-planning")
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)

	want := now.Add(11*24*time.Hour + 720*time.Hour)
	assert.True(t, want.Equal(*got.ExpiresAt), "want %s got %s", want, got.ExpiresAt)
	assert.Equal(t, 5, got.TotalSessions)
	assert.Equal(t, 1, got.SessionsUsed)
}

func TestUpgrade_ExpiredSubscription(t *testing.T) {
	svc, store := newTestService(t)
	expired := now.Add(-time.Hour)
	addSub(store, "old", "u1", models.TierGuidance, models.SegmentEarlyCareer, "early-guidance", 0, &expired)

	_, err := svc.Upgrade(context.Background(), "u1", "early-planning")
	assert.ErrorIs(t, err, apperr.ErrUpgradeIneligible)
}

func TestUpgrade_ConcurrentKeepsSingleActive(t *testing.T) {
	svc, store := newTestService(t)
	addSub(store, "old", "u1", models.TierGuidance, models.SegmentEarlyCareer, "early-guidance", 0, nil)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := "early-planning"
			if i%2 == 0 {
				target = "early-mentorship"
			}
			if _, err := svc.Upgrade(context.Background(), "u1", target); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, succeeded, 1)
	assert.LessOrEqual(t, succeeded, 2)
	assert.Equal(t, 1, activeCount(store, "u1"))
}

func TestRemainingDays(t *testing.T) {
	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }
	tests := []struct {
		name    string
		expires *time.Time
		want    int
	}{
		{"no expiry", nil, 0},
		{"already expired", at(-48 * time.Hour), 0},
		{"exactly now", at(0), 0},
		{"one minute left rounds up", at(time.Minute), 1},
		{"exact days", at(72 * time.Hour), 3},
		{"partial day rounds up", at(72*time.Hour + time.Second), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemainingDays(tt.expires, now))
		})
	}
}

func TestExpiresAt(t *testing.T) {
	assert.True(t, now.Add(720*time.Hour).Equal(ExpiresAt(now, nil, 720*time.Hour)))
}
