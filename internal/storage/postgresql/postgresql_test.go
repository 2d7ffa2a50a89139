package postgresql

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
	"github.com/magabrotheeeer/mentorship-booking/internal/storage"
)

func TestStorage_Integration(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(s)
	require.NoError(t, s.CheckDatabaseReady(ctx))

	pkg := factory.CreatePackage(t, models.TierPlanning, 4)
	mentor := factory.CreateMentor(t)
	sub := factory.CreateSubscription(t, "user-1", pkg, 0)
	at := time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)

	t.Run("insert and read booking", func(t *testing.T) {
		b := NewBooking(sub, mentor.ID, at, 60)
		err := s.InTx(ctx, []storage.LockKey{storage.MentorLock(mentor.ID)}, func(ctx context.Context, tx storage.Tx) error {
			return tx.InsertBooking(ctx, b)
		})
		require.NoError(t, err)

		var got *models.Booking
		err = s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			var err error
			got, err = tx.GetBooking(ctx, b.ID)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, b.ScheduledAt, got.ScheduledAt)
		assert.Equal(t, models.BookingScheduled, got.Status)
		assert.Nil(t, got.Feedback)
	})

	t.Run("exclusion constraint rejects overlap", func(t *testing.T) {
		b := NewBooking(sub, mentor.ID, at.Add(30*time.Minute), 60)
		err := s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			return tx.InsertBooking(ctx, b)
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrConflict))
	})

	t.Run("adjacent booking is accepted", func(t *testing.T) {
		b := NewBooking(sub, mentor.ID, at.Add(time.Hour), 30)
		err := s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			return tx.InsertBooking(ctx, b)
		})
		require.NoError(t, err)
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		b := NewBooking(sub, mentor.ID, at.Add(48*time.Hour), 30)
		boom := errors.New("boom")
		err := s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			if err := tx.InsertBooking(ctx, b); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		err = s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			_, err := tx.GetBooking(ctx, b.ID)
			return err
		})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("feedback ratings and mentor rating", func(t *testing.T) {
		b := NewBooking(sub, mentor.ID, at.Add(72*time.Hour), 45)
		now := at.Add(73 * time.Hour)
		err := s.InTx(ctx, []storage.LockKey{storage.MentorLock(mentor.ID)}, func(ctx context.Context, tx storage.Tx) error {
			if err := tx.InsertBooking(ctx, b); err != nil {
				return err
			}
			b.Status = models.BookingCompleted
			b.CompletedAt = &now
			b.Feedback = &models.Feedback{Rating: 4, HelpfulRating: 5, GoalsAchieved: models.GoalsYes, WouldRecommend: "yes", SubmittedAt: now}
			if err := tx.UpdateBooking(ctx, b); err != nil {
				return err
			}
			ratings, err := tx.ListFeedbackRatings(ctx, mentor.ID)
			if err != nil {
				return err
			}
			require.Equal(t, []int{4}, ratings)
			r := 4.0
			return tx.SetMentorRating(ctx, mentor.ID, &r)
		})
		require.NoError(t, err)

		err = s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			m, err := tx.GetMentor(ctx, mentor.ID)
			if err != nil {
				return err
			}
			require.NotNil(t, m.Rating)
			assert.InDelta(t, 4.0, *m.Rating, 1e-9)
			assert.ElementsMatch(t, mentor.Specializations, m.Specializations)
			got, err := tx.GetBooking(ctx, b.ID)
			if err != nil {
				return err
			}
			require.NotNil(t, got.Feedback)
			assert.Equal(t, models.GoalsYes, got.Feedback.GoalsAchieved)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("reminded booking leaves pending list", func(t *testing.T) {
		b := NewBooking(sub, mentor.ID, at.Add(96*time.Hour), 30)
		from, to := at.Add(95*time.Hour), at.Add(97*time.Hour)
		pending := func() []*models.Booking {
			var out []*models.Booking
			err := s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
				var err error
				out, err = tx.ListPendingReminders(ctx, from, to)
				return err
			})
			require.NoError(t, err)
			return out
		}

		err := s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			return tx.InsertBooking(ctx, b)
		})
		require.NoError(t, err)
		got := pending()
		require.Len(t, got, 1)
		assert.Equal(t, b.ID, got[0].ID)
		assert.Nil(t, got[0].RemindedAt)

		sentAt := at.Add(72 * time.Hour)
		b.RemindedAt = &sentAt
		err = s.InTx(ctx, []storage.LockKey{storage.MentorLock(mentor.ID)}, func(ctx context.Context, tx storage.Tx) error {
			return tx.UpdateBooking(ctx, b)
		})
		require.NoError(t, err)
		assert.Empty(t, pending())

		err = s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			stored, err := tx.GetBooking(ctx, b.ID)
			if err != nil {
				return err
			}
			require.NotNil(t, stored.RemindedAt)
			assert.True(t, sentAt.Equal(*stored.RemindedAt))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("availability rules replace", func(t *testing.T) {
		rules := []models.AvailabilityRule{
			models.Recurring(time.Monday, 9*60, 17*60),
			models.OneOff(time.Date(2030, 3, 9, 0, 0, 0, 0, time.UTC), 10*60, 12*60),
		}
		err := s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			return tx.ReplaceAvailabilityRules(ctx, mentor.ID, rules)
		})
		require.NoError(t, err)

		var got []models.AvailabilityRule
		err = s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			var err error
			got, err = tx.ListAvailabilityRules(ctx, mentor.ID)
			return err
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, models.RuleRecurring, got[0].Kind)
		assert.Equal(t, time.Monday, got[0].Weekday)
		assert.Equal(t, rules[1].Date, got[1].Date)
	})

	t.Run("second active subscription conflicts", func(t *testing.T) {
		dup := sub
		dup.ID = "sub-dup"
		err := s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			return tx.InsertSubscription(ctx, &dup)
		})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("upgrade keeps link to source subscription", func(t *testing.T) {
		upgradeUser := factory.CreateSubscription(t, "user-upgrade", pkg, 1)
		next := upgradeUser
		next.ID = "sub-next-" + upgradeUser.ID
		next.UpgradedFrom = upgradeUser.ID
		err := s.InTx(ctx, []storage.LockKey{storage.UserLock("user-upgrade")}, func(ctx context.Context, tx storage.Tx) error {
			old := upgradeUser
			old.Status = models.SubscriptionUpgraded
			if err := tx.UpdateSubscription(ctx, &old); err != nil {
				return err
			}
			return tx.InsertSubscription(ctx, &next)
		})
		require.NoError(t, err)

		err = s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			active, err := tx.GetActiveSubscription(ctx, "user-upgrade")
			if err != nil {
				return err
			}
			assert.Equal(t, next.ID, active.ID)
			assert.Equal(t, upgradeUser.ID, active.UpgradedFrom)

			source, err := tx.GetSubscription(ctx, upgradeUser.ID)
			if err != nil {
				return err
			}
			assert.Equal(t, models.SubscriptionUpgraded, source.Status)
			assert.Empty(t, source.UpgradedFrom)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("unknown subscription", func(t *testing.T) {
		err := s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			_, err := tx.GetSubscription(ctx, "ghost")
			return err
		})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("sessions used cannot exceed total", func(t *testing.T) {
		over := sub
		over.SessionsUsed = over.TotalSessions + 1
		err := s.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
			return tx.UpdateSubscription(ctx, &over)
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestStorage_ConcurrentReservations(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(s)
	pkg := factory.CreatePackage(t, models.TierGuidance, 1)
	sub := factory.CreateSubscription(t, "user-race", pkg, 0)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InTx(ctx, []storage.LockKey{storage.UserLock(sub.UserID)}, func(ctx context.Context, tx storage.Tx) error {
				cur, err := tx.GetActiveSubscription(ctx, sub.UserID)
				if err != nil {
					return err
				}
				if cur.SessionsUsed >= cur.TotalSessions {
					return apperr.ErrEntitlementExhausted
				}
				cur.SessionsUsed++
				return tx.UpdateSubscription(ctx, cur)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}
