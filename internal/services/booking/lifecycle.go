package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/mentorship-booking/internal/entitlement"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
	"github.com/magabrotheeeer/mentorship-booking/internal/storage"
)

// Жизненный цикл сессии:
//
//	SCHEDULED -> reschedule -> SCHEDULED
//	SCHEDULED -> cancel     -> CANCELLED
//	SCHEDULED -> complete   -> COMPLETED
//	COMPLETED -> feedback   -> COMPLETED (однократно)
//
// Других переходов нет.

// mentorOf читает ментора сессии, чтобы взять его блокировку до повторного чтения сессии.
// Ментор сессии не меняется, поэтому значение, прочитанное без блокировки, остаётся верным.
func (s *Service) mentorOf(ctx context.Context, bookingID string) (mentorID, userID string, err error) {
	err = s.store.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		mentorID, userID = b.MentorID, b.UserID
		return nil
	})
	return mentorID, userID, err
}

// RescheduleBooking переносит сессию на newTime. Доступность и пересечения проверяются
// заново, сама сессия из проверки пересечений исключается. Подписка не меняется.
func (s *Service) RescheduleBooking(ctx context.Context, caller models.Caller, bookingID string, newTime time.Time) (*models.Booking, error) {
	const op = "booking.RescheduleBooking"
	log := s.log.With(slog.String("op", op), slog.String("booking_id", bookingID))

	booking, err := s.reschedule(ctx, caller, bookingID, newTime.UTC())
	s.finish(log, "reschedule", err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("booking rescheduled", slog.Time("scheduled_at", booking.ScheduledAt))
	return booking, nil
}

func (s *Service) reschedule(ctx context.Context, caller models.Caller, bookingID string, start time.Time) (*models.Booking, error) {
	mentorID, _, err := s.mentorOf(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var booking *models.Booking
	err = s.store.InTx(ctx, []storage.LockKey{storage.MentorLock(mentorID)}, func(ctx context.Context, tx storage.Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		ok, err := canManage(ctx, tx, caller, b)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Forbidden("caller cannot reschedule booking %s", bookingID)
		}
		if b.Status != models.BookingScheduled {
			return apperr.InvalidTransition("cannot reschedule booking in status %s", b.Status)
		}
		if err := s.validateTime(start, b.Duration); err != nil {
			return err
		}
		mentor, err := tx.GetMentor(ctx, b.MentorID)
		if err != nil {
			return err
		}
		end := start.Add(time.Duration(b.Duration) * time.Minute)
		if err := checkSlot(ctx, tx, mentor, start, end, b.ID); err != nil {
			return err
		}
		b.ScheduledAt = start
		b.RemindedAt = nil
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	return booking, err
}

// CancelBooking отменяет запланированную сессию. Если это разрешает политика возврата,
// сессия возвращается в подписку, с которой была списана, или в полученную из неё апгрейдом.
func (s *Service) CancelBooking(ctx context.Context, caller models.Caller, bookingID, reason string) error {
	const op = "booking.CancelBooking"
	log := s.log.With(slog.String("op", op), slog.String("booking_id", bookingID))

	refunded, err := s.cancel(ctx, caller, bookingID, reason)
	s.finish(log, "cancel", err)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("booking cancelled", slog.Bool("refunded", refunded))
	return nil
}

func (s *Service) cancel(ctx context.Context, caller models.Caller, bookingID, reason string) (bool, error) {
	mentorID, userID, err := s.mentorOf(ctx, bookingID)
	if err != nil {
		return false, err
	}

	refunded := false
	locks := []storage.LockKey{storage.MentorLock(mentorID), storage.UserLock(userID)}
	err = s.store.InTx(ctx, locks, func(ctx context.Context, tx storage.Tx) error {
		refunded = false
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		ok, err := canManage(ctx, tx, caller, b)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Forbidden("caller cannot cancel booking %s", bookingID)
		}
		if b.Status != models.BookingScheduled {
			return apperr.InvalidTransition("cannot cancel booking in status %s", b.Status)
		}

		now := s.now().UTC()
		b.Status = models.BookingCancelled
		b.CancelReason = reason
		b.CancelledAt = &now
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}

		if !s.opts.Refund.Refundable(b.ScheduledAt, now) {
			return nil
		}
		sub, err := refundTarget(ctx, tx, b.UserID, b.SubscriptionID)
		if err != nil {
			return err
		}
		if sub == nil || sub.SessionsUsed == 0 {
			return nil
		}
		restored := entitlement.Refund(*sub)
		if err := tx.UpdateSubscription(ctx, &restored); err != nil {
			return err
		}
		refunded = true
		return nil
	})
	return refunded, err
}

// maxUpgradeChain ограничивает обход цепочки апгрейдов: уровней всего три.
const maxUpgradeChain = 3

// refundTarget возвращает подписку, в которую возвращается сессия, списанная с sourceID.
// Это сама sourceID, если она ещё ACTIVE, либо ACTIVE-подписка, полученная из неё
// цепочкой апгрейдов. Для истёкшей, отменённой или не связанной подписки возвращается nil.
func refundTarget(ctx context.Context, tx storage.Tx, userID, sourceID string) (*models.Subscription, error) {
	active, err := tx.GetActiveSubscription(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cur := active
	for range maxUpgradeChain + 1 {
		if cur.ID == sourceID {
			return active, nil
		}
		if cur.UpgradedFrom == "" {
			return nil, nil
		}
		prev, err := tx.GetSubscription(ctx, cur.UpgradedFrom)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if prev.Status != models.SubscriptionUpgraded {
			return nil, nil
		}
		cur = prev
	}
	return nil, nil
}

// CompleteBooking завершает сессию. Вызывается внешним триггером (окончание встречи)
// или администратором, но не пользователем.
func (s *Service) CompleteBooking(ctx context.Context, caller models.Caller, bookingID string) error {
	const op = "booking.CompleteBooking"
	log := s.log.With(slog.String("op", op), slog.String("booking_id", bookingID))

	err := s.complete(ctx, caller, bookingID)
	s.finish(log, "complete", err)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("booking completed")
	return nil
}

func (s *Service) complete(ctx context.Context, caller models.Caller, bookingID string) error {
	if !caller.Privileged() {
		return apperr.Forbidden("only system or admin can complete a booking")
	}
	mentorID, _, err := s.mentorOf(ctx, bookingID)
	if err != nil {
		return err
	}
	return s.store.InTx(ctx, []storage.LockKey{storage.MentorLock(mentorID)}, func(ctx context.Context, tx storage.Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingScheduled {
			return apperr.InvalidTransition("cannot complete booking in status %s", b.Status)
		}
		now := s.now().UTC()
		b.Status = models.BookingCompleted
		b.CompletedAt = &now
		return tx.UpdateBooking(ctx, b)
	})
}

// SubmitFeedback сохраняет обратную связь по завершённой сессии и пересчитывает
// рейтинг ментора в той же транзакции. Обратная связь принимается один раз.
// Поля payload проверяются на границе до вызова.
func (s *Service) SubmitFeedback(ctx context.Context, caller models.Caller, bookingID string, payload models.Feedback) error {
	const op = "booking.SubmitFeedback"
	log := s.log.With(slog.String("op", op), slog.String("booking_id", bookingID))

	rating, err := s.submitFeedback(ctx, caller, bookingID, payload)
	s.finish(log, "feedback", err)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	attrs := []any{slog.Int("rating", payload.Rating)}
	if rating != nil {
		attrs = append(attrs, slog.Float64("mentor_rating", *rating))
	}
	log.Info("feedback submitted", attrs...)
	return nil
}

func (s *Service) submitFeedback(ctx context.Context, caller models.Caller, bookingID string, payload models.Feedback) (*float64, error) {
	mentorID, _, err := s.mentorOf(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var rating *float64
	err = s.store.InTx(ctx, []storage.LockKey{storage.MentorLock(mentorID)}, func(ctx context.Context, tx storage.Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if caller.UserID != b.UserID {
			return apperr.Forbidden("only the booking's user can submit feedback")
		}
		if b.Status != models.BookingCompleted {
			return apperr.InvalidTransition("cannot submit feedback for booking in status %s", b.Status)
		}
		if b.Feedback != nil {
			return fmt.Errorf("booking %s: %w", bookingID, apperr.ErrDuplicateFeedback)
		}

		fb := payload
		fb.SubmittedAt = s.now().UTC()
		b.Feedback = &fb
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		rating, err = s.rating.RecomputeTx(ctx, tx, b.MentorID)
		return err
	})
	return rating, err
}
