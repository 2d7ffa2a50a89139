package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/mentorship-booking/internal/availability"
	"github.com/magabrotheeeer/mentorship-booking/internal/entitlement"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/sl"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
	"github.com/magabrotheeeer/mentorship-booking/internal/storage"
)

func covers(rules []models.AvailabilityRule, loc *time.Location, start, end time.Time) bool {
	windows := availability.Resolve(rules, loc, availability.Between(start, end, loc))
	return availability.Covers(windows, start, end)
}

// CreateBooking создаёт сессию пользователя с ментором.
// Резервирование сессии в подписке, проверки доступности и пересечений и вставка
// выполняются в одной транзакции под блокировками ментора и пользователя.
func (s *Service) CreateBooking(ctx context.Context, caller models.Caller, req models.CreateBookingRequest) (*models.Booking, error) {
	const op = "booking.CreateBooking"
	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", caller.UserID),
		slog.String("mentor_id", req.MentorID),
	)

	booking, mentor, err := s.createBooking(ctx, caller, req)
	s.finish(log, "create", err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("booking created",
		slog.String("booking_id", booking.ID),
		slog.Time("scheduled_at", booking.ScheduledAt),
		slog.Int("session_number", booking.SessionNumber),
	)

	s.afterCreate(ctx, log, mentor, booking)
	return booking, nil
}

func (s *Service) createBooking(ctx context.Context, caller models.Caller, req models.CreateBookingRequest) (*models.Booking, *models.Mentor, error) {
	start := req.ScheduledAt.UTC()
	if err := s.validateTime(start, req.Duration); err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()

	var (
		booking *models.Booking
		mentor  *models.Mentor
	)
	locks := []storage.LockKey{storage.MentorLock(req.MentorID), storage.UserLock(caller.UserID)}
	err := s.store.InTx(ctx, locks, func(ctx context.Context, tx storage.Tx) error {
		sub, err := tx.GetActiveSubscription(ctx, caller.UserID)
		if err != nil {
			return err
		}
		if sub.PackageID != req.PackageID {
			return apperr.NotFound("no active subscription for package %s", req.PackageID)
		}
		if sub.Expired(now) {
			return apperr.Validation("subscription %s has expired", sub.ID)
		}

		reserved, err := entitlement.Reserve(*sub)
		if err != nil {
			return err
		}

		mentor, err = tx.GetMentor(ctx, req.MentorID)
		if err != nil {
			return err
		}
		if !mentor.Active {
			return apperr.Validation("mentor %s is not accepting bookings", mentor.ID)
		}

		b := &models.Booking{
			ID:             uuid.NewString(),
			UserID:         caller.UserID,
			UserEmail:      caller.Email,
			MentorID:       mentor.ID,
			PackageID:      sub.PackageID,
			SubscriptionID: sub.ID,
			ScheduledAt:    start,
			Duration:       req.Duration,
			Status:         models.BookingScheduled,
			Notes:          req.Notes,
			SessionNumber:  reserved.SessionsUsed,
			CreatedAt:      now,
		}
		if err := checkSlot(ctx, tx, mentor, b.ScheduledAt, b.EndsAt(), ""); err != nil {
			return err
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		if err := tx.UpdateSubscription(ctx, &reserved); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return booking, mentor, nil
}

// afterCreate выдаёт ссылку на встречу и отправляет подтверждение.
// Ошибки логируются и не влияют на созданную сессию.
func (s *Service) afterCreate(ctx context.Context, log *slog.Logger, mentor *models.Mentor, b *models.Booking) {
	ctx, cancel := s.sideEffectContext(ctx)
	defer cancel()

	if s.rooms != nil {
		if url, err := s.rooms.CreateRoom(ctx, *b); err != nil {
			log.Warn("failed to provision meeting room", sl.Err(err))
		} else if url != "" {
			if err := s.attachMeetingURL(ctx, b.ID, b.MentorID, url); err != nil {
				log.Warn("failed to attach meeting url", sl.Err(err))
			} else {
				b.MeetingURL = url
			}
		}
	}

	if s.notify != nil {
		msg := models.NewNotification(models.NotificationConfirmation, *b, mentor.Name)
		if err := s.notify.Send(ctx, msg); err != nil {
			log.Warn("failed to dispatch booking confirmation", sl.Err(err))
		}
	}
}

func (s *Service) attachMeetingURL(ctx context.Context, bookingID, mentorID, url string) error {
	return s.store.InTx(ctx, []storage.LockKey{storage.MentorLock(mentorID)}, func(ctx context.Context, tx storage.Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingScheduled {
			return nil
		}
		b.MeetingURL = url
		return tx.UpdateBooking(ctx, b)
	})
}

// GetAvailableSlots возвращает свободные окна ментора в диапазоне дат:
// раскрытые правила доступности за вычетом занятых сессий.
func (s *Service) GetAvailableSlots(ctx context.Context, mentorID string, r availability.DateRange) ([]models.Window, error) {
	const op = "booking.GetAvailableSlots"
	log := s.log.With(slog.String("op", op), slog.String("mentor_id", mentorID))

	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("%s", err.Error()))
	}

	var (
		mentor *models.Mentor
		busy   []models.Window
		rules  []models.AvailabilityRule
	)
	cached := false
	if s.cache != nil {
		var err error
		rules, cached, err = s.cache.GetRules(ctx, mentorID)
		if err != nil {
			log.Warn("failed to read rules from cache", sl.Err(err))
			cached = false
		}
	}

	err := s.store.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
		var err error
		mentor, err = tx.GetMentor(ctx, mentorID)
		if err != nil {
			return err
		}
		if !cached {
			if rules, err = tx.ListAvailabilityRules(ctx, mentorID); err != nil {
				return err
			}
		}
		loc, err := mentor.Location()
		if err != nil {
			return err
		}
		from, to := r.Bounds(loc)
		bookings, err := tx.ListMentorBookingsInRange(ctx, mentorID, from, to, "")
		if err != nil {
			return err
		}
		busy = make([]models.Window, 0, len(bookings))
		for _, b := range bookings {
			busy = append(busy, models.Window{Start: b.ScheduledAt, End: b.EndsAt()})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil && !cached {
		if err := s.cache.SetRules(ctx, mentorID, rules); err != nil {
			log.Warn("failed to cache rules", sl.Err(err))
		}
	}
	if !mentor.Active {
		return []models.Window{}, nil
	}

	loc, err := mentor.Location()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	free := availability.Subtract(availability.Resolve(rules, loc, r), busy)
	if free == nil {
		free = []models.Window{}
	}
	return free, nil
}

// ReplaceAvailability заменяет набор правил доступности ментора.
// Менять правила может сам ментор или администратор.
func (s *Service) ReplaceAvailability(ctx context.Context, caller models.Caller, mentorID string, rules []models.AvailabilityRule) error {
	const op = "booking.ReplaceAvailability"
	log := s.log.With(slog.String("op", op), slog.String("mentor_id", mentorID))

	err := s.replaceAvailability(ctx, caller, mentorID, rules)
	s.finish(log, "replace_availability", err)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("availability replaced", slog.Int("rules", len(rules)))

	if s.cache != nil {
		if err := s.cache.InvalidateRules(ctx, mentorID); err != nil {
			log.Warn("failed to invalidate rules cache", sl.Err(err))
		}
	}
	return nil
}

func (s *Service) replaceAvailability(ctx context.Context, caller models.Caller, mentorID string, rules []models.AvailabilityRule) error {
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return apperr.Validation("rule %d: %s", i, err.Error())
		}
	}
	return s.store.InTx(ctx, []storage.LockKey{storage.MentorLock(mentorID)}, func(ctx context.Context, tx storage.Tx) error {
		mentor, err := tx.GetMentor(ctx, mentorID)
		if err != nil {
			return err
		}
		if !caller.Privileged() && mentor.UserID != caller.UserID {
			return apperr.Forbidden("caller cannot edit availability of mentor %s", mentorID)
		}
		return tx.ReplaceAvailabilityRules(ctx, mentorID, rules)
	})
}

// GetBooking возвращает сессию, если вызывающий имеет к ней доступ.
func (s *Service) GetBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error) {
	const op = "booking.GetBooking"

	var booking *models.Booking
	err := s.store.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		ok, err := canManage(ctx, tx, caller, b)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Forbidden("caller has no access to booking %s", bookingID)
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return booking, nil
}

// ListBookings возвращает сессии вызывающего. Пользователь видит свои сессии,
// ментор видит сессии с собой, привилегированная роль видит все.
func (s *Service) ListBookings(ctx context.Context, caller models.Caller, limit, offset int) ([]*models.Booking, error) {
	const op = "booking.ListBookings"

	if limit < 0 || offset < 0 {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("limit and offset must not be negative"))
	}

	var out []*models.Booking
	err := s.store.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
		filter := storage.BookingFilter{Limit: limit, Offset: offset}
		switch {
		case caller.Privileged():
		case caller.Role == models.RoleMentor:
			mentor, err := tx.GetMentorByUser(ctx, caller.UserID)
			if err != nil {
				return err
			}
			filter.MentorID = mentor.ID
		default:
			filter.UserID = caller.UserID
		}
		var err error
		out, err = tx.ListBookings(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if out == nil {
		out = []*models.Booking{}
	}
	return out, nil
}

// GetMentor возвращает профиль ментора.
func (s *Service) GetMentor(ctx context.Context, mentorID string) (*models.Mentor, error) {
	const op = "booking.GetMentor"

	var mentor *models.Mentor
	err := s.store.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
		var err error
		mentor, err = tx.GetMentor(ctx, mentorID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return mentor, nil
}
