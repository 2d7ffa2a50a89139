// Package scheduler выполняет периодические задачи: истечение подписок и напоминания о сессиях.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/mentorship-booking/internal/config"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/sl"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
	"github.com/magabrotheeeer/mentorship-booking/internal/storage"
)

// Notifier ставит уведомление в очередь отправки.
type Notifier interface {
	Send(ctx context.Context, msg models.BookingConfirmation) error
}

// Service запускает задачи по таймерам.
type Service struct {
	store  storage.Store
	notify Notifier
	cfg    config.Scheduler
	log    *slog.Logger
	now    func() time.Time
}

// New создает планировщик.
func New(store storage.Store, notify Notifier, cfg config.Scheduler, log *slog.Logger) *Service {
	return &Service{store: store, notify: notify, cfg: cfg, log: log, now: time.Now}
}

// Run выполняет задачи сразу и затем по интервалам до отмены ctx.
func (s *Service) Run(ctx context.Context) {
	s.runExpiry(ctx)
	s.runReminders(ctx)

	expiry := time.NewTicker(s.cfg.ExpiryInterval)
	defer expiry.Stop()
	reminders := time.NewTicker(s.cfg.ReminderInterval)
	defer reminders.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-expiry.C:
			s.runExpiry(ctx)
		case <-reminders.C:
			s.runReminders(ctx)
		}
	}
}

func (s *Service) runExpiry(ctx context.Context) {
	if _, err := s.ExpireSubscriptions(ctx); err != nil {
		s.log.Error("expiry job failed", sl.Err(err))
	}
}

func (s *Service) runReminders(ctx context.Context) {
	if _, err := s.SendReminders(ctx); err != nil {
		s.log.Error("reminder job failed", sl.Err(err))
	}
}

// ExpireSubscriptions переводит ACTIVE-подписки с истёкшим сроком в EXPIRED.
func (s *Service) ExpireSubscriptions(ctx context.Context) (int, error) {
	const op = "scheduler.ExpireSubscriptions"
	log := s.log.With(slog.String("op", op))

	var n int
	err := s.store.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
		var err error
		n, err = tx.ExpireSubscriptions(ctx, s.now().UTC())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		log.Info("subscriptions expired", slog.Int("count", n))
	}
	return n, nil
}

// SendReminders публикует напоминания о сессиях, которые начинаются в ближайшие
// ReminderLead и ещё не получили напоминания. После успешной публикации сессия
// помечается RemindedAt, неотправленные остаются в очереди до следующего запуска.
// Доставка не реже одного раза: сбой пометки приводит к повторной отправке.
func (s *Service) SendReminders(ctx context.Context) (int, error) {
	const op = "scheduler.SendReminders"
	log := s.log.With(slog.String("op", op))

	now := s.now().UTC()

	var (
		pending []*models.Booking
		msgs    []models.BookingConfirmation
	)
	err := s.store.InTx(ctx, nil, func(ctx context.Context, tx storage.Tx) error {
		msgs = msgs[:0]
		var err error
		pending, err = tx.ListPendingReminders(ctx, now, now.Add(s.cfg.ReminderLead))
		if err != nil {
			return err
		}
		names := make(map[string]string)
		for _, b := range pending {
			name, ok := names[b.MentorID]
			if !ok {
				mentor, err := tx.GetMentor(ctx, b.MentorID)
				if err != nil {
					return err
				}
				name = mentor.Name
				names[b.MentorID] = name
			}
			msgs = append(msgs, models.NewNotification(models.NotificationReminder, *b, name))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	sent := 0
	for i, msg := range msgs {
		if err := s.notify.Send(ctx, msg); err != nil {
			log.Warn("failed to publish reminder", slog.String("booking_id", msg.BookingID), sl.Err(err))
			continue
		}
		sent++
		if err := s.markReminded(ctx, pending[i], now); err != nil {
			log.Warn("failed to mark reminder", slog.String("booking_id", msg.BookingID), sl.Err(err))
		}
	}
	if len(msgs) > 0 {
		log.Info("reminders published", slog.Int("found", len(msgs)), slog.Int("sent", sent))
	}
	return sent, nil
}

// markReminded ставит отметку, если сессию не отменили и не перенесли после выборки.
func (s *Service) markReminded(ctx context.Context, seen *models.Booking, at time.Time) error {
	return s.store.InTx(ctx, []storage.LockKey{storage.MentorLock(seen.MentorID)}, func(ctx context.Context, tx storage.Tx) error {
		b, err := tx.GetBooking(ctx, seen.ID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingScheduled || b.RemindedAt != nil || !b.ScheduledAt.Equal(seen.ScheduledAt) {
			return nil
		}
		b.RemindedAt = &at
		return tx.UpdateBooking(ctx, b)
	})
}
