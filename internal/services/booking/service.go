// Package booking реализует планировщик сессий и их жизненный цикл.
//
// Каждая мутация выполняется в одной транзакции хранилища под блокировкой ментора
// (и пользователя, если меняется подписка). Выдача ссылки на встречу и уведомление
// выполняются после фиксации и на результат не влияют.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/mentorship-booking/internal/entitlement"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/sl"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
	"github.com/magabrotheeeer/mentorship-booking/internal/storage"
)

// Ограничения длительности сессии в минутах.
const (
	MinDuration = 15
	MaxDuration = 240
)

// RulesCache кэширует правила доступности ментора для чтения свободных окон.
type RulesCache interface {
	GetRules(ctx context.Context, mentorID string) ([]models.AvailabilityRule, bool, error)
	SetRules(ctx context.Context, mentorID string, rules []models.AvailabilityRule) error
	InvalidateRules(ctx context.Context, mentorID string) error
}

// RoomProvisioner выдаёт ссылку на видеовстречу для сессии.
type RoomProvisioner interface {
	CreateRoom(ctx context.Context, b models.Booking) (string, error)
}

// NotificationDispatcher отправляет подтверждение сессии.
type NotificationDispatcher interface {
	Send(ctx context.Context, msg models.BookingConfirmation) error
}

// RatingAggregator пересчитывает рейтинг ментора внутри транзакции.
type RatingAggregator interface {
	RecomputeTx(ctx context.Context, tx storage.Tx, mentorID string) (*float64, error)
}

// Metrics учитывает результаты операций.
type Metrics interface {
	BookingOperation(operation string, err error)
}

// Options: настраиваемые параметры движка.
type Options struct {
	Refund            entitlement.RefundPolicy
	SideEffectTimeout time.Duration
}

// Service объединяет BookingScheduler и BookingLifecycleManager.
type Service struct {
	store   storage.Store
	rating  RatingAggregator
	cache   RulesCache
	rooms   RoomProvisioner
	notify  NotificationDispatcher
	metrics Metrics
	opts    Options
	log     *slog.Logger
	now     func() time.Time
}

// New создает сервис бронирований. cache, rooms и notify могут быть nil.
func New(
	store storage.Store,
	rating RatingAggregator,
	cache RulesCache,
	rooms RoomProvisioner,
	notify NotificationDispatcher,
	metrics Metrics,
	opts Options,
	log *slog.Logger,
) (*Service, error) {
	if err := opts.Refund.Validate(); err != nil {
		return nil, fmt.Errorf("booking.New: %w", err)
	}
	if opts.SideEffectTimeout <= 0 {
		opts.SideEffectTimeout = 3 * time.Second
	}
	return &Service{
		store:   store,
		rating:  rating,
		cache:   cache,
		rooms:   rooms,
		notify:  notify,
		metrics: metrics,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}, nil
}

// finish учитывает результат операции и логирует неожиданные ошибки.
func (s *Service) finish(log *slog.Logger, operation string, err error) {
	s.metrics.BookingOperation(operation, err)
	if err == nil {
		return
	}
	if apperr.Public(err) {
		log.Info("operation rejected", slog.String("reason", err.Error()))
		return
	}
	log.Error("operation failed", sl.Err(err))
}

// canManage сообщает, может ли вызывающий менять сессию: её пользователь,
// её ментор или привилегированная роль.
func canManage(ctx context.Context, tx storage.Tx, caller models.Caller, b *models.Booking) (bool, error) {
	if caller.Privileged() || caller.UserID == b.UserID {
		return true, nil
	}
	if caller.Role != models.RoleMentor {
		return false, nil
	}
	mentor, err := tx.GetMentor(ctx, b.MentorID)
	if err != nil {
		return false, err
	}
	return mentor.UserID == caller.UserID, nil
}

// checkSlot проверяет, что [start, end) лежит в окне доступности ментора
// и не пересекается с другими сессиями, кроме excludeID.
func checkSlot(ctx context.Context, tx storage.Tx, mentor *models.Mentor, start, end time.Time, excludeID string) error {
	loc, err := mentor.Location()
	if err != nil {
		return err
	}
	rules, err := tx.ListAvailabilityRules(ctx, mentor.ID)
	if err != nil {
		return err
	}
	if !covers(rules, loc, start, end) {
		return apperr.Validation("outside availability")
	}
	busy, err := tx.ListMentorBookingsInRange(ctx, mentor.ID, start, end, excludeID)
	if err != nil {
		return err
	}
	if len(busy) > 0 {
		return apperr.Conflict("slot %s overlaps booking %s", start.Format(time.RFC3339), busy[0].ID)
	}
	return nil
}

func (s *Service) validateTime(start time.Time, duration int) error {
	if duration < MinDuration || duration > MaxDuration {
		return apperr.Validation("duration must be between %d and %d minutes", MinDuration, MaxDuration)
	}
	if start.IsZero() {
		return apperr.Validation("scheduled_at is required")
	}
	if !start.After(s.now()) {
		return apperr.Validation("scheduled_at must be in the future")
	}
	return nil
}

// sideEffectContext отвязывает побочные эффекты от отмены запроса и ограничивает их по времени.
func (s *Service) sideEffectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.opts.SideEffectTimeout)
}
