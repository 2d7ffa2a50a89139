// Package storage описывает контракт хранилища движка бронирований.
//
// Всё разделяемое состояние (сессии, подписки, рейтинги менторов) доступно только
// через явный дескриптор Store. Любая многошаговая мутация выполняется внутри
// Store.InTx: либо все записи функции фиксируются, либо ни одна.
package storage

import (
	"context"
	"slices"
	"time"

	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// LockKey: ключ взаимного исключения, удерживаемый до конца транзакции.
type LockKey string

// MentorLock сериализует проверку пересечений и запись сессий одного ментора,
// а также пересчёт его рейтинга.
func MentorLock(mentorID string) LockKey { return LockKey("mentor:" + mentorID) }

// UserLock сериализует изменения подписок одного пользователя.
func UserLock(userID string) LockKey { return LockKey("user:" + userID) }

// SortedLocks возвращает ключи без повторов в фиксированном порядке,
// чтобы две транзакции никогда не захватывали их во встречном порядке.
func SortedLocks(keys []LockKey) []LockKey {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// BookingFilter ограничивает выборку сессий.
type BookingFilter struct {
	UserID   string
	MentorID string
	Limit    int
	Offset   int
}

// Tx: набор чтений и записей, доступных внутри одной атомарной единицы.
type Tx interface {
	GetMentor(ctx context.Context, id string) (*models.Mentor, error)
	GetMentorByUser(ctx context.Context, userID string) (*models.Mentor, error)
	SetMentorRating(ctx context.Context, mentorID string, rating *float64) error
	ListAvailabilityRules(ctx context.Context, mentorID string) ([]models.AvailabilityRule, error)
	ReplaceAvailabilityRules(ctx context.Context, mentorID string, rules []models.AvailabilityRule) error

	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]*models.Booking, error)
	// ListMentorBookingsInRange возвращает сессии ментора в статусах SCHEDULED и COMPLETED,
	// чей интервал пересекает [from, to). Сессия excludeID в выборку не попадает.
	ListMentorBookingsInRange(ctx context.Context, mentorID string, from, to time.Time, excludeID string) ([]*models.Booking, error)
	// ListFeedbackRatings возвращает оценки всех завершённых сессий ментора с обратной связью.
	ListFeedbackRatings(ctx context.Context, mentorID string) ([]int, error)
	// ListPendingReminders возвращает SCHEDULED-сессии без отправленного напоминания,
	// начинающиеся в [from, to).
	ListPendingReminders(ctx context.Context, from, to time.Time) ([]*models.Booking, error)
	InsertBooking(ctx context.Context, b *models.Booking) error
	UpdateBooking(ctx context.Context, b *models.Booking) error

	GetPackage(ctx context.Context, id string) (*models.Package, error)
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	InsertSubscription(ctx context.Context, s *models.Subscription) error
	UpdateSubscription(ctx context.Context, s *models.Subscription) error
	// ExpireSubscriptions переводит ACTIVE-подписки с истёкшим сроком в EXPIRED.
	ExpireSubscriptions(ctx context.Context, now time.Time) (int, error)
}

// Store открывает атомарные единицы работы.
type Store interface {
	// InTx выполняет fn в одной транзакции, удерживая блокировки locks.
	// Ошибка fn откатывает все записи. Временные ошибки хранилища повторяются
	// ограниченное число раз, поэтому fn должна быть готова к повторному запуску.
	InTx(ctx context.Context, locks []LockKey, fn func(ctx context.Context, tx Tx) error) error
}
