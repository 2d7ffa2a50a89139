// Package entitlement отслеживает число сессий, выданных и израсходованных подпиской,
// и право подписки на апгрейд.
package entitlement

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Remaining возвращает число оставшихся сессий.
func Remaining(sub models.Subscription) int {
	return sub.TotalSessions - sub.SessionsUsed
}

// Reserve возвращает копию подписки с израсходованной сессией.
// Результат нужно сохранить в той же транзакции, что и создаваемую сессию.
func Reserve(sub models.Subscription) (models.Subscription, error) {
	if Remaining(sub) <= 0 {
		return sub, fmt.Errorf("subscription %s: %w", sub.ID, apperr.ErrEntitlementExhausted)
	}
	sub.SessionsUsed++
	return sub, nil
}

// CanUpgrade сообщает, можно ли поднять уровень подписки.
func CanUpgrade(sub models.Subscription) bool {
	return sub.Status == models.SubscriptionActive && sub.Tier.Order() < models.TierMentorship.Order()
}

// NextTier возвращает следующий уровень или false, если уровень уже максимальный.
func NextTier(t models.Tier) (models.Tier, bool) {
	switch t {
	case models.TierGuidance:
		return models.TierPlanning, true
	case models.TierPlanning:
		return models.TierMentorship, true
	default:
		return "", false
	}
}

// RefundMode определяет, возвращается ли сессия в подписку при отмене.
type RefundMode string

const (
	RefundNever  RefundMode = "never"
	RefundAlways RefundMode = "always"
	// RefundWindow возвращает сессию, только если отмена сделана не позже чем за Window до начала.
	RefundWindow RefundMode = "window"
)

// RefundPolicy: явная политика возврата сессии при отмене.
type RefundPolicy struct {
	Mode   RefundMode
	Window time.Duration
}

// Validate проверяет политику.
func (p RefundPolicy) Validate() error {
	switch p.Mode {
	case RefundNever, RefundAlways:
		return nil
	case RefundWindow:
		if p.Window < 0 {
			return fmt.Errorf("refund window must not be negative")
		}
		return nil
	default:
		return fmt.Errorf("unknown refund mode %q", p.Mode)
	}
}

// Refundable сообщает, возвращается ли сессия, начинающаяся в startsAt, при отмене в момент now.
func (p RefundPolicy) Refundable(startsAt, now time.Time) bool {
	switch p.Mode {
	case RefundAlways:
		return true
	case RefundWindow:
		return !now.Add(p.Window).After(startsAt)
	default:
		return false
	}
}

// Refund возвращает копию подписки с возвращённой сессией. Счётчик не опускается ниже нуля.
func Refund(sub models.Subscription) models.Subscription {
	if sub.SessionsUsed > 0 {
		sub.SessionsUsed--
	}
	return sub
}
