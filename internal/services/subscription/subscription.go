// Package subscription выполняет апгрейд подписки пользователя на пакет более высокого уровня.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/mentorship-booking/internal/entitlement"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/sl"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
	"github.com/magabrotheeeer/mentorship-booking/internal/storage"
)

// Metrics учитывает результаты апгрейдов.
type Metrics interface {
	Upgrade(err error)
}

// UpgradeService реализует апгрейд: старая подписка помечается UPGRADED,
// новая ACTIVE создаётся в той же транзакции под блокировкой пользователя.
type UpgradeService struct {
	store       storage.Store
	grantPeriod time.Duration
	metrics     Metrics
	log         *slog.Logger
	now         func() time.Time
}

// NewUpgradeService создает новый экземпляр UpgradeService.
// grantPeriod: фиксированный срок, добавляемый к остатку старой подписки.
func NewUpgradeService(store storage.Store, grantPeriod time.Duration, metrics Metrics, log *slog.Logger) *UpgradeService {
	return &UpgradeService{
		store:       store,
		grantPeriod: grantPeriod,
		metrics:     metrics,
		log:         log,
		now:         time.Now,
	}
}

// Upgrade переводит ACTIVE-подписку пользователя на пакет newPackageID.
func (s *UpgradeService) Upgrade(ctx context.Context, userID, newPackageID string) (*models.Subscription, error) {
	const op = "subscription.Upgrade"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID), slog.String("package_id", newPackageID))

	now := s.now().UTC()
	var upgraded models.Subscription
	err := s.store.InTx(ctx, []storage.LockKey{storage.UserLock(userID)}, func(ctx context.Context, tx storage.Tx) error {
		current, err := tx.GetActiveSubscription(ctx, userID)
		if err != nil {
			return err
		}
		if !entitlement.CanUpgrade(*current) {
			return apperr.UpgradeIneligible("subscription %s is already at tier %s", current.ID, current.Tier)
		}
		if current.Expired(now) {
			return apperr.UpgradeIneligible("subscription %s has expired", current.ID)
		}

		pkg, err := tx.GetPackage(ctx, newPackageID)
		if err != nil {
			return err
		}
		if pkg.Segment != current.Segment {
			return apperr.UpgradeIneligible("package segment %s differs from subscription segment %s", pkg.Segment, current.Segment)
		}
		if pkg.Tier.Order() <= current.Tier.Order() {
			return apperr.UpgradeIneligible("package tier %s is not above current tier %s", pkg.Tier, current.Tier)
		}
		if pkg.TotalSessions < current.SessionsUsed {
			return apperr.UpgradeIneligible("package grants %d sessions, %d already used", pkg.TotalSessions, current.SessionsUsed)
		}

		expires := ExpiresAt(now, current.ExpiresAt, s.grantPeriod)

		current.Status = models.SubscriptionUpgraded
		if err := tx.UpdateSubscription(ctx, current); err != nil {
			return err
		}

		upgraded = models.Subscription{
			ID:            uuid.NewString(),
			UserID:        userID,
			PackageID:     pkg.ID,
			Tier:          pkg.Tier,
			Segment:       pkg.Segment,
			Status:        models.SubscriptionActive,
			TotalSessions: pkg.TotalSessions,
			SessionsUsed:  current.SessionsUsed,
			CurrentPhase:  current.CurrentPhase,
			PurchasedAt:   now,
			ExpiresAt:     &expires,
			UpgradedFrom:  current.ID,
		}
		return tx.InsertSubscription(ctx, &upgraded)
	})
	s.metrics.Upgrade(err)
	if err != nil {
		if apperr.Public(err) {
			log.Info("subscription upgrade rejected", slog.String("reason", err.Error()))
		} else {
			log.Error("subscription upgrade failed", sl.Err(err))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("subscription upgraded",
		slog.String("subscription_id", upgraded.ID),
		slog.String("tier", string(upgraded.Tier)),
		slog.Time("expires_at", *upgraded.ExpiresAt),
	)
	return &upgraded, nil
}

// RemainingDays возвращает число целых дней до истечения подписки, округлённое вверх.
// Подписка без срока и истёкшая подписка дают 0.
func RemainingDays(expiresAt *time.Time, now time.Time) int {
	if expiresAt == nil || !expiresAt.After(now) {
		return 0
	}
	return int(math.Ceil(expiresAt.Sub(now).Hours() / 24))
}

// ExpiresAt вычисляет срок новой подписки: now + остаток старой в днях + grantPeriod.
func ExpiresAt(now time.Time, oldExpiresAt *time.Time, grantPeriod time.Duration) time.Time {
	days := RemainingDays(oldExpiresAt, now)
	return now.Add(time.Duration(days)*24*time.Hour + grantPeriod)
}
