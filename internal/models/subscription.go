// Package models содержит доменные структуры движка бронирований:
// менторы, правила доступности, сессии, пакеты и подписки пользователей,
// а также DTO для приёма данных из JSON-запросов.
package models

import "time"

// Tier: глубина пакета. Уровни строго упорядочены: GUIDANCE < PLANNING < MENTORSHIP.
type Tier string

const (
	TierGuidance   Tier = "GUIDANCE"
	TierPlanning   Tier = "PLANNING"
	TierMentorship Tier = "MENTORSHIP"
)

var tierOrder = map[Tier]int{
	TierGuidance:   1,
	TierPlanning:   2,
	TierMentorship: 3,
}

// Order возвращает позицию уровня в порядке GUIDANCE < PLANNING < MENTORSHIP.
// Для неизвестного уровня возвращается 0.
func (t Tier) Order() int {
	return tierOrder[t]
}

// Valid сообщает, является ли значение известным уровнем.
func (t Tier) Valid() bool {
	return t.Order() > 0
}

// Segment: когорта по стадии карьеры, к которой относятся пакет и специализация ментора.
type Segment string

const (
	SegmentStudent     Segment = "STUDENT"
	SegmentEarlyCareer Segment = "EARLY_CAREER"
	SegmentMidCareer   Segment = "MID_CAREER"
	SegmentSenior      Segment = "SENIOR"
)

// SubscriptionStatus: состояние купленного экземпляра пакета.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionUpgraded  SubscriptionStatus = "UPGRADED"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionExpired   SubscriptionStatus = "EXPIRED"
)

// Package: запись каталога пакетов. Только для чтения.
type Package struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Tier          Tier    `json:"tier"`
	Segment       Segment `json:"segment"`
	TotalSessions int     `json:"total_sessions"`
	Phases        int     `json:"phases"`
	ValidityDays  int     `json:"validity_days"`
}

// Subscription: купленный пользователем экземпляр пакета.
// Инвариант: 0 <= SessionsUsed <= TotalSessions.
// У пользователя в любой момент не больше одной подписки в статусе ACTIVE;
// при апгрейде старая подписка получает статус UPGRADED и остаётся для аудита.
type Subscription struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id"`
	PackageID     string             `json:"package_id"`
	Tier          Tier               `json:"tier"`
	Segment       Segment            `json:"segment"`
	Status        SubscriptionStatus `json:"status"`
	TotalSessions int                `json:"total_sessions"`
	SessionsUsed  int                `json:"sessions_used"`
	CurrentPhase  int                `json:"current_phase"`
	PurchasedAt   time.Time          `json:"purchased_at"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	// UpgradedFrom указывает подписку, из которой эта получена апгрейдом.
	UpgradedFrom  string             `json:"upgraded_from,omitempty"`
}

// Expired сообщает, истёк ли срок действия подписки к моменту now.
func (s Subscription) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// UpgradeRequest используется для приёма данных апгрейда из JSON-запроса.
type UpgradeRequest struct {
	PackageID string `json:"package_id" validate:"required"`
}
