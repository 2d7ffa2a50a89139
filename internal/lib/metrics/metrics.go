// Package metrics содержит счётчики Prometheus движка бронирований.
// Счётчики регистрируются в явно переданном Registerer, без глобального состояния.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
)

// Metrics объединяет счётчики операций.
type Metrics struct {
	bookingOps *prometheus.CounterVec
	upgrades   *prometheus.CounterVec
}

// New создаёт счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		bookingOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Number of booking engine operations by operation and result.",
		}, []string{"operation", "result"}),
		upgrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subscription_upgrades_total",
			Help: "Number of subscription upgrade attempts by result.",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{m.bookingOps, m.upgrades} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// BookingOperation учитывает завершение операции над сессией.
func (m *Metrics) BookingOperation(operation string, err error) {
	m.bookingOps.WithLabelValues(operation, Result(err)).Inc()
}

// Upgrade учитывает попытку апгрейда подписки.
func (m *Metrics) Upgrade(err error) {
	m.upgrades.WithLabelValues(Result(err)).Inc()
}

// Result сводит ошибку к короткой метке с ограниченным набором значений.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrValidation):
		return "validation"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case errors.Is(err, apperr.ErrEntitlementExhausted):
		return "exhausted"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperr.ErrInvalidStateTransition):
		return "invalid_transition"
	case errors.Is(err, apperr.ErrDuplicateFeedback):
		return "duplicate_feedback"
	case errors.Is(err, apperr.ErrUpgradeIneligible):
		return "ineligible"
	case errors.Is(err, apperr.ErrServiceUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
