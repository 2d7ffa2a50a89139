// Package notification публикует уведомления о сессиях в RabbitMQ.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/mentorship-booking/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Publisher отправляет сообщение в обменник с ключом маршрутизации.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// Dispatcher ставит подтверждения и напоминания в очередь отправки писем.
type Dispatcher struct {
	pub Publisher
	log *slog.Logger
}

// New создает диспетчер уведомлений.
func New(pub Publisher, log *slog.Logger) *Dispatcher {
	return &Dispatcher{pub: pub, log: log}
}

// Send публикует сообщение с ключом маршрутизации msg.Kind.
func (d *Dispatcher) Send(ctx context.Context, msg models.BookingConfirmation) error {
	const op = "notification.Send"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch msg.Kind {
	case models.NotificationConfirmation, models.NotificationReminder:
	default:
		return fmt.Errorf("%s: unknown notification kind %q", op, msg.Kind)
	}
	if msg.Email == "" {
		return fmt.Errorf("%s: booking %s has no recipient address", op, msg.BookingID)
	}

	if err := d.pub.Publish(rabbitmq.Exchange, msg.Kind, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	d.log.Debug("notification published",
		slog.String("op", op),
		slog.String("kind", msg.Kind),
		slog.String("booking_id", msg.BookingID),
	)
	return nil
}
