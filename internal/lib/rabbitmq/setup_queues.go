package rabbitmq

import "github.com/magabrotheeeer/mentorship-booking/internal/models"

// QueueConfig связывает очередь с ключом маршрутизации обменника Exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Очереди уведомлений о сессиях.
const (
	ConfirmationQueue = "notifications.booking.confirmation"
	ReminderQueue     = "notifications.booking.reminder"
)

// NotificationQueues возвращает очереди, которые читает сервис отправки писем.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: ConfirmationQueue, RoutingKey: models.NotificationConfirmation},
		{QueueName: ReminderQueue, RoutingKey: models.NotificationReminder},
	}
}
