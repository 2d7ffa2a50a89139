package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/mentorship-booking/internal/lib/sl"
)

const prefetch = 10

// ErrDrop помечает сообщение, которое не имеет смысла доставлять повторно,
// например с телом, которое невозможно разобрать.
var ErrDrop = errors.New("drop message")

// Handler обрабатывает тело одного сообщения.
type Handler func(ctx context.Context, body []byte) error

// ConsumerMessage запускает обработку сообщений очереди queueName в фоне.
// Успешно обработанное сообщение подтверждается, при ошибке возвращается в очередь,
// при ErrDrop отбрасывается. Одновременно обрабатывается не больше prefetch сообщений.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, log *slog.Logger, handler Handler) error {
	const op = "rabbitmq.ConsumerMessage"

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(slog.String("op", op), slog.String("queue", queueName))

	sem := make(chan struct{}, prefetch)
	go func() {
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					log.Info("delivery channel closed")
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					settle(ctx, log, d, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func settle(ctx context.Context, log *slog.Logger, d amqp.Delivery, handler Handler) {
	err := handler(ctx, d.Body)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("failed to ack message", sl.Err(ackErr))
		}
	case errors.Is(err, ErrDrop):
		log.Warn("dropping message", sl.Err(err))
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	default:
		log.Warn("message handling failed, requeueing", sl.Err(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	}
}
