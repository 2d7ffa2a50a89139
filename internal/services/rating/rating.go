// Package rating пересчитывает рейтинг ментора по обратной связи завершённых сессий.
package rating

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/mentorship-booking/internal/storage"
)

// Aggregator пересчитывает рейтинг ментора целиком по всем оценкам.
// Пересчёт выполняется под блокировкой ментора.
type Aggregator struct {
	store storage.Store
	log   *slog.Logger
}

// New создаёт агрегатор рейтинга.
func New(store storage.Store, log *slog.Logger) *Aggregator {
	return &Aggregator{store: store, log: log}
}

// Recompute пересчитывает и сохраняет рейтинг ментора в отдельной транзакции.
func (a *Aggregator) Recompute(ctx context.Context, mentorID string) (*float64, error) {
	const op = "rating.Recompute"

	var result *float64
	err := a.store.InTx(ctx, []storage.LockKey{storage.MentorLock(mentorID)}, func(ctx context.Context, tx storage.Tx) error {
		var err error
		result, err = a.RecomputeTx(ctx, tx, mentorID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RecomputeTx пересчитывает рейтинг внутри уже открытой транзакции.
// Вызывающий обязан держать блокировку storage.MentorLock(mentorID).
func (a *Aggregator) RecomputeTx(ctx context.Context, tx storage.Tx, mentorID string) (*float64, error) {
	const op = "rating.RecomputeTx"

	ratings, err := tx.ListFeedbackRatings(ctx, mentorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	value := Mean(ratings)
	if err := tx.SetMentorRating(ctx, mentorID, value); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if value != nil {
		a.log.Debug("mentor rating recomputed",
			slog.String("mentor_id", mentorID),
			slog.Int("feedback_count", len(ratings)),
			slog.Float64("rating", *value),
		)
	}
	return value, nil
}

// Mean возвращает среднее арифметическое оценок или nil для пустого набора.
// Сумма считается в целых числах, поэтому результат не зависит от порядка оценок.
func Mean(ratings []int) *float64 {
	if len(ratings) == 0 {
		return nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	mean := float64(sum) / float64(len(ratings))
	return &mean
}
