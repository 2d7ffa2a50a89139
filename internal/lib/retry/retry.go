// Package retry повторяет операции, упавшие на временных ошибках хранилища,
// с экспоненциальной задержкой и ограниченным числом попыток.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
)

// Config: параметры повторов.
type Config struct {
	MaxAttempts     int           `yaml:"max_attempts" env-default:"4"`
	InitialInterval time.Duration `yaml:"initial_interval" env-default:"20ms"`
	MaxInterval     time.Duration `yaml:"max_interval" env-default:"500ms"`
}

// Do выполняет fn, повторяя её, пока isTransient признаёт ошибку временной.
// Постоянные ошибки возвращаются сразу и без изменений. Если попытки исчерпаны,
// возвращается ошибка, оборачивающая apperr.ErrServiceUnavailable.
func Do(ctx context.Context, cfg Config, isTransient func(error) bool, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	err := backoff.Retry(func() error {
		err := fn()
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	if err != nil && isTransient(err) {
		return fmt.Errorf("%w: retries exhausted: %v", apperr.ErrServiceUnavailable, err)
	}
	return err
}
