// Package cache хранит в Redis правила доступности менторов.
//
// Кэшируются только правила: окна доступности всегда раскрываются заново,
// а занятость берётся из хранилища. Создание и перенос сессий читают правила
// внутри транзакции и кэш не используют.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/mentorship-booking/internal/config"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Cache: обёртка над клиентом Redis.
type Cache struct {
	Db  *redis.Client
	ttl time.Duration
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db, ttl: cfg.RulesTTL}, nil
}

// Close закрывает соединение с Redis.
func (c *Cache) Close() error {
	return c.Db.Close()
}

// Get читает значение по ключу в result. Возвращает false, если ключа нет.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal(val, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение в JSON.
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = c.Db.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет ключ.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	const op = "cache.Invalidate"
	if err := c.Db.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func rulesKey(mentorID string) string {
	return "availability:rules:" + mentorID
}

// GetRules возвращает закэшированные правила ментора.
func (c *Cache) GetRules(ctx context.Context, mentorID string) ([]models.AvailabilityRule, bool, error) {
	var rules []models.AvailabilityRule
	found, err := c.Get(ctx, rulesKey(mentorID), &rules)
	if err != nil || !found {
		return nil, false, err
	}
	return rules, true, nil
}

// SetRules кэширует правила ментора на время, заданное в конфиге.
func (c *Cache) SetRules(ctx context.Context, mentorID string, rules []models.AvailabilityRule) error {
	if rules == nil {
		rules = []models.AvailabilityRule{}
	}
	return c.Set(ctx, rulesKey(mentorID), rules, c.ttl)
}

// InvalidateRules удаляет правила ментора из кэша.
func (c *Cache) InvalidateRules(ctx context.Context, mentorID string) error {
	return c.Invalidate(ctx, rulesKey(mentorID))
}
