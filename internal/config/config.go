// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageDriver           string `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	SeedPath                string `yaml:"seed_path" env:"SEED_PATH"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	MeetingProvider         `yaml:"meeting_provider"`
	Booking                 `yaml:"booking"`
	Upgrade                 `yaml:"upgrade"`
	Retry                   `yaml:"retry"`
	RateLimit               `yaml:"rate_limit"`
	Scheduler               `yaml:"scheduler"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:"0.0.0.0:8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает кэш правил доступности.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	RulesTTL     time.Duration `yaml:"rules_ttl" env-default:"10m"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ структура для подключения к брокеру уведомлений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"10"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// SMTP структура для отправки писем
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"pass" env:"SMTP_PASS"`
}

// MeetingProvider структура для провайдера видеовстреч.
// Пустой адрес отключает выдачу ссылок на встречу.
type MeetingProvider struct {
	MeetingURL     string        `yaml:"url" env:"MEETING_PROVIDER_URL"`
	MeetingAPIKey  string        `yaml:"api_key" env:"MEETING_PROVIDER_API_KEY"`
	MeetingTimeout time.Duration `yaml:"timeout" env-default:"5s"`
}

// Booking структура с параметрами движка бронирований
type Booking struct {
	RefundMode        string        `yaml:"cancellation_refund_mode" env-default:"window"`
	RefundWindow      time.Duration `yaml:"cancellation_refund_window" env-default:"24h"`
	SideEffectTimeout time.Duration `yaml:"side_effect_timeout" env-default:"3s"`
	OperationTimeout  time.Duration `yaml:"operation_timeout" env-default:"10s"`
}

// Upgrade структура с параметрами апгрейда подписки
type Upgrade struct {
	GrantPeriod time.Duration `yaml:"grant_period" env-default:"720h"`
}

// Retry структура с параметрами повтора временных ошибок хранилища
type Retry struct {
	MaxAttempts     int           `yaml:"max_attempts" env-default:"4"`
	InitialInterval time.Duration `yaml:"initial_interval" env-default:"20ms"`
	MaxInterval     time.Duration `yaml:"max_interval" env-default:"500ms"`
}

// RateLimit структура для ограничения частоты запросов одного пользователя
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// Scheduler структура с интервалами фоновых задач
type Scheduler struct {
	ExpiryInterval   time.Duration `yaml:"expiry_interval" env-default:"1h"`
	ReminderInterval time.Duration `yaml:"reminder_interval" env-default:"15m"`
	ReminderLead     time.Duration `yaml:"reminder_lead" env-default:"24h"`
}

// MustLoad функция для загрузки конфига из файла, указанного в CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}
	return &cfg
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.StorageConnectionString == "" {
			return fmt.Errorf("storage_connection_string is required for postgres driver")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage_driver %q", c.StorageDriver)
	}
	switch c.RefundMode {
	case "never", "always", "window":
	default:
		return fmt.Errorf("unknown booking.cancellation_refund_mode %q", c.RefundMode)
	}
	if c.GrantPeriod < 0 {
		return fmt.Errorf("upgrade.grant_period must not be negative")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	return nil
}

// String печатает настройки без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageDriver: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  RulesTTL: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Booking:\n"+
			"  RefundMode: %s\n"+
			"  RefundWindow: %s\n"+
			"Upgrade:\n"+
			"  GrantPeriod: %s\n",
		c.Env,
		c.StorageDriver,
		c.MigrationsPath,
		c.AddressRedis,
		c.DB,
		c.RulesTTL,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.RefundMode,
		c.RefundWindow,
		c.GrantPeriod,
	)
}
