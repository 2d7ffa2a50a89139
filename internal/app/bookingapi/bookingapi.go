package bookingapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/magabrotheeeer/mentorship-booking/internal/cache"
	"github.com/magabrotheeeer/mentorship-booking/internal/config"
	"github.com/magabrotheeeer/mentorship-booking/internal/entitlement"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/handlers/health"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/jwt"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/metrics"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/retry"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/sl"
	"github.com/magabrotheeeer/mentorship-booking/internal/meetingprovider"
	"github.com/magabrotheeeer/mentorship-booking/internal/migrations"
	bookingservice "github.com/magabrotheeeer/mentorship-booking/internal/services/booking"
	"github.com/magabrotheeeer/mentorship-booking/internal/services/notification"
	"github.com/magabrotheeeer/mentorship-booking/internal/services/rating"
	subscriptionservice "github.com/magabrotheeeer/mentorship-booking/internal/services/subscription"
	"github.com/magabrotheeeer/mentorship-booking/internal/storage"
	"github.com/magabrotheeeer/mentorship-booking/internal/storage/memstore"
	"github.com/magabrotheeeer/mentorship-booking/internal/storage/postgresql"
)

const limiterIdle = 10 * time.Minute

// App: HTTP-сервер API вместе с открытыми ресурсами.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	closers []func() error
}

// New открывает хранилище и внешние зависимости и собирает маршруты.
// Redis, RabbitMQ и провайдер встреч подключаются, только если заданы их адреса.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "bookingapi.New"

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("%s: jwt_secret_key is required", op)
	}

	app := &App{logger: logger}
	store, pinger, err := app.openStore(cfg)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var rulesCache bookingservice.RulesCache
	if cfg.AddressRedis != "" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.closers = append(app.closers, c.Close)
		rulesCache = c
	}

	var notifier bookingservice.NotificationDispatcher
	if cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.closers = append(app.closers, conn.Close)
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.closers = append(app.closers, ch.Close)
		notifier = notification.New(rabbitmq.ChannelPublisher{Ch: ch}, logger)
	} else {
		logger.Warn("rabbitmq url is empty, booking confirmations are disabled")
	}

	var rooms bookingservice.RoomProvisioner
	if cfg.MeetingURL != "" {
		rooms = meetingprovider.NewClient(cfg.MeetingProvider)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bookings, err := bookingservice.New(
		store,
		rating.New(store, logger),
		rulesCache,
		rooms,
		notifier,
		m,
		bookingservice.Options{
			Refund: entitlement.RefundPolicy{
				Mode:   entitlement.RefundMode(cfg.RefundMode),
				Window: cfg.RefundWindow,
			},
			SideEffectTimeout: cfg.SideEffectTimeout,
		},
		logger,
	)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	upgrades := subscriptionservice.NewUpgradeService(store, cfg.GrantPeriod, m, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Bookings:         bookings,
		Upgrades:         upgrades,
		Tokens:           jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Limiter:          middlewarectx.NewRateLimiter(cfg.RPS, cfg.Burst, limiterIdle),
		Pinger:           pinger,
		Metrics:          reg,
		OperationTimeout: cfg.OperationTimeout,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// openStore выбирает реализацию хранилища по storage_driver.
func (a *App) openStore(cfg *config.Config) (storage.Store, health.Pinger, error) {
	retryCfg := retry.Config{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
	}

	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		store := memstore.New()
		if cfg.SeedPath != "" {
			if err := store.LoadSeed(cfg.SeedPath, time.Now()); err != nil {
				return nil, nil, err
			}
			a.logger.Info("memory store seeded", slog.String("path", cfg.SeedPath))
		}
		return store, nil, nil
	default:
		db, err := postgresql.New(cfg.StorageConnectionString, retryCfg)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			return nil, nil, err
		}
		return db, db, nil
	}
}

// Run запускает сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

// close освобождает ресурсы в обратном порядке открытия.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
}
