// Package bookingapi собирает HTTP API движка бронирований.
package bookingapi

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация OpenAPI-описания для /docs.
	_ "github.com/magabrotheeeer/mentorship-booking/docs"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/handlers/booking/cancel"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/handlers/booking/complete"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/handlers/booking/create"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/handlers/booking/feedback"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/handlers/booking/ical"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/handlers/booking/list"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/handlers/booking/read"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/handlers/booking/reschedule"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/handlers/health"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/handlers/mentor/availability"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/handlers/mentor/slots"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/handlers/subscription/upgrade"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// BookingService: операции движка, доступные через API.
type BookingService interface {
	create.Service
	list.Service
	read.Service
	ical.Service
	reschedule.Service
	cancel.Service
	complete.Service
	feedback.Service
	slots.Service
	availability.Service
}

// Deps: зависимости маршрутов.
type Deps struct {
	Bookings         BookingService
	Upgrades         upgrade.Service
	Tokens           middlewarectx.TokenParser
	Limiter          *middlewarectx.RateLimiter
	Pinger           health.Pinger
	Metrics          prometheus.Gatherer
	OperationTimeout time.Duration
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.JWTMiddleware(deps.Tokens, logger))
		r.Use(deps.Limiter.Middleware(logger))
		if deps.OperationTimeout > 0 {
			r.Use(middleware.Timeout(deps.OperationTimeout))
		}

		r.Get("/mentors/{id}/slots", slots.New(logger, deps.Bookings).ServeHTTP)
		r.Put("/mentors/{id}/availability", availability.New(logger, deps.Bookings).ServeHTTP)

		r.Post("/bookings", create.New(logger, deps.Bookings).ServeHTTP)
		r.Get("/bookings", list.New(logger, deps.Bookings).ServeHTTP)
		r.Get("/bookings/{id}", read.New(logger, deps.Bookings).ServeHTTP)
		r.Get("/bookings/{id}/calendar", ical.New(logger, deps.Bookings).ServeHTTP)
		r.Post("/bookings/{id}/reschedule", reschedule.New(logger, deps.Bookings).ServeHTTP)
		r.Post("/bookings/{id}/cancel", cancel.New(logger, deps.Bookings).ServeHTTP)
		r.Post("/bookings/{id}/feedback", feedback.New(logger, deps.Bookings).ServeHTTP)

		// Завершение сессии приходит от внутреннего триггера
		r.With(middlewarectx.RequireRole(logger, models.RoleAdmin, models.RoleSystem)).
			Post("/bookings/{id}/complete", complete.New(logger, deps.Bookings).ServeHTTP)

		r.Post("/subscriptions/upgrade", upgrade.New(logger, deps.Upgrades).ServeHTTP)
	})

	r.Get("/health", health.New(logger, deps.Pinger).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
