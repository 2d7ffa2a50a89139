// Package complete реализует HTTP-обработчик завершения сессии.
// Маршрут доступен только ролям admin и system.
package complete

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/mentorship-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/response"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Handler управляет HTTP-запросами на завершение сессии.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает завершение сессии.
type Service interface {
	CompleteBooking(ctx context.Context, caller models.Caller, bookingID string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Завершить сессию
// @Description Переводит запланированную сессию в COMPLETED. Вызывается по окончании встречи.
// @Tags Bookings
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID сессии"
// @Success 200 {object} response.Response "Сессия завершена"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Failure 409 {object} response.ErrorResponse "Сессия не в статусе SCHEDULED"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /bookings/{id}/complete [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.complete"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	caller, ok := middlewarectx.CallerFrom(r.Context())
	if !ok {
		log.Error("caller not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.CompleteBooking(r.Context(), caller, id); err != nil {
		response.Fail(w, r, log, "failed to complete booking", err)
		return
	}

	log.Info("booking completed", slog.String("booking_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"booking_id": id,
		"status":     models.BookingCompleted,
	}))
}
