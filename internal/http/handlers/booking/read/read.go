// Package read реализует HTTP-обработчик получения сессии по ID.
package read

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

// Handler управляет HTTP-запросами на чтение сессии.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает чтение сессии.
type Service interface {
	GetBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить сессию
// @Description Возвращает сессию, если вызывающий её пользователь, ментор или администратор.
// @Tags Bookings
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID сессии"
// @Success 200 {object} response.Response "Сессия"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет доступа к сессии"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /bookings/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.read"
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
	booking, err := h.service.GetBooking(r.Context(), caller, id)
	if err != nil {
		response.Fail(w, r, log, "failed to read booking", err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"booking": booking,
	}))
}
