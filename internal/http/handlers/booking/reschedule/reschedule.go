// Package reschedule реализует HTTP-обработчик переноса сессии на другое время.
package reschedule

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/mentorship-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/response"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/sl"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Handler управляет HTTP-запросами на перенос сессии.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает перенос сессии.
type Service interface {
	RescheduleBooking(ctx context.Context, caller models.Caller, bookingID string, newTime time.Time) (*models.Booking, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Перенести сессию
// @Description Переносит запланированную сессию. Доступность и пересечения проверяются заново.
// @Tags Bookings
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID сессии"
// @Param request body models.RescheduleRequest true "Новое время"
// @Success 200 {object} response.Response "Перенесённая сессия"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос или время вне доступности"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет доступа к сессии"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Failure 409 {object} response.ErrorResponse "Время занято или сессия не в статусе SCHEDULED"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /bookings/{id}/reschedule [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.reschedule"
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

	var req models.RescheduleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Info("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	booking, err := h.service.RescheduleBooking(r.Context(), caller, chi.URLParam(r, "id"), req.ScheduledAt)
	if err != nil {
		response.Fail(w, r, log, "failed to reschedule booking", err)
		return
	}

	log.Info("booking rescheduled", slog.String("booking_id", booking.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"booking": booking,
	}))
}
