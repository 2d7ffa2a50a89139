// Package cancel реализует HTTP-обработчик отмены сессии.
//
// Тело запроса необязательно. Возврат сессии в подписку решает политика возврата сервиса.
package cancel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/mentorship-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/response"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/sl"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Handler управляет HTTP-запросами на отмену сессии.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает отмену сессии.
type Service interface {
	CancelBooking(ctx context.Context, caller models.Caller, bookingID, reason string) error
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
// @Summary Отменить сессию
// @Description Отменяет запланированную сессию пользователем, ментором или администратором.
// @Tags Bookings
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID сессии"
// @Param request body models.CancelRequest false "Причина отмены"
// @Success 200 {object} response.Response "Сессия отменена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет доступа к сессии"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Failure 409 {object} response.ErrorResponse "Сессия не в статусе SCHEDULED"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /bookings/{id}/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.cancel"
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

	var req models.CancelRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
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

	id := chi.URLParam(r, "id")
	if err := h.service.CancelBooking(r.Context(), caller, id, req.Reason); err != nil {
		response.Fail(w, r, log, "failed to cancel booking", err)
		return
	}

	log.Info("booking cancelled", slog.String("booking_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"booking_id": id,
		"status":     models.BookingCancelled,
	}))
}
