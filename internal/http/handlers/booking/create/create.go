// Package create реализует HTTP-обработчик бронирования сессии с ментором.
//
// Handler принимает JSON с ментором, пакетом, временем и длительностью, валидирует его,
// берёт вызывающего из контекста и создаёт сессию через сервис бронирований.
package create

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/mentorship-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/response"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/sl"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Handler управляет HTTP-запросами на создание сессий.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает создание сессии.
type Service interface {
	CreateBooking(ctx context.Context, caller models.Caller, req models.CreateBookingRequest) (*models.Booking, error)
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
// @Summary Забронировать сессию
// @Description Резервирует сессию в активной подписке и создаёт бронирование в окне доступности ментора.
// @Tags Bookings
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.CreateBookingRequest true "Параметры сессии"
// @Success 201 {object} response.Response "Созданная сессия"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос или время вне доступности"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 402 {object} response.ErrorResponse "Сессии в подписке закончились"
// @Failure 404 {object} response.ErrorResponse "Нет активной подписки или ментора"
// @Failure 409 {object} response.ErrorResponse "Время уже занято"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /bookings [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.create"
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

	var req models.CreateBookingRequest
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

	booking, err := h.service.CreateBooking(r.Context(), caller, req)
	if err != nil {
		response.Fail(w, r, log, "failed to create booking", err)
		return
	}

	log.Info("booking created", slog.String("booking_id", booking.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"booking": booking,
	}))
}
