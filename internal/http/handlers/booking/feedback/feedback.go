// Package feedback реализует HTTP-обработчик обратной связи по завершённой сессии.
//
// Поля оценки проверяются здесь, до обращения к сервису.
package feedback

import (
	"context"
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

// Handler управляет HTTP-запросами с обратной связью.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает сохранение обратной связи.
type Service interface {
	SubmitFeedback(ctx context.Context, caller models.Caller, bookingID string, payload models.Feedback) error
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
// @Summary Оставить обратную связь
// @Description Сохраняет оценку завершённой сессии и пересчитывает рейтинг ментора. Принимается один раз.
// @Tags Bookings
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID сессии"
// @Param request body models.Feedback true "Оценка сессии"
// @Success 201 {object} response.Response "Обратная связь сохранена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Сессия другого пользователя"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Failure 409 {object} response.ErrorResponse "Сессия не завершена или оценка уже есть"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /bookings/{id}/feedback [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.feedback"
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

	var req models.Feedback
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

	id := chi.URLParam(r, "id")
	if err := h.service.SubmitFeedback(r.Context(), caller, id, req); err != nil {
		response.Fail(w, r, log, "failed to submit feedback", err)
		return
	}

	log.Info("feedback submitted", slog.String("booking_id", id), slog.Int("rating", req.Rating))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"booking_id": id,
	}))
}
