// Package slots реализует HTTP-обработчик свободных окон ментора.
//
// Диапазон задаётся параметрами from и to в формате YYYY-MM-DD, обе даты включительно
// и трактуются в часовом поясе ментора.
package slots

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/mentorship-booking/internal/availability"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/response"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Handler управляет HTTP-запросами на чтение свободных окон.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает расчёт свободных окон.
type Service interface {
	GetAvailableSlots(ctx context.Context, mentorID string, r availability.DateRange) ([]models.Window, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Свободные окна ментора
// @Description Возвращает окна доступности ментора за вычетом занятых сессий.
// @Tags Mentors
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID ментора"
// @Param from query string true "Первая дата, YYYY-MM-DD"
// @Param to query string true "Последняя дата, YYYY-MM-DD"
// @Success 200 {object} response.Response "Свободные окна"
// @Failure 400 {object} response.ErrorResponse "Некорректный диапазон дат"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Ментор не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /mentors/{id}/slots [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.mentor.slots"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	q := r.URL.Query()
	from, err := time.Parse(time.DateOnly, q.Get("from"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("from must be a date in format YYYY-MM-DD"))
		return
	}
	to, err := time.Parse(time.DateOnly, q.Get("to"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("to must be a date in format YYYY-MM-DD"))
		return
	}

	mentorID := chi.URLParam(r, "id")
	windows, err := h.service.GetAvailableSlots(r.Context(), mentorID, availability.DateRange{From: from, To: to})
	if err != nil {
		response.Fail(w, r, log, "failed to get available slots", err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"mentor_id": mentorID,
		"slots":     windows,
	}))
}
