// Package ical реализует HTTP-обработчик выгрузки сессии в формате iCalendar.
package ical

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/mentorship-booking/internal/calendar"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/response"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/sl"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Handler отдаёт сессию файлом .ics.
type Handler struct {
	log     *slog.Logger
	service Service
	now     func() time.Time
}

// Service описывает чтение сессии и её ментора.
type Service interface {
	GetBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error)
	GetMentor(ctx context.Context, mentorID string) (*models.Mentor, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		now:     time.Now,
	}
}

// ServeHTTP godoc
// @Summary Сессия в формате iCalendar
// @Description Возвращает VEVENT сессии для импорта в календарь.
// @Tags Bookings
// @Produce  text/calendar
// @Security BearerAuth
// @Param id path string true "ID сессии"
// @Success 200 {string} string "Файл invite.ics"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет доступа к сессии"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /bookings/{id}/calendar [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.ical"
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

	booking, err := h.service.GetBooking(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, r, log, "failed to read booking", err)
		return
	}

	mentorName := ""
	if mentor, err := h.service.GetMentor(r.Context(), booking.MentorID); err != nil {
		log.Warn("failed to read mentor for calendar event", sl.Err(err))
	} else {
		mentorName = mentor.Name
	}

	body := calendar.ICS(calendar.FromBooking(*booking, mentorName), h.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="invite.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Warn("failed to write calendar body", sl.Err(err))
	}
}
