// Package list реализует HTTP-обработчик списка сессий вызывающего.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/mentorship-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/mentorship-booking/internal/http/response"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

const defaultLimit = 50

// Handler управляет HTTP-запросами на получение списка сессий.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает чтение списка сессий.
type Service interface {
	ListBookings(ctx context.Context, caller models.Caller, limit, offset int) ([]*models.Booking, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список сессий
// @Description Пользователь видит свои сессии, ментор сессии с собой, администратор все.
// @Tags Bookings
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Размер страницы" default(50)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.Response "Список сессий"
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры пагинации"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /bookings [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.list"
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

	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid limit"))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid offset"))
		return
	}

	bookings, err := h.service.ListBookings(r.Context(), caller, limit, offset)
	if err != nil {
		response.Fail(w, r, log, "failed to list bookings", err)
		return
	}

	log.Info("bookings listed", slog.Int("count", len(bookings)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"bookings": bookings,
	}))
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
