// Package availability реализует HTTP-обработчик замены правил доступности ментора.
package availability

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

// Handler управляет HTTP-запросами на замену правил доступности.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает замену правил доступности.
type Service interface {
	ReplaceAvailability(ctx context.Context, caller models.Caller, mentorID string, rules []models.AvailabilityRule) error
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
// @Summary Заменить правила доступности
// @Description Полностью заменяет набор правил доступности ментора. Доступно самому ментору и администратору.
// @Tags Mentors
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID ментора"
// @Param request body models.ReplaceAvailabilityRequest true "Новый набор правил"
// @Success 200 {object} response.Response "Правила заменены"
// @Failure 400 {object} response.ErrorResponse "Некорректное правило"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Чужой ментор"
// @Failure 404 {object} response.ErrorResponse "Ментор не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /mentors/{id}/availability [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.mentor.availability"
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

	var req models.ReplaceAvailabilityRequest
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

	rules := make([]models.AvailabilityRule, 0, len(req.Rules))
	for _, in := range req.Rules {
		rule, err := in.ToRule()
		if err != nil {
			log.Info("invalid availability rule", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}
		rules = append(rules, rule)
	}

	mentorID := chi.URLParam(r, "id")
	if err := h.service.ReplaceAvailability(r.Context(), caller, mentorID, rules); err != nil {
		response.Fail(w, r, log, "failed to replace availability", err)
		return
	}

	log.Info("availability replaced", slog.String("mentor_id", mentorID), slog.Int("rules", len(rules)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"mentor_id": mentorID,
		"rules":     len(rules),
	}))
}
