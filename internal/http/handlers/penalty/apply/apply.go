// Package apply реализует HTTP-обработчик наложения штрафа администратором.
package apply

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/response"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/lib/sl"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// Handler управляет HTTP-запросами наложения штрафов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики штрафов.
type Service interface {
	Apply(ctx context.Context, req models.DummyPenalty) (*models.UserPenalty, error)
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
// @Summary Наложить штраф
// @Description Накладывает штраф на пользователя с эскалацией срока блокировки по числу прошлых нарушений. Доступно только администратору.
// @Tags Penalties
// @Accept  json
// @Produce  json
// @Param request body models.DummyPenalty true "Данные штрафа"
// @Success 200 {object} map[string]any "Штраф наложен"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /penalties [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.penalty.apply"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	role, ok := r.Context().Value(middlewarectx.Role).(string)
	if !ok || role != models.RoleAdmin {
		log.Error("forbidden: admin role required", slog.String("role", role))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("admin role required"))
		return
	}

	var req models.DummyPenalty
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	penalty, err := h.service.Apply(r.Context(), req)
	if err != nil {
		log.Error("failed to apply penalty", sl.Err(err))
		w.WriteHeader(response.DomainStatusCode(err))
		render.JSON(w, r, response.DomainError(err, "could not apply penalty"))
		return
	}

	log.Info("penalty applied",
		slog.String("user_uid", req.UserUID),
		slog.String("type", req.Type),
		slog.Int("duration_hours", penalty.DurationHours))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"penalty": penalty,
	}))
}
