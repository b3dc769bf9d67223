// Package cast реализует HTTP-обработчик подачи голоса по победившей ставке.
//
// Когда голос оказывается последним, в ответе возвращается итоговый
// статус закупки.
package cast

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/response"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/lib/sl"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// Handler управляет HTTP-запросами подачи голосов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики голосования.
type Service interface {
	CastVote(ctx context.Context, userUID string, purchaseID int, approved bool) (*models.TallyResult, error)
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
// @Summary Проголосовать
// @Description Принимает голос участника за или против победившей ставки. Последний голос определяет итог закупки.
// @Tags Votes
// @Accept  json
// @Produce  json
// @Param id path int true "ID закупки"
// @Param request body models.DummyVote true "Голос участника"
// @Success 200 {object} map[string]any "Голос учтен"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 403 {object} response.ErrorResponse "Голосование запрещено"
// @Failure 409 {object} response.ErrorResponse "Повторный голос"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /purchases/{id}/votes [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.vote.cast"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		log.Error("invalid purchase id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid purchase id"))
		return
	}

	var req models.DummyVote
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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.CastVote(r.Context(), userUID, id, *req.Approved)
	if err != nil {
		log.Error("failed to cast vote", sl.Err(err))
		w.WriteHeader(response.DomainStatusCode(err))
		render.JSON(w, r, response.DomainError(err, "could not cast vote"))
		return
	}

	log.Info("vote cast",
		slog.Int("purchase_id", id),
		slog.Bool("decided", result.Decided))
	data := map[string]any{
		"total":    result.Total,
		"approved": result.Approved,
		"decided":  result.Decided,
	}
	if result.Decided {
		data["new_status"] = result.NewStatus
	}
	render.JSON(w, r, response.StatusOKWithData(data))
}
