// Package join реализует HTTP-обработчик присоединения к закупке.
//
// При достижении минимального числа участников закупка автоматически
// переходит в фазу аукциона, о чем сообщается в ответе.
package join

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/response"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/lib/sl"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/storage/repository"
)

// Handler управляет HTTP-запросами присоединения к закупке.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики присоединения.
type Service interface {
	Join(ctx context.Context, userUID string, purchaseID int) (*repository.JoinResult, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Присоединиться к закупке
// @Description Добавляет текущего пользователя в число участников закупки. При достижении кворума открывается прием ставок.
// @Tags Purchases
// @Produce  json
// @Param id path int true "ID закупки"
// @Success 200 {object} map[string]any "Пользователь присоединен"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 403 {object} response.ErrorResponse "Присоединение запрещено"
// @Failure 409 {object} response.ErrorResponse "Пользователь уже участвует"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /purchases/{id}/join [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchase.join"
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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.Join(r.Context(), userUID, id)
	if err != nil {
		log.Error("failed to join purchase", sl.Err(err))
		w.WriteHeader(response.DomainStatusCode(err))
		render.JSON(w, r, response.DomainError(err, "could not join purchase"))
		return
	}

	log.Info("user joined purchase",
		slog.Int("id", id),
		slog.Int("participants", result.NewCount),
		slog.Bool("bidding_started", result.BiddingStarted))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"participants":    result.NewCount,
		"bidding_started": result.BiddingStarted,
	}))
}
