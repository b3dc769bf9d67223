// Package selectwinner реализует HTTP-обработчик принудительного закрытия аукциона.
//
// Обычно аукционы закрывает фоновый обходчик по истечении окна,
// этот обработчик дает администратору возможность сделать это вручную.
package selectwinner

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
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// Handler управляет HTTP-запросами закрытия аукциона.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики выбора победителя.
type Service interface {
	CloseAuction(ctx context.Context, purchaseID int) (*models.Bid, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Закрыть аукцион
// @Description Выбирает победившую ставку и открывает голосование. Без ставок закупка отменяется. Доступно только администратору.
// @Tags Bids
// @Produce  json
// @Param id path int true "ID закупки"
// @Success 200 {object} map[string]any "Результат закрытия аукциона"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Закупка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /purchases/{id}/bids/select [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.bid.selectwinner"
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

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		log.Error("invalid purchase id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid purchase id"))
		return
	}

	winner, err := h.service.CloseAuction(r.Context(), id)
	if err != nil {
		log.Error("failed to close auction", sl.Err(err))
		w.WriteHeader(response.DomainStatusCode(err))
		render.JSON(w, r, response.DomainError(err, "could not close auction"))
		return
	}

	if winner == nil {
		log.Info("auction closed without bids", slog.Int("purchase_id", id))
		render.JSON(w, r, response.StatusOKWithData(map[string]any{
			"cancelled": true,
		}))
		return
	}

	log.Info("auction closed",
		slog.Int("purchase_id", id),
		slog.Int("winning_bid_id", winner.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"cancelled":   false,
		"winning_bid": winner,
	}))
}
