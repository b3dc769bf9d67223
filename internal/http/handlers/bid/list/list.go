// Package list реализует HTTP-обработчик списка ставок по закупке.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/response"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/lib/sl"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// Handler управляет HTTP-запросами списка ставок.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка ставок.
type Service interface {
	ListBids(ctx context.Context, purchaseID int) ([]*models.BidView, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список ставок
// @Description Возвращает ставки по закупке, отсортированные по цене от низкой к высокой.
// @Tags Bids
// @Produce  json
// @Param id path int true "ID закупки"
// @Success 200 {object} map[string]any "Список ставок"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /purchases/{id}/bids [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.bid.list"
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

	bids, err := h.service.ListBids(r.Context(), id)
	if err != nil {
		log.Error("failed to list bids", sl.Err(err))
		w.WriteHeader(response.DomainStatusCode(err))
		render.JSON(w, r, response.DomainError(err, "could not list bids"))
		return
	}

	log.Info("bids listed", slog.Int("purchase_id", id), slog.Int("count", len(bids)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"bids":  bids,
		"count": len(bids),
	}))
}
