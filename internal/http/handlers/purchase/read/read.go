// Package read реализует HTTP-обработчик чтения одной закупки по ID.
package read

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

// Handler управляет HTTP-запросами чтения закупки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения закупки.
type Service interface {
	Read(ctx context.Context, id int) (*models.GroupPurchase, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить закупку
// @Description Возвращает данные совместной закупки по её ID.
// @Tags Purchases
// @Produce  json
// @Param id path int true "ID закупки"
// @Success 200 {object} map[string]any "Данные закупки"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Закупка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /purchases/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchase.read"
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

	purchase, err := h.service.Read(r.Context(), id)
	if err != nil {
		log.Error("failed to read purchase", sl.Err(err))
		w.WriteHeader(response.DomainStatusCode(err))
		render.JSON(w, r, response.DomainError(err, "could not read purchase"))
		return
	}

	log.Info("purchase found", slog.Int("id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"purchase": purchase,
	}))
}
