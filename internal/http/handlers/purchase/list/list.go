// Package list реализует HTTP-обработчик списка закупок с пагинацией.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/response"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Handler управляет HTTP-запросами списка закупок.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка закупок.
type Service interface {
	List(ctx context.Context, limit, offset int) ([]*models.GroupPurchase, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список закупок
// @Description Возвращает список совместных закупок с пагинацией через query-параметры limit и offset.
// @Tags Purchases
// @Produce  json
// @Param limit query int false "Максимум записей (по умолчанию 20, не более 100)"
// @Param offset query int false "Смещение от начала списка"
// @Success 200 {object} map[string]any "Список закупок"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /purchases/list [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchase.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}

	purchases, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list purchases", slog.String("error", err.Error()))
		w.WriteHeader(response.DomainStatusCode(err))
		render.JSON(w, r, response.DomainError(err, "could not list purchases"))
		return
	}

	log.Info("purchases listed", slog.Int("count", len(purchases)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"purchases": purchases,
		"count":     len(purchases),
	}))
}
