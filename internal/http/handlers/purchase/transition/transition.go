// Package transition реализует HTTP-обработчик проверки дедлайна закупки.
//
// Просроченное окно аукциона или голосования обычно закрывает фоновый
// обходчик; этот обработчик выполняет ту же проверку по запросу, чтобы
// участник не ждал следующего прохода.
package transition

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
)

// Handler управляет HTTP-запросами проверки дедлайнов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики проверки дедлайна.
type Service interface {
	Transition(ctx context.Context, purchaseID int) (string, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Проверить дедлайн закупки
// @Description Закрывает аукцион или подводит итог голосования, если соответствующее окно уже истекло.
// @Tags Purchases
// @Produce  json
// @Param id path int true "ID закупки"
// @Success 200 {object} map[string]any "Новый статус закупки"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Закупка не найдена"
// @Failure 422 {object} response.ErrorResponse "Дедлайн ещё не наступил"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /purchases/{id}/transition [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchase.transition"
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

	status, err := h.service.Transition(r.Context(), id)
	if err != nil {
		log.Error("failed to transition purchase", sl.Err(err))
		w.WriteHeader(response.DomainStatusCode(err))
		render.JSON(w, r, response.DomainError(err, "could not transition purchase"))
		return
	}

	log.Info("purchase transitioned", slog.Int("id", id), slog.String("status", status))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id":     id,
		"status": status,
	}))
}
