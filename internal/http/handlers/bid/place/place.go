// Package place реализует HTTP-обработчик подачи ставки продавцом.
//
// За новую ставку с продавца списываются баллы, пересмотр собственной
// ставки обходится дешевле. Результат содержит остаток баллов.
package place

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

// Handler управляет HTTP-запросами подачи ставок.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики подачи ставки.
type Service interface {
	PlaceBid(ctx context.Context, sellerUID string, purchaseID int, req models.DummyBid) (*models.BidResult, error)
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
// @Summary Подать ставку
// @Description Принимает ставку продавца на закупку в фазе аукциона. За новую ставку списываются баллы, пересмотр дешевле.
// @Tags Bids
// @Accept  json
// @Produce  json
// @Param id path int true "ID закупки"
// @Param request body models.DummyBid true "Цена и описание предложения"
// @Success 200 {object} map[string]any "Ставка принята"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 403 {object} response.ErrorResponse "Ставка запрещена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /purchases/{id}/bids [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.bid.place"
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

	var req models.DummyBid
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

	result, err := h.service.PlaceBid(r.Context(), userUID, id, req)
	if err != nil {
		log.Error("failed to place bid", sl.Err(err))
		w.WriteHeader(response.DomainStatusCode(err))
		render.JSON(w, r, response.DomainError(err, "could not place bid"))
		return
	}

	log.Info("bid placed",
		slog.Int("purchase_id", id),
		slog.Int("bid_id", result.Bid.ID),
		slog.Bool("is_new", result.IsNew))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"bid_id":           result.Bid.ID,
		"is_new":           result.IsNew,
		"points_deducted":  result.PointsDeducted,
		"remaining_points": result.RemainingPoints,
	}))
}
