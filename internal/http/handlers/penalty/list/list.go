// Package list реализует HTTP-обработчик истории штрафов.
//
// Пользователь получает собственную историю; администратор может запросить
// чужую через query-параметр user_uid.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/response"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// Handler управляет HTTP-запросами истории штрафов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики истории штрафов.
type Service interface {
	History(ctx context.Context, userUID string) ([]*models.UserPenalty, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary История штрафов
// @Description Возвращает штрафы текущего пользователя от новых к старым. Администратор может запросить историю другого пользователя через user_uid.
// @Tags Penalties
// @Produce  json
// @Param user_uid query string false "UID пользователя (только для администратора)"
// @Success 200 {object} map[string]any "История штрафов"
// @Failure 403 {object} response.ErrorResponse "Чужая история запрошена не администратором"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /penalties [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.penalty.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	callerUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || callerUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	role, _ := r.Context().Value(middlewarectx.Role).(string)

	targetUID := callerUID
	if requested := r.URL.Query().Get("user_uid"); requested != "" && requested != callerUID {
		if role != models.RoleAdmin {
			log.Error("forbidden: penalties of another user requested",
				slog.String("caller", callerUID),
				slog.String("target", requested))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("access denied"))
			return
		}
		targetUID = requested
	}

	penalties, err := h.service.History(r.Context(), targetUID)
	if err != nil {
		log.Error("failed to list penalties", slog.String("error", err.Error()))
		w.WriteHeader(response.DomainStatusCode(err))
		render.JSON(w, r, response.DomainError(err, "could not list penalties"))
		return
	}

	log.Info("penalties listed", slog.String("user_uid", targetUID), slog.Int("count", len(penalties)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"penalties": penalties,
		"count":     len(penalties),
	}))
}
