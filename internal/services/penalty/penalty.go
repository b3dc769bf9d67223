// Package services реализует журнал штрафов: эскалацию длительности
// блокировки и уведомление оштрафованного пользователя.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/metrics"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/notifier"
)

// PenaltyRepository определяет методы хранилища для работы со штрафами.
type PenaltyRepository interface {
	// ApplyPenalty записывает штраф и обновляет счётчик пользователя атомарно.
	ApplyPenalty(ctx context.Context, userUID string, penaltyType, reason string, purchaseID *int, durationFor func(newCount int) int) (*models.UserPenalty, error)
	// ListPenalties возвращает историю штрафов пользователя.
	ListPenalties(ctx context.Context, userUID string) ([]*models.UserPenalty, error)
	// GetUser возвращает пользователя по uid.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// PenaltyService реализует бизнес-логику наложения штрафов.
type PenaltyService struct {
	repo     PenaltyRepository
	notifier notifier.Notifier
	log      *slog.Logger
}

// NewPenaltyService создает новый экземпляр PenaltyService.
func NewPenaltyService(repo PenaltyRepository, notifier notifier.Notifier, log *slog.Logger) *PenaltyService {
	return &PenaltyService{
		repo:     repo,
		notifier: notifier,
		log:      log,
	}
}

// DurationHours возвращает длительность блокировки в часах по порядковому
// номеру штрафа: 48, 72, 168 и 720 часов начиная с четвёртого. Счётчик
// штрафов никогда не сбрасывается движком.
func DurationHours(newCount int) int {
	switch newCount {
	case 1:
		return 48
	case 2:
		return 72
	case 3:
		return 168
	}
	return 720
}

// Apply накладывает штраф на пользователя и отправляет ему уведомление.
func (s *PenaltyService) Apply(ctx context.Context, req models.DummyPenalty) (*models.UserPenalty, error) {
	penalty, err := s.repo.ApplyPenalty(ctx, req.UserUID, req.Type, req.Reason, req.GroupPurchaseID, DurationHours)
	if err != nil {
		return nil, err
	}
	metrics.PenaltiesApplied.WithLabelValues(penalty.Type).Inc()
	s.log.Info("penalty applied",
		slog.String("user_uid", penalty.UserUID),
		slog.String("type", penalty.Type),
		slog.Int("duration_hours", penalty.DurationHours))

	user, err := s.repo.GetUser(ctx, req.UserUID)
	if err != nil {
		s.log.Warn("failed to load user for penalty notification", slog.String("user_uid", req.UserUID))
		return penalty, nil
	}
	event := models.NotificationEvent{
		UserUID: penalty.UserUID,
		Email:   user.Email,
		Type:    models.NotifyPenalty,
		Subject: "Временная блокировка участия",
		Body: fmt.Sprintf("Здравствуйте, %s!\n\nНа ваш аккаунт наложен штраф (%s) сроком на %d часов. Причина: %s.",
			user.Name, penalty.Type, penalty.DurationHours, penalty.Reason),
	}
	if penalty.GroupPurchaseID != nil {
		event.GroupPurchaseID = *penalty.GroupPurchaseID
	}
	s.notifier.Notify(event)

	return penalty, nil
}

// History возвращает журнал штрафов пользователя, новые первыми.
func (s *PenaltyService) History(ctx context.Context, userUID string) ([]*models.UserPenalty, error) {
	return s.repo.ListPenalties(ctx, userUID)
}
