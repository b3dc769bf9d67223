// Package services реализует отзывы участников о завершённых закупках
// и пересчёт рейтинга организатора.
package services

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// ReviewRepository определяет методы хранилища для работы с отзывами.
type ReviewRepository interface {
	// ReadPurchase возвращает закупку по ID.
	ReadPurchase(ctx context.Context, id int) (*models.GroupPurchase, error)
	// IsParticipant сообщает, участвует ли пользователь в закупке.
	IsParticipant(ctx context.Context, userUID string, purchaseID int) (bool, error)
	// CreateReviewAndRate сохраняет отзыв и пересчитывает рейтинг организатора.
	CreateReviewAndRate(ctx context.Context, review models.Review) (*models.Review, error)
	// ListReviews возвращает отзывы о закупке.
	ListReviews(ctx context.Context, purchaseID int) ([]*models.Review, error)
}

// ReviewService реализует бизнес-логику отзывов.
type ReviewService struct {
	repo ReviewRepository
	log  *slog.Logger
}

// NewReviewService создает новый экземпляр ReviewService.
func NewReviewService(repo ReviewRepository, log *slog.Logger) *ReviewService {
	return &ReviewService{repo: repo, log: log}
}

// Create сохраняет отзыв участника. Отзыв принимается только от участника
// завершённой закупки и только один раз.
func (s *ReviewService) Create(ctx context.Context, userUID string, req models.DummyReview) (*models.Review, error) {
	purchase, err := s.repo.ReadPurchase(ctx, req.GroupPurchaseID)
	if err != nil {
		return nil, err
	}
	if purchase.Status != models.StatusCompleted {
		return nil, domerr.Eligibility("purchase is not completed")
	}
	isParticipant, err := s.repo.IsParticipant(ctx, userUID, req.GroupPurchaseID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, domerr.Eligibility("only participants can leave a review")
	}

	review, err := s.repo.CreateReviewAndRate(ctx, models.Review{
		UserUID:         userUID,
		GroupPurchaseID: req.GroupPurchaseID,
		Rating:          req.Rating,
		Content:         req.Content,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("review created",
		slog.String("user_uid", userUID),
		slog.Int("purchase_id", req.GroupPurchaseID),
		slog.Int("rating", req.Rating))
	return review, nil
}

// List возвращает отзывы о закупке, новые первыми.
func (s *ReviewService) List(ctx context.Context, purchaseID int) ([]*models.Review, error) {
	return s.repo.ListReviews(ctx, purchaseID)
}
