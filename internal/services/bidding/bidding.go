// Package services реализует аукцион закупки: приём ставок продавцов
// со списанием баллов, выдачу списка ставок и выбор победителя.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/metrics"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/notifier"
	eligibility "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/eligibility"
)

// Стоимость участия в аукционе в баллах.
const (
	NewBidCost   = 10 // Новая ставка
	RevisionCost = 5  // Изменение существующей ставки
)

// PriceBoundFactor ограничивает цену ставки относительно ожидаемой цены закупки.
const PriceBoundFactor = 1.5

// VoteWindow — окно голосования, открываемое после выбора победителя.
const VoteWindow = 72 * time.Hour

// BiddingRepository определяет методы хранилища для работы со ставками.
type BiddingRepository interface {
	// ReadPurchase возвращает закупку по ID.
	ReadPurchase(ctx context.Context, id int) (*models.GroupPurchase, error)
	// GetUser возвращает пользователя по uid.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// UpsertBid размещает или обновляет ставку со списанием баллов атомарно.
	UpsertBid(ctx context.Context, sellerUID string, purchaseID, price int, description string, newCost, revisionCost int) (*models.BidResult, error)
	// ListBids возвращает ставки закупки по возрастанию цены.
	ListBids(ctx context.Context, purchaseID int) ([]*models.BidView, error)
	// SelectWinningBid закрывает аукцион и возвращает победителя, nil если ставок не было.
	SelectWinningBid(ctx context.Context, purchaseID int, voteWindow time.Duration) (*models.Bid, error)
	// ListParticipantEmails возвращает адреса участников закупки.
	ListParticipantEmails(ctx context.Context, purchaseID int) (map[string]string, error)
}

// BiddingService реализует бизнес-логику аукциона.
type BiddingService struct {
	repo     BiddingRepository
	notifier notifier.Notifier
	log      *slog.Logger
}

// NewBiddingService создает новый экземпляр BiddingService.
func NewBiddingService(repo BiddingRepository, notifier notifier.Notifier, log *slog.Logger) *BiddingService {
	return &BiddingService{
		repo:     repo,
		notifier: notifier,
		log:      log,
	}
}

// PlaceBid размещает ставку продавца или обновляет существующую.
// Количество списанных баллов возвращается вызывающему и вычисляется
// в той же транзакции, что и запись ставки.
func (s *BiddingService) PlaceBid(ctx context.Context, sellerUID string, purchaseID int, req models.DummyBid) (*models.BidResult, error) {
	user, err := s.repo.GetUser(ctx, sellerUID)
	if err != nil {
		return nil, err
	}
	purchase, err := s.repo.ReadPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}

	if err := eligibility.Check(eligibility.ActionBid, eligibility.Facts{
		Now:      time.Now(),
		User:     user,
		Purchase: purchase,
	}); err != nil {
		return nil, err
	}

	if req.Price <= 0 {
		return nil, domerr.Validation("bid price must be positive")
	}
	if purchase.ExpectedPrice > 0 {
		limit := int(float64(purchase.ExpectedPrice) * PriceBoundFactor)
		if req.Price > limit {
			return nil, domerr.Validation("bid price %d exceeds limit %d", req.Price, limit)
		}
	}

	result, err := s.repo.UpsertBid(ctx, sellerUID, purchaseID, req.Price, req.Description, NewBidCost, RevisionCost)
	if err != nil {
		return nil, err
	}

	kind := "revision"
	if result.IsNew {
		kind = "new"
	}
	metrics.BidsPlaced.WithLabelValues(kind).Inc()
	s.log.Info("bid placed",
		slog.String("seller_uid", sellerUID),
		slog.Int("purchase_id", purchaseID),
		slog.Int("price", req.Price),
		slog.Int("points_deducted", result.PointsDeducted))

	return result, nil
}

// ListBids возвращает ставки закупки по возрастанию цены.
func (s *BiddingService) ListBids(ctx context.Context, purchaseID int) ([]*models.BidView, error) {
	return s.repo.ListBids(ctx, purchaseID)
}

// CloseAuction выбирает победителя аукциона. Побеждает наименьшая цена,
// при равенстве — более ранняя ставка. Закупка без ставок отменяется,
// участники получают уведомление об отмене.
func (s *BiddingService) CloseAuction(ctx context.Context, purchaseID int) (*models.Bid, error) {
	winner, err := s.repo.SelectWinningBid(ctx, purchaseID, VoteWindow)
	if err != nil {
		return nil, err
	}

	if winner == nil {
		metrics.StatusTransitions.WithLabelValues(models.StatusBidding, models.StatusCancelled).Inc()
		s.log.Info("auction closed without bids, purchase cancelled", slog.Int("purchase_id", purchaseID))
		s.notifyParticipants(ctx, purchaseID, models.NotificationEvent{
			Type:            models.NotifyCancelled,
			Subject:         "Закупка отменена",
			Body:            "Аукцион завершился без ставок, закупка отменена.",
			GroupPurchaseID: purchaseID,
		})
		return nil, nil
	}

	metrics.StatusTransitions.WithLabelValues(models.StatusBidding, models.StatusVoting).Inc()
	s.log.Info("winning bid selected",
		slog.Int("purchase_id", purchaseID),
		slog.Int("bid_id", winner.ID),
		slog.Int("price", winner.Price))
	return winner, nil
}

func (s *BiddingService) notifyParticipants(ctx context.Context, purchaseID int, event models.NotificationEvent) {
	emails, err := s.repo.ListParticipantEmails(ctx, purchaseID)
	if err != nil {
		s.log.Warn("failed to list participants for notification", slog.Int("purchase_id", purchaseID))
		return
	}
	for uid, email := range emails {
		event.UserUID = uid
		event.Email = email
		s.notifier.Notify(event)
	}
}
