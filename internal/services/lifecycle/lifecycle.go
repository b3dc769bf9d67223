// Package services реализует жизненный цикл совместной закупки: создание
// и публикацию, вступление и выход участников, завершение и чтение с кешем.
// Таблица переходов статусов принадлежит этому сервису, атомарность
// отдельных переходов обеспечивает хранилище.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/metrics"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/notifier"
	eligibility "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/eligibility"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/storage/repository"
)

// AuctionWindow — длительность аукциона после набора кворума.
const AuctionWindow = 7 * 24 * time.Hour

// MaxActivePurchases — предел одновременных активных закупок одного организатора.
const MaxActivePurchases = 2

// LifecycleRepository определяет методы хранилища для работы с закупками.
type LifecycleRepository interface {
	// CreatePurchase сохраняет черновик закупки и возвращает её ID.
	CreatePurchase(ctx context.Context, p models.GroupPurchase) (int, error)
	// PublishPurchase переводит черновик в набор с автовступлением организатора.
	PublishPurchase(ctx context.Context, id int, creatorUID string) error
	// ReadPurchase возвращает закупку по ID.
	ReadPurchase(ctx context.Context, id int) (*models.GroupPurchase, error)
	// ListPurchases возвращает список закупок с пагинацией.
	ListPurchases(ctx context.Context, limit, offset int) ([]*models.GroupPurchase, error)
	// CountActiveByCreator считает активные закупки организатора.
	CountActiveByCreator(ctx context.Context, creatorUID string) (int, error)
	// DeletePurchase удаляет закупку организатора на ранней стадии.
	DeletePurchase(ctx context.Context, id int, callerUID string) error
	// CompletePurchase переводит подтверждённую закупку в завершённые.
	CompletePurchase(ctx context.Context, id int) error
	// AddParticipant вступает в закупку с проверкой кворума атомарно.
	AddParticipant(ctx context.Context, userUID string, purchaseID int, auctionWindow time.Duration) (*repository.JoinResult, error)
	// RemoveParticipant выходит из закупки с удалением ставок атомарно.
	RemoveParticipant(ctx context.Context, userUID string, purchaseID int) (*repository.WithdrawResult, error)
	// IsParticipant сообщает, участвует ли пользователь в закупке.
	IsParticipant(ctx context.Context, userUID string, purchaseID int) (bool, error)
	// GetUser возвращает пользователя по uid.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// ListParticipantEmails возвращает адреса участников закупки.
	ListParticipantEmails(ctx context.Context, purchaseID int) (map[string]string, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// PenaltyApplier накладывает штраф, политика срабатывания принадлежит
// жизненному циклу, а не журналу штрафов.
type PenaltyApplier interface {
	Apply(ctx context.Context, req models.DummyPenalty) (*models.UserPenalty, error)
}

// LifecycleService реализует бизнес-логику жизненного цикла закупки.
type LifecycleService struct {
	repo      LifecycleRepository
	cache     Cache
	penalties PenaltyApplier
	notifier  notifier.Notifier
	log       *slog.Logger
}

// NewLifecycleService создает новый экземпляр LifecycleService.
func NewLifecycleService(repo LifecycleRepository, cache Cache, penalties PenaltyApplier,
	notifier notifier.Notifier, log *slog.Logger) *LifecycleService {
	return &LifecycleService{
		repo:      repo,
		cache:     cache,
		penalties: penalties,
		notifier:  notifier,
		log:       log,
	}
}

// Create сохраняет черновик закупки. Создавать закупки могут только
// потребители, организатор с двумя активными закупками не может открыть третью.
func (s *LifecycleService) Create(ctx context.Context, creatorUID string, req models.DummyPurchase) (int, error) {
	if req.MinParticipants >= req.MaxParticipants {
		return 0, domerr.Validation("min participants must be less than max participants")
	}

	user, err := s.repo.GetUser(ctx, creatorUID)
	if err != nil {
		return 0, err
	}
	if err := eligibility.Check(eligibility.ActionCreate, eligibility.Facts{
		Now:  time.Now(),
		User: user,
	}); err != nil {
		return 0, err
	}

	active, err := s.repo.CountActiveByCreator(ctx, creatorUID)
	if err != nil {
		return 0, err
	}
	if active >= MaxActivePurchases {
		return 0, domerr.Eligibility("creator already has %d active purchases", active)
	}

	id, err := s.repo.CreatePurchase(ctx, models.GroupPurchase{
		Title:           req.Title,
		Description:     req.Description,
		Status:          models.StatusDraft,
		CreatorUID:      creatorUID,
		MinParticipants: req.MinParticipants,
		MaxParticipants: req.MaxParticipants,
		ExpectedPrice:   req.ExpectedPrice,
		VoteThreshold:   req.VoteThreshold,
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("created group purchase draft", slog.Int("id", id), slog.String("creator_uid", creatorUID))
	return id, nil
}

// Publish переводит черновик в набор участников, организатор вступает первым.
func (s *LifecycleService) Publish(ctx context.Context, id int, callerUID string) error {
	if err := s.repo.PublishPurchase(ctx, id, callerUID); err != nil {
		return err
	}
	metrics.StatusTransitions.WithLabelValues(models.StatusDraft, models.StatusRecruiting).Inc()
	s.invalidate(id)
	s.log.Info("group purchase published", slog.Int("id", id))
	return nil
}

// Join вступает в закупку. Достижение кворума набора открывает аукцион
// в той же транзакции, что и вступление.
func (s *LifecycleService) Join(ctx context.Context, userUID string, purchaseID int) (*repository.JoinResult, error) {
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}
	purchase, err := s.repo.ReadPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	isParticipant, err := s.repo.IsParticipant(ctx, userUID, purchaseID)
	if err != nil {
		return nil, err
	}

	if err := eligibility.Check(eligibility.ActionJoin, eligibility.Facts{
		Now:           time.Now(),
		User:          user,
		Purchase:      purchase,
		IsParticipant: isParticipant,
	}); err != nil {
		return nil, err
	}

	result, err := s.repo.AddParticipant(ctx, userUID, purchaseID, AuctionWindow)
	if err != nil {
		return nil, err
	}
	s.invalidate(purchaseID)
	if result.BiddingStarted {
		metrics.StatusTransitions.WithLabelValues(models.StatusRecruiting, models.StatusBidding).Inc()
		s.log.Info("quorum reached, auction opened",
			slog.Int("purchase_id", purchaseID),
			slog.Int("participants", result.NewCount))
	}
	return result, nil
}

// Withdraw выходит из закупки. Выход со сделанной ставкой наказывается
// штрафом, выход последнего участника отменяет закупку.
func (s *LifecycleService) Withdraw(ctx context.Context, userUID string, purchaseID int) (*repository.WithdrawResult, error) {
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}
	purchase, err := s.repo.ReadPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	isParticipant, err := s.repo.IsParticipant(ctx, userUID, purchaseID)
	if err != nil {
		return nil, err
	}

	if err := eligibility.Check(eligibility.ActionWithdraw, eligibility.Facts{
		Now:           time.Now(),
		User:          user,
		Purchase:      purchase,
		IsParticipant: isParticipant,
	}); err != nil {
		return nil, err
	}

	result, err := s.repo.RemoveParticipant(ctx, userUID, purchaseID)
	if err != nil {
		return nil, err
	}
	s.invalidate(purchaseID)

	if result.HadBids {
		if _, err := s.penalties.Apply(ctx, models.DummyPenalty{
			UserUID:         userUID,
			Type:            models.PenaltyCancellation,
			Reason:          "withdrew after placing a bid",
			GroupPurchaseID: &purchaseID,
		}); err != nil {
			s.log.Error("failed to apply withdrawal penalty",
				slog.String("user_uid", userUID),
				slog.Int("purchase_id", purchaseID))
		}
	}
	if result.Cancelled {
		metrics.StatusTransitions.WithLabelValues(models.StatusRecruiting, models.StatusCancelled).Inc()
		s.log.Info("last participant left, purchase cancelled", slog.Int("purchase_id", purchaseID))
	}
	return result, nil
}

// Remove удаляет закупку. Доступно только организатору на ранней стадии,
// пока в закупке не больше одного участника.
func (s *LifecycleService) Remove(ctx context.Context, id int, callerUID string) error {
	if err := s.repo.DeletePurchase(ctx, id, callerUID); err != nil {
		return err
	}
	s.invalidate(id)
	s.log.Info("group purchase deleted", slog.Int("id", id))
	return nil
}

// Complete переводит подтверждённую закупку в завершённые и просит
// участников оставить отзыв.
func (s *LifecycleService) Complete(ctx context.Context, id int) error {
	if err := s.repo.CompletePurchase(ctx, id); err != nil {
		return err
	}
	metrics.StatusTransitions.WithLabelValues(models.StatusConfirmed, models.StatusCompleted).Inc()
	s.invalidate(id)
	s.log.Info("group purchase completed", slog.Int("id", id))

	emails, err := s.repo.ListParticipantEmails(ctx, id)
	if err != nil {
		s.log.Warn("failed to list participants for review request", slog.Int("purchase_id", id))
		return nil
	}
	for uid, email := range emails {
		s.notifier.Notify(models.NotificationEvent{
			UserUID:         uid,
			Email:           email,
			Type:            models.NotifyReview,
			Subject:         "Оставьте отзыв о закупке",
			Body:            "Закупка завершена. Поделитесь впечатлением об организаторе.",
			GroupPurchaseID: id,
		})
	}
	return nil
}

// Read возвращает закупку по ID, используя кеш или хранилище.
func (s *LifecycleService) Read(ctx context.Context, id int) (*models.GroupPurchase, error) {
	var result *models.GroupPurchase
	cacheKey := cacheKeyFor(id)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		s.log.Warn("cache lookup failed", slog.String("key", cacheKey))
	}
	if found {
		return result, nil
	}
	result, err = s.repo.ReadPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, result, time.Hour); err != nil {
		s.log.Warn("failed to cache purchase", slog.String("key", cacheKey))
	}
	return result, nil
}

// List возвращает закупки с пагинацией.
func (s *LifecycleService) List(ctx context.Context, limit, offset int) ([]*models.GroupPurchase, error) {
	return s.repo.ListPurchases(ctx, limit, offset)
}

func (s *LifecycleService) invalidate(id int) {
	if err := s.cache.Invalidate(cacheKeyFor(id)); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", cacheKeyFor(id)))
	}
}

func cacheKeyFor(id int) string {
	return fmt.Sprintf("purchase:%d", id)
}
