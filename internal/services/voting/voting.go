// Package services реализует голосование участников: учёт голосов,
// динамический порог одобрения и подведение итога.
package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/metrics"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/notifier"
	eligibility "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/eligibility"
)

// VotingRepository определяет методы хранилища для работы с голосами.
type VotingRepository interface {
	// ReadPurchase возвращает закупку по ID.
	ReadPurchase(ctx context.Context, id int) (*models.GroupPurchase, error)
	// IsParticipant сообщает, участвует ли пользователь в закупке.
	IsParticipant(ctx context.Context, userUID string, purchaseID int) (bool, error)
	// HasVoted сообщает, голосовал ли участник по закупке.
	HasVoted(ctx context.Context, userUID string, purchaseID int) (bool, error)
	// InsertVoteAndTally записывает голос и подводит итог при полном кворуме.
	InsertVoteAndTally(ctx context.Context, vote models.Vote, threshold float64) (*models.TallyResult, error)
	// GetVoteStats возвращает статистику голосования без изменения состояния.
	GetVoteStats(ctx context.Context, purchaseID int) (*models.VoteStats, error)
	// ForceTally подводит итог по отданным голосам после истечения окна.
	ForceTally(ctx context.Context, purchaseID int, threshold float64) (*models.TallyResult, error)
	// ListParticipantEmails возвращает адреса участников закупки.
	ListParticipantEmails(ctx context.Context, purchaseID int) (map[string]string, error)
}

// VotingService реализует бизнес-логику голосования.
type VotingService struct {
	repo     VotingRepository
	notifier notifier.Notifier
	log      *slog.Logger
}

// NewVotingService создает новый экземпляр VotingService.
func NewVotingService(repo VotingRepository, notifier notifier.Notifier, log *slog.Logger) *VotingService {
	return &VotingService{
		repo:     repo,
		notifier: notifier,
		log:      log,
	}
}

// EffectiveThreshold возвращает порог одобрения закупки. Явный порог,
// заданный при создании, всегда имеет приоритет. Иначе порог зависит от
// числа участников: малые группы требуют почти единогласия, большие
// допускают несогласных.
func EffectiveThreshold(p *models.GroupPurchase) float64 {
	if p.VoteThreshold > 0 {
		return p.VoteThreshold
	}
	switch {
	case p.CurrentParticipants <= 2:
		return 1.0
	case p.CurrentParticipants <= 5:
		return 0.8
	default:
		return 0.6
	}
}

// CastVote учитывает голос участника. Когда проголосовали все участники,
// итог подводится немедленно, не дожидаясь конца окна голосования.
func (s *VotingService) CastVote(ctx context.Context, userUID string, purchaseID int, approved bool) (*models.TallyResult, error) {
	purchase, err := s.repo.ReadPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	isParticipant, err := s.repo.IsParticipant(ctx, userUID, purchaseID)
	if err != nil {
		return nil, err
	}
	hasVoted, err := s.repo.HasVoted(ctx, userUID, purchaseID)
	if err != nil {
		return nil, err
	}

	if err := eligibility.Check(eligibility.ActionVote, eligibility.Facts{
		Now:           time.Now(),
		User:          &models.User{UID: userUID},
		Purchase:      purchase,
		IsParticipant: isParticipant,
		HasVoted:      hasVoted,
	}); err != nil {
		return nil, err
	}

	threshold := EffectiveThreshold(purchase)
	result, err := s.repo.InsertVoteAndTally(ctx, models.Vote{
		UserUID:         userUID,
		GroupPurchaseID: purchaseID,
		Approved:        approved,
	}, threshold)
	if err != nil {
		return nil, err
	}

	metrics.VotesCast.WithLabelValues(strconv.FormatBool(approved)).Inc()
	s.log.Info("vote cast",
		slog.String("user_uid", userUID),
		slog.Int("purchase_id", purchaseID),
		slog.Bool("approved", approved))

	if result.Decided {
		s.announceDecision(ctx, purchaseID, result)
	}
	return result, nil
}

// Status возвращает текущее состояние голосования без изменения состояния.
func (s *VotingService) Status(ctx context.Context, purchaseID int) (*models.VoteStats, error) {
	purchase, err := s.repo.ReadPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.GetVoteStats(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	stats.Threshold = EffectiveThreshold(purchase)
	stats.StartTime = purchase.VoteStartTime
	stats.EndTime = purchase.VoteEndTime
	return stats, nil
}

// Tally подводит итог голосования по истёкшему окну. Решение принимается
// по отданным голосам, закупка без голосов отменяется.
func (s *VotingService) Tally(ctx context.Context, purchaseID int) (*models.TallyResult, error) {
	purchase, err := s.repo.ReadPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	result, err := s.repo.ForceTally(ctx, purchaseID, EffectiveThreshold(purchase))
	if err != nil {
		return nil, err
	}
	s.announceDecision(ctx, purchaseID, result)
	return result, nil
}

func (s *VotingService) announceDecision(ctx context.Context, purchaseID int, result *models.TallyResult) {
	metrics.StatusTransitions.WithLabelValues(models.StatusVoting, result.NewStatus).Inc()
	s.log.Info("voting decided",
		slog.Int("purchase_id", purchaseID),
		slog.String("new_status", result.NewStatus),
		slog.Int("total", result.Total),
		slog.Int("approved", result.Approved))

	event := models.NotificationEvent{
		Type:            models.NotifyCancelled,
		Subject:         "Закупка отменена",
		Body:            "Участники не подтвердили закупку, она отменена.",
		GroupPurchaseID: purchaseID,
	}
	if result.NewStatus == models.StatusConfirmed {
		event = models.NotificationEvent{
			Type:            models.NotifyConfirmed,
			Subject:         "Закупка подтверждена",
			Body:            "Участники подтвердили закупку, сделка состоится.",
			GroupPurchaseID: purchaseID,
		}
	}

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
