// Package services реализует фоновый обход просроченных дедлайнов.
// Закупка с истёкшим окном не ждёт попутного запроса: обход принудительно
// закрывает аукционы и подводит итоги голосований.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/lib/sl"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// DeadlineRepository определяет выборки просроченных закупок.
type DeadlineRepository interface {
	// ListExpiredAuctions возвращает закупки в BIDDING с истёкшим окном аукциона.
	ListExpiredAuctions(ctx context.Context, now time.Time) ([]int, error)
	// ListExpiredVoteWindows возвращает закупки в VOTING с истёкшим окном голосования.
	ListExpiredVoteWindows(ctx context.Context, now time.Time) ([]int, error)
	// ReadPurchase возвращает закупку по её ID.
	ReadPurchase(ctx context.Context, id int) (*models.GroupPurchase, error)
}

// AuctionCloser закрывает аукцион закупки.
type AuctionCloser interface {
	CloseAuction(ctx context.Context, purchaseID int) (*models.Bid, error)
}

// VoteTallier подводит итог голосования закупки.
type VoteTallier interface {
	Tally(ctx context.Context, purchaseID int) (*models.TallyResult, error)
}

// SweeperService периодически обходит просроченные дедлайны закупок.
type SweeperService struct {
	repo     DeadlineRepository
	bidding  AuctionCloser
	voting   VoteTallier
	interval time.Duration
	log      *slog.Logger
}

// NewSweeperService создает новый экземпляр SweeperService.
func NewSweeperService(repo DeadlineRepository, bidding AuctionCloser, voting VoteTallier,
	interval time.Duration, log *slog.Logger) *SweeperService {
	return &SweeperService{
		repo:     repo,
		bidding:  bidding,
		voting:   voting,
		interval: interval,
		log:      log,
	}
}

// Run запускает цикл обхода до отмены контекста.
func (s *SweeperService) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Transition проверяет дедлайн одной закупки по запросу и, если окно истекло,
// закрывает аукцион или подводит итог голосования. Возвращает новый статус.
func (s *SweeperService) Transition(ctx context.Context, purchaseID int) (string, error) {
	const op = "services.sweeper.Transition"

	p, err := s.repo.ReadPurchase(ctx, purchaseID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	now := time.Now()

	switch p.Status {
	case models.StatusBidding:
		if p.AuctionEndTime == nil || now.Before(*p.AuctionEndTime) {
			return "", domerr.Validation("auction window has not expired")
		}
		winner, err := s.bidding.CloseAuction(ctx, purchaseID)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if winner == nil {
			return models.StatusCancelled, nil
		}
		return models.StatusVoting, nil
	case models.StatusVoting:
		if p.VoteEndTime == nil || now.Before(*p.VoteEndTime) {
			return "", domerr.Validation("vote window has not expired")
		}
		result, err := s.voting.Tally(ctx, purchaseID)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		return result.NewStatus, nil
	}
	return "", domerr.Validation("purchase has no pending deadline")
}

// Sweep выполняет один проход: закрывает истёкшие аукционы и подводит
// итоги истёкших голосований. Сбой на одной закупке не прерывает проход.
func (s *SweeperService) Sweep(ctx context.Context) {
	now := time.Now()

	expired, err := s.repo.ListExpiredAuctions(ctx, now)
	if err != nil {
		s.log.Error("failed to list expired auctions", sl.Err(err))
	} else {
		for _, id := range expired {
			if _, err := s.bidding.CloseAuction(ctx, id); err != nil {
				s.log.Error("failed to close expired auction", slog.Int("purchase_id", id), sl.Err(err))
			}
		}
		if len(expired) > 0 {
			s.log.Info("closed expired auctions", slog.Int("count", len(expired)))
		}
	}

	stale, err := s.repo.ListExpiredVoteWindows(ctx, now)
	if err != nil {
		s.log.Error("failed to list expired vote windows", sl.Err(err))
		return
	}
	for _, id := range stale {
		if _, err := s.voting.Tally(ctx, id); err != nil {
			s.log.Error("failed to tally expired voting", slog.Int("purchase_id", id), sl.Err(err))
		}
	}
	if len(stale) > 0 {
		s.log.Info("tallied expired votings", slog.Int("count", len(stale)))
	}
}
