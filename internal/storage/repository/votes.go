package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// HasVoted сообщает, голосовал ли участник по закупке.
func (s *Storage) HasVoted(ctx context.Context, userUID string, purchaseID int) (bool, error) {
	const op = "storage.HasVoted"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM votes WHERE user_uid = $1 AND group_purchase_id = $2)`,
		userUID, purchaseID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// InsertVoteAndTally записывает голос и в той же транзакции подводит итог,
// если проголосовали все текущие участники. Порог threshold передаётся
// вызывающей стороной уже вычисленным. Досрочное решение после голоса
// последнего участника не откладывается до конца окна.
func (s *Storage) InsertVoteAndTally(ctx context.Context, vote models.Vote, threshold float64) (*models.TallyResult, error) {
	const op = "storage.InsertVoteAndTally"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var result models.TallyResult
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		p, err := lockPurchaseTx(ctx, tx, vote.GroupPurchaseID)
		if err != nil {
			return err
		}
		if p.Status != models.StatusVoting {
			return domerr.Eligibility("purchase is not in voting")
		}

		if _, err = tx.ExecContext(ctx,
			`INSERT INTO votes (user_uid, group_purchase_id, approved)
			 VALUES ($1, $2, $3)`,
			vote.UserUID, vote.GroupPurchaseID, vote.Approved); err != nil {
			return err
		}

		if err = tx.QueryRowContext(ctx,
			`SELECT count(*), count(*) FILTER (WHERE approved)
			 FROM votes WHERE group_purchase_id = $1`,
			vote.GroupPurchaseID).Scan(&result.Total, &result.Approved); err != nil {
			return err
		}

		if result.Total < p.CurrentParticipants {
			return nil
		}

		result.Decided = true
		result.NewStatus = models.StatusCancelled
		if float64(result.Approved) >= threshold*float64(result.Total) {
			result.NewStatus = models.StatusConfirmed
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE group_purchases SET status = $1 WHERE id = $2`,
			result.NewStatus, vote.GroupPurchaseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetVoteStats возвращает текущее состояние голосования без блокировок.
func (s *Storage) GetVoteStats(ctx context.Context, purchaseID int) (*models.VoteStats, error) {
	const op = "storage.GetVoteStats"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var stats models.VoteStats
	err := s.DB.QueryRowContext(ctx,
		`SELECT count(*), count(*) FILTER (WHERE approved)
		 FROM votes WHERE group_purchase_id = $1`,
		purchaseID).Scan(&stats.Total, &stats.Approved)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.Total > 0 {
		stats.ApprovalRate = float64(stats.Approved) / float64(stats.Total)
	}
	return &stats, nil
}

// ForceTally подводит итог по уже отданным голосам после истечения окна
// голосования. Решение принимается по доле одобривших среди проголосовавших,
// закупка без голосов отменяется.
func (s *Storage) ForceTally(ctx context.Context, purchaseID int, threshold float64) (*models.TallyResult, error) {
	const op = "storage.ForceTally"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var result models.TallyResult
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		p, err := lockPurchaseTx(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if p.Status != models.StatusVoting {
			return domerr.Eligibility("purchase is not in voting")
		}

		if err = tx.QueryRowContext(ctx,
			`SELECT count(*), count(*) FILTER (WHERE approved)
			 FROM votes WHERE group_purchase_id = $1`,
			purchaseID).Scan(&result.Total, &result.Approved); err != nil {
			return err
		}

		result.Decided = true
		result.NewStatus = models.StatusCancelled
		if result.Total > 0 && float64(result.Approved) >= threshold*float64(result.Total) {
			result.NewStatus = models.StatusConfirmed
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE group_purchases SET status = $1 WHERE id = $2`,
			result.NewStatus, purchaseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
