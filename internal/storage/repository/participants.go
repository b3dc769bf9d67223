package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// JoinResult — итог атомарного вступления в закупку.
type JoinResult struct {
	NewCount       int  // Число участников после вступления
	BiddingStarted bool // Достигнут кворум набора, открыт аукцион
}

// WithdrawResult — итог атомарного выхода из закупки.
type WithdrawResult struct {
	Remaining int  // Число участников после выхода
	Cancelled bool // Закупка отменена: вышел последний участник
	HadBids   bool // У вышедшего были ставки на эту закупку
}

// ListParticipantEmails возвращает адреса участников закупки для рассылки
// уведомлений.
func (s *Storage) ListParticipantEmails(ctx context.Context, purchaseID int) (map[string]string, error) {
	const op = "storage.ListParticipantEmails"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT u.uid, u.email
		 FROM participants p
		 JOIN users u ON p.user_uid = u.uid
		 WHERE p.group_purchase_id = $1`,
		purchaseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make(map[string]string)
	for rows.Next() {
		var uid, email string
		if err := rows.Scan(&uid, &email); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result[uid] = email
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// IsParticipant сообщает, участвует ли пользователь в закупке.
func (s *Storage) IsParticipant(ctx context.Context, userUID string, purchaseID int) (bool, error) {
	const op = "storage.IsParticipant"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
				  SELECT 1 FROM participants
				  WHERE user_uid = $1 AND group_purchase_id = $2)`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userUID, purchaseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// AddParticipant вступает в закупку одной транзакцией: вставка записи участия,
// инкремент счётчика и проверка кворума набора выполняются вместе. Достижение
// minParticipants открывает аукцион с окном auctionWindow от текущего момента.
// Статус и вместимость перепроверяются под блокировкой строки: два
// одновременных вступления на границе вместимости не пройдут оба.
func (s *Storage) AddParticipant(ctx context.Context, userUID string, purchaseID int, auctionWindow time.Duration) (*JoinResult, error) {
	const op = "storage.AddParticipant"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var result JoinResult
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		p, err := lockPurchaseTx(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if p.Status != models.StatusRecruiting {
			return domerr.Eligibility("purchase is not recruiting")
		}
		if p.CurrentParticipants >= p.MaxParticipants {
			return domerr.Eligibility("purchase is full")
		}

		if _, err = tx.ExecContext(ctx,
			`INSERT INTO participants (user_uid, group_purchase_id) VALUES ($1, $2)`,
			userUID, purchaseID); err != nil {
			return err
		}

		result.NewCount = p.CurrentParticipants + 1
		result.BiddingStarted = result.NewCount >= p.MinParticipants

		if result.BiddingStarted {
			now := time.Now()
			end := now.Add(auctionWindow)
			_, err = tx.ExecContext(ctx,
				`UPDATE group_purchases
				 SET current_participants = $1, status = $2,
				     auction_start_time = $3, auction_end_time = $4
				 WHERE id = $5`,
				result.NewCount, models.StatusBidding, now, end, purchaseID)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE group_purchases SET current_participants = $1 WHERE id = $2`,
				result.NewCount, purchaseID)
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET participation_count = participation_count + 1 WHERE uid = $1`,
			userUID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RemoveParticipant выходит из закупки одной транзакцией: удаление записи
// участия, декремент счётчика и отмена опустевшей закупки выполняются вместе.
// Ставки вышедшего на эту закупку удаляются, их наличие возвращается
// вызывающему для наложения штрафа.
func (s *Storage) RemoveParticipant(ctx context.Context, userUID string, purchaseID int) (*WithdrawResult, error) {
	const op = "storage.RemoveParticipant"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var result WithdrawResult
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		p, err := lockPurchaseTx(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if p.Status != models.StatusRecruiting {
			return domerr.Eligibility("withdrawal is only possible while recruiting")
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM participants WHERE user_uid = $1 AND group_purchase_id = $2`,
			userUID, purchaseID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domerr.Eligibility("caller is not a participant")
		}

		bidRes, err := tx.ExecContext(ctx,
			`DELETE FROM bids WHERE seller_uid = $1 AND group_purchase_id = $2`,
			userUID, purchaseID)
		if err != nil {
			return err
		}
		deletedBids, err := bidRes.RowsAffected()
		if err != nil {
			return err
		}
		result.HadBids = deletedBids > 0

		result.Remaining = p.CurrentParticipants - 1
		result.Cancelled = result.Remaining == 0

		if result.Cancelled {
			_, err = tx.ExecContext(ctx,
				`UPDATE group_purchases SET current_participants = 0, status = $1 WHERE id = $2`,
				models.StatusCancelled, purchaseID)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE group_purchases SET current_participants = $1 WHERE id = $2`,
				result.Remaining, purchaseID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
