package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// UpsertBid размещает или обновляет ставку продавца одной транзакцией.
// Новая ставка списывает newCost баллов и увеличивает bid_count, изменение
// существующей списывает revisionCost и возвращает ставку в PENDING.
// Запись ставки и списание баллов неделимы: конкурентный повтор того же
// продавца увидит либо состояние до, либо после, но не частичное списание.
func (s *Storage) UpsertBid(ctx context.Context, sellerUID string, purchaseID, price int, description string, newCost, revisionCost int) (*models.BidResult, error) {
	const op = "storage.UpsertBid"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var result models.BidResult
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		p, err := lockPurchaseTx(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if p.Status != models.StatusBidding {
			return domerr.Eligibility("purchase is not in bidding")
		}

		var existingID int
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM bids
			 WHERE seller_uid = $1 AND group_purchase_id = $2
			 FOR UPDATE`,
			sellerUID, purchaseID).Scan(&existingID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			result.IsNew = true
		case err != nil:
			return err
		}

		cost := revisionCost
		bidCountDelta := 0
		if result.IsNew {
			cost = newCost
			bidCountDelta = 1
		}

		var remaining int
		err = tx.QueryRowContext(ctx,
			`UPDATE users
			 SET points = points - $1, bid_count = bid_count + $2
			 WHERE uid = $3 AND points >= $1
			 RETURNING points`,
			cost, bidCountDelta, sellerUID).Scan(&remaining)
		if errors.Is(err, sql.ErrNoRows) {
			return domerr.Eligibility("insufficient points for bidding")
		}
		if err != nil {
			return err
		}

		bid := models.Bid{
			SellerUID:       sellerUID,
			GroupPurchaseID: purchaseID,
			Price:           price,
			Description:     description,
			Status:          models.BidPending,
		}
		if result.IsNew {
			err = tx.QueryRowContext(ctx,
				`INSERT INTO bids (seller_uid, group_purchase_id, price, description, status)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING id, created_at, updated_at`,
				sellerUID, purchaseID, price, description, models.BidPending).
				Scan(&bid.ID, &bid.CreatedAt, &bid.UpdatedAt)
		} else {
			bid.ID = existingID
			err = tx.QueryRowContext(ctx,
				`UPDATE bids
				 SET price = $1, description = $2, status = $3, updated_at = now()
				 WHERE id = $4
				 RETURNING created_at, updated_at`,
				price, description, models.BidPending, existingID).
				Scan(&bid.CreatedAt, &bid.UpdatedAt)
		}
		if err != nil {
			return err
		}

		result.Bid = &bid
		result.PointsDeducted = cost
		result.RemainingPoints = remaining
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListBids возвращает ставки закупки по возрастанию цены с краткими данными продавцов.
func (s *Storage) ListBids(ctx context.Context, purchaseID int) ([]*models.BidView, error) {
	const op = "storage.ListBids"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT b.id, b.seller_uid, b.group_purchase_id, b.price, b.description,
			      b.status, b.created_at, b.updated_at, u.name, u.rating, u.bid_count
			  FROM bids b
			  JOIN users u ON b.seller_uid = u.uid
			  WHERE b.group_purchase_id = $1
			  ORDER BY b.price ASC, b.created_at ASC`
	rows, err := s.DB.QueryContext(ctx, query, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.BidView
	for rows.Next() {
		var v models.BidView
		if err := rows.Scan(&v.ID, &v.SellerUID, &v.GroupPurchaseID, &v.Price, &v.Description,
			&v.Status, &v.CreatedAt, &v.UpdatedAt, &v.SellerName, &v.SellerRating, &v.SellerBids); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SelectWinningBid закрывает аукцион одной транзакцией. Побеждает наименьшая
// цена, при равенстве — более ранняя ставка. Победитель переходит в ACCEPTED,
// остальные в REJECTED, закупка — в VOTING с окном голосования voteWindow.
// Без единой ставки закупка отменяется, а не зависает.
func (s *Storage) SelectWinningBid(ctx context.Context, purchaseID int, voteWindow time.Duration) (*models.Bid, error) {
	const op = "storage.SelectWinningBid"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var winner *models.Bid
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		p, err := lockPurchaseTx(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if p.Status != models.StatusBidding {
			return domerr.Eligibility("purchase is not in bidding")
		}

		var b models.Bid
		err = tx.QueryRowContext(ctx,
			`SELECT id, seller_uid, group_purchase_id, price, description, status, created_at, updated_at
			 FROM bids
			 WHERE group_purchase_id = $1 AND status = $2
			 ORDER BY price ASC, created_at ASC
			 LIMIT 1
			 FOR UPDATE`,
			purchaseID, models.BidPending).
			Scan(&b.ID, &b.SellerUID, &b.GroupPurchaseID, &b.Price, &b.Description,
				&b.Status, &b.CreatedAt, &b.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			_, err = tx.ExecContext(ctx,
				`UPDATE group_purchases SET status = $1 WHERE id = $2`,
				models.StatusCancelled, purchaseID)
			return err
		}
		if err != nil {
			return err
		}

		if _, err = tx.ExecContext(ctx,
			`UPDATE bids SET status = $1, updated_at = now() WHERE id = $2`,
			models.BidAccepted, b.ID); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE bids SET status = $1, updated_at = now()
			 WHERE group_purchase_id = $2 AND id <> $3 AND status = $4`,
			models.BidRejected, purchaseID, b.ID, models.BidPending); err != nil {
			return err
		}

		now := time.Now()
		end := now.Add(voteWindow)
		if _, err = tx.ExecContext(ctx,
			`UPDATE group_purchases
			 SET status = $1, vote_start_time = $2, vote_end_time = $3
			 WHERE id = $4`,
			models.StatusVoting, now, end, purchaseID); err != nil {
			return err
		}

		b.Status = models.BidAccepted
		winner = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return winner, nil
}
