package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// CreateReviewAndRate сохраняет отзыв участника о завершённой закупке и в той
// же транзакции пересчитывает средний рейтинг её организатора. Повторный отзыв
// того же участника отклоняется уникальным ограничением.
func (s *Storage) CreateReviewAndRate(ctx context.Context, review models.Review) (*models.Review, error) {
	const op = "storage.CreateReviewAndRate"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := s.runTx(ctx, func(tx *sql.Tx) error {
		p, err := lockPurchaseTx(ctx, tx, review.GroupPurchaseID)
		if err != nil {
			return err
		}
		if p.Status != models.StatusCompleted {
			return domerr.Eligibility("purchase is not completed")
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO reviews (user_uid, group_purchase_id, rating, content)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, created_at`,
			review.UserUID, review.GroupPurchaseID, review.Rating, review.Content).
			Scan(&review.ID, &review.CreatedAt)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users
			 SET rating = (SELECT avg(r.rating)
			               FROM reviews r
			               JOIN group_purchases gp ON r.group_purchase_id = gp.id
			               WHERE gp.creator_uid = $1)
			 WHERE uid = $1`,
			p.CreatorUID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ListReviews возвращает отзывы о закупке, новые первыми.
func (s *Storage) ListReviews(ctx context.Context, purchaseID int) ([]*models.Review, error) {
	const op = "storage.ListReviews"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_uid, group_purchase_id, rating, content, created_at
		 FROM reviews
		 WHERE group_purchase_id = $1
		 ORDER BY created_at DESC`,
		purchaseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Review
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.UserUID, &r.GroupPurchaseID, &r.Rating, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
