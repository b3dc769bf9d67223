package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// ApplyPenalty начисляет штраф пользователю. Счётчик нарушений читается и
// обновляется под блокировкой строки пользователя, длительность блокировки
// вычисляет переданный durationFor по новому значению счётчика. Так таблица
// эскалации остаётся на стороне сервиса, а чтение и запись счётчика не
// расходятся при конкурентных штрафах.
func (s *Storage) ApplyPenalty(ctx context.Context, userUID string, penaltyType, reason string, purchaseID *int, durationFor func(newCount int) int) (*models.UserPenalty, error) {
	const op = "storage.ApplyPenalty"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var penalty models.UserPenalty
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		var count int
		err := tx.QueryRowContext(ctx,
			`SELECT penalty_count FROM users WHERE uid = $1 FOR UPDATE`,
			userUID).Scan(&count)
		if err != nil {
			return err
		}

		newCount := count + 1
		hours := durationFor(newCount)
		endTime := time.Now().Add(time.Duration(hours) * time.Hour)

		penalty = models.UserPenalty{
			UserUID:         userUID,
			Type:            penaltyType,
			Reason:          reason,
			DurationHours:   hours,
			EndTime:         endTime,
			GroupPurchaseID: purchaseID,
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO user_penalties (user_uid, type, reason, duration_hours, end_time, group_purchase_id)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, created_at`,
			userUID, penaltyType, reason, hours, endTime, purchaseID).
			Scan(&penalty.ID, &penalty.CreatedAt)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET penalty_count = $1, penalty_end_time = $2 WHERE uid = $3`,
			newCount, endTime, userUID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &penalty, nil
}

// ListPenalties возвращает историю штрафов пользователя, новые первыми.
func (s *Storage) ListPenalties(ctx context.Context, userUID string) ([]*models.UserPenalty, error) {
	const op = "storage.ListPenalties"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_uid, type, reason, duration_hours, end_time, group_purchase_id, created_at
		 FROM user_penalties
		 WHERE user_uid = $1
		 ORDER BY created_at DESC`,
		userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.UserPenalty
	for rows.Next() {
		var p models.UserPenalty
		var pid sql.NullInt64
		if err := rows.Scan(&p.ID, &p.UserUID, &p.Type, &p.Reason,
			&p.DurationHours, &p.EndTime, &pid, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if pid.Valid {
			v := int(pid.Int64)
			p.GroupPurchaseID = &v
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
