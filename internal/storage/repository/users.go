package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// CreateUser сохраняет нового пользователя и возвращает его UID.
// Учётные данные живут у внешнего провайдера, здесь только доменный профиль.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (name, email, role, points)
			  VALUES ($1, $2, $3, $4)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Name, user.Email, user.Role, user.Points).Scan(&newUID); err != nil {
		if isUniqueViolation(err) {
			return "", domerr.Conflict("email %s is already registered", user.Email)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, email, role, points, rating, bid_count,
			      participation_count, penalty_count, penalty_end_time
			  FROM users
			  WHERE uid = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var penaltyEnd sql.NullTime
	if err := row.Scan(&u.UID, &u.Name, &u.Email, &u.Role, &u.Points, &u.Rating,
		&u.BidCount, &u.ParticipationCount, &u.PenaltyCount, &penaltyEnd); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domerr.NotFound("user %s", userUID)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if penaltyEnd.Valid {
		u.PenaltyEndTime = &penaltyEnd.Time
	}
	return u, nil
}
