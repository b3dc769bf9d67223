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

const purchaseColumns = `id, title, description, status, creator_uid,
	min_participants, max_participants, current_participants, expected_price,
	auction_start_time, auction_end_time, vote_start_time, vote_end_time,
	vote_threshold, created_at`

func scanPurchase(row interface{ Scan(...any) error }) (*models.GroupPurchase, error) {
	var p models.GroupPurchase
	var auctionStart, auctionEnd, voteStart, voteEnd sql.NullTime
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Status, &p.CreatorUID,
		&p.MinParticipants, &p.MaxParticipants, &p.CurrentParticipants, &p.ExpectedPrice,
		&auctionStart, &auctionEnd, &voteStart, &voteEnd,
		&p.VoteThreshold, &p.CreatedAt); err != nil {
		return nil, err
	}
	if auctionStart.Valid {
		p.AuctionStartTime = &auctionStart.Time
	}
	if auctionEnd.Valid {
		p.AuctionEndTime = &auctionEnd.Time
	}
	if voteStart.Valid {
		p.VoteStartTime = &voteStart.Time
	}
	if voteEnd.Valid {
		p.VoteEndTime = &voteEnd.Time
	}
	return &p, nil
}

// lockPurchaseTx читает закупку с блокировкой строки внутри транзакции.
func lockPurchaseTx(ctx context.Context, tx *sql.Tx, id int) (*models.GroupPurchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM group_purchases WHERE id = $1 FOR UPDATE`
	p, err := scanPurchase(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerr.NotFound("group purchase %d", id)
	}
	return p, err
}

// CreatePurchase вставляет новую закупку в статусе DRAFT и возвращает её ID.
func (s *Storage) CreatePurchase(ctx context.Context, p models.GroupPurchase) (int, error) {
	const op = "storage.CreatePurchase"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO group_purchases (title, description, status, creator_uid,
			      min_participants, max_participants, expected_price, vote_threshold)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		p.Title, p.Description, models.StatusDraft, p.CreatorUID,
		p.MinParticipants, p.MaxParticipants, p.ExpectedPrice, p.VoteThreshold).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// PublishPurchase переводит черновик в RECRUITING и записывает создателя
// первым участником одной транзакцией.
func (s *Storage) PublishPurchase(ctx context.Context, id int, creatorUID string) error {
	const op = "storage.PublishPurchase"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	return s.runTx(ctx, func(tx *sql.Tx) error {
		p, err := lockPurchaseTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.CreatorUID != creatorUID {
			return domerr.Eligibility("only the creator may publish")
		}
		if p.Status != models.StatusDraft {
			return domerr.Eligibility("purchase is not a draft")
		}

		if _, err = tx.ExecContext(ctx,
			`INSERT INTO participants (user_uid, group_purchase_id) VALUES ($1, $2)`,
			creatorUID, id); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE group_purchases SET status = $1, current_participants = 1 WHERE id = $2`,
			models.StatusRecruiting, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET participation_count = participation_count + 1 WHERE uid = $1`,
			creatorUID)
		return err
	})
}

// ReadPurchase возвращает закупку по её ID.
func (s *Storage) ReadPurchase(ctx context.Context, id int) (*models.GroupPurchase, error) {
	const op = "storage.ReadPurchase"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + purchaseColumns + ` FROM group_purchases WHERE id = $1`
	p, err := scanPurchase(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerr.NotFound("group purchase %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPurchases возвращает список закупок с пагинацией, новые первыми.
func (s *Storage) ListPurchases(ctx context.Context, limit, offset int) ([]*models.GroupPurchase, error) {
	const op = "storage.ListPurchases"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + purchaseColumns + `
			  FROM group_purchases
			  ORDER BY id DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.GroupPurchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountActiveByCreator подсчитывает незавершённые закупки создателя.
func (s *Storage) CountActiveByCreator(ctx context.Context, creatorUID string) (int, error) {
	const op = "storage.CountActiveByCreator"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM group_purchases
			  WHERE creator_uid = $1
			    AND status IN ($2, $3, $4)`
	var count int
	err := s.DB.QueryRowContext(ctx, query, creatorUID,
		models.StatusRecruiting, models.StatusBidding, models.StatusVoting).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// DeletePurchase удаляет закупку. Допустимо только создателю в DRAFT или
// RECRUITING, пока в ней не больше одного участника (сам создатель).
func (s *Storage) DeletePurchase(ctx context.Context, id int, callerUID string) error {
	const op = "storage.DeletePurchase"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	return s.runTx(ctx, func(tx *sql.Tx) error {
		p, err := lockPurchaseTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.CreatorUID != callerUID {
			return domerr.Eligibility("only the creator may delete")
		}
		if p.Status != models.StatusDraft && p.Status != models.StatusRecruiting {
			return domerr.Eligibility("purchase already in progress")
		}
		if p.CurrentParticipants > 1 {
			return domerr.Eligibility("purchase has other participants")
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM group_purchases WHERE id = $1`, id)
		return err
	})
}

// CompletePurchase переводит подтверждённую закупку в COMPLETED.
func (s *Storage) CompletePurchase(ctx context.Context, id int) error {
	const op = "storage.CompletePurchase"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	return s.runTx(ctx, func(tx *sql.Tx) error {
		p, err := lockPurchaseTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Status != models.StatusConfirmed {
			return domerr.Eligibility("purchase is not confirmed")
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE group_purchases SET status = $1 WHERE id = $2`,
			models.StatusCompleted, id)
		return err
	})
}

// ListExpiredAuctions возвращает ID закупок в BIDDING с истёкшим окном аукциона.
func (s *Storage) ListExpiredAuctions(ctx context.Context, now time.Time) ([]int, error) {
	const op = "storage.ListExpiredAuctions"
	return s.listExpired(ctx, op,
		`SELECT id FROM group_purchases WHERE status = $1 AND auction_end_time < $2`,
		models.StatusBidding, now)
}

// ListExpiredVoteWindows возвращает ID закупок в VOTING с истёкшим окном голосования.
func (s *Storage) ListExpiredVoteWindows(ctx context.Context, now time.Time) ([]int, error) {
	const op = "storage.ListExpiredVoteWindows"
	return s.listExpired(ctx, op,
		`SELECT id FROM group_purchases WHERE status = $1 AND vote_end_time < $2`,
		models.StatusVoting, now)
}

func (s *Storage) listExpired(ctx context.Context, op, query, status string, now time.Time) ([]int, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, query, status, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}
