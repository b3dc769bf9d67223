// Package repository реализует хранилище данных на основе PostgreSQL
// для движка совместных закупок. Составные операции (вступление, ставка,
// голос, штраф) выполняются одной сериализуемой транзакцией: счётчики
// агрегата меняются только вместе с породившей их записью.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с закупками, ставками, голосами и штрафами.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'group_purchases'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table group_purchases missing or query error: %w", err)
	}
	return nil
}

// runTx выполняет fn в сериализуемой транзакции. Сбой сериализации
// повторяется один раз; повторный сбой и нарушения уникальности
// превращаются в domerr.Conflict.
func (s *Storage) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	const op = "storage.runTx"
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = s.execTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			break
		}
	}
	if kind, ok := domerr.KindOf(err); ok && kind != 0 {
		return err
	}
	if isSerializationFailure(err) || isUniqueViolation(err) {
		return domerr.Conflict("concurrent modification: %v", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Storage) execTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	return false
}
