// Package postgresql реализует storage.Store на PostgreSQL.
//
// Каждая единица работы выполняется в транзакции с уровнем изоляции SERIALIZABLE, в начале
// которой захватываются транзакционные advisory-блокировки по ключам
// (ментор, пользователь). Ограничение исключения на таблице bookings и частичный
// уникальный индекс на subscriptions остаются последней линией защиты инвариантов.
package postgresql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/retry"
	"github.com/magabrotheeeer/mentorship-booking/internal/storage"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeExclusionViolation   = "23P01"
	codeCheckViolation       = "23514"
	codeForeignKeyViolation  = "23503"
)

// Storage инкапсулирует пул соединений с PostgreSQL.
type Storage struct {
	DB    *sql.DB
	retry retry.Config
}

// New открывает пул соединений и проверяет доступность базы.
func New(storageConnectionString string, retryCfg retry.Config) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB:    db,
		retry: retryCfg,
	}, nil
}

// CheckDatabaseReady проверяет, что миграции применены.
func (s *Storage) CheckDatabaseReady(ctx context.Context) error {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'bookings'
    )`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("required table bookings query error: %w", err)
	}
	if !exists {
		return fmt.Errorf("required table bookings missing")
	}
	return nil
}

// Ping проверяет доступность базы.
func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// InTx выполняет fn в сериализуемой транзакции под advisory-блокировками locks.
// Ошибки сериализации, взаимоблокировки и разрывы соединения повторяются.
func (s *Storage) InTx(ctx context.Context, locks []storage.LockKey, fn func(ctx context.Context, tx storage.Tx) error) error {
	return retry.Do(ctx, s.retry, isTransient, func() error {
		return s.runTx(ctx, locks, fn)
	})
}

func (s *Storage) runTx(ctx context.Context, locks []storage.LockKey, fn func(ctx context.Context, tx storage.Tx) error) (err error) {
	const op = "storage.postgresql.InTx"

	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, key := range storage.SortedLocks(locks) {
		if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, string(key)); err != nil {
			return fmt.Errorf("%s: lock %s: %w", op, key, err)
		}
	}

	if err = fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return mapError(op+": commit", err)
	}
	return nil
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	return pgconn.SafeToRetry(err)
}

// mapError переводит ошибки драйвера в таксономию apperr.
// Временные ошибки оборачиваются без изменения, чтобы их распознал повтор.
func mapError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeExclusionViolation, codeUniqueViolation:
			return fmt.Errorf("%s: %w", op, apperr.Conflict("%s", pgErr.ConstraintName))
		case codeCheckViolation:
			return fmt.Errorf("%s: %w", op, apperr.Validation("%s", pgErr.ConstraintName))
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, apperr.NotFound("%s", pgErr.ConstraintName))
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// pgTx реализует storage.Tx поверх *sql.Tx.
type pgTx struct {
	tx *sql.Tx
}
