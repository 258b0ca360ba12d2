package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

// SQLSTATE codes the store translates.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return s.classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
		return s.classify(fmt.Errorf("failed to set lock timeout: %w", err))
	}

	if err := fn(tx); err != nil {
		return s.classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return s.classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// classify maps contention to domain.ErrWriteConflict so the engine retries it. Everything
// else passes through unchanged, domain sentinels included.
func (s *Store) classify(err error) error {
	if err == nil {
		return nil
	}
	pgErr, ok := errors.AsType[*pgconn.PgError](err)
	if !ok {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		if s.metrics != nil {
			s.metrics.TxConflicts.WithLabelValues(pgErr.Code).Inc()
		}
		return fmt.Errorf("%w: %s", domain.ErrWriteConflict, pgErr.Message)
	}
	return err
}

func isPgCode(err error, code string) bool {
	pgErr, ok := errors.AsType[*pgconn.PgError](err)
	return ok && pgErr.Code == code
}

// notFound turns pgx.ErrNoRows into the given sentinel.
func notFound(err error, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}
