package postgres

import (
	"bytes"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NirdeshGothania/stackit/internal/adapter/metrics"
	"github.com/NirdeshGothania/stackit/internal/domain"
)

const defaultLockTimeout = 2 * time.Second

// Store implements domain.Ledger on PostgreSQL. Every mutation runs in one transaction that
// locks rows in a fixed order: question, answer, then users by id.
type Store struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
	metrics     *metrics.DatabaseMetrics
}

var _ domain.Ledger = (*Store)(nil)

type Option func(*Store)

// WithLockTimeout bounds how long a transaction waits for a row lock before it is
// reported as a write conflict.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

func WithMetrics(m *metrics.DatabaseMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

func NewStore(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, lockTimeout: defaultLockTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sortUUIDs(ids []uuid.UUID) {
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
}
