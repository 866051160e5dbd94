package postgres

import (
	"context"
	"database/sql"

	"filevault/internal/database"
	"filevault/internal/repository"
)

// Store vends PostgreSQL repositories bound either to the pool or to one transaction.
type Store struct {
	db   *sql.DB
	q    database.DBTX
	inTx bool
}

// NewStore creates a Store over the connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Files() repository.FileRepository {
	return NewFilePostgres(s.q)
}

func (s *Store) AccessLogs() repository.AccessLogRepository {
	return NewAccessLogPostgres(s.q)
}

// WithinTx runs fn inside a transaction. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return database.WithTx(ctx, s.db, nil, func(ctx context.Context, tx database.DBTX) error {
		return fn(ctx, &Store{db: s.db, q: tx, inTx: true})
	})
}

// PingContext reports database reachability for health checks.
func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
