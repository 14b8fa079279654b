package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salekh/genseo-workshop/internal/storage"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS missions (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	content_type TEXT NOT NULL,
	target_group TEXT NOT NULL,
	location TEXT NOT NULL,
	language TEXT NOT NULL,
	competitor_count INTEGER NOT NULL,
	analyzed BOOLEAN NOT NULL,
	report JSONB NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS missions_created_at ON missions (created_at);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, record *storage.MissionRecord) error {
	query, args, err := storage.InsertSQL(sq.Dollar, record)
	if err != nil {
		return err
	}
	if _, err := b.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert mission: %w", err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.MissionRecord, error) {
	query, args, err := storage.SelectSQL(sq.Dollar, filter)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query missions: %w", err)
	}
	defer rows.Close()

	var results []*storage.MissionRecord
	for rows.Next() {
		r, err := storage.ScanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate missions: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
