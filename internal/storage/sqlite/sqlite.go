package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/salekh/genseo-workshop/internal/storage"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
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
	report TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS missions_created_at ON missions (created_at);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, record *storage.MissionRecord) error {
	query, args, err := storage.InsertSQL(sq.Question, record)
	if err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert mission: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.MissionRecord, error) {
	query, args, err := storage.SelectSQL(sq.Question, filter)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
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

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
