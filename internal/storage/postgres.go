package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/hyperjump/hikeplanner/internal/query"
)

// PostgresStore stores trail documents in a jsonb column.
type PostgresStore struct {
	docStore
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn, verifies the connection and initializes the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresStore{docStore{db: db, dialect: query.Postgres, stmts: postgresStatements}}, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS trails (
	id TEXT NOT NULL,
	partition_key TEXT NOT NULL,
	doc JSONB NOT NULL,
	source TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (id, partition_key)
);

CREATE INDEX IF NOT EXISTS idx_trails_source ON trails(source);
CREATE INDEX IF NOT EXISTS idx_trails_doc ON trails USING GIN (doc);
`

var postgresStatements = statements{
	insert: `INSERT INTO trails (id, partition_key, doc, source, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6)`,
	upsert: `INSERT INTO trails (id, partition_key, doc, source, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6)
		ON CONFLICT (id, partition_key) DO UPDATE SET
			doc = EXCLUDED.doc, source = EXCLUDED.source, updated_at = EXCLUDED.updated_at`,
	get:          `SELECT doc FROM trails WHERE id = $1 AND partition_key = $2`,
	update:       `UPDATE trails SET doc = $1::jsonb, source = $2, updated_at = $3 WHERE id = $4 AND partition_key = $5`,
	delete:       `DELETE FROM trails WHERE id = $1 AND partition_key = $2`,
	listBySource: `SELECT doc FROM trails WHERE source = $1 ORDER BY id`,
	stats: `SELECT COUNT(1), COUNT(1) FILTER (WHERE (doc->>'isActive')::boolean)
		FROM trails`,
}
