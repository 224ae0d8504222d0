package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"github.com/hyperjump/hikeplanner/internal/query"
)

// sqliteDriver is go-sqlite3 with the Unicode lowering function used by text search.
const sqliteDriver = "sqlite3_trails"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(query.LowerFunc, query.Lower, true)
		},
	})
}

// SQLiteStore stores trail documents as JSON text and queries them with the JSON1 functions.
type SQLiteStore struct {
	docStore
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(sqliteDriver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{docStore{db: db, dialect: query.SQLite, stmts: sqliteStatements}}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS trails (
		id TEXT NOT NULL,
		partition_key TEXT NOT NULL,
		doc TEXT NOT NULL CHECK (json_valid(doc)),
		source TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id, partition_key)
	);

	CREATE INDEX IF NOT EXISTS idx_trails_source ON trails(source);
	CREATE INDEX IF NOT EXISTS idx_trails_region ON trails(json_extract(doc, '$.location.region'));
	`
	_, err := db.Exec(schema)
	return err
}

var sqliteStatements = statements{
	insert: `INSERT INTO trails (id, partition_key, doc, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
	upsert: `INSERT INTO trails (id, partition_key, doc, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, partition_key) DO UPDATE SET
			doc = excluded.doc, source = excluded.source, updated_at = excluded.updated_at`,
	get:          `SELECT doc FROM trails WHERE id = ? AND partition_key = ?`,
	update:       `UPDATE trails SET doc = ?, source = ?, updated_at = ? WHERE id = ? AND partition_key = ?`,
	delete:       `DELETE FROM trails WHERE id = ? AND partition_key = ?`,
	listBySource: `SELECT doc FROM trails WHERE source = ? ORDER BY id`,
	stats: `SELECT COUNT(1),
		COALESCE(SUM(CASE WHEN json_extract(doc, '$.isActive') THEN 1 ELSE 0 END), 0)
		FROM trails`,
}
