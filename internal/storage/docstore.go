package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/hikeplanner/internal/models"
	"github.com/hyperjump/hikeplanner/internal/query"
)

// statements holds the driver-specific SQL of a docStore. Arguments are always passed in
// the order documented on each field.
type statements struct {
	insert       string // id, partition_key, doc, source, created_at, updated_at
	upsert       string // same as insert
	get          string // id, partition_key
	update       string // doc, source, updated_at, id, partition_key
	delete       string // id, partition_key
	listBySource string // source
	stats        string // no arguments; scans total and active counts
}

// docStore implements Store over a single table of JSON trail documents.
type docStore struct {
	db      *sql.DB
	dialect query.Dialect
	stmts   statements
}

func (s *docStore) Dialect() query.Dialect { return s.dialect }

func encodeTrail(trail *models.Trail) (string, error) {
	trail.Normalize()
	b, err := json.Marshal(trail)
	if err != nil {
		return "", fmt.Errorf("failed to marshal trail: %w", err)
	}
	return string(b), nil
}

func decodeTrail(doc []byte) (*models.Trail, error) {
	var trail models.Trail
	if err := json.Unmarshal(doc, &trail); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trail: %w", err)
	}
	return &trail, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a trail. CreatedAt is set when zero; UpdatedAt is always set.
func (s *docStore) Create(ctx context.Context, trail *models.Trail) error {
	now := time.Now().UTC()
	if trail.CreatedAt.IsZero() {
		trail.CreatedAt = now
	}
	trail.UpdatedAt = now
	doc, err := encodeTrail(trail)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.stmts.insert,
		trail.ID, trail.PartitionKey, doc, nullable(trail.Source), trail.CreatedAt, trail.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trail %s: %w", trail.ID, err)
	}
	return nil
}

// Upsert inserts a trail or replaces the document stored under the same key.
func (s *docStore) Upsert(ctx context.Context, trail *models.Trail) error {
	now := time.Now().UTC()
	if trail.CreatedAt.IsZero() {
		trail.CreatedAt = now
	}
	trail.UpdatedAt = now
	doc, err := encodeTrail(trail)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.stmts.upsert,
		trail.ID, trail.PartitionKey, doc, nullable(trail.Source), trail.CreatedAt, trail.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert trail %s: %w", trail.ID, err)
	}
	return nil
}

// Get returns the trail stored under id and partitionKey.
func (s *docStore) Get(ctx context.Context, id, partitionKey string) (*models.Trail, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, s.stmts.get, id, partitionKey).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trail %s: %w", id, err)
	}
	return decodeTrail(doc)
}

// Replace overwrites an existing trail and sets UpdatedAt.
func (s *docStore) Replace(ctx context.Context, trail *models.Trail) error {
	trail.UpdatedAt = time.Now().UTC()
	doc, err := encodeTrail(trail)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, s.stmts.update,
		doc, nullable(trail.Source), trail.UpdatedAt, trail.ID, trail.PartitionKey)
	if err != nil {
		return fmt.Errorf("failed to replace trail %s: %w", trail.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a trail.
func (s *docStore) Delete(ctx context.Context, id, partitionKey string) error {
	result, err := s.db.ExecContext(ctx, s.stmts.delete, id, partitionKey)
	if err != nil {
		return fmt.Errorf("failed to delete trail %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Find renders plan in the store dialect and returns the matching trails.
func (s *docStore) Find(ctx context.Context, plan query.Plan) ([]*models.Trail, error) {
	if plan.Count {
		return nil, fmt.Errorf("find: count plan given")
	}
	d := query.Render(plan, s.dialect)
	rows, err := s.db.QueryContext(ctx, d.Text, s.dialect.Args(d.Parameters)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trails: %w", err)
	}
	return scanTrails(rows)
}

// Count renders plan as a count query and returns the number of matching trails.
func (s *docStore) Count(ctx context.Context, plan query.Plan) (int, error) {
	plan.Count = true
	plan.Sort, plan.Page = nil, nil
	d := query.Render(plan, s.dialect)
	var n int
	if err := s.db.QueryRowContext(ctx, d.Text, s.dialect.Args(d.Parameters)...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count trails: %w", err)
	}
	return n, nil
}

// ListBySource returns every trail, active or not, imported from source.
func (s *docStore) ListBySource(ctx context.Context, source string) ([]*models.Trail, error) {
	rows, err := s.db.QueryContext(ctx, s.stmts.listBySource, source)
	if err != nil {
		return nil, fmt.Errorf("failed to list trails by source: %w", err)
	}
	return scanTrails(rows)
}

// Stats returns the number of stored and active trails.
func (s *docStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Driver: s.dialect.Name()}
	if err := s.db.QueryRowContext(ctx, s.stmts.stats).Scan(&st.Trails, &st.ActiveTrails); err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	return st, nil
}

// Close closes the database connection.
func (s *docStore) Close() error {
	return s.db.Close()
}

func scanTrails(rows *sql.Rows) ([]*models.Trail, error) {
	defer rows.Close()
	trails := []*models.Trail{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		trail, err := decodeTrail(doc)
		if err != nil {
			return nil, err
		}
		trails = append(trails, trail)
	}
	return trails, rows.Err()
}
