// Package storage persists trail documents and executes query plans against them.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/hikeplanner/internal/models"
	"github.com/hyperjump/hikeplanner/internal/query"
)

// ErrNotFound is returned when no trail matches an id and partition key.
var ErrNotFound = errors.New("trail not found")

// Store defines trail document persistence. Documents are keyed by id and partition key.
type Store interface {
	Create(ctx context.Context, trail *models.Trail) error
	Get(ctx context.Context, id, partitionKey string) (*models.Trail, error)
	Replace(ctx context.Context, trail *models.Trail) error
	// Upsert creates the trail or replaces an existing one with the same key.
	Upsert(ctx context.Context, trail *models.Trail) error
	Delete(ctx context.Context, id, partitionKey string) error

	// Find and Count execute data and count plans built by the query package.
	Find(ctx context.Context, plan query.Plan) ([]*models.Trail, error)
	Count(ctx context.Context, plan query.Plan) (int, error)

	// ListBySource returns trails imported from the given file.
	ListBySource(ctx context.Context, source string) ([]*models.Trail, error)

	Stats(ctx context.Context) (*Stats, error)
	Dialect() query.Dialect
	Close() error
}

// Stats summarizes store contents.
type Stats struct {
	Trails       int64  `json:"trails"`
	ActiveTrails int64  `json:"active_trails"`
	Driver       string `json:"driver"`
}
