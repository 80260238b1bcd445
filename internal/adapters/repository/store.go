// Package repository stores analysis reports.
package repository

import (
	"context"

	"github.com/okian/fightlog/internal/domain/model"
)

// Store provides read/write access to analysis reports.
type Store interface {
	// Save inserts or replaces the report with the same id.
	Save(ctx context.Context, r model.Report) error

	// Get returns the report with id, or ErrNotFound.
	Get(ctx context.Context, id string) (model.Report, error)

	// List returns up to limit reports, most recently submitted first.
	List(ctx context.Context, limit int) ([]model.Report, error)

	// Count returns the number of stored reports.
	Count(ctx context.Context) int

	Close() error
}
