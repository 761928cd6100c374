// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"atlas/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	// SaveContent persists an accepted content item. Returns false when an
	// item with the same content hash is already stored.
	SaveContent(ctx context.Context, item *model.ContentItem) (bool, error)
	IsStored(ctx context.Context, contentHash string) (bool, error)
	ListContent(ctx context.Context, sourceName string) ([]model.ContentItem, error)

	SaveReport(ctx context.Context, report *model.QualityReport) error
	ListRecentReports(ctx context.Context, limit int) ([]model.QualityReport, error)
	// ReportCounts returns how many judged candidates were accepted and
	// rejected, for operator summaries.
	ReportCounts(ctx context.Context) (accepted, rejected int, err error)

	Close() error
}
