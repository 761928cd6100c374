package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"atlas/internal/model"
	"atlas/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveContent inserts a content item, deduplicating on content hash.
// Returns false without error when the hash is already stored.
func (s *SQLite) SaveContent(ctx context.Context, item *model.ContentItem) (bool, error) {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO content_items (source_name, kind, title, url, content_hash, word_count, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.SourceName, string(item.Kind), item.Title, item.URL, item.ContentHash, item.WordCount, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert content: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("last insert id: %w", err)
	}
	item.ID = id
	item.StoredAt, _ = time.Parse(timeLayout, now)
	return true, nil
}

// IsStored checks whether content with the given hash already exists.
func (s *SQLite) IsStored(ctx context.Context, contentHash string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM content_items WHERE content_hash = ?`, contentHash,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check stored: %w", err)
	}
	return count > 0, nil
}

// ListContent returns all stored items for the given source.
func (s *SQLite) ListContent(ctx context.Context, sourceName string) ([]model.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_name, kind, title, url, content_hash, word_count, stored_at
		 FROM content_items WHERE source_name = ? ORDER BY id`, sourceName,
	)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.ContentItem
	for rows.Next() {
		var item model.ContentItem
		var kind, stored string
		if err := rows.Scan(&item.ID, &item.SourceName, &kind, &item.Title, &item.URL,
			&item.ContentHash, &item.WordCount, &stored); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		item.Kind = model.SourceKind(kind)
		item.StoredAt, _ = time.Parse(timeLayout, stored)
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveReport inserts a quality report and populates its ID and CreatedAt.
func (s *SQLite) SaveReport(ctx context.Context, report *model.QualityReport) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO quality_reports (source_name, title, overall_score, accepted, category, reasons, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.SourceName, report.Title, report.OverallScore, boolToInt(report.Accepted),
		report.Category, report.Reasons, now,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	report.ID = id
	report.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListRecentReports returns the most recent quality reports, newest first.
func (s *SQLite) ListRecentReports(ctx context.Context, limit int) ([]model.QualityReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_name, title, overall_score, accepted, category, reasons, created_at
		 FROM quality_reports ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []model.QualityReport
	for rows.Next() {
		var r model.QualityReport
		var accepted int
		var created string
		if err := rows.Scan(&r.ID, &r.SourceName, &r.Title, &r.OverallScore, &accepted,
			&r.Category, &r.Reasons, &created); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.Accepted = accepted == 1
		r.CreatedAt, _ = time.Parse(timeLayout, created)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// ReportCounts returns accepted and rejected totals across all reports.
func (s *SQLite) ReportCounts(ctx context.Context) (int, int, error) {
	var accepted, rejected int
	err := s.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN accepted = 1 THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN accepted = 0 THEN 1 ELSE 0 END), 0)
		 FROM quality_reports`,
	).Scan(&accepted, &rejected)
	if err != nil {
		return 0, 0, fmt.Errorf("count reports: %w", err)
	}
	return accepted, rejected, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
