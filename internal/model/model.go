// Package model defines the domain types used across the application.
package model

import "time"

// SourceKind identifies what kind of content a source produces.
type SourceKind string

// Supported source kinds.
const (
	SourcePodcast    SourceKind = "podcast"
	SourceNewsletter SourceKind = "newsletter"
	SourceArticle    SourceKind = "article"
	SourceEmail      SourceKind = "email"
)

// ContentItem is a piece of ingested content accepted into the store.
type ContentItem struct {
	ID          int64
	SourceName  string
	Kind        SourceKind
	Title       string
	URL         string
	ContentHash string
	WordCount   int
	StoredAt    time.Time
}

// QualityReport is the persisted outcome of judging one candidate.
type QualityReport struct {
	ID           int64
	SourceName   string
	Title        string
	OverallScore float64
	Accepted     bool
	Category     string
	Reasons      string
	CreatedAt    time.Time
}

// Episode is a single episode or entry discovered in a source feed.
type Episode struct {
	Title       string
	Link        string
	GUID        string
	Description string
	PublishedAt *time.Time
}

// UpdateFrequency is a coarse label for how often a source publishes.
type UpdateFrequency string

// Observed publishing cadences, used for adaptive scheduling.
const (
	FrequencyHourly  UpdateFrequency = "hourly"
	FrequencyDaily   UpdateFrequency = "daily"
	FrequencyWeekly  UpdateFrequency = "weekly"
	FrequencyUnknown UpdateFrequency = "unknown"
)
