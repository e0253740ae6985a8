package domain

import (
	"context"
	"time"
)

// ReviewSource is the upstream paging protocol.
type ReviewSource interface {
	FetchPage(ctx context.Context, req PageRequest) (Page, error)
	// SupportedSorts is the capability set of the current upstream.
	SupportedSorts() []Sort
}

// RowSink upserts by review id; replays must be idempotent.
type RowSink interface {
	UpsertRow(ctx context.Context, r Row) error
}

type ReviewRepository interface {
	RowSink
	ListReviews(ctx context.Context, q ReviewsQuery) (ReviewsPage, error)
}

// StateStore persists the whole State mapping.
type StateStore interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

type RunHistory interface {
	RecordRun(ctx context.Context, r RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// ReviewCache caches review listings. InvalidateLocale must drop every cached
// limit of that locale.
type ReviewCache interface {
	GetReviews(ctx context.Context, q ReviewsQuery) (ReviewsPage, bool, error)
	PutReviews(ctx context.Context, q ReviewsQuery, p ReviewsPage, ttl time.Duration) error
	InvalidateLocale(ctx context.Context, loc Locale) error
}

// TextAnalyzer delegates topic, sentiment and satisfaction scoring to a model.
type TextAnalyzer interface {
	Analyze(ctx context.Context, text string) (Analysis, error)
}

type EnrichedRepository interface {
	EnsureEnrichedTable(ctx context.Context) error
	// SourceRows returns reviews synced strictly after since (all rows when since is nil).
	SourceRows(ctx context.Context, since *time.Time) ([]Row, error)
	// EnrichedWatermark is max(source_synced_at) of the enriched table, nil when empty.
	EnrichedWatermark(ctx context.Context) (*time.Time, error)
	UpsertEnriched(ctx context.Context, rs []EnrichedReview) error
	// ReplaceEnriched loads rs into a staging table and swaps it in atomically.
	ReplaceEnriched(ctx context.Context, rs []EnrichedReview) error
}
