package domain

import (
	"context"
	"time"
)

// PriceHistoryRepository is the append-only price history per tracked item.
// GetLatest returns (nil, nil) when the item has no history yet.
type PriceHistoryRepository interface {
	GetLatest(ctx context.Context, trackedItemID int64) (*ValidatedPriceRecord, error)
	Append(ctx context.Context, trackedItemID int64, record *ValidatedPriceRecord) error
	List(ctx context.Context, trackedItemID int64, limit int) ([]ValidatedPriceRecord, error)
}

// ExtractionLogRepository stores one entry per extraction attempt
type ExtractionLogRepository interface {
	AppendLog(ctx context.Context, entry *ExtractionLog) error
	ListLogs(ctx context.Context, filter ExtractionLogFilter) ([]ExtractionLog, error)
	LogStats(ctx context.Context, since time.Time) (ExtractionStats, error)
}

// Extraction is the vision model answer for a tracked item. Model is set
// whenever a model was called, including on failure.
type Extraction struct {
	Raw   RawExtraction
	Model string
}

// ExtractionSource produces the raw vision model output for a tracked item
type ExtractionSource interface {
	Extract(ctx context.Context, item TrackedItem) (Extraction, error)
}

// ExtractionEvent is the outcome of one extraction attempt. Exactly one of
// Result and Err is set.
type ExtractionEvent struct {
	TrackedItemID int64
	Model         string
	Duration      time.Duration
	Result        *ProcessResult
	Err           error
}

// ExtractionObserver receives processing outcomes (metrics, audit)
type ExtractionObserver interface {
	ObserveExtraction(ctx context.Context, event ExtractionEvent)
}
