package domain

import "time"

// Extraction log status values
const (
	ExtractionStatusSuccess = "success"
	ExtractionStatusError   = "error"
)

// ExtractionLog is the audit entry for one extraction attempt, successful
// or not. Failures carry the error kind and, for validation failures, the
// offending field and the raw value the model returned.
type ExtractionLog struct {
	ID            int64     `json:"id"`
	TrackedItemID int64     `json:"tracked_item_id"`
	Status        string    `json:"status"`
	Model         string    `json:"model_used,omitempty"`
	Price         *float64  `json:"price,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	ErrorField    string    `json:"error_field,omitempty"`
	ErrorValue    string    `json:"error_value,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// ExtractionLogFilter narrows a log listing. Zero values match everything.
type ExtractionLogFilter struct {
	Status        string
	TrackedItemID int64
	Since         time.Time
	Until         time.Time
	Limit         int
	Offset        int
}

// Matches reports whether entry passes the filter, ignoring paging
func (f ExtractionLogFilter) Matches(entry *ExtractionLog) bool {
	if f.Status != "" && entry.Status != f.Status {
		return false
	}
	if f.TrackedItemID > 0 && entry.TrackedItemID != f.TrackedItemID {
		return false
	}
	if !f.Since.IsZero() && entry.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !entry.CreatedAt.Before(f.Until) {
		return false
	}
	return true
}

// ExtractionStats summarizes log entries since a point in time
type ExtractionStats struct {
	Total         int            `json:"total"`
	SuccessCount  int            `json:"success_count"`
	ErrorCount    int            `json:"error_count"`
	AvgDurationMS int64          `json:"avg_duration_ms"`
	ErrorsByKind  map[string]int `json:"errors_by_kind"`
}
