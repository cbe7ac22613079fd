package history

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pricespy/backend/internal/domain"
)

func (s *SQLiteStore) AppendLog(ctx context.Context, entry *domain.ExtractionLog) error {
	if entry == nil {
		return domain.ErrInvalidRequest
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var price sql.NullFloat64
	if entry.Price != nil {
		price = sql.NullFloat64{Float64: *entry.Price, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO extraction_log (tracked_item_id, status, model_used, price, currency,
			error_kind, error_field, error_value, error_message, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.TrackedItemID, entry.Status, entry.Model, price, entry.Currency,
		entry.ErrorKind, entry.ErrorField, entry.ErrorValue, entry.ErrorMessage,
		entry.DurationMS, entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert extraction log for item %d", entry.TrackedItemID)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return eris.Wrap(err, "sqlite: extraction log id")
	}
	return nil
}

func (s *SQLiteStore) ListLogs(ctx context.Context, filter domain.ExtractionLogFilter) ([]domain.ExtractionLog, error) {
	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.TrackedItemID > 0 {
		where = append(where, "tracked_item_id = ?")
		args = append(args, filter.TrackedItemID)
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UnixNano())
	}
	if !filter.Until.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, filter.Until.UnixNano())
	}

	query := `SELECT id, tracked_item_id, status, model_used, price, currency,
		error_kind, error_field, error_value, error_message, duration_ms, created_at
		FROM extraction_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // no limit
	}
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list extraction logs")
	}
	defer rows.Close()

	logs := make([]domain.ExtractionLog, 0)
	for rows.Next() {
		var entry domain.ExtractionLog
		var price sql.NullFloat64
		var createdAt int64
		if err := rows.Scan(&entry.ID, &entry.TrackedItemID, &entry.Status, &entry.Model, &price,
			&entry.Currency, &entry.ErrorKind, &entry.ErrorField, &entry.ErrorValue,
			&entry.ErrorMessage, &entry.DurationMS, &createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan extraction log")
		}
		if price.Valid {
			p := price.Float64
			entry.Price = &p
		}
		entry.CreatedAt = time.Unix(0, createdAt).UTC()
		logs = append(logs, entry)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: iterate extraction logs")
}

func (s *SQLiteStore) LogStats(ctx context.Context, since time.Time) (domain.ExtractionStats, error) {
	stats := domain.ExtractionStats{ErrorsByKind: map[string]int{}}

	// UnixNano is undefined for the zero time
	sinceNanos := int64(math.MinInt64)
	if !since.IsZero() {
		sinceNanos = since.UnixNano()
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, error_kind, COUNT(*), COALESCE(SUM(duration_ms), 0)
		 FROM extraction_log WHERE created_at >= ?
		 GROUP BY status, error_kind`,
		sinceNanos,
	)
	if err != nil {
		return stats, eris.Wrap(err, "sqlite: extraction log stats")
	}
	defer rows.Close()

	var totalDuration int64
	for rows.Next() {
		var status, kind string
		var count int
		var duration int64
		if err := rows.Scan(&status, &kind, &count, &duration); err != nil {
			return stats, eris.Wrap(err, "sqlite: scan extraction log stats")
		}
		stats.Total += count
		totalDuration += duration
		if status == domain.ExtractionStatusSuccess {
			stats.SuccessCount += count
		} else {
			stats.ErrorCount += count
			stats.ErrorsByKind[kind] += count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, eris.Wrap(err, "sqlite: iterate extraction log stats")
	}
	if stats.Total > 0 {
		stats.AvgDurationMS = totalDuration / int64(stats.Total)
	}
	return stats, nil
}
