package history

import (
	"context"
	"time"

	"github.com/pricespy/backend/internal/domain"
)

// AppendLog stores a copy of entry and assigns its id
func (s *MemoryStore) AppendLog(ctx context.Context, entry *domain.ExtractionLog) error {
	if entry == nil {
		return domain.ErrInvalidRequest
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	stored := *entry
	stored.Price = cloneFloat(entry.Price)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	// Entries arrive roughly in time order; keep the slice sorted
	i := len(s.logs)
	for i > 0 && s.logs[i-1].CreatedAt.After(stored.CreatedAt) {
		i--
	}
	s.lastLogID++
	stored.ID = s.lastLogID
	s.logs = append(s.logs, domain.ExtractionLog{})
	copy(s.logs[i+1:], s.logs[i:])
	s.logs[i] = stored

	entry.ID = stored.ID
	return nil
}

// ListLogs returns matching entries newest first
func (s *MemoryStore) ListLogs(ctx context.Context, filter domain.ExtractionLogFilter) ([]domain.ExtractionLog, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]domain.ExtractionLog, 0)
	skipped := 0
	for i := len(s.logs) - 1; i >= 0; i-- {
		entry := s.logs[i]
		if !filter.Matches(&entry) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		entry.Price = cloneFloat(entry.Price)
		out = append(out, entry)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// LogStats summarizes entries created at or after since
func (s *MemoryStore) LogStats(ctx context.Context, since time.Time) (domain.ExtractionStats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := domain.ExtractionStats{ErrorsByKind: map[string]int{}}
	var totalDuration int64
	for _, entry := range s.logs {
		if entry.CreatedAt.Before(since) {
			continue
		}
		stats.Total++
		totalDuration += entry.DurationMS
		if entry.Status == domain.ExtractionStatusSuccess {
			stats.SuccessCount++
		} else {
			stats.ErrorCount++
			stats.ErrorsByKind[entry.ErrorKind]++
		}
	}
	if stats.Total > 0 {
		stats.AvgDurationMS = totalDuration / int64(stats.Total)
	}
	return stats, nil
}
