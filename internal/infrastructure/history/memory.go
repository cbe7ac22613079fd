package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pricespy/backend/internal/domain"
)

// MemoryStore is a thread-safe in-memory price history, append-only per
// tracked item and ordered by capture time
type MemoryStore struct {
	data      map[int64][]domain.ValidatedPriceRecord
	logs      []domain.ExtractionLog
	lastLogID int64
	mutex     sync.RWMutex
	retention time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a new in-memory store. A positive retention starts
// a cleanup goroutine that drops records older than the window.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	store := &MemoryStore{
		data:      make(map[int64][]domain.ValidatedPriceRecord),
		retention: retention,
		done:      make(chan struct{}),
	}

	if retention > 0 {
		go store.pruneExpired(10 * time.Minute)
	}

	return store
}

// GetLatest returns the most recent record, or nil when the item has none
func (s *MemoryStore) GetLatest(ctx context.Context, trackedItemID int64) (*domain.ValidatedPriceRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	records := s.data[trackedItemID]
	if len(records) == 0 {
		return nil, nil
	}

	latest := cloneRecord(records[len(records)-1])
	return &latest, nil
}

// Append stores a copy of record; later mutation by the caller has no effect
func (s *MemoryStore) Append(ctx context.Context, trackedItemID int64, record *domain.ValidatedPriceRecord) error {
	if record == nil {
		return domain.ErrInvalidRequest
	}

	stored := cloneRecord(*record)
	stored.TrackedItemID = trackedItemID
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CapturedAt.IsZero() {
		stored.CapturedAt = time.Now().UTC()
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	records := s.data[trackedItemID]
	// Keep the slice sorted by capture time; appends are almost always newest
	i := len(records)
	for i > 0 && records[i-1].CapturedAt.After(stored.CapturedAt) {
		i--
	}
	records = append(records, domain.ValidatedPriceRecord{})
	copy(records[i+1:], records[i:])
	records[i] = stored
	s.data[trackedItemID] = records

	return nil
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (s *MemoryStore) List(ctx context.Context, trackedItemID int64, limit int) ([]domain.ValidatedPriceRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	records := s.data[trackedItemID]
	n := len(records)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]domain.ValidatedPriceRecord, 0, n)
	for i := len(records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, cloneRecord(records[i]))
	}
	return out, nil
}

// Close stops the cleanup goroutine
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// pruneExpired removes records and log entries older than the retention
// window periodically. The latest record of an item is always kept so
// comparisons still work.
func (s *MemoryStore) pruneExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.prune(time.Now().Add(-s.retention))
		}
	}
}

func (s *MemoryStore) prune(cutoff time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for id, records := range s.data {
		keep := 0
		for keep < len(records)-1 && records[keep].CapturedAt.Before(cutoff) {
			keep++
		}
		if keep > 0 {
			s.data[id] = append([]domain.ValidatedPriceRecord(nil), records[keep:]...)
		}
	}

	drop := 0
	for drop < len(s.logs) && s.logs[drop].CreatedAt.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		s.logs = append([]domain.ExtractionLog(nil), s.logs[drop:]...)
	}
}

// Size returns the number of stored records (for debugging/monitoring)
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	total := 0
	for _, records := range s.data {
		total += len(records)
	}
	return total
}

func cloneRecord(r domain.ValidatedPriceRecord) domain.ValidatedPriceRecord {
	out := r
	out.OriginalPrice = cloneFloat(r.OriginalPrice)
	out.DiscountPercentage = cloneFloat(r.DiscountPercentage)
	out.DiscountFixedAmount = cloneFloat(r.DiscountFixedAmount)
	out.AvailableSizes = append([]string{}, r.AvailableSizes...)
	if r.Warnings != nil {
		out.Warnings = append([]domain.Warning(nil), r.Warnings...)
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
