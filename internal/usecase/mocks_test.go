package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/pricespy/backend/internal/domain"
)

// MockHistoryRepository is a mock implementation of domain.PriceHistoryRepository
type MockHistoryRepository struct {
	mu          sync.Mutex
	records     map[int64][]domain.ValidatedPriceRecord
	getError    error
	appendError error
	listError   error
	appendCalls int
	lastLimit   int
}

func NewMockHistoryRepository() *MockHistoryRepository {
	return &MockHistoryRepository{
		records: make(map[int64][]domain.ValidatedPriceRecord),
	}
}

func (m *MockHistoryRepository) GetLatest(ctx context.Context, trackedItemID int64) (*domain.ValidatedPriceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	records := m.records[trackedItemID]
	if len(records) == 0 {
		return nil, nil
	}
	latest := records[len(records)-1]
	return &latest, nil
}

func (m *MockHistoryRepository) Append(ctx context.Context, trackedItemID int64, record *domain.ValidatedPriceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendCalls++
	if m.appendError != nil {
		return m.appendError
	}
	m.records[trackedItemID] = append(m.records[trackedItemID], *record)
	return nil
}

func (m *MockHistoryRepository) List(ctx context.Context, trackedItemID int64, limit int) ([]domain.ValidatedPriceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	if m.listError != nil {
		return nil, m.listError
	}
	records := m.records[trackedItemID]
	out := make([]domain.ValidatedPriceRecord, 0, len(records))
	for i := len(records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, records[i])
	}
	return out, nil
}

func (m *MockHistoryRepository) seed(trackedItemID int64, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[trackedItemID] = append(m.records[trackedItemID], domain.ValidatedPriceRecord{
		TrackedItemID:  trackedItemID,
		Price:          price,
		Currency:       "EUR",
		IsAvailable:    true,
		AvailableSizes: []string{},
	})
}

// MockObserver records observed extraction events
type MockObserver struct {
	mu        sync.Mutex
	events    []domain.ExtractionEvent
	successes int
	failures  []error
}

func (m *MockObserver) ObserveExtraction(ctx context.Context, event domain.ExtractionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	if event.Err != nil {
		m.failures = append(m.failures, event.Err)
		return
	}
	m.successes++
}

func (m *MockObserver) snapshot() []domain.ExtractionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ExtractionEvent(nil), m.events...)
}

// MockExtractionLogRepository is an in-memory domain.ExtractionLogRepository
type MockExtractionLogRepository struct {
	mu          sync.Mutex
	logs        []domain.ExtractionLog
	appendError error
	lastFilter  domain.ExtractionLogFilter
}

func (m *MockExtractionLogRepository) AppendLog(ctx context.Context, entry *domain.ExtractionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendError != nil {
		return m.appendError
	}
	entry.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *MockExtractionLogRepository) ListLogs(ctx context.Context, filter domain.ExtractionLogFilter) ([]domain.ExtractionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	out := []domain.ExtractionLog{}
	for i := len(m.logs) - 1; i >= 0; i-- {
		if filter.Matches(&m.logs[i]) {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

func (m *MockExtractionLogRepository) LogStats(ctx context.Context, since time.Time) (domain.ExtractionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := domain.ExtractionStats{ErrorsByKind: map[string]int{}}
	for _, entry := range m.logs {
		if entry.CreatedAt.Before(since) {
			continue
		}
		stats.Total++
		if entry.Status == domain.ExtractionStatusError {
			stats.ErrorCount++
			stats.ErrorsByKind[entry.ErrorKind]++
		} else {
			stats.SuccessCount++
		}
	}
	return stats, nil
}

// validRaw returns a well-formed extraction for price
func validRaw(price float64) domain.RawExtraction {
	return domain.RawExtraction{
		"product_name":    "Cola Zero 6 x 330 ml",
		"store_name":      "Jumbo",
		"price":           price,
		"currency":        "EUR",
		"is_available":    true,
		"available_sizes": []any{},
		"is_size_matched": true,
	}
}

func ptr(v float64) *float64 {
	return &v
}
