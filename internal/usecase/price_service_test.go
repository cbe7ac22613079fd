package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pricespy/backend/internal/domain"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestPriceService(repo domain.PriceHistoryRepository, observer domain.ExtractionObserver) *PriceService {
	ids := 0
	return NewPriceService(repo, PriceServiceConfig{
		Observer: observer,
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return fixedNow },
		NewID: func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		},
	})
}

func TestPriceService_ProcessFirstObservation(t *testing.T) {
	repo := NewMockHistoryRepository()
	observer := &MockObserver{}
	service := newTestPriceService(repo, observer)

	result, err := service.Process(context.Background(), ProcessRequest{
		TrackedItemID: 7,
		Raw:           validRaw(6.00),
		Packaging:     sixPack,
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", result.Record.ID)
	assert.Equal(t, int64(7), result.Record.TrackedItemID)
	assert.Equal(t, fixedNow, result.Record.CapturedAt)
	assert.Nil(t, result.Comparison.PreviousPrice)

	require.Len(t, repo.records[7], 1)
	assert.Equal(t, "id-1", repo.records[7][0].ID)
	assert.Equal(t, 1, observer.successes)
	assert.Empty(t, observer.failures)
}

func TestPriceService_ProcessComparesWithPrevious(t *testing.T) {
	repo := NewMockHistoryRepository()
	repo.seed(7, 10.00)
	service := newTestPriceService(repo, nil)

	result, err := service.Process(context.Background(), ProcessRequest{
		TrackedItemID: 7,
		Raw:           validRaw(8.00),
		Packaging:     sixPack,
		Target:        domain.NewTargetSpec(ptr(9), ""),
	})
	require.NoError(t, err)

	require.NotNil(t, result.Comparison.PreviousPrice)
	assert.Equal(t, 10.0, *result.Comparison.PreviousPrice)
	assert.True(t, result.Comparison.IsPriceDrop)
	assert.True(t, result.Comparison.IsDeal)
	assert.Len(t, repo.records[7], 2)
}

func TestPriceService_UnavailableNotStored(t *testing.T) {
	repo := NewMockHistoryRepository()
	service := newTestPriceService(repo, nil)

	result, err := service.Process(context.Background(), ProcessRequest{
		TrackedItemID: 3,
		Raw:           domain.RawExtraction{"is_available": false, "currency": "N/A"},
		Packaging:     sixPack,
	})
	require.NoError(t, err)

	assert.False(t, result.Record.IsAvailable)
	assert.Equal(t, 0, repo.appendCalls)
}

func TestPriceService_ValidationFailureObserved(t *testing.T) {
	repo := NewMockHistoryRepository()
	observer := &MockObserver{}
	service := newTestPriceService(repo, observer)

	_, err := service.Process(context.Background(), ProcessRequest{
		TrackedItemID: 3,
		Raw:           validRaw(0),
		Packaging:     sixPack,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExtractionValidation))

	assert.Equal(t, 0, repo.appendCalls)
	require.Len(t, observer.failures, 1)
	assert.Equal(t, 0, observer.successes)
}

func TestPriceService_EventCarriesModelAndDuration(t *testing.T) {
	observer := &MockObserver{}
	service := newTestPriceService(NewMockHistoryRepository(), observer)

	_, err := service.Process(context.Background(), ProcessRequest{
		TrackedItemID: 7,
		Raw:           validRaw(6.00),
		Packaging:     sixPack,
		Model:         "gemini-2.5-flash",
		StartedAt:     fixedNow.Add(-2 * time.Second),
	})
	require.NoError(t, err)

	events := observer.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, int64(7), events[0].TrackedItemID)
	assert.Equal(t, "gemini-2.5-flash", events[0].Model)
	assert.Equal(t, 2*time.Second, events[0].Duration)
	require.NotNil(t, events[0].Result)
	assert.NoError(t, events[0].Err)
}

func TestPriceService_RecordFailure(t *testing.T) {
	observer := &MockObserver{}
	service := newTestPriceService(NewMockHistoryRepository(), observer)

	service.RecordFailure(context.Background(), 4, "gemini-2.0-flash", fixedNow.Add(-time.Second), domain.ErrScreenshotNotFound)

	events := observer.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, int64(4), events[0].TrackedItemID)
	assert.Equal(t, "gemini-2.0-flash", events[0].Model)
	assert.Equal(t, time.Second, events[0].Duration)
	assert.ErrorIs(t, events[0].Err, domain.ErrScreenshotNotFound)
	assert.Nil(t, events[0].Result)
}

func TestPriceService_StorageFailureObserved(t *testing.T) {
	repo := NewMockHistoryRepository()
	repo.appendError = errors.New("disk full")
	observer := &MockObserver{}
	service := newTestPriceService(repo, observer)

	_, err := service.Process(context.Background(), ProcessRequest{
		TrackedItemID: 2,
		Raw:           validRaw(1.99),
		Packaging:     sixPack,
	})
	require.Error(t, err)
	require.Len(t, observer.failures, 1)
	assert.ErrorIs(t, observer.failures[0], repo.appendError)
	assert.Equal(t, 0, observer.successes)
}

func TestPriceService_ProcessErrors(t *testing.T) {
	storageErr := errors.New("disk full")

	tests := []struct {
		name    string
		setup   func(*MockHistoryRepository)
		itemID  int64
		wantErr error
	}{
		{"invalid item id", func(*MockHistoryRepository) {}, 0, domain.ErrInvalidRequest},
		{"load previous fails", func(m *MockHistoryRepository) { m.getError = storageErr }, 1, storageErr},
		{"append fails", func(m *MockHistoryRepository) { m.appendError = storageErr }, 1, storageErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockHistoryRepository()
			tt.setup(repo)
			service := newTestPriceService(repo, nil)

			result, err := service.Process(context.Background(), ProcessRequest{
				TrackedItemID: tt.itemID,
				Raw:           validRaw(1.99),
				Packaging:     sixPack,
			})
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestPriceService_Latest(t *testing.T) {
	repo := NewMockHistoryRepository()
	service := newTestPriceService(repo, nil)

	_, err := service.Latest(context.Background(), 9)
	assert.True(t, errors.Is(err, domain.ErrRecordNotFound))

	repo.seed(9, 4.49)
	repo.seed(9, 3.99)

	record, err := service.Latest(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, 3.99, record.Price)
}

func TestPriceService_History(t *testing.T) {
	repo := NewMockHistoryRepository()
	service := newTestPriceService(repo, nil)
	for _, price := range []float64{3, 2, 1} {
		repo.seed(5, price)
	}

	records, err := service.History(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultHistoryLimit, repo.lastLimit)
	require.Len(t, records, 3)
	assert.Equal(t, 1.0, records[0].Price)

	records, err = service.History(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.lastLimit)
	assert.Len(t, records, 2)
}
