package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pricespy/backend/internal/domain"
)

func newTestLogService(repo domain.ExtractionLogRepository) *ExtractionLogService {
	s := NewExtractionLogService(repo, zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestNewExtractionLog_Success(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := NewExtractionLog(domain.ExtractionEvent{
		TrackedItemID: 7,
		Model:         "gemini-2.5-flash",
		Duration:      1500 * time.Millisecond,
		Result: &domain.ProcessResult{
			Record: &domain.ValidatedPriceRecord{Price: 6.99, Currency: "EUR"},
		},
	}, at)

	assert.Equal(t, domain.ExtractionStatusSuccess, entry.Status)
	assert.Equal(t, int64(7), entry.TrackedItemID)
	assert.Equal(t, "gemini-2.5-flash", entry.Model)
	assert.Equal(t, int64(1500), entry.DurationMS)
	require.NotNil(t, entry.Price)
	assert.Equal(t, 6.99, *entry.Price)
	assert.Equal(t, "EUR", entry.Currency)
	assert.Empty(t, entry.ErrorKind)
	assert.Equal(t, at, entry.CreatedAt)
}

func TestNewExtractionLog_ValidationFailure(t *testing.T) {
	err := &domain.ProcessError{
		Stage: domain.StageValidation,
		Err:   &domain.ValidationError{Kind: domain.ValidationInvalidCurrency, Field: "currency", Value: "euro"},
	}

	entry := NewExtractionLog(domain.ExtractionEvent{TrackedItemID: 3, Model: "m", Err: err}, time.Now())

	assert.Equal(t, domain.ExtractionStatusError, entry.Status)
	assert.Equal(t, domain.ErrorKind(err), entry.ErrorKind)
	assert.Equal(t, "currency", entry.ErrorField)
	assert.Equal(t, "euro", entry.ErrorValue)
	assert.NotEmpty(t, entry.ErrorMessage)
	assert.Nil(t, entry.Price)
}

func TestNewExtractionLog_CutsLongValues(t *testing.T) {
	err := &domain.ValidationError{
		Kind:  domain.ValidationInvalidType,
		Field: "price",
		Value: strings.Repeat("ü", 400),
	}

	entry := NewExtractionLog(domain.ExtractionEvent{Err: err}, time.Now())

	assert.Equal(t, maxLoggedValueLength, utf8.RuneCountInString(entry.ErrorValue))
	assert.LessOrEqual(t, utf8.RuneCountInString(entry.ErrorMessage), maxLoggedMessageLength)
}

func TestNewExtractionLog_NonValidationFailure(t *testing.T) {
	err := &domain.UnknownUnitError{Unit: "bushel"}

	entry := NewExtractionLog(domain.ExtractionEvent{TrackedItemID: 11, Err: err}, time.Now())

	assert.Equal(t, domain.ExtractionStatusError, entry.Status)
	assert.Equal(t, "unknown_unit", entry.ErrorKind)
	assert.Empty(t, entry.ErrorField)
	assert.Empty(t, entry.ErrorValue)
}

func TestExtractionLogService_ObserveAppends(t *testing.T) {
	repo := &MockExtractionLogRepository{}
	s := newTestLogService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.ObserveExtraction(ctx, domain.ExtractionEvent{TrackedItemID: 1, Err: context.Canceled})

	require.Len(t, repo.logs, 1)
	assert.Equal(t, int64(1), repo.logs[0].ID)
	assert.Equal(t, domain.ExtractionStatusError, repo.logs[0].Status)
}

func TestExtractionLogService_ObserveSwallowsWriteError(t *testing.T) {
	repo := &MockExtractionLogRepository{appendError: errors.New("disk full")}
	s := newTestLogService(repo)

	assert.NotPanics(t, func() {
		s.ObserveExtraction(context.Background(), domain.ExtractionEvent{TrackedItemID: 1})
	})
	assert.Empty(t, repo.logs)
}

func TestExtractionLogService_List(t *testing.T) {
	repo := &MockExtractionLogRepository{}
	s := newTestLogService(repo)
	ctx := context.Background()

	s.ObserveExtraction(ctx, domain.ExtractionEvent{
		TrackedItemID: 1,
		Result:        &domain.ProcessResult{Record: &domain.ValidatedPriceRecord{Price: 2, Currency: "EUR"}},
	})
	s.ObserveExtraction(ctx, domain.ExtractionEvent{TrackedItemID: 2, Err: &domain.UnknownUnitError{Unit: "bushel"}})

	logs, err := s.List(ctx, domain.ExtractionLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, int64(2), logs[0].TrackedItemID)
	assert.Equal(t, DefaultLogLimit, repo.lastFilter.Limit)

	logs, err = s.List(ctx, domain.ExtractionLogFilter{Status: domain.ExtractionStatusError})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "unknown_unit", logs[0].ErrorKind)
}

func TestExtractionLogService_ListRejectsBadFilter(t *testing.T) {
	s := newTestLogService(&MockExtractionLogRepository{})

	tests := []struct {
		name   string
		filter domain.ExtractionLogFilter
	}{
		{name: "limit too large", filter: domain.ExtractionLogFilter{Limit: MaxLogLimit + 1}},
		{name: "negative offset", filter: domain.ExtractionLogFilter{Offset: -1}},
		{name: "unknown status", filter: domain.ExtractionLogFilter{Status: "pending"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.List(context.Background(), tt.filter)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}

func TestExtractionLogService_Stats(t *testing.T) {
	repo := &MockExtractionLogRepository{}
	s := newTestLogService(repo)
	ctx := context.Background()

	s.ObserveExtraction(ctx, domain.ExtractionEvent{
		TrackedItemID: 1,
		Result:        &domain.ProcessResult{Record: &domain.ValidatedPriceRecord{Price: 2}},
	})
	s.ObserveExtraction(ctx, domain.ExtractionEvent{TrackedItemID: 2, Err: &domain.UnknownUnitError{Unit: "bushel"}})
	s.ObserveExtraction(ctx, domain.ExtractionEvent{TrackedItemID: 3, Err: &domain.UnknownUnitError{Unit: "peck"}})

	stats, err := s.Stats(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 2, stats.ErrorCount)
	assert.Equal(t, 2, stats.ErrorsByKind["unknown_unit"])
}

func TestObservers_FanOut(t *testing.T) {
	first, second := &MockObserver{}, &MockObserver{}
	observers := Observers{first, nil, second}

	observers.ObserveExtraction(context.Background(), domain.ExtractionEvent{Err: errors.New("boom")})

	assert.Len(t, first.failures, 1)
	assert.Len(t, second.failures, 1)
}
