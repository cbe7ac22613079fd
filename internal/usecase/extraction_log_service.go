package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pricespy/backend/internal/domain"
)

const (
	// DefaultLogLimit is used when a log listing gives no limit
	DefaultLogLimit = 100

	// MaxLogLimit caps a single log listing
	MaxLogLimit = 1000

	maxLoggedValueLength   = 200
	maxLoggedMessageLength = 500
)

// ExtractionLogService writes one audit entry per extraction attempt and
// serves them back. It implements domain.ExtractionObserver.
type ExtractionLogService struct {
	repo   domain.ExtractionLogRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewExtractionLogService creates a new extraction log service
func NewExtractionLogService(repo domain.ExtractionLogRepository, logger *zap.Logger) *ExtractionLogService {
	if logger == nil {
		logger = zap.L()
	}
	return &ExtractionLogService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ObserveExtraction implements domain.ExtractionObserver. A failed write is
// logged and swallowed so auditing never fails the extraction itself.
func (s *ExtractionLogService) ObserveExtraction(ctx context.Context, event domain.ExtractionEvent) {
	entry := NewExtractionLog(event, s.now())

	// The batch may already be cancelled; the attempt still gets recorded
	if err := s.repo.AppendLog(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("failed to write extraction log",
			zap.Int64("tracked_item_id", event.TrackedItemID),
			zap.Error(err),
		)
	}
}

// List returns log entries newest first
func (s *ExtractionLogService) List(ctx context.Context, filter domain.ExtractionLogFilter) ([]domain.ExtractionLog, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultLogLimit
	}
	if filter.Limit > MaxLogLimit {
		return nil, fmt.Errorf("%w: limit must be at most %d", domain.ErrInvalidRequest, MaxLogLimit)
	}
	if filter.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidRequest)
	}
	if filter.Status != "" && filter.Status != domain.ExtractionStatusSuccess && filter.Status != domain.ExtractionStatusError {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, filter.Status)
	}
	return s.repo.ListLogs(ctx, filter)
}

// Stats summarizes the attempts recorded since the given time
func (s *ExtractionLogService) Stats(ctx context.Context, since time.Time) (domain.ExtractionStats, error) {
	return s.repo.LogStats(ctx, since)
}

// NewExtractionLog converts an extraction event into its audit entry
func NewExtractionLog(event domain.ExtractionEvent, at time.Time) *domain.ExtractionLog {
	entry := &domain.ExtractionLog{
		TrackedItemID: event.TrackedItemID,
		Model:         event.Model,
		DurationMS:    event.Duration.Milliseconds(),
		CreatedAt:     at,
	}

	if event.Err == nil && event.Result != nil && event.Result.Record != nil {
		entry.Status = domain.ExtractionStatusSuccess
		price := event.Result.Record.Price
		entry.Price = &price
		entry.Currency = event.Result.Record.Currency
		return entry
	}

	entry.Status = domain.ExtractionStatusError
	entry.ErrorKind = domain.ErrorKind(event.Err)
	if event.Err != nil {
		entry.ErrorMessage = cutRunes(event.Err.Error(), maxLoggedMessageLength)
	}

	var validationErr *domain.ValidationError
	if errors.As(event.Err, &validationErr) {
		entry.ErrorField = validationErr.Field
		if validationErr.Value != nil {
			entry.ErrorValue = cutRunes(fmt.Sprint(validationErr.Value), maxLoggedValueLength)
		}
	}
	return entry
}

// Observers fans an event out to several observers in order
type Observers []domain.ExtractionObserver

// ObserveExtraction implements domain.ExtractionObserver
func (o Observers) ObserveExtraction(ctx context.Context, event domain.ExtractionEvent) {
	for _, observer := range o {
		if observer != nil {
			observer.ObserveExtraction(ctx, event)
		}
	}
}

func cutRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
