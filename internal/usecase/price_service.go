package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pricespy/backend/internal/domain"
)

// DefaultHistoryLimit caps history listings when the caller gives no limit
const DefaultHistoryLimit = 50

// PriceServiceConfig holds configuration for the price service
type PriceServiceConfig struct {
	Engine   EngineConfig
	Observer domain.ExtractionObserver
	Logger   *zap.Logger

	// Now and NewID are overridable for tests
	Now   func() time.Time
	NewID func() string
}

// ProcessRequest is one raw extraction for a tracked item
type ProcessRequest struct {
	TrackedItemID int64
	Raw           domain.RawExtraction
	Packaging     domain.PackagingSpec
	Target        *domain.TargetSpec

	// Model and StartedAt describe the extraction that produced Raw; they
	// only feed the observer. A zero StartedAt means "now".
	Model     string
	StartedAt time.Time
}

// PriceService runs extractions through the engine against stored history
type PriceService struct {
	history  domain.PriceHistoryRepository
	engine   *PriceEngine
	observer domain.ExtractionObserver
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewPriceService creates a new price service with dependencies
func NewPriceService(history domain.PriceHistoryRepository, config PriceServiceConfig) *PriceService {
	logger := config.Logger
	if logger == nil {
		logger = zap.L()
	}
	engineConfig := config.Engine
	if engineConfig.Logger == nil {
		engineConfig.Logger = logger
	}

	now := config.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := config.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &PriceService{
		history:  history,
		engine:   NewPriceEngine(engineConfig),
		observer: config.Observer,
		logger:   logger,
		now:      now,
		newID:    newID,
	}
}

// Process validates and compares one extraction, then appends it to history.
// Flow: load previous -> engine -> stamp id/time -> append -> observe.
// Every outcome, success or failure, is passed to the observer.
//
// Only records with a positive price are stored; an out-of-stock page is
// reported but leaves the history, and therefore future drops, untouched.
func (s *PriceService) Process(ctx context.Context, request ProcessRequest) (*domain.ProcessResult, error) {
	if request.TrackedItemID <= 0 {
		return nil, fmt.Errorf("%w: tracked item id must be positive", domain.ErrInvalidRequest)
	}
	started := request.StartedAt
	if started.IsZero() {
		started = s.now()
	}

	result, err := s.process(ctx, request)
	if err != nil {
		s.RecordFailure(ctx, request.TrackedItemID, request.Model, started, err)
		return nil, err
	}

	s.observe(ctx, domain.ExtractionEvent{
		TrackedItemID: request.TrackedItemID,
		Model:         request.Model,
		Duration:      s.now().Sub(started),
		Result:        result,
	})
	return result, nil
}

func (s *PriceService) process(ctx context.Context, request ProcessRequest) (*domain.ProcessResult, error) {
	previous, err := s.history.GetLatest(ctx, request.TrackedItemID)
	if err != nil {
		return nil, fmt.Errorf("load previous price for item %d: %w", request.TrackedItemID, err)
	}

	result, err := s.engine.ProcessExtraction(request.Raw, request.Packaging, previous, request.Target)
	if err != nil {
		return nil, err
	}

	record := result.Record
	record.ID = s.newID()
	record.TrackedItemID = request.TrackedItemID
	record.CapturedAt = s.now()

	if record.Price > 0 {
		if err := s.history.Append(ctx, request.TrackedItemID, record); err != nil {
			return nil, fmt.Errorf("append price for item %d: %w", request.TrackedItemID, err)
		}
	}

	s.logger.Info("price processed",
		zap.Int64("tracked_item_id", request.TrackedItemID),
		zap.Float64("price", record.Price),
		zap.Bool("is_available", record.IsAvailable),
		zap.Bool("is_price_drop", result.Comparison.IsPriceDrop),
		zap.Bool("is_deal", result.Comparison.IsDeal),
		zap.Int("warnings", len(record.Warnings)),
	)
	return result, nil
}

// RecordFailure reports an attempt for trackedItemID that failed before or
// during processing, e.g. because the screenshot or the model call failed.
func (s *PriceService) RecordFailure(ctx context.Context, trackedItemID int64, model string, started time.Time, err error) {
	s.observe(ctx, domain.ExtractionEvent{
		TrackedItemID: trackedItemID,
		Model:         model,
		Duration:      s.now().Sub(started),
		Err:           err,
	})
}

// Latest returns the most recent stored record for a tracked item
func (s *PriceService) Latest(ctx context.Context, trackedItemID int64) (*domain.ValidatedPriceRecord, error) {
	record, err := s.history.GetLatest(ctx, trackedItemID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrRecordNotFound
	}
	return record, nil
}

// History returns stored records newest first
func (s *PriceService) History(ctx context.Context, trackedItemID int64, limit int) ([]domain.ValidatedPriceRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.history.List(ctx, trackedItemID, limit)
}

func (s *PriceService) observe(ctx context.Context, event domain.ExtractionEvent) {
	if s.observer != nil {
		s.observer.ObserveExtraction(ctx, event)
	}
}
