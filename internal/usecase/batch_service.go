package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pricespy/backend/internal/domain"
)

// Batch status values
const (
	BatchStatusSuccess = "success"
	BatchStatusError   = "error"
)

// BatchConfig holds configuration for the batch runner
type BatchConfig struct {
	Concurrency int           // max extractions in flight (default 10)
	Delay       time.Duration // pause between launching items
	SoftRetries int           // retries when the page was blocked (default 2)
	RetryDelay  time.Duration // base backoff, multiplied by the attempt number
	Logger      *zap.Logger
}

// ItemResult is the outcome for one tracked item in a batch
type ItemResult struct {
	TrackedItemID int64                 `json:"tracked_item_id"`
	Status        string                `json:"status"`
	Error         string                `json:"error,omitempty"`
	ErrorKind     string                `json:"error_kind,omitempty"`
	Attempts      int                   `json:"attempts"`
	DurationMS    int64                 `json:"duration_ms"`
	Result        *domain.ProcessResult `json:"result,omitempty"`
}

// BatchSummary aggregates a batch run
type BatchSummary struct {
	Total        int          `json:"total"`
	SuccessCount int          `json:"success_count"`
	ErrorCount   int          `json:"error_count"`
	Results      []ItemResult `json:"results"`
}

// BatchRunner extracts and processes many tracked items concurrently
type BatchRunner struct {
	source  domain.ExtractionSource
	service *PriceService
	config  BatchConfig
	logger  *zap.Logger
}

// NewBatchRunner creates a new batch runner
func NewBatchRunner(source domain.ExtractionSource, service *PriceService, config BatchConfig) *BatchRunner {
	if config.Concurrency <= 0 {
		config.Concurrency = 10
	}
	if config.SoftRetries < 0 {
		config.SoftRetries = 0
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.L()
	}
	return &BatchRunner{
		source:  source,
		service: service,
		config:  config,
		logger:  logger,
	}
}

// RunBatch processes every item and returns a summary in input order.
// One item's failure never aborts the others; cancelling ctx stops items
// that have not started yet, which are reported as errors.
func (b *BatchRunner) RunBatch(ctx context.Context, items []domain.TrackedItem) BatchSummary {
	summary := BatchSummary{
		Total:   len(items),
		Results: make([]ItemResult, len(items)),
	}
	if len(items) == 0 {
		return summary
	}

	b.logger.Info("processing batch",
		zap.Int("items", len(items)),
		zap.Int("concurrency", b.config.Concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Concurrency)

	var succeeded, failed atomic.Int64
	var mu sync.Mutex

	for i, item := range items {
		if i > 0 && b.config.Delay > 0 {
			if err := sleepContext(gctx, b.config.Delay); err != nil {
				b.markSkipped(&summary, i, items[i:], err)
				failed.Add(int64(len(items) - i))
				break
			}
		}

		i, item := i, item // per-iteration copies (module targets go1.21)
		g.Go(func() error {
			res := b.runItem(gctx, item)
			if res.Status == BatchStatusSuccess {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}
			mu.Lock()
			summary.Results[i] = res
			mu.Unlock()
			return nil // don't abort batch on individual failure
		})
	}

	_ = g.Wait()

	summary.SuccessCount = int(succeeded.Load())
	summary.ErrorCount = int(failed.Load())

	b.logger.Info("batch complete",
		zap.Int("succeeded", summary.SuccessCount),
		zap.Int("failed", summary.ErrorCount),
	)
	return summary
}

func (b *BatchRunner) runItem(ctx context.Context, item domain.TrackedItem) ItemResult {
	start := time.Now()
	log := b.logger.With(zap.Int64("tracked_item_id", item.ID))
	res := ItemResult{TrackedItemID: item.ID}

	// A bad catalog entry fails here, before any model call is spent on it
	err := checkItem(item)
	if err != nil {
		b.service.RecordFailure(ctx, item.ID, "", start, err)
	} else {
		err = b.extractWithRetries(ctx, item, log, &res)
	}

	if err != nil {
		res.Status = BatchStatusError
		res.Error = err.Error()
		res.ErrorKind = domain.ErrorKind(err)
		log.Error("extraction failed", zap.String("kind", res.ErrorKind), zap.Error(err))
	}
	res.DurationMS = time.Since(start).Milliseconds()
	return res
}

// extractWithRetries runs extraction attempts until one succeeds or fails
// for a reason a retry cannot fix. Every attempt reaches the observer.
func (b *BatchRunner) extractWithRetries(ctx context.Context, item domain.TrackedItem, log *zap.Logger, res *ItemResult) error {
	var err error
	for attempt := 1; attempt <= b.config.SoftRetries+1; attempt++ {
		res.Attempts = attempt
		attemptStart := time.Now()

		var extraction domain.Extraction
		extraction, err = b.source.Extract(ctx, item)
		if err != nil {
			b.service.RecordFailure(ctx, item.ID, extraction.Model, attemptStart, err)
		} else {
			var result *domain.ProcessResult
			result, err = b.service.Process(ctx, ProcessRequest{
				TrackedItemID: item.ID,
				Raw:           extraction.Raw,
				Packaging:     item.Packaging,
				Target:        item.Target,
				Model:         extraction.Model,
				StartedAt:     attemptStart,
			})
			if err == nil {
				res.Status = BatchStatusSuccess
				res.Result = result
				return nil
			}
		}

		if !isSoftFailure(err) || attempt > b.config.SoftRetries {
			return err
		}
		log.Warn("soft failure detected, retrying", zap.Int("attempt", attempt), zap.Error(err))
		if sleepErr := sleepContext(ctx, b.config.RetryDelay*time.Duration(attempt)); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

// checkItem rejects items whose packaging or target unit cannot be used.
// The error is scoped to the item, like a packaging failure in the engine.
func checkItem(item domain.TrackedItem) error {
	err := item.PackagingErr
	if err == nil {
		err = ValidatePackaging(item.Packaging)
	}
	if err == nil && item.Target != nil && item.Target.Scope == domain.TargetScopeUnit {
		if _, ok := NormalizeUnit(item.Target.Unit); !ok {
			err = &domain.UnknownUnitError{Unit: item.Target.Unit}
		}
	}
	if err != nil {
		return &domain.ProcessError{Stage: domain.StagePackaging, Err: err}
	}
	return nil
}

func (b *BatchRunner) markSkipped(summary *BatchSummary, offset int, rest []domain.TrackedItem, err error) {
	for j, item := range rest {
		summary.Results[offset+j] = ItemResult{
			TrackedItemID: item.ID,
			Status:        BatchStatusError,
			Error:         err.Error(),
			ErrorKind:     domain.ErrorKind(err),
		}
	}
}

// isSoftFailure reports whether a retry could help: the page was blocked
// by a captcha or similar wall when the screenshot was taken.
func isSoftFailure(err error) bool {
	var validationErr *domain.ValidationError
	return errors.As(err, &validationErr) && validationErr.Kind == domain.ValidationBlocked
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
