package usecase

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pricespy/backend/internal/domain"
)

// EngineConfig holds configuration for the price engine
type EngineConfig struct {
	MaxTextLength     int
	DiscountTolerance float64
	Logger            *zap.Logger
}

// PriceEngine turns one raw extraction into a validated, unit-normalized,
// compared price. It is stateless and safe to call from many goroutines.
type PriceEngine struct {
	validator  *ExtractionValidator
	classifier *DiscountClassifier
	logger     *zap.Logger
}

// NewPriceEngine creates a new price engine
func NewPriceEngine(config EngineConfig) *PriceEngine {
	logger := config.Logger
	if logger == nil {
		logger = zap.L()
	}
	return &PriceEngine{
		validator: NewExtractionValidator(ValidatorConfig{
			MaxTextLength: config.MaxTextLength,
			Logger:        logger,
		}),
		classifier: NewDiscountClassifier(config.DiscountTolerance),
		logger:     logger,
	}
}

// ProcessExtraction validates raw, computes the volume price from packaging,
// classifies the discount and compares against previous and target.
//
// Failures are returned as *domain.ProcessError and never escape as panics;
// the caller records them against this one extraction and carries on.
func (e *PriceEngine) ProcessExtraction(
	raw domain.RawExtraction,
	packaging domain.PackagingSpec,
	previous *domain.ValidatedPriceRecord,
	target *domain.TargetSpec,
) (*domain.ProcessResult, error) {
	record, err := e.validator.Validate(raw)
	if err != nil {
		e.logFailure(domain.StageValidation, err)
		return nil, &domain.ProcessError{Stage: domain.StageValidation, Err: err}
	}

	// Packaging is checked even for unavailable items: a bad unit is a
	// configuration problem that should surface on every run.
	if err := ValidatePackaging(packaging); err != nil {
		e.logFailure(domain.StagePackaging, err)
		return nil, &domain.ProcessError{Stage: domain.StagePackaging, Err: err}
	}

	result := &domain.ProcessResult{Record: record}

	if record.Price > 0 {
		volumePrice, err := ComputeUnitPrice(record.Price, packaging)
		if err != nil {
			e.logFailure(domain.StagePackaging, err)
			return nil, &domain.ProcessError{Stage: domain.StagePackaging, Err: err}
		}
		result.VolumePrice = &volumePrice
	}

	result.Discount = e.classifier.Classify(record)
	if result.Discount.IsInconsistent {
		record.Warnings = append(record.Warnings, domain.Warning{
			Kind:    domain.WarningDiscountInconsistency,
			Field:   "discount",
			Message: describeInconsistency(record),
		})
		e.logger.Warn("extraction data quality: inconsistent discount",
			zap.Float64("price", record.Price),
			zap.Any("original_price", record.OriginalPrice),
			zap.Any("discount_percentage", record.DiscountPercentage),
			zap.Any("discount_fixed_amount", record.DiscountFixedAmount),
		)
	}

	result.Comparison = Compare(record, previous, target, result.VolumePrice)
	if result.Comparison.TargetUnitMismatch {
		record.Warnings = append(record.Warnings, domain.Warning{
			Kind:    domain.WarningTargetUnitMismatch,
			Field:   "target",
			Message: fmt.Sprintf("target unit %q does not match item unit %q", target.Unit, result.VolumePrice.UnitLabel),
		})
		e.logger.Warn("target unit does not match packaging",
			zap.String("target_unit", target.Unit),
			zap.String("unit_label", result.VolumePrice.UnitLabel),
		)
	}

	return result, nil
}

func (e *PriceEngine) logFailure(stage domain.ProcessStage, err error) {
	fields := []zap.Field{
		zap.String("stage", string(stage)),
		zap.String("kind", domain.ErrorKind(err)),
		zap.Error(err),
	}
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		fields = append(fields,
			zap.String("field", validationErr.Field),
			zap.Any("raw_value", validationErr.Value),
		)
	}
	e.logger.Warn("extraction rejected", fields...)
}

func describeInconsistency(record *domain.ValidatedPriceRecord) string {
	msg := fmt.Sprintf("advertised discount does not match price %.2f", record.Price)
	if record.OriginalPrice != nil {
		msg += fmt.Sprintf(" (original %.2f", *record.OriginalPrice)
		if record.DiscountPercentage != nil {
			msg += fmt.Sprintf(", %.1f%% off", *record.DiscountPercentage)
		}
		msg += ")"
	}
	return msg
}
