package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrExtractionValidation is returned when the vision model output fails type or range checks
	ErrExtractionValidation = errors.New("extraction validation failed")

	// ErrUnknownUnit is returned when a packaging or target unit is not registered
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrDimensionMismatch is returned when converting between units of different dimensions
	ErrDimensionMismatch = errors.New("unit dimension mismatch")

	// ErrInvalidPackaging is returned when packaging metadata violates its preconditions
	ErrInvalidPackaging = errors.New("invalid packaging")

	// ErrInvalidPrice is returned when a price is negative or not a finite number
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRecordNotFound is returned when a tracked item has no stored price history
	ErrRecordNotFound = errors.New("price record not found")

	// ErrVisionAPIFailure is returned when the vision model request fails
	ErrVisionAPIFailure = errors.New("vision API request failed")

	// ErrModelsExhausted is returned when every configured vision model hit its quota
	ErrModelsExhausted = errors.New("all vision models exhausted")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrScreenshotNotFound is returned when no screenshot exists for a tracked item
	ErrScreenshotNotFound = errors.New("screenshot not found")
)

// ValidationKind classifies why an extraction was rejected.
type ValidationKind string

const (
	ValidationMalformedPayload ValidationKind = "malformed_payload"
	ValidationMissingField     ValidationKind = "missing_field"
	ValidationInvalidType      ValidationKind = "invalid_type"
	ValidationNonFinitePrice   ValidationKind = "non_finite_price"
	ValidationNonPositivePrice ValidationKind = "non_positive_price"
	ValidationPriceOutOfRange  ValidationKind = "price_out_of_range"
	ValidationInvalidCurrency  ValidationKind = "invalid_currency"
	ValidationBlocked          ValidationKind = "blocked"
)

// ValidationError describes a rejected extraction: what went wrong, on which
// field, and the raw value the model returned.
type ValidationError struct {
	Kind  ValidationKind `json:"kind"`
	Field string         `json:"field"`
	Value any            `json:"value"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s on field %q (value: %v)", ErrExtractionValidation, e.Kind, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return ErrExtractionValidation
}

// UnknownUnitError is returned by the unit converter for unregistered tokens.
type UnknownUnitError struct {
	Unit string
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownUnit, e.Unit)
}

func (e *UnknownUnitError) Unwrap() error {
	return ErrUnknownUnit
}

// ProcessStage names the step of extraction processing that failed.
type ProcessStage string

const (
	StageValidation ProcessStage = "validation"
	StagePackaging  ProcessStage = "packaging"
)

// ProcessError is the tagged failure returned by extraction processing.
// Callers record it against the one tracked item and move on.
type ProcessError struct {
	Stage ProcessStage
	Err   error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// ErrorKind returns a short machine-readable label for err, used in logs,
// metrics and API payloads.
func ErrorKind(err error) string {
	var validationErr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return string(validationErr.Kind)
	case errors.Is(err, ErrUnknownUnit):
		return "unknown_unit"
	case errors.Is(err, ErrInvalidPackaging):
		return "invalid_packaging"
	case errors.Is(err, ErrModelsExhausted):
		return "models_exhausted"
	case errors.Is(err, ErrVisionAPIFailure):
		return "vision_api_failure"
	case errors.Is(err, ErrScreenshotNotFound):
		return "screenshot_not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
