package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/pricespy/backend/internal/domain"
)

func TestPrometheusObserver_RecordsSuccess(t *testing.T) {
	observer := NewPrometheusObserver()

	successBefore := testutil.ToFloat64(extractionsTotal.WithLabelValues("success", ""))
	dropsBefore := testutil.ToFloat64(priceDropsTotal)
	dealsBefore := testutil.ToFloat64(dealsTotal.WithLabelValues("unit"))
	truncBefore := testutil.ToFloat64(warningsTotal.WithLabelValues(string(domain.WarningTruncation)))

	observer.ObserveExtraction(context.Background(), domain.ExtractionEvent{
		TrackedItemID: 1,
		Model:         "gemini-2.5-flash",
		Duration:      2 * time.Second,
		Result: &domain.ProcessResult{
			Record: &domain.ValidatedPriceRecord{
				Price: 4.99,
				Warnings: []domain.Warning{
					{Kind: domain.WarningTruncation, Field: "notes"},
					{Kind: domain.WarningTruncation, Field: "store_name"},
				},
			},
			Comparison: domain.PriceComparison{
				IsPriceDrop: true,
				IsDeal:      true,
				TargetScope: domain.TargetScopeUnit,
			},
		},
	})

	assert.Equal(t, successBefore+1, testutil.ToFloat64(extractionsTotal.WithLabelValues("success", "")))
	assert.Equal(t, dropsBefore+1, testutil.ToFloat64(priceDropsTotal))
	assert.Equal(t, dealsBefore+1, testutil.ToFloat64(dealsTotal.WithLabelValues("unit")))
	assert.Equal(t, truncBefore+2, testutil.ToFloat64(warningsTotal.WithLabelValues(string(domain.WarningTruncation))))
}

func TestPrometheusObserver_IgnoresEmptyResult(t *testing.T) {
	before := testutil.ToFloat64(extractionsTotal.WithLabelValues("success", ""))

	NewPrometheusObserver().ObserveExtraction(context.Background(), domain.ExtractionEvent{})
	NewPrometheusObserver().ObserveExtraction(context.Background(), domain.ExtractionEvent{Result: &domain.ProcessResult{}})

	assert.Equal(t, before, testutil.ToFloat64(extractionsTotal.WithLabelValues("success", "")))
}

func TestPrometheusObserver_RecordsFailure(t *testing.T) {
	observer := NewPrometheusObserver()
	err := &domain.ValidationError{Kind: domain.ValidationBlocked, Field: "is_blocked"}

	before := testutil.ToFloat64(extractionsTotal.WithLabelValues("error", "blocked"))
	observer.ObserveExtraction(context.Background(), domain.ExtractionEvent{TrackedItemID: 1, Err: err})
	assert.Equal(t, before+1, testutil.ToFloat64(extractionsTotal.WithLabelValues("error", "blocked")))

	before = testutil.ToFloat64(extractionsTotal.WithLabelValues("error", "screenshot_not_found"))
	observer.ObserveExtraction(context.Background(), domain.ExtractionEvent{TrackedItemID: 2, Err: domain.ErrScreenshotNotFound})
	assert.Equal(t, before+1, testutil.ToFloat64(extractionsTotal.WithLabelValues("error", "screenshot_not_found")))
}

func TestPrometheusObserver_RecordsDurationPerModel(t *testing.T) {
	NewPrometheusObserver().ObserveExtraction(context.Background(), domain.ExtractionEvent{
		Model:    "gemini-2.0-flash",
		Duration: 1500 * time.Millisecond,
		Err:      domain.ErrModelsExhausted,
	})
	NewPrometheusObserver().ObserveExtraction(context.Background(), domain.ExtractionEvent{Err: domain.ErrScreenshotNotFound})

	assert.GreaterOrEqual(t, testutil.CollectAndCount(extractionDuration), 2)
}

func TestHTTPRequestStarted(t *testing.T) {
	labels := []string{"GET", "/api/v1/units", "200"}
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(labels...))

	done := HTTPRequestStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(httpInFlight))
	done("GET", "/api/v1/units", 200)

	assert.Equal(t, 0.0, testutil.ToFloat64(httpInFlight))
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(labels...)))
}
