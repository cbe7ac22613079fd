// Package metrics exposes Prometheus collectors for extractions and HTTP.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pricespy/backend/internal/domain"
)

var (
	// Extraction outcomes partitioned by status and error kind
	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricespy_extractions_total",
			Help: "Total number of processed extractions",
		},
		[]string{"status", "kind"},
	)

	// Time from screenshot to processed record, per answering model
	extractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricespy_extraction_duration_seconds",
			Help:    "Duration of extraction attempts in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	// Data-quality warnings attached to accepted records
	warningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricespy_record_warnings_total",
			Help: "Warnings attached to validated price records",
		},
		[]string{"kind"},
	)

	priceDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricespy_price_drops_total",
			Help: "Extractions whose price is below the previous observation",
		},
	)

	dealsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricespy_deals_total",
			Help: "Extractions at or below the product target",
		},
		[]string{"scope"},
	)

	// Total HTTP requests partitioned by method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// In-flight HTTP requests
	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// PrometheusObserver records processing outcomes as Prometheus metrics
type PrometheusObserver struct{}

// NewPrometheusObserver creates a new observer
func NewPrometheusObserver() *PrometheusObserver {
	return &PrometheusObserver{}
}

// ObserveExtraction implements domain.ExtractionObserver
func (PrometheusObserver) ObserveExtraction(_ context.Context, event domain.ExtractionEvent) {
	extractionDuration.WithLabelValues(modelLabel(event.Model)).Observe(event.Duration.Seconds())

	if event.Err != nil {
		extractionsTotal.WithLabelValues("error", domain.ErrorKind(event.Err)).Inc()
		return
	}
	result := event.Result
	if result == nil || result.Record == nil {
		return
	}
	extractionsTotal.WithLabelValues("success", "").Inc()
	for _, w := range result.Record.Warnings {
		warningsTotal.WithLabelValues(string(w.Kind)).Inc()
	}
	if result.Comparison.IsPriceDrop {
		priceDropsTotal.Inc()
	}
	if result.Comparison.IsDeal {
		dealsTotal.WithLabelValues(string(result.Comparison.TargetScope)).Inc()
	}
}

func modelLabel(model string) string {
	if model == "" {
		return "none"
	}
	return model
}

// HTTPRequestStarted marks a request in flight and returns the function that
// records it once the response status is known.
func HTTPRequestStarted() func(method, route string, status int) {
	start := time.Now()
	httpInFlight.Inc()
	return func(method, route string, status int) {
		httpInFlight.Dec()
		labels := prometheus.Labels{
			"method": method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
