// Package metrics provides Prometheus metrics collection for the HTTP server
// and the SPL ingestion pipeline.
//
// HTTP metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - rate_limiter_buckets_total: Gauge of live rate limiter buckets
//
// Parsing metrics:
//   - spl_documents_parsed_total: Counter with an outcome label (valid, invalid, failed)
//   - spl_parse_duration_seconds: Histogram of single document parse time
//   - spl_processing_errors_total: Counter of recoverable parse errors
//   - spl_validation_messages_total: Counter with a severity label
//   - spl_documents_stored: Gauge of documents currently served
//
// All metrics are automatically registered with the Prometheus default registry
// during package initialization.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/giygas/spl-labels-api/splparser/entities"
)

// Parse outcomes
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	DocumentsParsedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spl_documents_parsed_total",
			Help: "SPL documents parsed, by outcome",
		},
		[]string{"outcome"},
	)

	ParseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spl_parse_duration_seconds",
			Help:    "Time spent parsing a single SPL document",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	ProcessingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spl_processing_errors_total",
			Help: "Recoverable errors recorded while parsing SPL documents",
		},
	)

	ValidationMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spl_validation_messages_total",
			Help: "Validation messages emitted, by severity",
		},
		[]string{"severity"},
	)

	DocumentsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "spl_documents_stored",
			Help: "Number of SPL documents currently served",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(DocumentsParsedTotal)
	prometheus.MustRegister(ParseDuration)
	prometheus.MustRegister(ProcessingErrorsTotal)
	prometheus.MustRegister(ValidationMessagesTotal)
	prometheus.MustRegister(DocumentsStored)
}

// ObserveParse records the outcome of one parse call. A nil result counts as a failed parse.
func ObserveParse(result *entities.ParseResult, elapsed time.Duration) {
	ParseDuration.Observe(elapsed.Seconds())
	if result == nil {
		DocumentsParsedTotal.WithLabelValues(OutcomeFailed).Inc()
		return
	}

	ProcessingErrorsTotal.Add(float64(len(result.Errors)))
	if result.Validation != nil {
		for _, m := range result.Validation.Messages {
			ValidationMessagesTotal.WithLabelValues(string(m.Severity)).Inc()
		}
	}

	outcome := OutcomeValid
	if !result.IsValid() {
		outcome = OutcomeInvalid
	}
	DocumentsParsedTotal.WithLabelValues(outcome).Inc()
}
