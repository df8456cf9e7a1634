// Package metrics provides Prometheus metrics collection for the crop advisor.
// It defines the inference, weather, recommendation, and HTTP metrics that are
// exposed via the Prometheus metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Weather request outcomes used as the "outcome" label.
const (
	WeatherOK       = "ok"
	WeatherError    = "error"
	WeatherNoData   = "no_data"
	WeatherDisabled = "disabled"
)

// Metrics holds all Prometheus metrics for the crop advisor.
type Metrics struct {
	// ML and prediction metrics
	MLPredictions prometheus.Counter   // Total number of successful predictions
	MLFailures    prometheus.Counter   // Total number of rejected or failed predictions
	MLModelAge    prometheus.Gauge     // Age of the loaded classifier file in seconds
	MLLatency     prometheus.Histogram // Inference latency in seconds

	// Weather metrics
	WeatherRequests  *prometheus.CounterVec // Weather lookups by outcome
	WeatherLatency   prometheus.Histogram   // Weather API round trip in seconds
	WeatherFallbacks prometheus.Counter     // Recommendations built from simulated weather

	// Recommendation metrics
	Recommendations *prometheus.CounterVec // Recommendations by crop
	YieldEstimates  prometheus.Histogram   // Estimated yield in tons

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec   // Requests by method, route and status code
	HTTPDuration *prometheus.HistogramVec // Request latency by route

	// System metrics
	ErrorsTotal prometheus.Counter // Total number of errors encountered
}

// New creates and registers all Prometheus metrics using the default registry.
// This is the standard way to create metrics for production use.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		MLPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of crop predictions made",
		}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of crop prediction failures",
		}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_model_age_seconds",
			Help: "Age of the loaded classifier in seconds",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "Crop prediction latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		WeatherRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_requests_total",
			Help: "Total number of weather lookups by outcome",
		}, []string{"outcome"}),
		WeatherLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "weather_latency_seconds",
			Help:    "Weather API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		WeatherFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "weather_fallbacks_total",
			Help: "Total number of recommendations built from simulated weather",
		}),
		Recommendations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total number of recommendations by crop",
		}, []string{"crop"}),
		YieldEstimates: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "yield_estimate_tons",
			Help:    "Distribution of estimated yields in tons",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}

// ErrorRate returns failed predictions over all prediction attempts, or 0
// before the first attempt.
func (m *Metrics) ErrorRate() float64 {
	ok := counterValue(m.MLPredictions)
	failed := counterValue(m.MLFailures)
	if ok+failed == 0 {
		return 0
	}
	return failed / (ok + failed)
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil || m.Counter == nil {
		return 0
	}
	return m.Counter.GetValue()
}
