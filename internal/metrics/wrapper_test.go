package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestWrapper(t *testing.T) (*Metrics, *MetricsWrapper, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	return metrics, NewWrapper(metrics), registry
}

func TestNewWrapper(t *testing.T) {
	metrics, wrapper, _ := newTestWrapper(t)

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != metrics {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestMetricsWrapper_PredictionCounters(t *testing.T) {
	metrics, wrapper, _ := newTestWrapper(t)

	if v := testutil.ToFloat64(metrics.MLPredictions); v != 0 {
		t.Errorf("Expected initial counter value 0, got %f", v)
	}

	wrapper.MLPredictionsInc()
	wrapper.MLPredictionsInc()
	wrapper.MLFailuresInc()

	if v := testutil.ToFloat64(metrics.MLPredictions); v != 2 {
		t.Errorf("Expected 2 predictions, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.MLFailures); v != 1 {
		t.Errorf("Expected 1 failure, got %f", v)
	}
}

func TestMetricsWrapper_ModelAge(t *testing.T) {
	metrics, wrapper, _ := newTestWrapper(t)

	wrapper.MLModelAgeSet(3600)
	if v := testutil.ToFloat64(metrics.MLModelAge); v != 3600 {
		t.Errorf("Expected model age 3600, got %f", v)
	}
}

func TestMetricsWrapper_LatencyHistogram(t *testing.T) {
	_, wrapper, registry := newTestWrapper(t)

	for _, v := range []float64{0.001, 0.002, 0.003} {
		wrapper.MLLatencyObserve(v)
	}

	n, err := testutil.GatherAndCount(registry, "ml_latency_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected one ml_latency_seconds series, got %d", n)
	}
}

func TestMetricsWrapper_WeatherRequests(t *testing.T) {
	metrics, wrapper, registry := newTestWrapper(t)

	wrapper.WeatherRequestObserve(WeatherOK, 0.2)
	wrapper.WeatherRequestObserve(WeatherOK, 0.3)
	wrapper.WeatherRequestObserve(WeatherError, 1.0)
	wrapper.WeatherRequestObserve(WeatherDisabled, 0)
	wrapper.WeatherFallbackInc()

	if v := testutil.ToFloat64(metrics.WeatherRequests.WithLabelValues(WeatherOK)); v != 2 {
		t.Errorf("Expected 2 ok lookups, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.WeatherRequests.WithLabelValues(WeatherError)); v != 1 {
		t.Errorf("Expected 1 failed lookup, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.WeatherRequests.WithLabelValues(WeatherDisabled)); v != 1 {
		t.Errorf("Expected 1 disabled lookup, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.WeatherFallbacks); v != 1 {
		t.Errorf("Expected 1 fallback, got %f", v)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "weather_latency_seconds" {
			continue
		}
		if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 3 {
			t.Errorf("Expected disabled lookups to skip latency, got %d samples", got)
		}
	}
}

func TestMetricsWrapper_Recommendations(t *testing.T) {
	metrics, wrapper, _ := newTestWrapper(t)

	wrapper.RecommendationObserve("rice", 5.5)
	wrapper.RecommendationObserve("rice", 7.25)
	wrapper.RecommendationObserve("maize", 2)

	if v := testutil.ToFloat64(metrics.Recommendations.WithLabelValues("rice")); v != 2 {
		t.Errorf("Expected 2 rice recommendations, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.Recommendations.WithLabelValues("maize")); v != 1 {
		t.Errorf("Expected 1 maize recommendation, got %f", v)
	}
}

func TestMetricsWrapper_HTTPRequests(t *testing.T) {
	metrics, wrapper, _ := newTestWrapper(t)

	wrapper.HTTPRequestObserve("POST", "/predict", 200, 0.01)
	wrapper.HTTPRequestObserve("POST", "/predict", 400, 0.001)

	if v := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("POST", "/predict", "200")); v != 1 {
		t.Errorf("Expected one 200 response, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("POST", "/predict", "400")); v != 1 {
		t.Errorf("Expected one 400 response, got %f", v)
	}
}

func TestMetrics_ErrorRate(t *testing.T) {
	_, wrapper, _ := newTestWrapper(t)

	if rate := wrapper.ErrorRate(); rate != 0 {
		t.Errorf("Expected 0 error rate before any prediction, got %f", rate)
	}

	wrapper.MLPredictionsInc()
	wrapper.MLPredictionsInc()
	wrapper.MLPredictionsInc()
	wrapper.MLFailuresInc()

	if rate := wrapper.ErrorRate(); rate != 0.25 {
		t.Errorf("Expected error rate 0.25, got %f", rate)
	}
}

func TestMetricsWrapper_Errors(t *testing.T) {
	metrics, wrapper, _ := newTestWrapper(t)

	wrapper.ErrorsInc()
	if v := testutil.ToFloat64(metrics.ErrorsTotal); v != 1 {
		t.Errorf("Expected 1 error, got %f", v)
	}
}

func TestNewWithRegistry_Isolated(t *testing.T) {
	// Two registries must not collide on metric names
	a := NewWithRegistry(prometheus.NewRegistry())
	b := NewWithRegistry(prometheus.NewRegistry())

	a.MLPredictions.Inc()
	if v := testutil.ToFloat64(b.MLPredictions); v != 0 {
		t.Errorf("Expected isolated registries, got %f", v)
	}
}
