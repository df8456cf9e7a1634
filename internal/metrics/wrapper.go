package metrics

import "strconv"

// MetricsWrapper adapts Metrics to the narrow interfaces the pipeline,
// weather client, advisor and HTTP server depend on.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) MLPredictionsInc() {
	w.m.MLPredictions.Inc()
}

func (w *MetricsWrapper) MLFailuresInc() {
	w.m.MLFailures.Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(seconds float64) {
	w.m.MLLatency.Observe(seconds)
}

func (w *MetricsWrapper) MLModelAgeSet(seconds float64) {
	w.m.MLModelAge.Set(seconds)
}

// WeatherRequestObserve records one weather lookup. Latency is only observed
// for lookups that reached the network.
func (w *MetricsWrapper) WeatherRequestObserve(outcome string, seconds float64) {
	w.m.WeatherRequests.WithLabelValues(outcome).Inc()
	if outcome != WeatherDisabled {
		w.m.WeatherLatency.Observe(seconds)
	}
}

func (w *MetricsWrapper) WeatherFallbackInc() {
	w.m.WeatherFallbacks.Inc()
}

// RecommendationObserve records a served recommendation.
func (w *MetricsWrapper) RecommendationObserve(crop string, yieldTons float64) {
	w.m.Recommendations.WithLabelValues(crop).Inc()
	w.m.YieldEstimates.Observe(yieldTons)
}

func (w *MetricsWrapper) HTTPRequestObserve(method, route string, status int, seconds float64) {
	w.m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	w.m.HTTPDuration.WithLabelValues(route).Observe(seconds)
}

func (w *MetricsWrapper) ErrorsInc() {
	w.m.ErrorsTotal.Inc()
}

// ErrorRate exposes Metrics.ErrorRate for health reporting.
func (w *MetricsWrapper) ErrorRate() float64 {
	return w.m.ErrorRate()
}
