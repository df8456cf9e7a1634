// Package ml trains and serves the crop recommendation model.
// It covers CSV dataset loading, label encoding, a seeded random forest,
// the on-disk artifact pair, and the read-only inference pipeline that
// the web application queries.
package ml

// PredictorInterface is the inference surface consumed by the advisor and
// the HTTP API. Implementations must be safe for concurrent use.
type PredictorInterface interface {
	// Predict returns the recommended crop for the ordered features
	// (N, P, K, temperature, humidity, ph, rainfall).
	Predict(features []float64) (string, error)

	// PredictProba returns the class distribution keyed by crop name.
	PredictProba(features []float64) (map[string]float64, error)

	// ModelName identifies the loaded classifier file.
	ModelName() string
}
