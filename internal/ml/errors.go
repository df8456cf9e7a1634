package ml

import "errors"

// Error categories returned by the trainer and the inference pipeline.
// Concrete failures wrap one of these, so callers match with errors.Is.
var (
	// ErrData reports missing or malformed training input.
	ErrData = errors.New("data error")

	// ErrIO reports an artifact that could not be written or read back.
	ErrIO = errors.New("artifact i/o error")

	// ErrMissingArtifact reports that no complete artifact pair was found.
	ErrMissingArtifact = errors.New("missing artifact")

	// ErrInference reports a malformed feature vector or an unloaded pipeline.
	ErrInference = errors.New("inference error")
)
