package ml

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines metrics methods needed by the pipeline
type MetricsInterface interface {
	MLPredictionsInc()
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLModelAgeSet(float64)
}

// Pipeline serves predictions from one loaded artifact pair. It is built once
// at startup and never mutated, so concurrent callers need no locking.
type Pipeline struct {
	candidate    Candidate
	forest       *RandomForest
	encoder      *LabelEncoder
	metadata     *ModelMetadata
	modelCreated time.Time
	loadedAt     time.Time
	metrics      MetricsInterface
}

// ModelInfo is the read-only description served by /model/info.
type ModelInfo struct {
	Name        string         `json:"name"`
	Variant     string         `json:"variant"`
	ModelPath   string         `json:"model_path"`
	EncoderPath string         `json:"encoder_path"`
	Features    []string       `json:"features"`
	Classes     []string       `json:"classes"`
	NumTrees    int            `json:"num_trees"`
	LoadedAt    time.Time      `json:"loaded_at"`
	ModelAge    float64        `json:"model_age_seconds"`
	Metadata    *ModelMetadata `json:"metadata,omitempty"`
}

// LoadPipeline picks the first complete pair among candidates and loads it.
// An error here means the process must not serve predictions.
func LoadPipeline(candidates []Candidate, metrics MetricsInterface) (*Pipeline, error) {
	chosen, err := ResolveCandidate(candidates, FileExists)
	if err != nil {
		return nil, err
	}

	forest, encoder, err := LoadArtifacts(chosen)
	if err != nil {
		return nil, err
	}

	p := newPipeline(chosen, forest, encoder, metrics)

	if info, err := os.Stat(chosen.ModelPath); err == nil {
		p.modelCreated = info.ModTime()
		if metrics != nil {
			metrics.MLModelAgeSet(time.Since(p.modelCreated).Seconds())
		}
	}

	if md, err := loadModelMetadata(chosen.MetadataPath()); err == nil {
		p.metadata = md
	} else if !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", chosen.MetadataPath()).Msg("failed to load model metadata")
	}

	log.Info().
		Str("variant", chosen.Name).
		Str("model_path", chosen.ModelPath).
		Int("classes", encoder.Len()).
		Int("trees", len(forest.Trees)).
		Msg("loaded model")
	return p, nil
}

// NewPipeline wraps an in-memory pair, typically a freshly trained one.
func NewPipeline(forest *RandomForest, encoder *LabelEncoder, metrics MetricsInterface) (*Pipeline, error) {
	if forest == nil || encoder == nil {
		return nil, fmt.Errorf("%w: classifier and encoder are required", ErrInference)
	}
	if err := forest.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if forest.NumFeatures != NumFeatures || forest.NumClasses != encoder.Len() {
		return nil, fmt.Errorf("%w: classifier (%d features, %d classes) does not match encoder (%d classes)",
			ErrInference, forest.NumFeatures, forest.NumClasses, encoder.Len())
	}
	return newPipeline(Candidate{Name: "memory"}, forest, encoder, metrics), nil
}

func newPipeline(c Candidate, forest *RandomForest, encoder *LabelEncoder, metrics MetricsInterface) *Pipeline {
	return &Pipeline{
		candidate: c,
		forest:    forest,
		encoder:   encoder,
		loadedAt:  time.Now(),
		metrics:   metrics,
	}
}

// Predict returns the crop label for the ordered 7-feature vector.
func (p *Pipeline) Predict(features []float64) (string, error) {
	start := time.Now()
	defer p.observeLatency(start)

	if err := p.checkInput(features); err != nil {
		p.recordFailure()
		return "", err
	}

	code := p.forest.Predict(features)
	label, err := p.encoder.Decode(code)
	if err != nil {
		p.recordFailure()
		return "", fmt.Errorf("%w: %v", ErrInference, err)
	}

	if p.metrics != nil {
		p.metrics.MLPredictionsInc()
	}
	return label, nil
}

// PredictProba returns the mean tree vote for each known crop.
func (p *Pipeline) PredictProba(features []float64) (map[string]float64, error) {
	start := time.Now()
	defer p.observeLatency(start)

	if err := p.checkInput(features); err != nil {
		p.recordFailure()
		return nil, err
	}
	out, err := p.decodeProba(p.forest.PredictProba(features))
	if err != nil {
		p.recordFailure()
		return nil, err
	}
	return out, nil
}

// Classify returns the predicted crop together with the class distribution
// it was taken from, walking the forest once.
func (p *Pipeline) Classify(features []float64) (string, map[string]float64, error) {
	start := time.Now()
	defer p.observeLatency(start)

	if err := p.checkInput(features); err != nil {
		p.recordFailure()
		return "", nil, err
	}

	probs := p.forest.PredictProba(features)
	label, err := p.encoder.Decode(argmax(probs))
	if err != nil {
		p.recordFailure()
		return "", nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	out, err := p.decodeProba(probs)
	if err != nil {
		p.recordFailure()
		return "", nil, err
	}

	if p.metrics != nil {
		p.metrics.MLPredictionsInc()
	}
	return label, out, nil
}

func (p *Pipeline) decodeProba(probs []float64) (map[string]float64, error) {
	out := make(map[string]float64, len(probs))
	for code, v := range probs {
		label, err := p.encoder.Decode(code)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInference, err)
		}
		out[label] = v
	}
	return out, nil
}

// ModelName returns the base name of the classifier file.
func (p *Pipeline) ModelName() string {
	if p == nil {
		return ""
	}
	if p.candidate.ModelPath == "" {
		return p.candidate.Name
	}
	return filepath.Base(p.candidate.ModelPath)
}

// Classes returns the labels the pipeline can produce.
func (p *Pipeline) Classes() []string {
	if p == nil || p.encoder == nil {
		return nil
	}
	return p.encoder.Classes()
}

// Info describes the loaded pair.
func (p *Pipeline) Info() ModelInfo {
	info := ModelInfo{
		Name:        p.ModelName(),
		Variant:     p.candidate.Name,
		ModelPath:   p.candidate.ModelPath,
		EncoderPath: p.candidate.EncoderPath,
		Features:    FeatureColumns[:],
		Classes:     p.Classes(),
		NumTrees:    len(p.forest.Trees),
		LoadedAt:    p.loadedAt,
		Metadata:    p.metadata,
	}
	if !p.modelCreated.IsZero() {
		info.ModelAge = time.Since(p.modelCreated).Seconds()
	}
	return info
}

func (p *Pipeline) checkInput(features []float64) error {
	if p == nil || p.forest == nil || p.encoder == nil {
		return fmt.Errorf("%w: model not loaded", ErrInference)
	}
	if len(features) != NumFeatures {
		return fmt.Errorf("%w: expected %d features, got %d", ErrInference, NumFeatures, len(features))
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: feature %s is not finite", ErrInference, FeatureColumns[i])
		}
	}
	return nil
}

func (p *Pipeline) recordFailure() {
	if p != nil && p.metrics != nil {
		p.metrics.MLFailuresInc()
	}
}

func (p *Pipeline) observeLatency(start time.Time) {
	if p != nil && p.metrics != nil {
		p.metrics.MLLatencyObserve(time.Since(start).Seconds())
	}
}
