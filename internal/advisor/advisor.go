// Package advisor turns a farmer's form inputs into a crop recommendation
// with a yield estimate and a risk grade.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"cropsense/internal/common"
	"cropsense/internal/storage"
	"cropsense/internal/weather"

	"github.com/rs/zerolog/log"
)

// ErrInvalidInput reports form values the advisor cannot work with.
var ErrInvalidInput = errors.New("invalid input")

// Predictor is the part of the inference pipeline the advisor needs.
type Predictor interface {
	Predict(features []float64) (string, error)
	ModelName() string
}

// WeatherSource looks up current conditions for a location.
type WeatherSource interface {
	Current(ctx context.Context, location string) (weather.Observation, error)
}

// HistoryStore persists served recommendations.
type HistoryStore interface {
	StorePrediction(record storage.PredictionRecord) (storage.PredictionRecord, error)
}

// Metrics defines the advisor's metrics hooks.
type Metrics interface {
	RecommendationObserve(crop string, yieldTons float64)
	WeatherFallbackInc()
	ErrorsInc()
}

// Inputs are the raw values of the recommendation form.
type Inputs struct {
	CropSelect string
	CropCustom string
	SoilSelect string
	SoilCustom string
	Location   string
	Acres      float64
}

// Recommendation is the advisor's answer for one form submission.
type Recommendation struct {
	ID            string    `json:"id,omitempty"`
	Crop          string    `json:"crop"`
	CropChoice    string    `json:"crop_choice"`
	Soil          string    `json:"soil"`
	Location      string    `json:"location"`
	Acres         float64   `json:"acres"`
	YieldTons     float64   `json:"yield_tons"`
	Risk          RiskLevel `json:"risk"`
	Features      []float64 `json:"features"`
	WeatherSource string    `json:"weather_source"`
	Model         string    `json:"model"`
}

// Advisor combines the model, weather and simulation into recommendations.
// Weather, store and metrics are optional.
type Advisor struct {
	predictor Predictor
	weather   WeatherSource
	store     HistoryStore
	sim       *Simulator
	metrics   Metrics
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithWeather enables live weather lookups.
func WithWeather(w WeatherSource) Option {
	return func(a *Advisor) { a.weather = w }
}

// WithStore records every recommendation.
func WithStore(s HistoryStore) Option {
	return func(a *Advisor) { a.store = s }
}

// WithMetrics reports recommendations and weather fallbacks.
func WithMetrics(m Metrics) Option {
	return func(a *Advisor) { a.metrics = m }
}

// New returns an advisor that predicts with p and simulates with sim.
func New(p Predictor, sim *Simulator, opts ...Option) *Advisor {
	if sim == nil {
		sim = NewSimulator(0)
	}
	a := &Advisor{predictor: p, sim: sim}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Validate checks the fields a recommendation cannot be made without.
func (in Inputs) Validate() error {
	if strings.TrimSpace(in.Location) == "" {
		return fmt.Errorf("%w: %s", ErrInvalidInput, common.ErrMsgLocationRequired)
	}
	if math.IsNaN(in.Acres) || math.IsInf(in.Acres, 0) || in.Acres <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, common.ErrMsgInvalidAcres)
	}
	return nil
}

// Advise produces a recommendation for in. Weather failures fall back to
// simulated values and store failures are logged, so the only errors are
// invalid input and inference failures.
func (a *Advisor) Advise(ctx context.Context, in Inputs) (*Recommendation, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	crop := ResolveChoice(in.CropSelect, in.CropCustom)
	soil := ResolveChoice(in.SoilSelect, in.SoilCustom)
	location := strings.TrimSpace(in.Location)

	obs := a.lookupWeather(ctx, location)
	source := SourceSimulated
	if obs != nil {
		source = SourceObserved
	} else if a.metrics != nil {
		a.metrics.WeatherFallbackInc()
	}

	features := AssembleFeatures(obs, a.sim)
	predicted, err := a.predictor.Predict(features[:])
	if err != nil {
		if a.metrics != nil {
			a.metrics.ErrorsInc()
		}
		return nil, fmt.Errorf("predict crop: %w", err)
	}

	yield := EstimateYield(in.Acres, a.sim)
	rec := &Recommendation{
		Crop:          predicted,
		CropChoice:    crop,
		Soil:          soil,
		Location:      location,
		Acres:         in.Acres,
		YieldTons:     yield,
		Risk:          AssessRisk(features[5], soil),
		Features:      features[:],
		WeatherSource: source,
		Model:         a.predictor.ModelName(),
	}

	if a.metrics != nil {
		a.metrics.RecommendationObserve(rec.Crop, rec.YieldTons)
	}
	a.record(rec)

	log.Info().
		Str("location", location).
		Str("crop", rec.Crop).
		Float64("yield_tons", rec.YieldTons).
		Str("risk", string(rec.Risk)).
		Str("weather", source).
		Msg("recommendation served")

	return rec, nil
}

// lookupWeather returns nil whenever the advisor must simulate the weather.
func (a *Advisor) lookupWeather(ctx context.Context, location string) *weather.Observation {
	if a.weather == nil {
		return nil
	}
	obs, err := a.weather.Current(ctx, location)
	if err != nil {
		if !errors.Is(err, weather.ErrDisabled) {
			log.Warn().Err(err).Str("location", location).Msg("weather lookup failed, simulating")
		}
		return nil
	}
	return &obs
}

func (a *Advisor) record(rec *Recommendation) {
	if a.store == nil {
		return
	}
	stored, err := a.store.StorePrediction(storage.PredictionRecord{
		Location:      rec.Location,
		CropChoice:    rec.CropChoice,
		Soil:          rec.Soil,
		Acres:         rec.Acres,
		Features:      rec.Features,
		Crop:          rec.Crop,
		YieldTons:     rec.YieldTons,
		Risk:          string(rec.Risk),
		WeatherSource: rec.WeatherSource,
		Model:         rec.Model,
	})
	if err != nil {
		if a.metrics != nil {
			a.metrics.ErrorsInc()
		}
		log.Error().Err(err).Msg("failed to store prediction")
		return
	}
	rec.ID = stored.ID
}
