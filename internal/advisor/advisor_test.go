package advisor

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"cropsense/internal/ml"
	"cropsense/internal/storage"
	"cropsense/internal/weather"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePredictor struct {
	mu    sync.Mutex
	label string
	err   error
	seen  [][]float64
}

func (p *fakePredictor) Predict(features []float64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, append([]float64(nil), features...))
	return p.label, p.err
}

func (p *fakePredictor) ModelName() string { return "crop_model_improved.json" }

func (p *fakePredictor) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

type fakeWeather struct {
	obs weather.Observation
	err error
}

func (w fakeWeather) Current(_ context.Context, location string) (weather.Observation, error) {
	w.obs.Location = location
	return w.obs, w.err
}

type fakeStore struct {
	records []storage.PredictionRecord
	err     error
}

func (s *fakeStore) StorePrediction(r storage.PredictionRecord) (storage.PredictionRecord, error) {
	if s.err != nil {
		return storage.PredictionRecord{}, s.err
	}
	r.ID = "rec-1"
	s.records = append(s.records, r)
	return r, nil
}

type fakeMetrics struct {
	crops     []string
	fallbacks int
	errors    int
}

func (m *fakeMetrics) RecommendationObserve(crop string, _ float64) { m.crops = append(m.crops, crop) }
func (m *fakeMetrics) WeatherFallbackInc() { m.fallbacks++ }
func (m *fakeMetrics) ErrorsInc() { m.errors++ }

func floatPtr(v float64) *float64 { return &v }

func validInputs() Inputs {
	return Inputs{
		CropSelect: "Rice",
		SoilSelect: "Loamy",
		Location:   "Warangal",
		Acres:      2,
	}
}

func TestResolveChoice(t *testing.T) {
	tests := []struct {
		selected, custom, want string
	}{
		{"Rice", "", "Rice"},
		{"Rice", "Jute", "Rice"},
		{"Other", "Jute", "Jute"},
		{"", "Jute", "Jute"},
		{"Other", "", Unknown},
		{"", "", Unknown},
		{"  ", "  ", Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveChoice(tt.selected, tt.custom), "ResolveChoice(%q, %q)", tt.selected, tt.custom)
	}
}

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		name string
		ph   float64
		soil string
		want RiskLevel
	}{
		{"acidic", 5.4, "Loamy", RiskHigh},
		{"alkaline", 8.1, "Loamy", RiskHigh},
		{"acidic beats soil", 5.0, "Clay", RiskHigh},
		{"clay", 6.5, "Clay", RiskModerate},
		{"sandy lowercase", 6.5, "sandy", RiskModerate},
		{"clay uppercase", 7.0, "CLAY", RiskModerate},
		{"sandy at upper ph bound", 8.0, "Sandy", RiskModerate},
		{"loam", 6.5, "Clay Loam", RiskLow},
		{"lower ph bound", 5.5, "Silty", RiskLow},
		{"unknown soil", 6.0, Unknown, RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessRisk(tt.ph, tt.soil))
		})
	}
}

func assertSimulatedSoil(t *testing.T, f [ml.NumFeatures]float64) {
	t.Helper()
	for i, bounds := range [][2]float64{{50, 100}, {30, 60}, {30, 50}} {
		assert.GreaterOrEqual(t, f[i], bounds[0])
		assert.LessOrEqual(t, f[i], bounds[1])
		assert.Equal(t, math.Trunc(f[i]), f[i], "%s must be an integer", ml.FeatureColumns[i])
	}
	assert.GreaterOrEqual(t, f[5], 5.5)
	assert.Less(t, f[5], 7.5)
	assert.GreaterOrEqual(t, f[6], 50.0)
	assert.Less(t, f[6], 300.0)
}

func TestAssembleFeatures_Simulated(t *testing.T) {
	sim := NewSimulator(1)
	for i := 0; i < 500; i++ {
		f := AssembleFeatures(nil, sim)
		assertSimulatedSoil(t, f)
		assert.GreaterOrEqual(t, f[3], 18.0)
		assert.Less(t, f[3], 30.0)
		assert.GreaterOrEqual(t, f[4], 40.0)
		assert.Less(t, f[4], 90.0)
	}
}

func TestAssembleFeatures_Observed(t *testing.T) {
	sim := NewSimulator(2)
	obs := &weather.Observation{Temperature: floatPtr(33.3), Humidity: floatPtr(91)}

	f := AssembleFeatures(obs, sim)
	assert.Equal(t, 33.3, f[3])
	assert.Equal(t, 91.0, f[4])
	assertSimulatedSoil(t, f)
}

func TestAssembleFeatures_PartialObservation(t *testing.T) {
	sim := NewSimulator(3)
	for i := 0; i < 200; i++ {
		f := AssembleFeatures(&weather.Observation{Humidity: floatPtr(12)}, sim)
		assert.GreaterOrEqual(t, f[3], 15.0)
		assert.Less(t, f[3], 30.0)
		assert.Equal(t, 12.0, f[4])
	}
}

func TestSimulator_SeedIsReproducible(t *testing.T) {
	a := AssembleFeatures(nil, NewSimulator(42))
	b := AssembleFeatures(nil, NewSimulator(42))
	assert.Equal(t, a, b)
}

func TestSimulator_IntRangeInclusive(t *testing.T) {
	sim := NewSimulator(4)
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		v := sim.IntRange(1, 3)
		require.True(t, v >= 1 && v <= 3)
		seen[v] = true
	}
	assert.Len(t, seen, 3)
}

func TestEstimateYield(t *testing.T) {
	sim := NewSimulator(5)
	for i := 0; i < 200; i++ {
		y := EstimateYield(2, sim)
		assert.GreaterOrEqual(t, y, 3.0)
		assert.LessOrEqual(t, y, 6.0)
		assert.InDelta(t, math.Round(y*100), y*100, 1e-6, "yield %v has more than two decimals", y)
	}
	assert.Equal(t, 0.0, EstimateYield(0, sim))
}

func TestInputs_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *Inputs)
	}{
		{"missing location", func(in *Inputs) { in.Location = "" }},
		{"blank location", func(in *Inputs) { in.Location = "   " }},
		{"zero acres", func(in *Inputs) { in.Acres = 0 }},
		{"negative acres", func(in *Inputs) { in.Acres = -1 }},
		{"NaN acres", func(in *Inputs) { in.Acres = math.NaN() }},
		{"infinite acres", func(in *Inputs) { in.Acres = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInputs()
			tt.modify(&in)
			assert.ErrorIs(t, in.Validate(), ErrInvalidInput)
		})
	}
	assert.NoError(t, validInputs().Validate())
}

func TestAdvise_ObservedWeather(t *testing.T) {
	pred := &fakePredictor{label: "rice"}
	store := &fakeStore{}
	metrics := &fakeMetrics{}
	w := fakeWeather{obs: weather.Observation{Temperature: floatPtr(27.5), Humidity: floatPtr(80)}}

	a := New(pred, NewSimulator(7), WithWeather(w), WithStore(store), WithMetrics(metrics))
	rec, err := a.Advise(context.Background(), validInputs())
	require.NoError(t, err)

	assert.Equal(t, "rice", rec.Crop)
	assert.Equal(t, "Rice", rec.CropChoice)
	assert.Equal(t, "Loamy", rec.Soil)
	assert.Equal(t, SourceObserved, rec.WeatherSource)
	assert.Equal(t, "crop_model_improved.json", rec.Model)
	assert.Equal(t, "rec-1", rec.ID)
	require.Len(t, rec.Features, ml.NumFeatures)
	assert.Equal(t, 27.5, rec.Features[3])
	assert.Equal(t, 80.0, rec.Features[4])
	assert.Equal(t, AssessRisk(rec.Features[5], "Loamy"), rec.Risk)

	require.Len(t, pred.seen, 1)
	assert.Equal(t, rec.Features, pred.seen[0])

	require.Len(t, store.records, 1)
	assert.Equal(t, "Warangal", store.records[0].Location)
	assert.Equal(t, "rice", store.records[0].Crop)
	assert.Equal(t, []string{"rice"}, metrics.crops)
	assert.Equal(t, 0, metrics.fallbacks)
}

func TestAdvise_WeatherFailureFallsBack(t *testing.T) {
	for _, werr := range []error{errors.New("connection refused"), weather.ErrNoData, weather.ErrDisabled} {
		pred := &fakePredictor{label: "maize"}
		metrics := &fakeMetrics{}
		a := New(pred, NewSimulator(8), WithWeather(fakeWeather{err: werr}), WithMetrics(metrics))

		rec, err := a.Advise(context.Background(), validInputs())
		require.NoError(t, err)
		assert.Equal(t, SourceSimulated, rec.WeatherSource)
		assert.GreaterOrEqual(t, rec.Features[3], 18.0)
		assert.Less(t, rec.Features[3], 30.0)
		assert.Equal(t, 1, metrics.fallbacks)
	}
}

func TestAdvise_NoWeatherSource(t *testing.T) {
	a := New(&fakePredictor{label: "coffee"}, NewSimulator(9))

	rec, err := a.Advise(context.Background(), validInputs())
	require.NoError(t, err)
	assert.Equal(t, SourceSimulated, rec.WeatherSource)
	assert.Empty(t, rec.ID)
}

func TestAdvise_CustomChoices(t *testing.T) {
	a := New(&fakePredictor{label: "rice"}, NewSimulator(10))
	in := validInputs()
	in.CropSelect, in.CropCustom = "Other", "Jute"
	in.SoilSelect, in.SoilCustom = "", ""

	rec, err := a.Advise(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Jute", rec.CropChoice)
	assert.Equal(t, Unknown, rec.Soil)
}

func TestAdvise_InvalidInputSkipsPrediction(t *testing.T) {
	pred := &fakePredictor{label: "rice"}
	a := New(pred, NewSimulator(11))
	in := validInputs()
	in.Location = ""

	_, err := a.Advise(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, pred.calls())
}

func TestAdvise_PredictionError(t *testing.T) {
	metrics := &fakeMetrics{}
	store := &fakeStore{}
	a := New(&fakePredictor{err: ml.ErrInference}, NewSimulator(12), WithStore(store), WithMetrics(metrics))

	_, err := a.Advise(context.Background(), validInputs())
	assert.ErrorIs(t, err, ml.ErrInference)
	assert.Empty(t, store.records)
	assert.Equal(t, 1, metrics.errors)
}

func TestAdvise_StoreFailureIsNotFatal(t *testing.T) {
	metrics := &fakeMetrics{}
	a := New(&fakePredictor{label: "rice"}, NewSimulator(13),
		WithStore(&fakeStore{err: errors.New("disk full")}), WithMetrics(metrics))

	rec, err := a.Advise(context.Background(), validInputs())
	require.NoError(t, err)
	assert.Equal(t, "rice", rec.Crop)
	assert.Empty(t, rec.ID)
	assert.Equal(t, 1, metrics.errors)
}
