package advisor

import (
	"math"
	"strings"

	"cropsense/internal/ml"
	"cropsense/internal/weather"
)

// Unknown is used when neither a dropdown choice nor custom text was given.
const Unknown = "Unknown"

// otherChoice is the dropdown entry that defers to the free-text field.
const otherChoice = "Other"

// RiskLevel grades the agronomic risk of a recommendation.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
)

// Weather sources reported with a recommendation.
const (
	SourceObserved  = "observed"
	SourceSimulated = "simulated"
)

// Simulated value ranges.
const (
	observedFallbackTempMin = 15.0
	observedFallbackTempMax = 30.0
	simulatedTempMin        = 18.0
	simulatedTempMax        = 30.0
	humidityMin             = 40.0
	humidityMax             = 90.0
	rainfallMin             = 50.0
	rainfallMax             = 300.0
	nitrogenMin             = 50
	nitrogenMax             = 100
	phosphorusMin           = 30
	phosphorusMax           = 60
	potassiumMin            = 30
	potassiumMax            = 50
	phMin                   = 5.5
	phMax                   = 7.5
	yieldPerAcreMin         = 1.5
	yieldPerAcreMax         = 3.0
)

// ResolveChoice returns the dropdown selection unless it is empty or
// "Other", in which case the custom text is used, or Unknown if that is empty too.
func ResolveChoice(selected, custom string) string {
	selected = strings.TrimSpace(selected)
	if selected != "" && selected != otherChoice {
		return selected
	}
	if custom = strings.TrimSpace(custom); custom != "" {
		return custom
	}
	return Unknown
}

// AssembleFeatures builds the model input in ml.FeatureColumns order. With a
// weather observation its temperature and humidity are used where present.
// Every other value is simulated.
func AssembleFeatures(obs *weather.Observation, sim *Simulator) [ml.NumFeatures]float64 {
	var temperature, humidity float64
	if obs != nil {
		if obs.Temperature != nil {
			temperature = *obs.Temperature
		} else {
			temperature = sim.Uniform(observedFallbackTempMin, observedFallbackTempMax)
		}
		if obs.Humidity != nil {
			humidity = *obs.Humidity
		} else {
			humidity = sim.Uniform(humidityMin, humidityMax)
		}
	} else {
		temperature = sim.Uniform(simulatedTempMin, simulatedTempMax)
		humidity = sim.Uniform(humidityMin, humidityMax)
	}

	rainfall := sim.Uniform(rainfallMin, rainfallMax)
	n := sim.IntRange(nitrogenMin, nitrogenMax)
	p := sim.IntRange(phosphorusMin, phosphorusMax)
	k := sim.IntRange(potassiumMin, potassiumMax)
	ph := sim.Uniform(phMin, phMax)

	return [ml.NumFeatures]float64{float64(n), float64(p), float64(k), temperature, humidity, ph, rainfall}
}

// EstimateYield returns acres times a simulated per-acre yield, rounded to
// two decimals.
func EstimateYield(acres float64, sim *Simulator) float64 {
	return round2(acres * sim.Uniform(yieldPerAcreMin, yieldPerAcreMax))
}

// AssessRisk grades soil acidity first, then soil texture.
func AssessRisk(ph float64, soil string) RiskLevel {
	if ph < 5.5 || ph > 8 {
		return RiskHigh
	}
	switch strings.ToLower(strings.TrimSpace(soil)) {
	case "clay", "sandy":
		return RiskModerate
	}
	return RiskLow
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
