package common

import "time"

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvDotEnvFile      = "DOTENV_FILE"
	EnvHTTPPort        = "HTTP_PORT"
	EnvModelDir        = "MODEL_DIR"
	EnvDataPath        = "DATA_PATH"
	EnvWeatherAPIKey   = "OPENWEATHER_API_KEY"
	EnvWeatherBaseURL  = "WEATHER_BASE_URL"
	EnvWeatherTimeout  = "WEATHER_TIMEOUT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
	EnvSimulationSeed  = "SIMULATION_SEED"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)

// Configuration defaults
const (
	DefaultHTTPPort       = 5000
	DefaultModelDir       = "model"
	DefaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultDotEnvFile     = ".env"
	DefaultDatasetPath    = "dataset/crop_data.csv"
	DefaultNumTrees       = 100
	DefaultRandomSeed     = 42
	DefaultTestSize       = 0.2
	PlaceholderWeatherKey = "YOUR_API_KEY_HERE"
	DefaultLanguage       = "en"
	DefaultHistoryLimit   = 20
	MaxHistoryLimit       = 500
)

// Timeouts
const (
	DefaultWeatherTimeout  = 5 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultInferenceBudget = 5 * time.Second
)

// Validation constants
const (
	MinHTTPPort        = 1024
	MaxHTTPPort        = 65535
	MinWeatherTimeout  = time.Second
	MaxWeatherTimeout  = time.Minute
	MinShutdownTimeout = time.Second
	MaxShutdownTimeout = 5 * time.Minute
)

// Common error messages
const (
	ErrMsgModelDirRequired = "model directory is required"
	ErrMsgLocationRequired = "location is required"
	ErrMsgInvalidAcres     = "acres must be a positive number"
)
