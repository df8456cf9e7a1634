package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"cropsense/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load resolves Settings from an optional .env file, then from the YAML file
// named by CONFIG_FILE or, without one, from environment variables alone.
func Load() (Settings, error) {
	if err := loadDotEnv(); err != nil {
		return Settings{}, err
	}

	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

// loadDotEnv fills unset variables from the dotenv file. Variables already
// present in the process environment win.
func loadDotEnv() error {
	path := getEnvOrDefault(common.EnvDotEnvFile, common.DefaultDotEnvFile)
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	weatherTimeout, err := parseDurationOrDefault(config.Weather.Timeout, common.DefaultWeatherTimeout)
	if err != nil {
		return Settings{}, fmt.Errorf("weather timeout: %w", err)
	}
	shutdownTimeout, err := parseDurationOrDefault(config.Server.ShutdownTimeout, common.DefaultShutdownTimeout)
	if err != nil {
		return Settings{}, fmt.Errorf("shutdown timeout: %w", err)
	}

	// Environment variables override the file
	settings := Settings{
		HTTPPort:        getIntFromEnvOrConfig(common.EnvHTTPPort, config.Server.Port, common.DefaultHTTPPort),
		ModelDir:        getEnvOrDefault(common.EnvModelDir, orDefault(config.Model.Dir, common.DefaultModelDir)),
		DataPath:        getEnvOrDefault(common.EnvDataPath, config.Storage.DataPath),
		WeatherAPIKey:   getEnvOrDefault(common.EnvWeatherAPIKey, config.Weather.APIKey),
		WeatherBaseURL:  getEnvOrDefault(common.EnvWeatherBaseURL, orDefault(config.Weather.BaseURL, common.DefaultWeatherBaseURL)),
		WeatherTimeout:  getDurationOrDefault(common.EnvWeatherTimeout, weatherTimeout),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, orDefault(config.Logging.Level, common.DefaultLogLevel)),
		LogFormat:       getEnvOrDefault(common.EnvLogFormat, orDefault(config.Logging.Format, common.DefaultLogFormat)),
		SimulationSeed:  getInt64OrDefault(common.EnvSimulationSeed, config.Simulation.Seed),
		ShutdownTimeout: getDurationOrDefault(common.EnvShutdownTimeout, shutdownTimeout),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		HTTPPort:        getIntOrDefault(common.EnvHTTPPort, common.DefaultHTTPPort),
		ModelDir:        getEnvOrDefault(common.EnvModelDir, common.DefaultModelDir),
		DataPath:        os.Getenv(common.EnvDataPath), // optional
		WeatherAPIKey:   os.Getenv(common.EnvWeatherAPIKey),
		WeatherBaseURL:  getEnvOrDefault(common.EnvWeatherBaseURL, common.DefaultWeatherBaseURL),
		WeatherTimeout:  getDurationOrDefault(common.EnvWeatherTimeout, common.DefaultWeatherTimeout),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:       getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
		SimulationSeed:  getInt64OrDefault(common.EnvSimulationSeed, 0),
		ShutdownTimeout: getDurationOrDefault(common.EnvShutdownTimeout, common.DefaultShutdownTimeout),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// WeatherEnabled reports whether a usable OpenWeatherMap key is configured.
func (s Settings) WeatherEnabled() bool {
	return s.WeatherAPIKey != "" && s.WeatherAPIKey != common.PlaceholderWeatherKey
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func parseDurationOrDefault(v string, defaultValue time.Duration) (time.Duration, error) {
	if v == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(v)
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getIntOrDefault(key, defaultValue)
}
