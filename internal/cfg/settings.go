package cfg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cropsense/internal/common"

	"github.com/rs/zerolog"
)

// Settings is the resolved runtime configuration of the web app.
type Settings struct {
	HTTPPort        int
	ModelDir        string
	DataPath        string // empty disables prediction history
	WeatherAPIKey   string
	WeatherBaseURL  string
	WeatherTimeout  time.Duration
	LogLevel        string
	LogFormat       string
	SimulationSeed  int64 // 0 seeds from the clock
	ShutdownTimeout time.Duration
}

// ConfigFile mirrors the YAML layout read when CONFIG_FILE is set.
type ConfigFile struct {
	Server struct {
		Port            int    `yaml:"port"`
		ShutdownTimeout string `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Model struct {
		Dir string `yaml:"dir"`
	} `yaml:"model"`

	Storage struct {
		DataPath string `yaml:"dataPath"`
	} `yaml:"storage"`

	Weather struct {
		APIKey  string `yaml:"apiKey"`
		BaseURL string `yaml:"baseURL"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Simulation struct {
		Seed int64 `yaml:"seed"`
	} `yaml:"simulation"`
}

// validateSettings rejects values the server cannot start with
func validateSettings(settings *Settings) error {
	if settings.HTTPPort < common.MinHTTPPort || settings.HTTPPort > common.MaxHTTPPort {
		return fmt.Errorf("HTTP port must be between %d and %d, got %d",
			common.MinHTTPPort, common.MaxHTTPPort, settings.HTTPPort)
	}

	if strings.TrimSpace(settings.ModelDir) == "" {
		return errors.New(common.ErrMsgModelDirRequired)
	}

	if settings.WeatherBaseURL == "" {
		return fmt.Errorf("weather base URL cannot be empty")
	}
	if settings.WeatherTimeout < common.MinWeatherTimeout || settings.WeatherTimeout > common.MaxWeatherTimeout {
		return fmt.Errorf("weather timeout must be between %v and %v, got %v",
			common.MinWeatherTimeout, common.MaxWeatherTimeout, settings.WeatherTimeout)
	}
	if settings.ShutdownTimeout < common.MinShutdownTimeout || settings.ShutdownTimeout > common.MaxShutdownTimeout {
		return fmt.Errorf("shutdown timeout must be between %v and %v, got %v",
			common.MinShutdownTimeout, common.MaxShutdownTimeout, settings.ShutdownTimeout)
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil || settings.LogLevel == "" {
		return fmt.Errorf("invalid log level %q", settings.LogLevel)
	}
	switch settings.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", settings.LogFormat)
	}

	return nil
}
