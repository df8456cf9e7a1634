package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.HTTPPort != 5000 {
					t.Errorf("expected default HTTPPort 5000, got %d", settings.HTTPPort)
				}
				if settings.ModelDir != "model" {
					t.Errorf("expected default ModelDir 'model', got %s", settings.ModelDir)
				}
				if settings.DataPath != "" {
					t.Errorf("expected history disabled by default, got DataPath %s", settings.DataPath)
				}
				if settings.WeatherBaseURL != "https://api.openweathermap.org/data/2.5" {
					t.Errorf("expected default WeatherBaseURL, got %s", settings.WeatherBaseURL)
				}
				if settings.WeatherTimeout != 5*time.Second {
					t.Errorf("expected default WeatherTimeout 5s, got %v", settings.WeatherTimeout)
				}
				if settings.LogLevel != "info" || settings.LogFormat != "json" {
					t.Errorf("expected info/json logging, got %s/%s", settings.LogLevel, settings.LogFormat)
				}
				if settings.WeatherEnabled() {
					t.Error("expected weather disabled without a key")
				}
			},
		},
		{
			name: "custom settings",
			envVars: map[string]string{
				"HTTP_PORT":           "8081",
				"MODEL_DIR":           "/srv/models",
				"DATA_PATH":           "/srv/data",
				"OPENWEATHER_API_KEY": "abc123",
				"WEATHER_TIMEOUT":     "2s",
				"LOG_LEVEL":           "debug",
				"LOG_FORMAT":          "console",
				"SIMULATION_SEED":     "7",
				"SHUTDOWN_TIMEOUT":    "30s",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.HTTPPort != 8081 {
					t.Errorf("expected HTTPPort 8081, got %d", settings.HTTPPort)
				}
				if settings.ModelDir != "/srv/models" {
					t.Errorf("expected ModelDir /srv/models, got %s", settings.ModelDir)
				}
				if settings.DataPath != "/srv/data" {
					t.Errorf("expected DataPath /srv/data, got %s", settings.DataPath)
				}
				if !settings.WeatherEnabled() {
					t.Error("expected weather enabled")
				}
				if settings.WeatherTimeout != 2*time.Second {
					t.Errorf("expected WeatherTimeout 2s, got %v", settings.WeatherTimeout)
				}
				if settings.SimulationSeed != 7 {
					t.Errorf("expected SimulationSeed 7, got %d", settings.SimulationSeed)
				}
				if settings.ShutdownTimeout != 30*time.Second {
					t.Errorf("expected ShutdownTimeout 30s, got %v", settings.ShutdownTimeout)
				}
			},
		},
		{
			name: "placeholder weather key",
			envVars: map[string]string{
				"OPENWEATHER_API_KEY": "YOUR_API_KEY_HERE",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.WeatherEnabled() {
					t.Error("expected placeholder key to disable weather")
				}
			},
		},
		{
			name: "privileged port",
			envVars: map[string]string{
				"HTTP_PORT": "80",
			},
			wantErr: true,
		},
		{
			name: "weather timeout too long",
			envVars: map[string]string{
				"WEATHER_TIMEOUT": "5m",
			},
			wantErr: true,
		},
		{
			name: "unknown log level",
			envVars: map[string]string{
				"LOG_LEVEL": "loud",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear all environment variables first
			clearTestEnv(t)

			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := loadFromEnv()

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	tests := []struct {
		name         string
		yamlContent  string
		envOverrides map[string]string
		wantErr      bool
		validate     func(t *testing.T, settings Settings)
	}{
		{
			name: "valid YAML config",
			yamlContent: `
server:
  port: 8088
  shutdownTimeout: "20s"
model:
  dir: "/opt/cropsense/model"
storage:
  dataPath: "/var/lib/cropsense"
weather:
  apiKey: "yaml_key"
  baseURL: "http://weather.local/data/2.5"
  timeout: "3s"
logging:
  level: "warn"
  format: "console"
simulation:
  seed: 99
`,
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.HTTPPort != 8088 {
					t.Errorf("expected HTTPPort 8088, got %d", settings.HTTPPort)
				}
				if settings.ModelDir != "/opt/cropsense/model" {
					t.Errorf("expected ModelDir from YAML, got %s", settings.ModelDir)
				}
				if settings.DataPath != "/var/lib/cropsense" {
					t.Errorf("expected DataPath from YAML, got %s", settings.DataPath)
				}
				if settings.WeatherAPIKey != "yaml_key" {
					t.Errorf("expected WeatherAPIKey 'yaml_key', got %s", settings.WeatherAPIKey)
				}
				if settings.WeatherBaseURL != "http://weather.local/data/2.5" {
					t.Errorf("expected WeatherBaseURL from YAML, got %s", settings.WeatherBaseURL)
				}
				if settings.WeatherTimeout != 3*time.Second {
					t.Errorf("expected WeatherTimeout 3s, got %v", settings.WeatherTimeout)
				}
				if settings.ShutdownTimeout != 20*time.Second {
					t.Errorf("expected ShutdownTimeout 20s, got %v", settings.ShutdownTimeout)
				}
				if settings.LogLevel != "warn" || settings.LogFormat != "console" {
					t.Errorf("expected warn/console logging, got %s/%s", settings.LogLevel, settings.LogFormat)
				}
				if settings.SimulationSeed != 99 {
					t.Errorf("expected SimulationSeed 99, got %d", settings.SimulationSeed)
				}
			},
		},
		{
			name: "YAML with env overrides",
			yamlContent: `
server:
  port: 8088
weather:
  apiKey: "yaml_key"
`,
			envOverrides: map[string]string{
				"OPENWEATHER_API_KEY": "env_key",
				"HTTP_PORT":           "9000",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.WeatherAPIKey != "env_key" {
					t.Errorf("expected env override WeatherAPIKey 'env_key', got %s", settings.WeatherAPIKey)
				}
				if settings.HTTPPort != 9000 {
					t.Errorf("expected env override HTTPPort 9000, got %d", settings.HTTPPort)
				}
				if settings.ModelDir != "model" {
					t.Errorf("expected default ModelDir, got %s", settings.ModelDir)
				}
			},
		},
		{
			name:        "empty YAML uses defaults",
			yamlContent: "",
			wantErr:     false,
			validate: func(t *testing.T, settings Settings) {
				if settings.HTTPPort != 5000 {
					t.Errorf("expected default HTTPPort 5000, got %d", settings.HTTPPort)
				}
			},
		},
		{
			name: "bad duration",
			yamlContent: `
weather:
  timeout: "soon"
`,
			wantErr: true,
		},
		{
			name: "out of range port",
			yamlContent: `
server:
  port: 70000
`,
			wantErr: true,
		},
		{
			name:        "invalid YAML",
			yamlContent: `invalid: yaml: content: [`,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)

			for key, value := range tt.envOverrides {
				t.Setenv(key, value)
			}

			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.yamlContent), 0o644)
			if err != nil {
				t.Fatalf("failed to write test config file: %v", err)
			}

			settings, err := loadFromYAML(configPath)

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("load from env when no config file", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("MODEL_DIR", "env_models")

		settings, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings.ModelDir != "env_models" {
			t.Errorf("expected ModelDir 'env_models', got %s", settings.ModelDir)
		}
	})

	t.Run("load from config file", func(t *testing.T) {
		clearTestEnv(t)
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(configPath, []byte("model:\n  dir: yaml_models\n"), 0o644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		t.Setenv("CONFIG_FILE", configPath)

		settings, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings.ModelDir != "yaml_models" {
			t.Errorf("expected ModelDir 'yaml_models', got %s", settings.ModelDir)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

		if _, err := Load(); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("dotenv fills unset variables", func(t *testing.T) {
		clearTestEnv(t)
		dotenv := filepath.Join(t.TempDir(), "test.env")
		content := "OPENWEATHER_API_KEY=from_dotenv\nHTTP_PORT=7070\n"
		if err := os.WriteFile(dotenv, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write dotenv: %v", err)
		}
		t.Setenv("DOTENV_FILE", dotenv)
		t.Setenv("HTTP_PORT", "7171")
		// godotenv sets variables directly; restore them when the test ends
		t.Setenv("OPENWEATHER_API_KEY", "")
		os.Unsetenv("OPENWEATHER_API_KEY")

		settings, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings.WeatherAPIKey != "from_dotenv" {
			t.Errorf("expected WeatherAPIKey from dotenv, got %s", settings.WeatherAPIKey)
		}
		if settings.HTTPPort != 7171 {
			t.Errorf("expected process env to win over dotenv, got %d", settings.HTTPPort)
		}
	})
}

func clearTestEnv(t *testing.T) {
	envVars := []string{
		"CONFIG_FILE", "HTTP_PORT", "MODEL_DIR", "DATA_PATH",
		"OPENWEATHER_API_KEY", "WEATHER_BASE_URL", "WEATHER_TIMEOUT",
		"LOG_LEVEL", "LOG_FORMAT", "SIMULATION_SEED", "SHUTDOWN_TIMEOUT",
	}

	for _, env := range envVars {
		if val := os.Getenv(env); val != "" {
			t.Setenv(env, "")
		}
	}

	// Point at a file that never exists so a developer's .env does not leak in
	t.Setenv("DOTENV_FILE", filepath.Join(t.TempDir(), "none.env"))
}
