package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cropsense/internal/advisor"
	"cropsense/internal/cfg"
	"cropsense/internal/metrics"
	"cropsense/internal/ml"
	"cropsense/internal/server"
	"cropsense/internal/storage"
	"cropsense/internal/weather"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	pipeline, err := ml.LoadPipeline(ml.DefaultCandidates(c.ModelDir), mw)
	if err != nil {
		log.Fatal().Err(err).Str("dir", c.ModelDir).Msg("model load failed, run the trainer first")
	}

	opts := []advisor.Option{advisor.WithMetrics(mw)}

	store := initializeStorage(c)
	var history server.History
	if store != nil {
		defer store.Close()
		opts = append(opts, advisor.WithStore(store))
		history = store
	}

	if c.WeatherEnabled() {
		opts = append(opts, advisor.WithWeather(weather.New(c.WeatherAPIKey, c.WeatherBaseURL, c.WeatherTimeout, mw)))
	} else {
		log.Warn().Msg("weather API key not configured, temperature and humidity will be simulated")
	}

	adv := advisor.New(pipeline, advisor.NewSimulator(c.SimulationSeed), opts...)

	srv := server.New(c.HTTPPort, server.Deps{
		Model:    pipeline,
		Advisor:  adv,
		History:  history,
		Metrics:  mw,
		Gatherer: prometheus.DefaultGatherer,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.Info().
		Int("port", c.HTTPPort).
		Str("model", pipeline.ModelName()).
		Bool("history", store != nil).
		Bool("weather", c.WeatherEnabled()).
		Msg("cropsense started")

	waitForShutdown(srv, c, errCh)
}

func setupLogging(c cfg.Settings) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// initializeStorage opens the prediction history if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without history")
		return nil
	}
	return store
}

// waitForShutdown blocks until a signal arrives or the listener fails.
func waitForShutdown(srv *server.Server, c cfg.Settings, errCh <-chan error) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}
