// Package server is the HTTP front end: the localized recommendation form,
// the JSON API, the live recommendation feed and the operational endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cropsense/internal/advisor"
	"cropsense/internal/common"
	"cropsense/internal/ml"
	"cropsense/internal/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Model is the loaded inference pipeline.
type Model interface {
	ml.PredictorInterface
	Classify(features []float64) (string, map[string]float64, error)
	Info() ml.ModelInfo
}

// Recommender serves form submissions.
type Recommender interface {
	Advise(ctx context.Context, in advisor.Inputs) (*advisor.Recommendation, error)
}

// History reads stored recommendations.
type History interface {
	RecentPredictions(limit int) ([]storage.PredictionRecord, error)
}

// Metrics defines the server's metrics hooks.
type Metrics interface {
	HTTPRequestObserve(method, route string, status int, seconds float64)
	ErrorRate() float64
}

// Deps are the collaborators of a Server. History, Metrics and Gatherer
// may be nil.
type Deps struct {
	Model    Model
	Advisor  Recommender
	History  History
	Metrics  Metrics
	Gatherer prometheus.Gatherer
}

// Server owns the router and the HTTP listener.
type Server struct {
	deps      Deps
	pages     pages
	feed      *Feed
	router    *mux.Router
	server    *http.Server
	startedAt time.Time
}

// PredictRequest is the body of POST /api/predict.
type PredictRequest struct {
	Features []float64 `json:"features"`
}

// PredictResponse is the answer of POST /api/predict.
type PredictResponse struct {
	Crop          string             `json:"crop"`
	Probabilities map[string]float64 `json:"probabilities"`
	Model         string             `json:"model"`
}

// RecommendRequest is the body of POST /api/recommend.
type RecommendRequest struct {
	Crop     string  `json:"crop"`
	Soil     string  `json:"soil"`
	Location string  `json:"location"`
	Acres    float64 `json:"acres"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New wires the routes. The listener is created on Start.
func New(port int, deps Deps) *Server {
	s := &Server{
		deps:      deps,
		pages:     parsePages(),
		feed:      NewFeed(),
		startedAt: time.Now(),
	}

	r := mux.NewRouter()
	r.Use(s.requestLog)
	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/predict", s.handlePredictForm).Methods("POST")
	r.HandleFunc("/api/predict", s.handlePredictAPI).Methods("POST")
	r.HandleFunc("/api/recommend", s.handleRecommendAPI).Methods("POST")
	r.HandleFunc("/api/predictions", s.handlePredictions).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/model/info", s.handleModelInfo).Methods("GET")
	r.Handle("/ws/predictions", s.feed).Methods("GET")
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	s.router = r

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Feed returns the live recommendation feed.
func (s *Server) Feed() *Feed { return s.feed }

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("address", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown closes the feed and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.feed.Close()
	return s.server.Shutdown(ctx)
}

type indexPage struct {
	Text      Text
	Lang      string
	Languages []Language
	Crops     []string
	Soils     []string
	Error     string
}

type resultPage struct {
	Text Text
	Lang string
	Rec  *advisor.Recommendation
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, http.StatusOK, r.URL.Query().Get("lang"), "")
}

func (s *Server) renderIndex(w http.ResponseWriter, status int, lang, msg string) {
	text, lang := textFor(lang)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := s.pages.index.Execute(w, indexPage{
		Text:      text,
		Lang:      lang,
		Languages: languages,
		Crops:     advisor.CropTypes,
		Soils:     advisor.SoilTypes,
		Error:     msg,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to render index page")
	}
}

func (s *Server) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	lang := r.PostForm.Get("lang")

	acres, err := strconv.ParseFloat(strings.TrimSpace(r.PostForm.Get("acres")), 64)
	if err != nil {
		s.renderIndex(w, http.StatusBadRequest, lang, common.ErrMsgInvalidAcres)
		return
	}

	rec, err := s.advise(r.Context(), advisor.Inputs{
		CropSelect: r.PostForm.Get("crop_select"),
		CropCustom: r.PostForm.Get("crop"),
		SoilSelect: r.PostForm.Get("soil_select"),
		SoilCustom: r.PostForm.Get("soil"),
		Location:   r.PostForm.Get("location"),
		Acres:      acres,
	})
	switch {
	case errors.Is(err, advisor.ErrInvalidInput):
		s.renderIndex(w, http.StatusBadRequest, lang, err.Error())
		return
	case err != nil:
		http.Error(w, "prediction failed", http.StatusInternalServerError)
		return
	}

	text, lang := textFor(lang)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.result.Execute(w, resultPage{Text: text, Lang: lang, Rec: rec}); err != nil {
		log.Error().Err(err).Msg("Failed to render result page")
	}
}

func (s *Server) handleRecommendAPI(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	rec, err := s.advise(r.Context(), advisor.Inputs{
		CropCustom: req.Crop,
		SoilCustom: req.Soil,
		Location:   req.Location,
		Acres:      req.Acres,
	})
	switch {
	case errors.Is(err, advisor.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "prediction failed"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// advise runs the advisor under the inference budget and publishes the
// result to the feed.
func (s *Server) advise(ctx context.Context, in advisor.Inputs) (*advisor.Recommendation, error) {
	ctx, cancel := context.WithTimeout(ctx, common.DefaultInferenceBudget)
	defer cancel()

	rec, err := s.deps.Advisor.Advise(ctx, in)
	if err != nil {
		if !errors.Is(err, advisor.ErrInvalidInput) {
			log.Error().Err(err).Msg("Recommendation failed")
		}
		return nil, err
	}
	s.feed.Publish(rec)
	return rec, nil
}

func (s *Server) handlePredictAPI(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	crop, probs, err := s.deps.Model.Classify(req.Features)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ml.ErrInference) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, PredictResponse{
		Crop:          crop,
		Probabilities: probs,
		Model:         s.deps.Model.ModelName(),
	})
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	limit := common.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, common.MaxHistoryLimit)
	}

	if s.deps.History == nil {
		writeJSON(w, http.StatusOK, []storage.PredictionRecord{})
		return
	}
	records, err := s.deps.History.RecentPredictions(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read prediction history")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":         "healthy",
		"model":          s.deps.Model.ModelName(),
		"uptime_seconds": time.Since(s.startedAt).Seconds(),
		"feed_clients":   s.feed.Clients(),
		"history":        s.deps.History != nil,
	}
	if s.deps.Metrics != nil {
		health["error_rate"] = s.deps.Metrics.ErrorRate()
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Model.Info())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
