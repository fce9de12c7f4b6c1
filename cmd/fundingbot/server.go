package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/funding-rate-ranker/internal/config"
	"github.com/yourorg/funding-rate-ranker/internal/cycle"
	"github.com/yourorg/funding-rate-ranker/internal/metrics"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// statusSource is the part of the runner the ops server reads.
type statusSource interface {
	LastStatus() (cycle.Status, bool)
}

// Server exposes health, metrics and last-cycle status over HTTP.
type Server struct {
	config  config.Config
	runner  statusSource
	metrics *metrics.Collectors
	server  *http.Server
}

// NewServer creates a new ops server instance.
func NewServer(cfg config.Config, runner statusSource, m *metrics.Collectors) *Server {
	s := &Server{
		config:  cfg,
		runner:  runner,
		metrics: m,
	}

	s.server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		logrus.Infof("Ops server listening on %s", s.config.HTTPAddr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Errorf("Ops server failed: %v", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Warnf("Ops server shutdown failed: %v", err)
		return
	}
	logrus.Info("Ops server stopped")
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"version":   version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus reports configuration and the last cycle summary
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "operational",
		"uptime":  time.Since(startTime).String(),
		"version": version,
		"configuration": map[string]interface{}{
			"exchanges":     s.config.Exchanges,
			"publisher":     s.config.Publisher,
			"poll_interval": s.config.PollInterval.String(),
			"top_n":         s.config.TopN,
			"rank_horizon":  s.config.RankHorizon,
			"publish_empty": s.config.PublishEmpty,
		},
	}

	if last, ok := s.runner.LastStatus(); ok {
		status["last_cycle"] = last
		if last.Outcome != cycle.OutcomeOK {
			status["status"] = "degraded"
		}
	} else {
		status["status"] = "starting"
	}

	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Debugf("Failed to encode response: %v", err)
	}
}
