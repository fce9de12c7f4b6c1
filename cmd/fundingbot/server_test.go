package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/funding-rate-ranker/internal/config"
	"github.com/yourorg/funding-rate-ranker/internal/cycle"
	"github.com/yourorg/funding-rate-ranker/internal/metrics"
)

type fixedStatus struct {
	status cycle.Status
	ok     bool
}

func (f fixedStatus) LastStatus() (cycle.Status, bool) { return f.status, f.ok }

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHandleHealth(t *testing.T) {
	s := NewServer(config.Default(), fixedStatus{}, metrics.New())

	rec, body := get(t, s.routes(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestHandleStatus(t *testing.T) {
	tests := []struct {
		name   string
		runner fixedStatus
		want   string
	}{
		{name: "before first cycle", runner: fixedStatus{}, want: "starting"},
		{name: "healthy", runner: fixedStatus{status: cycle.Status{CycleID: "c1", Outcome: cycle.OutcomeOK}, ok: true}, want: "operational"},
		{name: "degraded", runner: fixedStatus{status: cycle.Status{CycleID: "c2", Outcome: cycle.OutcomeDegraded}, ok: true}, want: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(config.Default(), tt.runner, metrics.New())

			rec, body := get(t, s.routes(), "/status")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, body["status"])

			cfg, ok := body["configuration"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, "telegram", cfg["publisher"])
			assert.Equal(t, 15.0, cfg["top_n"])

			if tt.runner.ok {
				last, ok := body["last_cycle"].(map[string]interface{})
				require.True(t, ok)
				assert.Equal(t, tt.runner.status.CycleID, last["cycle_id"])
			} else {
				assert.NotContains(t, body, "last_cycle")
			}
		})
	}
}

func TestHandleMetrics(t *testing.T) {
	m := metrics.New()
	m.ObserveCycle(cycle.OutcomeOK, 0.3)
	s := NewServer(config.Default(), fixedStatus{}, m)

	rec, _ := get(t, s.routes(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `funding_cycles_total{outcome="ok"} 1`)
}

func TestNewRunner(t *testing.T) {
	cfg := config.Default()
	cfg.Publisher = config.PublisherLog

	runner, collectors, err := newRunner(cfg)
	require.NoError(t, err)
	assert.NotNil(t, runner)
	assert.NotNil(t, collectors)

	cfg.RankHorizon = "3h"
	_, _, err = newRunner(cfg)
	assert.Error(t, err)
}
