package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/funding-rate-ranker/internal/validation"
)

func TestObserveFetch(t *testing.T) {
	m := New()

	m.ObserveFetch("aster", 0.2, 12, validation.Tally{validation.SkipJoinMiss: 3, validation.SkipParseFailure: 1}, nil)
	m.ObserveFetch("hyperliquid", 10, 0, nil, errors.New("timeout"))

	assert.Equal(t, 12.0, testutil.ToFloat64(m.records.WithLabelValues("aster")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.records.WithLabelValues("hyperliquid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.adapterErrors.WithLabelValues("hyperliquid")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.adapterErrors.WithLabelValues("aster")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.skipped.WithLabelValues("aster", "join_miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("aster", "parse_failure")))
}

func TestObservePublishAndCycle(t *testing.T) {
	m := New()

	m.ObservePublish("telegram", ResultSuccess, 1735800000)
	m.ObservePublish("telegram", ResultError, 1735800300)
	m.ObservePublish("telegram", ResultSkippedEmpty, 1735800600)
	m.ObserveCycle("ok", 1.5)
	m.ObserveCycle("degraded", 0.5)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishes.WithLabelValues("telegram", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishes.WithLabelValues("telegram", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishes.WithLabelValues("telegram", ResultSkippedEmpty)))
	assert.Equal(t, 1735800000.0, testutil.ToFloat64(m.lastSuccess), "only successes move the timestamp")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cyclesTotal.WithLabelValues("ok")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.cyclesTotal))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCycle("ok", 0.1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "funding_cycles_total")
	assert.Contains(t, string(body), "go_goroutines")
}
