package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodlog/backend/internal/usecase"
)

var _ usecase.Observer = (*Metrics)(nil)

func TestMetrics_Pipeline(t *testing.T) {
	m := New()

	m.ObserveRun(time.Second, nil)
	m.ObserveRun(time.Second, nil)
	m.ObserveRun(time.Second, errors.New("boom"))
	m.SearchFailed()
	m.ConsistencyCorrected()
	m.ConsistencyCorrected()
	m.ObserveStage("match", 20*time.Millisecond, nil)
	m.ObserveStage("enrich", time.Second, errors.New("timeout"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.consistencyCorrected))
	assert.Equal(t, 2, testutil.CollectAndCount(m.stageDuration))
}

func TestMetrics_HTTP(t *testing.T) {
	m := New()

	m.ObserveHTTP(http.MethodPost, "/api/analyze-food", 200, 150*time.Millisecond)
	m.ObserveHTTP(http.MethodPost, "/api/analyze-food", 500, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/api/analyze-food", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/api/analyze-food", "500")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SearchFailed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "foodlog_search_failures_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.SearchFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.searchFailures))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.searchFailures))
}
