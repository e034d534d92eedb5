package prometheus

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsIndependentRegistries(t *testing.T) {
	// Two instances must not collide; each owns its registry.
	require.NotPanics(t, func() {
		_ = New()
		_ = New()
	})
}

func TestObserveAnalysis(t *testing.T) {
	m := New()

	m.ObserveAnalysis("success", 120*time.Millisecond)
	m.ObserveAnalysis("success", 80*time.Millisecond)
	m.ObserveAnalysis("error", 5*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("success")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("error")), 1e-9)
}

func TestHandlerServesExposition(t *testing.T) {
	m := New()
	m.ExtractionsTotal.Inc()
	m.ScoresTotal.WithLabelValues("Fair").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "leaselens_extractions_total 1")
	assert.Contains(t, body, `leaselens_scores_total{rating="Fair"} 1`)
}
