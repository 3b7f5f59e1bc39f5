package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRecordsRuns(t *testing.T) {
	m := NewManager()

	m.RecordRun(OutcomeSuccess, 2*time.Second)
	m.RecordRun(OutcomeSuccess, time.Second)
	m.RecordRun(OutcomeEmpty, time.Second)
	m.RecordSourceFailure("Pitchfork Reviews")
	m.RecordExtractions("Pitchfork Reviews", 7)
	m.SetCandidates(12)
	m.SetRanked(12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(OutcomeEmpty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourceFailures.WithLabelValues("Pitchfork Reviews")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.extractions.WithLabelValues("Pitchfork Reviews")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.candidates))
}

func TestNilManagerIsNoop(t *testing.T) {
	var m *Manager

	assert.NotPanics(t, func() {
		m.RecordRun(OutcomeSuccess, time.Second)
		m.RecordSourceFailure("x")
		m.RecordExtractions("x", 1)
		m.SetCandidates(1)
		m.SetRanked(1)
		m.RecordEnrichmentAttempt()
		m.RecordEnrichmentFailure("timeout")
		m.RecordHTTPRequest("/", "GET", "200", time.Millisecond)
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewManager()
	m.RecordEnrichmentAttempt()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "weeklytop_enrichment_attempts_total 1")
}
