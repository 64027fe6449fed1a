package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.Admission("admitted", "")
	m.Admission("rejected", "event_full")
	m.Admission("rejected", "event_full")
	m.Transition("approve", "approved")
	m.Promotion()
	m.Retry()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Admissions.WithLabelValues("rejected", "event_full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("approve", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Promotions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Retries))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.Admission("admitted", "")
		m.Transition("cancel", "cancelled")
		m.Promotion()
		m.Retry()
	})
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.Promotion()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "campus_events_waitlist_promotions_total 1")
}
