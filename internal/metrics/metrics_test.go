package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(false), New(false)
	a.ExpensesAdded.WithLabelValues("food").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ExpensesAdded.WithLabelValues("food")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ExpensesAdded.WithLabelValues("food")))
}

func TestObserveSuggestion(t *testing.T) {
	r := New(false)
	r.ObserveSuggestion(OutcomeSuccess, 2*time.Second)
	r.ObserveSuggestion(OutcomeInvalid, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Suggestions.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Suggestions.WithLabelValues(OutcomeInvalid)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.SuggestionDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New(true)
	r.ObserveHTTP("/expenses", http.MethodPost, 422)
	r.ActiveSessions.Set(3)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `ahorro_http_requests_total{code="422",method="POST",route="/expenses"} 1`)
	assert.Contains(t, string(body), "ahorro_active_sessions 3")
	assert.Contains(t, string(body), "go_goroutines")
}
