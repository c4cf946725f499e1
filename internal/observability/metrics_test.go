package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_MiddlewareCountsByRoute(t *testing.T) {
	m := NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Post("/process_expense_report", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/", nil),
		httptest.NewRequest(http.MethodPost, "/process_expense_report", nil),
		httptest.NewRequest(http.MethodPost, "/process_expense_report", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/process_expense_report", "404")))
}

func TestMetrics_ReportCounters(t *testing.T) {
	m := NewMetrics()
	m.ReportResult(ResultOK)
	m.ReportResult(ResultOK)
	m.ReportResult(ResultNotFound)
	m.SkippedObject()
	m.SelectedRecords(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reportsTotal.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reportsTotal.WithLabelValues(ResultNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skippedObjects))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ReportResult(ResultOK)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "expense_report_reports_total"))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ReportResult(ResultOK)
		m.SkippedObject()
		m.SelectedRecords(1)
	})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
