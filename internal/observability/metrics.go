// Package observability собирает метрики Prometheus сервиса отчетов.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Результаты формирования отчета для метки result.
const (
	ResultOK           = "ok"
	ResultCached       = "cached"
	ResultUnauthorized = "unauthorized"
	ResultNotFound     = "not_found"
	ResultError        = "error"
)

// Metrics набор метрик со своим registry.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reportsTotal    *prometheus.CounterVec
	skippedObjects  prometheus.Counter
	selectedRecords prometheus.Histogram
}

// NewMetrics регистрирует метрики HTTP и отчетов.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expense_report_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "expense_report_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	reports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expense_report_reports_total",
		Help: "Report generation attempts by result.",
	}, []string{"result"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "expense_report_skipped_objects_total",
		Help: "Stored objects skipped because of missing or invalid date metadata.",
	})
	selected := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "expense_report_selected_records",
		Help:    "Expense records included per report.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	})
	registry.MustRegister(requests, duration, reports, skipped, selected)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		reportsTotal:    reports,
		skippedObjects:  skipped,
		selectedRecords: selected,
	}
}

// Handler возвращает обработчик /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware считает запросы и их длительность по шаблону маршрута.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ReportResult учитывает результат формирования отчета.
func (m *Metrics) ReportResult(result string) {
	if m == nil {
		return
	}
	m.reportsTotal.WithLabelValues(result).Inc()
}

// SkippedObject учитывает объект, пропущенный из-за метаданных.
func (m *Metrics) SkippedObject() {
	if m == nil {
		return
	}
	m.skippedObjects.Inc()
}

// SelectedRecords учитывает количество записей в отчете.
func (m *Metrics) SelectedRecords(n int) {
	if m == nil {
		return
	}
	m.selectedRecords.Observe(float64(n))
}

// Registry возвращает registry для проверок и дополнительных метрик.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unknown"
}
