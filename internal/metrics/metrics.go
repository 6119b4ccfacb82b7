// Package metrics owns the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Suggestion outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeUnavailable = "unavailable"
	OutcomeInvalid     = "invalid"
	OutcomeDisabled    = "disabled"
	OutcomeCanceled    = "canceled"
)

// Registry holds all collectors on a private prometheus.Registry so tests and
// multiple servers never collide on the global one.
type Registry struct {
	reg *prometheus.Registry

	ExpensesAdded      *prometheus.CounterVec
	ExpenseRejections  *prometheus.CounterVec
	Suggestions        *prometheus.CounterVec
	SuggestionDuration prometheus.Histogram
	ActiveSessions     prometheus.Gauge
	HTTPRequests       *prometheus.CounterVec
	EventPublishErrors prometheus.Counter
}

// New creates a registry with the application collectors. withRuntime adds
// the Go and process collectors.
func New(withRuntime bool) *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		ExpensesAdded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ahorro_expenses_added_total",
				Help: "Expenses recorded, by category",
			},
			[]string{"category"},
		),

		ExpenseRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ahorro_expense_rejections_total",
				Help: "Expenses rejected by validation, by reason",
			},
			[]string{"reason"},
		),

		Suggestions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ahorro_suggestions_total",
				Help: "Savings strategy requests, by outcome",
			},
			[]string{"outcome"},
		),

		SuggestionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ahorro_suggestion_duration_seconds",
				Help:    "Time spent producing savings strategies, retries included",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
		),

		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ahorro_active_sessions",
				Help: "Sessions currently held in memory",
			},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ahorro_http_requests_total",
				Help: "HTTP requests by route template, method and status code",
			},
			[]string{"route", "method", "code"},
		),

		EventPublishErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ahorro_event_publish_errors_total",
				Help: "Ledger events that could not be published",
			},
		),
	}

	r.reg.MustRegister(
		r.ExpensesAdded,
		r.ExpenseRejections,
		r.Suggestions,
		r.SuggestionDuration,
		r.ActiveSessions,
		r.HTTPRequests,
		r.EventPublishErrors,
	)
	if withRuntime {
		r.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveSuggestion records one strategy request.
func (r *Registry) ObserveSuggestion(outcome string, took time.Duration) {
	r.Suggestions.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess || outcome == OutcomeUnavailable {
		r.SuggestionDuration.Observe(took.Seconds())
	}
}

// ObserveHTTP counts a finished request.
func (r *Registry) ObserveHTTP(route, method string, code int) {
	r.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
}
