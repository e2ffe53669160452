// Package telemetry owns the process metrics registry and the tracer
// provider.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the metrics registry served on /metrics.
var Registry = prometheus.NewRegistry()

// Metrics
var (
	Registrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymdesk",
		Name:      "registrations_total",
		Help:      "Member registrations by mode (online, offline).",
	}, []string{"mode"})

	Payments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymdesk",
		Name:      "payments_total",
		Help:      "Payment events appended, by kind.",
	}, []string{"kind"})

	PaymentAmount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymdesk",
		Name:      "payment_amount_total",
		Help:      "Sum of payment amounts in minor currency units, by kind.",
	}, []string{"kind"})

	CheckIns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymdesk",
		Name:      "checkins_total",
		Help:      "Check-in attempts by result (accepted, already_marked, expired, error).",
	}, []string{"result"})

	OutboxOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymdesk",
		Name:      "outbox_outcomes_total",
		Help:      "Outbox executions by action type and outcome.",
	}, []string{"action_type", "outcome"})

	RollCounter = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gymdesk",
		Name:      "roll_counter",
		Help:      "Local value of the roll number counter.",
	})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gymdesk",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern and status class.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gymdesk",
		Name:      "db_query_duration_seconds",
		Help:      "SQLite call latency by operation.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"db", "op"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Registrations,
		Payments,
		PaymentAmount,
		CheckIns,
		OutboxOutcomes,
		RollCounter,
		RequestDuration,
		QueryDuration,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
