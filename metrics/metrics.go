// Package metrics exposes Prometheus instrumentation for the bot.
//
// A nil *Metrics is valid and records nothing, so components accept one
// optionally and tests can leave it out.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reelbot"

// Outcome label values.
const (
	OutcomeIndexed   = "indexed"
	OutcomeSkipped   = "skipped"
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
	OutcomeInvalid   = "invalid"
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
)

// Metrics holds every collector of the bot.
type Metrics struct {
	registry *prometheus.Registry

	IngestTotal       *prometheus.CounterVec
	QueriesTotal      *prometheus.CounterVec
	QueryDuration     prometheus.Histogram
	RelaysTotal       *prometheus.CounterVec
	RetractionsTotal  *prometheus.CounterVec
	EscalationsTotal  prometheus.Counter
	DeliveriesTotal   *prometheus.CounterVec
	HandlerPanicTotal prometheus.Counter
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		IngestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "ingest_total",
			Help:      "Channel posts processed by the indexer",
		}, []string{"outcome"}),
		QueriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Queries resolved",
		}, []string{"outcome"}),
		QueryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "query_duration_seconds",
			Help:      "Histogram of query resolution durations",
			Buckets:   prometheus.DefBuckets,
		}),
		RelaysTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "relays_total",
			Help:      "Posts relayed to users",
		}, []string{"outcome"}),
		RetractionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "retractions_total",
			Help:      "Relayed copies retracted after the delay",
		}, []string{"outcome"}),
		EscalationsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "requests_total",
			Help:      "Unmatched queries recorded in the escalation log",
		}),
		DeliveriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "deliveries_total",
			Help:      "Fan-out deliveries by kind and outcome",
		}, []string{"kind", "outcome"}),
		HandlerPanicTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "handler_panics_total",
			Help:      "Inbound events whose handler panicked",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// Ingested counts an indexer outcome.
func (m *Metrics) Ingested(o string) {
	if m == nil {
		return
	}
	m.IngestTotal.WithLabelValues(o).Inc()
}

// Queried counts a resolved query and its duration.
func (m *Metrics) Queried(o string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(o).Inc()
	m.QueryDuration.Observe(elapsed.Seconds())
}

// Relayed counts a relay attempt.
func (m *Metrics) Relayed(ok bool) {
	if m == nil {
		return
	}
	m.RelaysTotal.WithLabelValues(outcome(ok)).Inc()
}

// Retracted counts a retraction attempt.
func (m *Metrics) Retracted(ok bool) {
	if m == nil {
		return
	}
	m.RetractionsTotal.WithLabelValues(outcome(ok)).Inc()
}

// Escalated counts an escalation log write.
func (m *Metrics) Escalated() {
	if m == nil {
		return
	}
	m.EscalationsTotal.Inc()
}

// Delivered adds fan-out results for one delivery kind.
func (m *Metrics) Delivered(kind string, success, failure int) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(kind, OutcomeSuccess).Add(float64(success))
	m.DeliveriesTotal.WithLabelValues(kind, OutcomeFailure).Add(float64(failure))
}

// Panicked counts a recovered handler panic.
func (m *Metrics) Panicked() {
	if m == nil {
		return
	}
	m.HandlerPanicTotal.Inc()
}
