package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Draft result label values.
const (
	DraftCreated = "created"
	DraftReused  = "reused"
	DraftFailed  = "failed"
)

// Metrics holds the wizard collectors.
type Metrics struct {
	NodeVisits          *prometheus.CounterVec
	TransitionsRejected *prometheus.CounterVec
	Drafts              *prometheus.CounterVec
	DraftDuration       prometheus.Histogram
	SearchQueries       prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m, err := NewMetricsWith(reg, reg)
	if err != nil {
		// A fresh registry cannot hold conflicting collectors.
		panic(err)
	}
	return m
}

// NewMetricsWith registers the collectors on reg and serves them from g.
func NewMetricsWith(reg prometheus.Registerer, g prometheus.Gatherer) (*Metrics, error) {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fixpath_node_visits_total",
				Help: "Total number of node visits",
			},
			[]string{"node_type"},
		),
		TransitionsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fixpath_transitions_rejected_total",
				Help: "Transitions refused by the wizard",
			},
			[]string{"op"},
		),
		Drafts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fixpath_drafts_total",
				Help: "Draft ticket requests by result",
			},
			[]string{"result"},
		),
		DraftDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fixpath_draft_duration_seconds",
				Help:    "Duration of draft ticket requests",
				Buckets: prometheus.DefBuckets,
			},
		),
		SearchQueries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fixpath_search_queries_total",
				Help: "Title search queries served",
			},
		),
		gatherer: g,
	}

	for _, c := range []prometheus.Collector{m.NodeVisits, m.TransitionsRejected, m.Drafts, m.DraftDuration, m.SearchQueries} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(string(e.NodeType)).Inc()
		},
		OnTransitionRejected: func(_ context.Context, e *domain.RejectEvent) {
			m.TransitionsRejected.WithLabelValues(e.Op).Inc()
		},
		OnDraftResult: func(_ context.Context, e *domain.DraftEvent) {
			result := DraftReused
			switch {
			case e.Err != nil:
				result = DraftFailed
			case e.Created:
				result = DraftCreated
			}
			m.Drafts.WithLabelValues(result).Inc()
			m.DraftDuration.Observe(e.Duration.Seconds())
		},
	}
}

// ObserveSearch counts one search query.
func (m *Metrics) ObserveSearch() {
	m.SearchQueries.Inc()
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
