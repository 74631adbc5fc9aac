package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the review counters on a private registry.
type Metrics struct {
	registry         *prometheus.Registry
	ClaimOutcomes    *prometheus.CounterVec
	DecisionOutcomes *prometheus.CounterVec
	StorageFaults    *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ClaimOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Name:      "claim_outcomes_total",
			Help:      "Claim and unclaim results by outcome.",
		}, []string{"operation", "outcome"}),
		DecisionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Name:      "decision_outcomes_total",
			Help:      "Decision results by action and kind.",
		}, []string{"action", "kind"}),
		StorageFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Name:      "storage_faults_total",
			Help:      "Operations that failed with a storage error.",
		}, []string{"operation"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Name:      "open_applications_cache_lookups_total",
			Help:      "Open-applications cache lookups by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.ClaimOutcomes,
		m.DecisionOutcomes,
		m.StorageFaults,
		m.CacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveClaim(operation, outcome string) {
	if m == nil {
		return
	}
	m.ClaimOutcomes.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveDecision(action, kind string) {
	if m == nil {
		return
	}
	m.DecisionOutcomes.WithLabelValues(action, kind).Inc()
}

func (m *Metrics) ObserveStorageFault(operation string) {
	if m == nil {
		return
	}
	m.StorageFaults.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}
