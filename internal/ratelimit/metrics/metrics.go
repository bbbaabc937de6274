package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions       *prometheus.CounterVec
	SharedFallbacks prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fairgate_ratelimit_decisions_total",
			Help: "Rate limit decisions by scope and outcome",
		}, []string{"scope", "outcome"}),
		SharedFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fairgate_ratelimit_shared_fallbacks_total",
			Help: "Requests counted in memory because the shared counter was unavailable",
		}),
	}
}

func (m *Metrics) ObserveDecision(scope string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	m.Decisions.WithLabelValues(scope, outcome).Inc()
}

func (m *Metrics) ObserveSharedFallback() {
	if m == nil {
		return
	}
	m.SharedFallbacks.Inc()
}
