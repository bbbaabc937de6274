package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the quote module.
type Metrics struct {
	// Issued quotes by mode and blocked outcome
	Issued *prometheus.CounterVec

	// Rejections by stable reason
	Rejected *prometheus.CounterVec

	// Full pipeline latency
	IssueLatency prometheus.Histogram
}

// New creates a Metrics instance with all quote module metrics registered.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fairgate_quotes_issued_total",
			Help: "Total issued quotes by user mode and blocked outcome",
		}, []string{"mode", "blocked"}),

		Rejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fairgate_quotes_rejected_total",
			Help: "Total rejected quote requests by reason",
		}, []string{"reason"}),

		IssueLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fairgate_quote_issue_duration_seconds",
			Help:    "Duration of the full quote pipeline from verify to sign",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementIssued records one issued quote.
func (m *Metrics) IncrementIssued(mode string, blocked bool) {
	if m != nil {
		label := "false"
		if blocked {
			label = "true"
		}
		m.Issued.WithLabelValues(mode, label).Inc()
	}
}

// IncrementRejected records one rejection.
func (m *Metrics) IncrementRejected(reason string) {
	if m != nil {
		m.Rejected.WithLabelValues(reason).Inc()
	}
}

// ObserveIssueLatency records the pipeline duration.
func (m *Metrics) ObserveIssueLatency(d time.Duration) {
	if m != nil {
		m.IssueLatency.Observe(d.Seconds())
	}
}
