package trigger

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TriggerMetrics holds the keeper bot's Prometheus collectors.
type TriggerMetrics struct {
	Triggers      *prometheus.CounterVec
	Expired       prometheus.Counter
	SweepDuration prometheus.Histogram
}

var (
	triggerMetricsOnce     sync.Once
	triggerMetricsInstance *TriggerMetrics
)

// NewTriggerMetrics returns the process-wide trigger metrics.
func NewTriggerMetrics() *TriggerMetrics {
	triggerMetricsOnce.Do(func() {
		triggerMetricsInstance = &TriggerMetrics{
			Triggers: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rush",
					Subsystem: "trigger",
					Name:      "fired_total",
					Help:      "Triggers fired by the keeper bot",
				},
				[]string{"module", "outcome"},
			),
			Expired: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "rush",
					Subsystem: "trigger",
					Name:      "orders_expired_total",
					Help:      "Limit orders expired by keeper sweeps",
				},
			),
			SweepDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "rush",
					Subsystem: "trigger",
					Name:      "sweep_duration_seconds",
					Help:      "Duration of one keeper sweep",
					Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
				},
			),
		}
	})
	return triggerMetricsInstance
}

func (m *TriggerMetrics) record(module string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failed"
	}
	m.Triggers.WithLabelValues(module, outcome).Inc()
}
