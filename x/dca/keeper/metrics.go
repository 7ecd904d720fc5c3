package keeper

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DCAMetrics holds all Prometheus metrics for the DCA module
type DCAMetrics struct {
	OrdersTotal *prometheus.CounterVec
	CyclesTotal *prometheus.CounterVec
}

var (
	dcaMetricsOnce sync.Once
	dcaMetrics     *DCAMetrics
)

// NewDCAMetrics creates and registers DCA metrics (singleton pattern)
func NewDCAMetrics() *DCAMetrics {
	dcaMetricsOnce.Do(func() {
		dcaMetrics = &DCAMetrics{
			OrdersTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rush",
					Subsystem: "dca",
					Name:      "orders_total",
					Help:      "DCA order lifecycle events",
				},
				[]string{"outcome"},
			),
			CyclesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rush",
					Subsystem: "dca",
					Name:      "cycles_total",
					Help:      "DCA cycle attempts by outcome",
				},
				[]string{"outcome"},
			),
		}
	})
	return dcaMetrics
}
