package keeper

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OrderBookMetrics holds all Prometheus metrics for the order book module
type OrderBookMetrics struct {
	OrdersTotal *prometheus.CounterVec
	OpenOrders  *prometheus.GaugeVec
}

var (
	orderBookMetricsOnce sync.Once
	orderBookMetrics     *OrderBookMetrics
)

// NewOrderBookMetrics creates and registers order book metrics (singleton pattern)
func NewOrderBookMetrics() *OrderBookMetrics {
	orderBookMetricsOnce.Do(func() {
		orderBookMetrics = &OrderBookMetrics{
			OrdersTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rush",
					Subsystem: "orderbook",
					Name:      "orders_total",
					Help:      "Limit order lifecycle events by outcome",
				},
				[]string{"pool_id", "outcome"},
			),
			OpenOrders: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "rush",
					Subsystem: "orderbook",
					Name:      "open_orders",
					Help:      "Open limit orders per pool, as of the last sweep",
				},
				[]string{"pool_id"},
			),
		}
	})
	return orderBookMetrics
}

func poolLabel(poolID uint64) string {
	return strconv.FormatUint(poolID, 10)
}
