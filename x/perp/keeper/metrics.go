package keeper

import (
	"strconv"
	"sync"

	"cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PerpMetrics holds all Prometheus metrics for the perpetual module
type PerpMetrics struct {
	PositionsTotal *prometheus.CounterVec
	OpenInterest   *prometheus.GaugeVec
	FundingIndex   *prometheus.GaugeVec
}

var (
	perpMetricsOnce sync.Once
	perpMetrics     *PerpMetrics
)

// NewPerpMetrics creates and registers perpetual metrics (singleton pattern)
func NewPerpMetrics() *PerpMetrics {
	perpMetricsOnce.Do(func() {
		perpMetrics = &PerpMetrics{
			PositionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rush",
					Subsystem: "perp",
					Name:      "positions_total",
					Help:      "Position lifecycle events by side and outcome",
				},
				[]string{"side", "outcome"},
			),
			OpenInterest: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "rush",
					Subsystem: "perp",
					Name:      "open_interest",
					Help:      "Notional size of open positions in quote units",
				},
				[]string{"pool_id", "side"},
			),
			FundingIndex: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "rush",
					Subsystem: "perp",
					Name:      "funding_index_ppm",
					Help:      "Cumulative funding index per pool",
				},
				[]string{"pool_id"},
			),
		}
	})
	return perpMetrics
}

func poolLabel(poolID uint64) string {
	return strconv.FormatUint(poolID, 10)
}

// intToFloat converts for metric reporting only; precision loss is acceptable.
func intToFloat(v math.Int) float64 {
	f, _ := v.ToLegacyDec().Float64()
	return f
}
