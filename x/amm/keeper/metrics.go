package keeper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/solrush/rush/x/amm/types"
	sharedkeeper "github.com/solrush/rush/x/shared/keeper"
)

// AMMMetrics holds all Prometheus metrics for the AMM module
type AMMMetrics struct {
	// Swap metrics
	SwapsTotal        *prometheus.CounterVec
	SwapVolume        *prometheus.CounterVec
	SwapLatency       prometheus.Histogram
	SwapFeesCollected *prometheus.CounterVec

	// Liquidity metrics
	LiquidityAdded   *prometheus.CounterVec
	LiquidityRemoved *prometheus.CounterVec
	PoolReserves     *prometheus.GaugeVec
	LPTokenSupply    *prometheus.GaugeVec

	// Pool metrics
	PoolsTotal  prometheus.Gauge
	PoolFeeTier *prometheus.GaugeVec
	PoolPaused  *prometheus.GaugeVec
}

var (
	ammMetricsOnce sync.Once
	ammMetrics     *AMMMetrics
)

// NewAMMMetrics creates and registers AMM metrics (singleton pattern)
func NewAMMMetrics() *AMMMetrics {
	ammMetricsOnce.Do(func() {
		ammMetrics = &AMMMetrics{
			SwapsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rush",
					Subsystem: "amm",
					Name:      "swaps_total",
					Help:      "Total number of swaps by outcome",
				},
				[]string{"pool_id", "side", "status"},
			),
			SwapVolume: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rush",
					Subsystem: "amm",
					Name:      "swap_volume_total",
					Help:      "Total swap input volume in base units",
				},
				[]string{"pool_id", "denom"},
			),
			SwapLatency: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "rush",
					Subsystem: "amm",
					Name:      "swap_latency_seconds",
					Help:      "Swap execution latency in seconds",
					Buckets:   prometheus.DefBuckets,
				},
			),
			SwapFeesCollected: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rush",
					Subsystem: "amm",
					Name:      "swap_fees_collected_total",
					Help:      "Total swap fees retained by pools",
				},
				[]string{"pool_id", "denom"},
			),
			LiquidityAdded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rush",
					Subsystem: "amm",
					Name:      "liquidity_added_total",
					Help:      "Total liquidity added to pools",
				},
				[]string{"pool_id", "denom"},
			),
			LiquidityRemoved: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rush",
					Subsystem: "amm",
					Name:      "liquidity_removed_total",
					Help:      "Total liquidity removed from pools",
				},
				[]string{"pool_id", "denom"},
			),
			PoolReserves: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "rush",
					Subsystem: "amm",
					Name:      "pool_reserves",
					Help:      "Current pool reserves",
				},
				[]string{"pool_id", "denom"},
			),
			LPTokenSupply: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "rush",
					Subsystem: "amm",
					Name:      "lp_token_supply",
					Help:      "Current LP token supply per pool",
				},
				[]string{"pool_id"},
			),
			PoolsTotal: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "rush",
					Subsystem: "amm",
					Name:      "pools_total",
					Help:      "Number of pools created since start",
				},
			),
			PoolFeeTier: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "rush",
					Subsystem: "amm",
					Name:      "pool_fee_bps",
					Help:      "Pool swap fee in basis points",
				},
				[]string{"pool_id"},
			),
			PoolPaused: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "rush",
					Subsystem: "amm",
					Name:      "pool_paused",
					Help:      "1 if swaps on the pool are paused",
				},
				[]string{"pool_id"},
			),
		}
	})
	return ammMetrics
}

func poolLabel(poolID uint64) string {
	return strconv.FormatUint(poolID, 10)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// intToFloat converts for metric reporting only; precision loss is acceptable.
func intToFloat(v math.Int) float64 {
	f, _ := v.ToLegacyDec().Float64()
	return f
}

func (k Keeper) recordReserves(pool *types.Pool) {
	label := poolLabel(pool.Id)
	k.metrics.PoolReserves.WithLabelValues(label, pool.Pair.Base).Set(intToFloat(pool.ReserveA))
	k.metrics.PoolReserves.WithLabelValues(label, pool.Pair.Quote).Set(intToFloat(pool.ReserveB))
	k.metrics.LPTokenSupply.WithLabelValues(label).Set(intToFloat(pool.LpSupply))
}

// recordSwap and recordLiquidity run once the enclosing operation commits.
// A swap nested in a limit or DCA execution that later aborts leaves the
// gauges alone.
func (k Keeper) recordSwap(ctx context.Context, pool types.Pool, result types.SwapResult, latency time.Duration) {
	sharedkeeper.OnCommit(ctx, func() {
		label := poolLabel(pool.Id)
		k.metrics.SwapsTotal.WithLabelValues(label, result.Side.String(), "success").Inc()
		k.metrics.SwapVolume.WithLabelValues(label, result.DenomIn).Add(intToFloat(result.AmountIn))
		k.metrics.SwapFeesCollected.WithLabelValues(label, result.DenomIn).Add(intToFloat(result.Fee))
		k.metrics.SwapLatency.Observe(latency.Seconds())
		k.recordReserves(&pool)
	})
}

func (k Keeper) recordLiquidity(ctx context.Context, pool types.Pool, amountA, amountB math.Int, added bool) {
	sharedkeeper.OnCommit(ctx, func() {
		label := poolLabel(pool.Id)
		counter := k.metrics.LiquidityRemoved
		if added {
			counter = k.metrics.LiquidityAdded
		}
		counter.WithLabelValues(label, pool.Pair.Base).Add(intToFloat(amountA))
		counter.WithLabelValues(label, pool.Pair.Quote).Add(intToFloat(amountB))
		k.recordReserves(&pool)
	})
}
