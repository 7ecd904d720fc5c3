// Package trigger implements the keeper bot: a background loop that sweeps
// the engine for records whose trigger condition holds and fires the
// matching permissionless operation. The bot holds no privileges; racing
// another keeper on the same record costs one InvalidState error.
package trigger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/solrush/rush/app/telemetry"
	ammtypes "github.com/solrush/rush/x/amm/types"
	dcatypes "github.com/solrush/rush/x/dca/types"
	orderbooktypes "github.com/solrush/rush/x/orderbook/types"
	perptypes "github.com/solrush/rush/x/perp/types"
	"github.com/solrush/rush/x/shared/abci"
)

// Engine is the part of the engine the bot drives.
type Engine interface {
	Pools(ctx context.Context) ([]ammtypes.Pool, error)
	SpotPrice(ctx context.Context, poolID uint64) (math.Int, error)

	AllOpenLimitOrders(ctx context.Context) ([]*orderbooktypes.LimitOrder, error)
	ExecuteLimitOrder(ctx context.Context, executor sdk.AccAddress, id orderbooktypes.OrderID) (*orderbooktypes.LimitOrder, sdk.Events, error)
	ProcessExpiredOrders(ctx context.Context, caller sdk.AccAddress) (int, sdk.Events, error)

	DueDCAOrders(ctx context.Context) ([]*dcatypes.DCAOrder, error)
	ExecuteDCAOrder(ctx context.Context, executor sdk.AccAddress, id dcatypes.OrderID) (*dcatypes.DCAOrder, sdk.Events, error)

	LiquidatablePositions(ctx context.Context, poolID uint64) ([]*perptypes.Position, error)
	Liquidate(ctx context.Context, liquidator sdk.AccAddress, id perptypes.PositionID) (*perptypes.Position, sdk.Events, error)
}

// Config tunes the bot.
type Config struct {
	// Executor is the account credited with liquidation fees.
	Executor sdk.AccAddress
	// Interval between sweeps.
	Interval time.Duration
	// TriggersPerSecond caps the operations fired per second; Burst is the
	// limiter bucket size.
	TriggersPerSecond float64
	Burst             int
	// OnSweep, when set, receives the report of every completed sweep.
	OnSweep func(Report)
	// Telemetry traces sweeps. Optional.
	Telemetry *telemetry.Provider
}

// DefaultConfig returns the bot defaults.
func DefaultConfig(executor sdk.AccAddress) Config {
	return Config{
		Executor:          executor,
		Interval:          5 * time.Second,
		TriggersPerSecond: 50,
		Burst:             10,
	}
}

// Report summarizes one sweep.
type Report struct {
	RunID         string `json:"run_id"`
	Sweep         uint64 `json:"sweep"`
	Expired       int    `json:"expired"`
	LimitExecuted int    `json:"limit_executed"`
	DCAExecuted   int    `json:"dca_executed"`
	Liquidated    int    `json:"liquidated"`
	Failed        int    `json:"failed"`
}

// Bot sweeps the engine for eligible triggers.
type Bot struct {
	engine  Engine
	cfg     Config
	limiter *rate.Limiter
	logger  log.Logger
	metrics *TriggerMetrics

	runID  string
	sweeps atomic.Uint64

	orderErrors *abci.SweepErrorHandler
	dcaErrors   *abci.SweepErrorHandler
	perpErrors  *abci.SweepErrorHandler
}

// NewBot creates a bot with a fresh run identifier.
func NewBot(engine Engine, cfg Config, logger log.Logger) (*Bot, error) {
	if cfg.Executor.Empty() {
		return nil, fmt.Errorf("executor address is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", cfg.Interval)
	}
	if cfg.TriggersPerSecond <= 0 || cfg.Burst <= 0 {
		return nil, fmt.Errorf("invalid trigger rate %.2f/s burst %d", cfg.TriggersPerSecond, cfg.Burst)
	}

	runID := uuid.New().String()
	logger = logger.With("module", "trigger", "run_id", runID)
	return &Bot{
		engine:      engine,
		cfg:         cfg,
		limiter:     rate.NewLimiter(rate.Limit(cfg.TriggersPerSecond), cfg.Burst),
		logger:      logger,
		metrics:     NewTriggerMetrics(),
		runID:       runID,
		orderErrors: abci.NewSweepErrorHandler(logger, orderbooktypes.ModuleName),
		dcaErrors:   abci.NewSweepErrorHandler(logger, dcatypes.ModuleName),
		perpErrors:  abci.NewSweepErrorHandler(logger, perptypes.ModuleName),
	}, nil
}

// RunID identifies this bot instance in logs and spans.
func (b *Bot) RunID() string { return b.runID }

// Run sweeps every Interval until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("keeper bot started", "interval", b.cfg.Interval.String(), "executor", b.cfg.Executor.String())

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		report, err := b.Sweep(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			b.logger.Error("sweep aborted", "error", err.Error())
		case b.cfg.OnSweep != nil:
			b.cfg.OnSweep(report)
		}

		select {
		case <-ctx.Done():
			b.logger.Info("keeper bot stopped", "sweeps", b.sweeps.Load())
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep runs one pass: expire stale limit orders, then fire executable limit
// orders, due DCA cycles and liquidations. Failed triggers are counted in the
// report; only a failure to read engine state or a cancelled context aborts
// the pass.
func (b *Bot) Sweep(ctx context.Context) (Report, error) {
	n := b.sweeps.Add(1)
	ctx, span := b.cfg.Telemetry.StartSweepSpan(ctx, b.runID, n)
	defer span.End()

	start := time.Now()
	report := Report{RunID: b.runID, Sweep: n}
	defer func() {
		b.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	steps := []func(context.Context, *Report) error{
		b.expireOrders,
		b.executeLimitOrders,
		b.executeDCAOrders,
		b.liquidatePositions,
	}
	for _, step := range steps {
		if err := step(ctx, &report); err != nil {
			telemetry.RecordError(span, err)
			return report, err
		}
	}

	if report.Failed > 0 || report.Expired+report.LimitExecuted+report.DCAExecuted+report.Liquidated > 0 {
		b.logger.Info("sweep finished",
			"sweep", n,
			"expired", report.Expired,
			"limit_executed", report.LimitExecuted,
			"dca_executed", report.DCAExecuted,
			"liquidated", report.Liquidated,
			"failed", report.Failed,
		)
	}
	return report, nil
}

func (b *Bot) expireOrders(ctx context.Context, report *Report) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	expired, _, err := b.engine.ProcessExpiredOrders(ctx, b.cfg.Executor)
	if b.orderErrors.WrapError("process_expired_orders", "*", err) {
		report.Failed++
		b.metrics.record(orderbooktypes.ModuleName, false)
		return nil
	}
	report.Expired = expired
	b.metrics.Expired.Add(float64(expired))
	return nil
}

func (b *Bot) executeLimitOrders(ctx context.Context, report *Report) error {
	orders, err := b.engine.AllOpenLimitOrders(ctx)
	if err != nil {
		return fmt.Errorf("list open limit orders: %w", err)
	}

	prices := make(map[uint64]math.Int)
	for _, order := range orders {
		price, ok := prices[order.PoolID]
		if !ok {
			if price, err = b.engine.SpotPrice(ctx, order.PoolID); err != nil {
				b.orderErrors.HandleError("spot_price", fmt.Sprintf("pool/%d", order.PoolID), err)
				continue
			}
			prices[order.PoolID] = price
		}
		if !order.PriceSatisfied(price) {
			continue
		}

		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		_, _, err := b.engine.ExecuteLimitOrder(ctx, b.cfg.Executor, order.ID())
		if b.orderErrors.WrapError("execute_limit_order", order.ID().String(), err) {
			report.Failed++
			b.metrics.record(orderbooktypes.ModuleName, false)
			continue
		}
		report.LimitExecuted++
		b.metrics.record(orderbooktypes.ModuleName, true)
		// The fill moved the pool price; re-read it for the next order.
		delete(prices, order.PoolID)
	}
	return nil
}

func (b *Bot) executeDCAOrders(ctx context.Context, report *Report) error {
	orders, err := b.engine.DueDCAOrders(ctx)
	if err != nil {
		return fmt.Errorf("list due dca orders: %w", err)
	}

	for _, order := range orders {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		_, _, err := b.engine.ExecuteDCAOrder(ctx, b.cfg.Executor, order.ID())
		if b.dcaErrors.WrapError("execute_dca_order", order.ID().String(), err) {
			report.Failed++
			b.metrics.record(dcatypes.ModuleName, false)
			continue
		}
		report.DCAExecuted++
		b.metrics.record(dcatypes.ModuleName, true)
	}
	return nil
}

func (b *Bot) liquidatePositions(ctx context.Context, report *Report) error {
	pools, err := b.engine.Pools(ctx)
	if err != nil {
		return fmt.Errorf("list pools: %w", err)
	}

	for _, pool := range pools {
		positions, err := b.engine.LiquidatablePositions(ctx, pool.Id)
		if err != nil {
			b.perpErrors.HandleError("liquidatable_positions", fmt.Sprintf("pool/%d", pool.Id), err)
			continue
		}
		for _, position := range positions {
			if err := b.limiter.Wait(ctx); err != nil {
				return err
			}
			_, _, err := b.engine.Liquidate(ctx, b.cfg.Executor, position.ID())
			if b.perpErrors.WrapError("liquidate", position.ID().String(), err) {
				report.Failed++
				b.metrics.record(perptypes.ModuleName, false)
				continue
			}
			report.Liquidated++
			b.metrics.record(perptypes.ModuleName, true)
		}
	}
	return nil
}
