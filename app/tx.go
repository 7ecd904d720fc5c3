package app

import (
	"context"
	"errors"
	"time"

	sdktelemetry "github.com/cosmos/cosmos-sdk/telemetry"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/hashicorp/go-metrics"
	"go.opentelemetry.io/otel/attribute"

	"github.com/solrush/rush/app/telemetry"
	sharedkeeper "github.com/solrush/rush/x/shared/keeper"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// operation describes one engine transaction.
type operation struct {
	module string
	name   string
	caller sdk.AccAddress

	// locks are the pools, accounts and registries the operation may write.
	locks []string
	// exclusive operations wait for every other operation to finish.
	exclusive bool
}

// commits reports whether an operation that returned err still writes its
// state. An expired limit order is refunded and marked Expired even though
// the execution attempt fails.
func commits(err error) bool {
	return err == nil || errors.Is(err, sharedtypes.ErrOrderExpired)
}

// execute runs fn as one transaction. fn sees a cached multistore that is
// written back only when commits(err) holds; otherwise every store write,
// ledger transfer and queued collector update fn made is discarded. The
// returned events are those fn emitted.
func execute[T any](ctx context.Context, app *App, op operation, fn func(ctx sdk.Context) (T, error)) (res T, events sdk.Events, err error) {
	start := time.Now()
	ctx, span := app.tel.StartOperationSpan(ctx, op.module, op.name, op.caller.String())
	defer span.End()

	var release func()
	if op.exclusive {
		release = app.locks.AcquireAll()
	} else {
		release = app.locks.Acquire(op.locks...)
	}
	defer release()

	height := app.height.Add(1)

	app.storeMu.RLock()
	cacheCtx, write := app.newContext(ctx, height).CacheContext()
	cacheCtx, pending := sharedkeeper.WithPendingMetrics(cacheCtx)
	res, err = fn(cacheCtx)
	app.storeMu.RUnlock()

	status := "success"
	if commits(err) {
		app.storeMu.Lock()
		write()
		app.storeMu.Unlock()
		pending.Flush()
		events = cacheCtx.EventManager().Events()
		if err != nil {
			status = "committed_error"
		}
	} else {
		status = sharedtypes.Class(err).String()
	}

	if err != nil {
		telemetry.RecordError(span, err)
		app.logger.Debug("operation failed",
			"operation", op.name,
			"caller", op.caller.String(),
			"class", sharedtypes.Class(err).String(),
			"error", err.Error(),
		)
	} else {
		telemetry.SetSpanStatus(span, true, "")
	}
	telemetry.AddSpanAttributes(span,
		attribute.Int64("engine.height", height),
		attribute.Int("engine.events", len(events)),
	)
	app.opMetrics.RecordOperation(ctx, op.module, op.name, status, height, time.Since(start))
	sdktelemetry.IncrCounterWithLabels(
		[]string{"engine", "operations"},
		1,
		[]metrics.Label{
			sdktelemetry.NewLabel("module", op.module),
			sdktelemetry.NewLabel("operation", op.name),
			sdktelemetry.NewLabel("status", status),
		},
	)

	return res, events, err
}

// query runs fn against the committed state. Writes fn makes go to a
// throwaway cache.
func query[T any](ctx context.Context, app *App, fn func(ctx sdk.Context) (T, error)) (T, error) {
	app.storeMu.RLock()
	defer app.storeMu.RUnlock()

	cacheCtx, _ := app.newContext(ctx, app.height.Load()).CacheContext()
	return fn(cacheCtx)
}
