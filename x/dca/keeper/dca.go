package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/dca/types"
	"github.com/solrush/rush/x/shared/pricing"
	sharedkeeper "github.com/solrush/rush/x/shared/keeper"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// DCAOrderParams are the caller-chosen terms of a recurring order.
type DCAOrderParams struct {
	PoolID                uint64
	Side                  sharedtypes.Side
	AmountPerCycle        math.Int
	TotalCycles           uint64
	CycleFrequencySeconds int64
	SlippageToleranceBps  uint32
	MinPrice              math.Int
	MaxPrice              math.Int
}

// Validate checks the stateless order terms.
func (p DCAOrderParams) Validate() error {
	if err := p.Side.Validate(); err != nil {
		return err
	}
	if p.AmountPerCycle.IsNil() || !p.AmountPerCycle.IsPositive() {
		return sharedtypes.ErrZeroAmount.Wrap("amount per cycle")
	}
	if p.TotalCycles == 0 {
		return sharedtypes.ErrZeroAmount.Wrap("total cycles")
	}
	if p.CycleFrequencySeconds <= 0 {
		return sharedtypes.ErrInvalidCycleFrequency.Wrapf("%d seconds", p.CycleFrequencySeconds)
	}
	if p.SlippageToleranceBps > pricing.BpsDenominator {
		return sharedtypes.ErrInvalidSlippageTolerance.Wrapf("%d bps", p.SlippageToleranceBps)
	}
	if p.MinPrice.IsNegative() || p.MaxPrice.IsNegative() {
		return sharedtypes.ErrInvalidPriceRange.Wrap("negative bound")
	}
	if p.MinPrice.IsPositive() && p.MaxPrice.IsPositive() && p.MinPrice.GT(p.MaxPrice) {
		return sharedtypes.ErrInvalidPriceRange.Wrapf("min %s above max %s", p.MinPrice, p.MaxPrice)
	}
	return nil
}

// CreateDCAOrder escrows amountPerCycle·totalCycles and schedules the first
// cycle for now.
func (k Keeper) CreateDCAOrder(ctx context.Context, owner sdk.AccAddress, params DCAOrderParams) (*types.DCAOrder, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	now := sdkCtx.BlockTime().Unix()

	if params.MinPrice.IsNil() {
		params.MinPrice = math.ZeroInt()
	}
	if params.MaxPrice.IsNil() {
		params.MaxPrice = math.ZeroInt()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	pool, err := k.pools.GetPoolInfo(ctx, params.PoolID)
	if err != nil {
		return nil, err
	}
	total, err := pricing.SafeMul(params.AmountPerCycle, math.NewIntFromUint64(params.TotalCycles))
	if err != nil {
		return nil, err
	}
	// The last cycle schedules a run at now + freq*totalCycles; that must
	// stay a valid unix time.
	span := math.NewInt(params.CycleFrequencySeconds).Mul(math.NewIntFromUint64(params.TotalCycles))
	if end := span.AddRaw(now); !end.IsInt64() {
		return nil, sharedtypes.ErrInvalidCycleFrequency.Wrapf("%d cycles every %d seconds run past the end of time", params.TotalCycles, params.CycleFrequencySeconds)
	}

	order := &types.DCAOrder{
		Owner:                 owner.String(),
		Seq:                   k.GetNextOrderSeq(ctx, owner),
		PoolID:                params.PoolID,
		Side:                  params.Side,
		DenomIn:               pool.DenomIn(params.Side),
		DenomOut:              pool.DenomOut(params.Side),
		AmountPerCycle:        params.AmountPerCycle,
		TotalCycles:           params.TotalCycles,
		CycleFrequencySeconds: params.CycleFrequencySeconds,
		NextExecutionTime:     now,
		SlippageToleranceBps:  params.SlippageToleranceBps,
		MinPrice:              params.MinPrice,
		MaxPrice:              params.MaxPrice,
		EscrowRemaining:       total,
		TotalAmountOut:        math.ZeroInt(),
		Status:                types.DCAStatusOpen,
		CreatedAt:             now,
	}

	escrow, err := k.escrow(ctx, order.ID())
	if err != nil {
		return nil, err
	}
	if err := k.ledger.Transfer(ctx, owner, escrow, sdk.NewCoin(order.DenomIn, total)); err != nil {
		return nil, err
	}
	if err := k.setDCAOrder(ctx, order, now); err != nil {
		return nil, err
	}

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeDCACreated,
			sdk.NewAttribute(types.AttributeKeyOrderID, order.ID().String()),
			sdk.NewAttribute(types.AttributeKeyPoolID, fmt.Sprintf("%d", order.PoolID)),
			sdk.NewAttribute(types.AttributeKeySide, order.Side.String()),
			sdk.NewAttribute(types.AttributeKeyAmountPerCycle, sdk.NewCoin(order.DenomIn, order.AmountPerCycle).String()),
			sdk.NewAttribute(types.AttributeKeyTotalCycles, fmt.Sprintf("%d", order.TotalCycles)),
		),
	)

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.OrdersTotal.WithLabelValues("created").Inc()
	})
	return order, nil
}

// ExecuteDCAOrder runs one cycle of a due order. Any caller may trigger it.
func (k Keeper) ExecuteDCAOrder(ctx context.Context, executor sdk.AccAddress, id types.OrderID) (*types.DCAOrder, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	now := sdkCtx.BlockTime().Unix()

	order, err := k.GetDCAOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, sharedtypes.ErrInvalidState.Wrapf("dca order %s is %s", id, order.Status)
	}
	if !order.IsDue(now) {
		k.metrics.CyclesTotal.WithLabelValues("too_early").Inc()
		return nil, sharedtypes.ErrTooEarly.Wrapf("dca order %s next runs at %d, now %d", id, order.NextExecutionTime, now)
	}
	next, err := pricing.SafeAddInt64(order.NextExecutionTime, order.CycleFrequencySeconds)
	if err != nil {
		return nil, err
	}

	price, err := k.pools.SpotPrice(ctx, order.PoolID)
	if err != nil {
		return nil, err
	}
	if !order.PriceInRange(price) {
		k.metrics.CyclesTotal.WithLabelValues("out_of_range").Inc()
		return nil, sharedtypes.ErrPriceOutOfRange.Wrapf("pool price %s outside [%s, %s]", price, order.MinPrice, order.MaxPrice)
	}

	pool, err := k.pools.GetPoolInfo(ctx, order.PoolID)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut := pool.Reserves(order.Side)
	expected, err := pricing.SpotOutput(order.AmountPerCycle, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}
	minOut, err := pricing.ApplySlippage(expected, order.SlippageToleranceBps)
	if err != nil {
		return nil, err
	}

	escrow, err := k.escrow(ctx, id)
	if err != nil {
		return nil, err
	}
	amountOut, err := k.pools.SwapExact(ctx, escrow, order.PoolID, order.Side, order.AmountPerCycle, minOut)
	if err != nil {
		return nil, err
	}
	if err := k.ledger.Transfer(ctx, escrow, id.Owner, sdk.NewCoin(order.DenomOut, amountOut)); err != nil {
		return nil, err
	}

	prevNext := order.NextExecutionTime
	order.CyclesExecuted++
	order.NextExecutionTime = next
	order.EscrowRemaining = order.EscrowRemaining.Sub(order.AmountPerCycle)
	order.TotalAmountOut = order.TotalAmountOut.Add(amountOut)
	order.LastExecutedAt = now
	if order.CyclesExecuted == order.TotalCycles {
		order.Status = types.DCAStatusFilled
	} else {
		order.Status = types.DCAStatusPartiallyFilled
	}
	if err := k.setDCAOrder(ctx, order, prevNext); err != nil {
		return nil, err
	}

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeDCAExecuted,
			sdk.NewAttribute(types.AttributeKeyOrderID, id.String()),
			sdk.NewAttribute(types.AttributeKeyExecutor, executor.String()),
			sdk.NewAttribute(types.AttributeKeyCycle, fmt.Sprintf("%d/%d", order.CyclesExecuted, order.TotalCycles)),
			sdk.NewAttribute(types.AttributeKeyAmountOut, sdk.NewCoin(order.DenomOut, amountOut).String()),
			sdk.NewAttribute(types.AttributeKeyPoolPrice, price.String()),
			sdk.NewAttribute(types.AttributeKeyNextExecution, fmt.Sprintf("%d", order.NextExecutionTime)),
		),
	)
	if order.Status == types.DCAStatusFilled {
		sdkCtx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeDCACompleted,
				sdk.NewAttribute(types.AttributeKeyOrderID, id.String()),
				sdk.NewAttribute(types.AttributeKeyAmountOut, sdk.NewCoin(order.DenomOut, order.TotalAmountOut).String()),
			),
		)
		sharedkeeper.OnCommit(ctx, func() {
			k.metrics.OrdersTotal.WithLabelValues("filled").Inc()
		})
	}

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.CyclesTotal.WithLabelValues("executed").Inc()
	})
	k.Logger(ctx).Debug("dca cycle executed",
		"order_id", id.String(),
		"cycle", order.CyclesExecuted,
		"amount_out", amountOut.String(),
	)
	return order, nil
}

// CancelDCAOrder refunds the unspent budget and closes the order.
func (k Keeper) CancelDCAOrder(ctx context.Context, caller sdk.AccAddress, id types.OrderID) (*types.DCAOrder, error) {
	order, err := k.GetDCAOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Owner != caller.String() {
		return nil, sharedtypes.ErrUnauthorized.Wrapf("dca order %s belongs to %s", id, order.Owner)
	}
	if order.Status.IsTerminal() {
		return nil, sharedtypes.ErrInvalidState.Wrapf("dca order %s is %s", id, order.Status)
	}

	refund, err := order.ExpectedEscrow()
	if err != nil {
		return nil, err
	}
	escrow, err := k.escrow(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := k.ledger.Transfer(ctx, escrow, caller, sdk.NewCoin(order.DenomIn, refund)); err != nil {
		return nil, err
	}

	order.EscrowRemaining = math.ZeroInt()
	order.Status = types.DCAStatusCancelled
	if err := k.setDCAOrder(ctx, order, order.NextExecutionTime); err != nil {
		return nil, err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeDCACancelled,
			sdk.NewAttribute(types.AttributeKeyOrderID, id.String()),
			sdk.NewAttribute(types.AttributeKeyOwner, order.Owner),
			sdk.NewAttribute(types.AttributeKeyRefund, sdk.NewCoin(order.DenomIn, refund).String()),
		),
	)

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.OrdersTotal.WithLabelValues("cancelled").Inc()
	})
	return order, nil
}
