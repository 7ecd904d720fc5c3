package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/orderbook/types"
	"github.com/solrush/rush/x/shared/pricing"
	sharedkeeper "github.com/solrush/rush/x/shared/keeper"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// PlaceLimitOrder escrows amountIn and records a new open order in the
// pool's book.
//
// Parameters:
//   - side: buy pays the quote token, sell pays the base token
//   - limitPrice: quote per base, scaled by pricing.PriceScale
//   - slippageToleranceBps: allowed output shortfall against the limit price
//   - expiresAt: unix timestamp after which the order can no longer execute; 0 disables expiry
//
// The order is not matched here. Execution is triggered separately by any
// caller through ExecuteLimitOrder.
func (k Keeper) PlaceLimitOrder(
	ctx context.Context,
	owner sdk.AccAddress,
	poolID uint64,
	side sharedtypes.Side,
	amountIn math.Int,
	limitPrice math.Int,
	slippageToleranceBps uint32,
	expiresAt int64,
) (*types.LimitOrder, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	now := sdkCtx.BlockTime().Unix()

	if err := side.Validate(); err != nil {
		return nil, err
	}
	if !amountIn.IsPositive() {
		return nil, sharedtypes.ErrZeroAmount.Wrap("order amount")
	}
	if !limitPrice.IsPositive() {
		return nil, sharedtypes.ErrInvalidLimitPrice.Wrap("limit price must be positive")
	}
	if slippageToleranceBps > pricing.BpsDenominator {
		return nil, sharedtypes.ErrInvalidSlippageTolerance.Wrapf("%d bps", slippageToleranceBps)
	}
	if expiresAt != 0 && expiresAt <= now {
		return nil, sharedtypes.ErrInvalidExpiration.Wrapf("expires at %d, now %d", expiresAt, now)
	}

	pool, err := k.pools.GetPoolInfo(ctx, poolID)
	if err != nil {
		return nil, err
	}

	order := &types.LimitOrder{
		PoolID:               poolID,
		Seq:                  k.GetNextOrderSeq(ctx, poolID),
		Owner:                owner.String(),
		Side:                 side,
		DenomIn:              pool.DenomIn(side),
		DenomOut:             pool.DenomOut(side),
		AmountIn:             amountIn,
		LimitPrice:           limitPrice,
		SlippageToleranceBps: slippageToleranceBps,
		ExpiresAt:            expiresAt,
		EscrowedAmount:       amountIn,
		AmountOut:            math.ZeroInt(),
		Status:               types.OrderStatusOpen,
		CreatedAt:            now,
	}

	escrow, err := k.escrow(ctx, owner, order.ID())
	if err != nil {
		return nil, err
	}
	if err := k.ledger.Transfer(ctx, owner, escrow, sdk.NewCoin(order.DenomIn, amountIn)); err != nil {
		return nil, err
	}
	if err := k.SetLimitOrder(ctx, order); err != nil {
		return nil, err
	}

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeOrderPlaced,
			sdk.NewAttribute(types.AttributeKeyOrderID, order.ID().String()),
			sdk.NewAttribute(types.AttributeKeyOwner, order.Owner),
			sdk.NewAttribute(types.AttributeKeySide, side.String()),
			sdk.NewAttribute(types.AttributeKeyAmountIn, sdk.NewCoin(order.DenomIn, amountIn).String()),
			sdk.NewAttribute(types.AttributeKeyLimitPrice, limitPrice.String()),
		),
	)

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.OrdersTotal.WithLabelValues(poolLabel(poolID), "placed").Inc()
	})
	return order, nil
}

// CancelLimitOrder refunds the escrow of an open order to its owner.
func (k Keeper) CancelLimitOrder(ctx context.Context, caller sdk.AccAddress, id types.OrderID) (*types.LimitOrder, error) {
	order, err := k.GetLimitOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Owner != caller.String() {
		return nil, sharedtypes.ErrUnauthorized.Wrapf("order %s belongs to %s", id, order.Owner)
	}
	if order.Status.IsTerminal() {
		return nil, sharedtypes.ErrInvalidState.Wrapf("order %s is %s", id, order.Status)
	}

	if err := k.release(ctx, order, types.OrderStatusCancelled); err != nil {
		return nil, err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeOrderCancelled,
			sdk.NewAttribute(types.AttributeKeyOrderID, id.String()),
			sdk.NewAttribute(types.AttributeKeyOwner, order.Owner),
			sdk.NewAttribute(types.AttributeKeyRefund, sdk.NewCoin(order.DenomIn, order.EscrowedAmount).String()),
		),
	)

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.OrdersTotal.WithLabelValues(poolLabel(id.PoolID), "cancelled").Inc()
	})
	return order, nil
}

// ExecuteLimitOrder swaps an order's full escrow through its pool once the
// pool price satisfies the limit. Any caller may trigger it; the status check
// makes execution at-most-once.
//
// An order past its expiry is refunded and marked Expired, and the call still
// returns ErrOrderExpired so the caller learns why nothing was traded. That
// refund is the only state change made on an error return.
func (k Keeper) ExecuteLimitOrder(ctx context.Context, executor sdk.AccAddress, id types.OrderID) (*types.LimitOrder, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	order, err := k.GetLimitOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, sharedtypes.ErrInvalidState.Wrapf("order %s is %s", id, order.Status)
	}
	if order.IsExpired(sdkCtx.BlockTime().Unix()) {
		if err := k.expire(ctx, order); err != nil {
			return nil, err
		}
		return order, sharedtypes.ErrOrderExpired.Wrapf("order %s expired at %d", id, order.ExpiresAt)
	}

	price, err := k.pools.SpotPrice(ctx, order.PoolID)
	if err != nil {
		return nil, err
	}
	if !order.PriceSatisfied(price) {
		k.metrics.OrdersTotal.WithLabelValues(poolLabel(id.PoolID), "not_executable").Inc()
		return nil, sharedtypes.ErrOrderNotExecutable.Wrapf(
			"%s order %s: pool price %s, limit %s", order.Side, id, price, order.LimitPrice)
	}
	minOut, err := order.MinimumOut()
	if err != nil {
		return nil, err
	}

	owner, err := sdk.AccAddressFromBech32(order.Owner)
	if err != nil {
		return nil, err
	}
	escrow, err := k.escrow(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	amountOut, err := k.pools.SwapExact(ctx, escrow, order.PoolID, order.Side, order.EscrowedAmount, minOut)
	if err != nil {
		return nil, err
	}
	if err := k.ledger.Transfer(ctx, escrow, owner, sdk.NewCoin(order.DenomOut, amountOut)); err != nil {
		return nil, err
	}

	order.AmountOut = amountOut
	order.Status = types.OrderStatusFilled
	order.ClosedAt = sdkCtx.BlockTime().Unix()
	if err := k.SetLimitOrder(ctx, order); err != nil {
		return nil, err
	}

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeOrderExecuted,
			sdk.NewAttribute(types.AttributeKeyOrderID, id.String()),
			sdk.NewAttribute(types.AttributeKeyOwner, order.Owner),
			sdk.NewAttribute(types.AttributeKeyExecutor, executor.String()),
			sdk.NewAttribute(types.AttributeKeyAmountIn, sdk.NewCoin(order.DenomIn, order.EscrowedAmount).String()),
			sdk.NewAttribute(types.AttributeKeyAmountOut, sdk.NewCoin(order.DenomOut, amountOut).String()),
			sdk.NewAttribute(types.AttributeKeyPoolPrice, price.String()),
		),
	)

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.OrdersTotal.WithLabelValues(poolLabel(id.PoolID), "filled").Inc()
	})
	k.Logger(ctx).Info("limit order executed",
		"order_id", id.String(),
		"executor", executor.String(),
		"amount_out", amountOut.String(),
	)
	return order, nil
}

// ProcessExpiredOrders refunds and closes every open order whose expiry has
// passed. It returns the number of orders expired.
func (k Keeper) ProcessExpiredOrders(ctx context.Context) (int, error) {
	now := sdk.UnwrapSDKContext(ctx).BlockTime().Unix()

	// Collect first: the open index is modified while expiring.
	var expired []*types.LimitOrder
	if err := k.IterateAllOpenOrders(ctx, func(order *types.LimitOrder) bool {
		if order.IsExpired(now) {
			expired = append(expired, order)
		}
		return false
	}); err != nil {
		return 0, err
	}

	for _, order := range expired {
		if err := k.expire(ctx, order); err != nil {
			return 0, err
		}
	}
	return len(expired), nil
}

func (k Keeper) expire(ctx context.Context, order *types.LimitOrder) error {
	if err := k.release(ctx, order, types.OrderStatusExpired); err != nil {
		return err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeOrderExpired,
			sdk.NewAttribute(types.AttributeKeyOrderID, order.ID().String()),
			sdk.NewAttribute(types.AttributeKeyOwner, order.Owner),
			sdk.NewAttribute(types.AttributeKeyRefund, sdk.NewCoin(order.DenomIn, order.EscrowedAmount).String()),
		),
	)

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.OrdersTotal.WithLabelValues(poolLabel(order.PoolID), "expired").Inc()
	})
	return nil
}

// release refunds the escrow to the owner and moves the order to a terminal status.
func (k Keeper) release(ctx context.Context, order *types.LimitOrder, status types.OrderStatus) error {
	owner, err := sdk.AccAddressFromBech32(order.Owner)
	if err != nil {
		return err
	}
	escrow, err := k.escrow(ctx, owner, order.ID())
	if err != nil {
		return err
	}
	if err := k.ledger.Transfer(ctx, escrow, owner, sdk.NewCoin(order.DenomIn, order.EscrowedAmount)); err != nil {
		return err
	}

	order.Status = status
	order.ClosedAt = sdk.UnwrapSDKContext(ctx).BlockTime().Unix()
	return k.SetLimitOrder(ctx, order)
}
