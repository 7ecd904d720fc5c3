package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/perp/types"
	"github.com/solrush/rush/x/shared/pricing"
	sharedkeeper "github.com/solrush/rush/x/shared/keeper"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// OpenPosition opens a leveraged position at the pool's current price and
// escrows margin in the pool's quote token.
func (k Keeper) OpenPosition(
	ctx context.Context,
	owner sdk.AccAddress,
	poolID uint64,
	side pricing.PositionSide,
	size math.Int,
	leverage uint32,
	margin math.Int,
) (*types.Position, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if side != pricing.PositionSideLong && side != pricing.PositionSideShort {
		return nil, sharedtypes.ErrInvalidSide.Wrapf("%s", side)
	}
	if !size.IsPositive() {
		return nil, sharedtypes.ErrZeroAmount.Wrap("position size")
	}
	if leverage == 0 {
		return nil, sharedtypes.ErrInvalidLeverage.Wrap("leverage must be positive")
	}
	params := k.GetParams(ctx)
	if leverage > params.MaxLeverage {
		return nil, sharedtypes.ErrMaxLeverageExceeded.Wrapf("%dx exceeds maximum %dx", leverage, params.MaxLeverage)
	}
	required, err := pricing.RequiredMargin(size, leverage)
	if err != nil {
		return nil, err
	}
	if margin.IsNil() || margin.LT(required) {
		return nil, sharedtypes.ErrInsufficientMargin.Wrapf("margin %s below required %s", margin, required)
	}

	pool, err := k.pools.GetPoolInfo(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if pool.Paused {
		return nil, sharedtypes.ErrPoolPaused.Wrapf("pool %d", poolID)
	}
	entry, err := k.pools.SpotPrice(ctx, poolID)
	if err != nil {
		return nil, err
	}
	liquidationPrice, err := pricing.LiquidationPrice(entry, leverage, side)
	if err != nil {
		return nil, err
	}

	position := &types.Position{
		Owner:             owner.String(),
		Seq:               k.GetNextPositionSeq(ctx, owner),
		PoolID:            poolID,
		Denom:             pool.Quote,
		Side:              side,
		Size:              size,
		EntryPrice:        entry,
		Leverage:          leverage,
		Margin:            margin,
		LiquidationPrice:  liquidationPrice,
		EntryFundingIndex: k.GetFundingState(ctx, poolID).CumulativeIndex,
		Status:            types.PositionStatusOpen,
		OpenedAt:          sdkCtx.BlockTime().Unix(),
		ExitPrice:         math.ZeroInt(),
		RealizedPnl:       math.ZeroInt(),
		FundingPaid:       math.ZeroInt(),
		Payout:            math.ZeroInt(),
	}

	escrow, err := k.marginEscrow(ctx, position.ID())
	if err != nil {
		return nil, err
	}
	if err := k.ledger.Transfer(ctx, owner, escrow, sdk.NewCoin(position.Denom, margin)); err != nil {
		return nil, err
	}
	if err := k.setPosition(ctx, position); err != nil {
		return nil, err
	}

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypePositionOpened,
			sdk.NewAttribute(types.AttributeKeyPositionID, position.ID().String()),
			sdk.NewAttribute(types.AttributeKeyPoolID, fmt.Sprintf("%d", poolID)),
			sdk.NewAttribute(types.AttributeKeySide, side.String()),
			sdk.NewAttribute(types.AttributeKeySize, size.String()),
			sdk.NewAttribute(types.AttributeKeyLeverage, fmt.Sprintf("%d", leverage)),
			sdk.NewAttribute(types.AttributeKeyMargin, sdk.NewCoin(position.Denom, margin).String()),
			sdk.NewAttribute(types.AttributeKeyEntryPrice, entry.String()),
			sdk.NewAttribute(types.AttributeKeyLiquidationPrice, liquidationPrice.String()),
		),
	)

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.PositionsTotal.WithLabelValues(side.String(), "opened").Inc()
		k.metrics.OpenInterest.WithLabelValues(poolLabel(poolID), side.String()).Add(intToFloat(size))
	})
	return position, nil
}

// AddMargin tops up an open position's margin. Any caller may fund it. The
// liquidation price moves to where the larger margin is exhausted, and never
// toward the entry price.
func (k Keeper) AddMargin(ctx context.Context, depositor sdk.AccAddress, id types.PositionID, amount math.Int) (*types.Position, error) {
	if !amount.IsPositive() {
		return nil, sharedtypes.ErrZeroAmount.Wrap("margin amount")
	}

	position, err := k.GetPosition(ctx, id)
	if err != nil {
		return nil, err
	}
	if position.Status != types.PositionStatusOpen {
		return nil, sharedtypes.ErrInvalidState.Wrapf("position %s is %s", id, position.Status)
	}

	margin, err := pricing.SafeAdd(position.Margin, amount)
	if err != nil {
		return nil, err
	}
	marginPrice, err := pricing.MarginLiquidationPrice(position.EntryPrice, position.Size, margin, position.Side)
	if err != nil {
		return nil, err
	}
	if position.Side == pricing.PositionSideLong {
		position.LiquidationPrice = math.MinInt(position.LiquidationPrice, marginPrice)
	} else {
		position.LiquidationPrice = math.MaxInt(position.LiquidationPrice, marginPrice)
	}

	escrow, err := k.marginEscrow(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := k.ledger.Transfer(ctx, depositor, escrow, sdk.NewCoin(position.Denom, amount)); err != nil {
		return nil, err
	}
	position.Margin = margin
	if err := k.setPosition(ctx, position); err != nil {
		return nil, err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeMarginAdded,
			sdk.NewAttribute(types.AttributeKeyPositionID, id.String()),
			sdk.NewAttribute(types.AttributeKeyDepositor, depositor.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, sdk.NewCoin(position.Denom, amount).String()),
			sdk.NewAttribute(types.AttributeKeyMargin, margin.String()),
			sdk.NewAttribute(types.AttributeKeyLiquidationPrice, position.LiquidationPrice.String()),
		),
	)
	return position, nil
}

// ClosePosition settles an open position at the current price. The owner
// receives max(0, margin + pnl ∓ funding). A shortfall against the margin is
// kept by the insurance fund, an excess is paid out of it.
func (k Keeper) ClosePosition(ctx context.Context, caller sdk.AccAddress, id types.PositionID) (*types.Position, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	position, err := k.GetPosition(ctx, id)
	if err != nil {
		return nil, err
	}
	if position.Owner != caller.String() {
		return nil, sharedtypes.ErrUnauthorized.Wrapf("position %s belongs to %s", id, position.Owner)
	}
	if position.Status != types.PositionStatusOpen {
		return nil, sharedtypes.ErrInvalidState.Wrapf("position %s is %s", id, position.Status)
	}

	price, err := k.pools.SpotPrice(ctx, position.PoolID)
	if err != nil {
		return nil, err
	}
	settlement, err := position.Settle(price, k.GetFundingState(ctx, position.PoolID).CumulativeIndex)
	if err != nil {
		return nil, err
	}

	escrow, err := k.marginEscrow(ctx, id)
	if err != nil {
		return nil, err
	}
	insurance, err := k.insuranceFund(ctx, position.PoolID)
	if err != nil {
		return nil, err
	}

	if settlement.Payout.LTE(position.Margin) {
		if err := k.ledger.Transfer(ctx, escrow, caller, sdk.NewCoin(position.Denom, settlement.Payout)); err != nil {
			return nil, err
		}
		retained := position.Margin.Sub(settlement.Payout)
		if err := k.ledger.Transfer(ctx, escrow, insurance, sdk.NewCoin(position.Denom, retained)); err != nil {
			return nil, err
		}
	} else {
		profit := settlement.Payout.Sub(position.Margin)
		available := k.ledger.GetBalance(ctx, insurance, position.Denom).Amount
		if available.LT(profit) {
			k.metrics.PositionsTotal.WithLabelValues(position.Side.String(), "insurance_short").Inc()
			return nil, sharedtypes.ErrInsufficientInsurance.Wrapf(
				"pool %d insurance holds %s, profit %s", position.PoolID, available, profit)
		}
		if err := k.ledger.Transfer(ctx, escrow, caller, sdk.NewCoin(position.Denom, position.Margin)); err != nil {
			return nil, err
		}
		if err := k.ledger.Transfer(ctx, insurance, caller, sdk.NewCoin(position.Denom, profit)); err != nil {
			return nil, err
		}
	}

	position.Status = types.PositionStatusClosed
	position.ClosedAt = sdkCtx.BlockTime().Unix()
	position.ExitPrice = price
	position.RealizedPnl = settlement.Pnl
	position.FundingPaid = settlement.Funding
	position.Payout = settlement.Payout
	if err := k.setPosition(ctx, position); err != nil {
		return nil, err
	}

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypePositionClosed,
			sdk.NewAttribute(types.AttributeKeyPositionID, id.String()),
			sdk.NewAttribute(types.AttributeKeyExitPrice, price.String()),
			sdk.NewAttribute(types.AttributeKeyPnl, settlement.Pnl.String()),
			sdk.NewAttribute(types.AttributeKeyFunding, settlement.Funding.String()),
			sdk.NewAttribute(types.AttributeKeyPayout, sdk.NewCoin(position.Denom, settlement.Payout).String()),
		),
	)

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.PositionsTotal.WithLabelValues(position.Side.String(), "closed").Inc()
		k.metrics.OpenInterest.WithLabelValues(poolLabel(position.PoolID), position.Side.String()).Sub(intToFloat(position.Size))
	})
	k.Logger(ctx).Info("position closed",
		"position_id", id.String(),
		"pnl", settlement.Pnl.String(),
		"payout", settlement.Payout.String(),
	)
	return position, nil
}

// Liquidate force-closes a position whose price has crossed its liquidation
// price. Any caller may trigger it and receives LiquidationFeeBps of the
// margin; the rest goes to the insurance fund.
func (k Keeper) Liquidate(ctx context.Context, liquidator sdk.AccAddress, id types.PositionID) (*types.Position, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	position, err := k.GetPosition(ctx, id)
	if err != nil {
		return nil, err
	}
	if position.Status != types.PositionStatusOpen {
		return nil, sharedtypes.ErrInvalidState.Wrapf("position %s is %s", id, position.Status)
	}

	price, err := k.pools.SpotPrice(ctx, position.PoolID)
	if err != nil {
		return nil, err
	}
	if !position.IsLiquidatable(price) {
		return nil, sharedtypes.ErrNotLiquidatable.Wrapf(
			"%s position %s: price %s, liquidation price %s", position.Side, id, price, position.LiquidationPrice)
	}

	fee, err := pricing.BpsOf(position.Margin, k.GetParams(ctx).LiquidationFeeBps)
	if err != nil {
		return nil, err
	}
	escrow, err := k.marginEscrow(ctx, id)
	if err != nil {
		return nil, err
	}
	insurance, err := k.insuranceFund(ctx, position.PoolID)
	if err != nil {
		return nil, err
	}
	if err := k.ledger.Transfer(ctx, escrow, liquidator, sdk.NewCoin(position.Denom, fee)); err != nil {
		return nil, err
	}
	if err := k.ledger.Transfer(ctx, escrow, insurance, sdk.NewCoin(position.Denom, position.Margin.Sub(fee))); err != nil {
		return nil, err
	}

	position.Status = types.PositionStatusLiquidated
	position.ClosedAt = sdkCtx.BlockTime().Unix()
	position.ExitPrice = price
	position.RealizedPnl = position.Margin.Neg()
	if err := k.setPosition(ctx, position); err != nil {
		return nil, err
	}

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypePositionLiquidated,
			sdk.NewAttribute(types.AttributeKeyPositionID, id.String()),
			sdk.NewAttribute(types.AttributeKeyLiquidator, liquidator.String()),
			sdk.NewAttribute(types.AttributeKeyExitPrice, price.String()),
			sdk.NewAttribute(types.AttributeKeyLiquidationPrice, position.LiquidationPrice.String()),
			sdk.NewAttribute(types.AttributeKeyLiquidatorFee, sdk.NewCoin(position.Denom, fee).String()),
		),
	)

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.PositionsTotal.WithLabelValues(position.Side.String(), "liquidated").Inc()
		k.metrics.OpenInterest.WithLabelValues(poolLabel(position.PoolID), position.Side.String()).Sub(intToFloat(position.Size))
	})
	k.Logger(ctx).Info("position liquidated",
		"position_id", id.String(),
		"liquidator", liquidator.String(),
		"price", price.String(),
	)
	return position, nil
}
