package keeper

import (
	"context"
	"fmt"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/amm/types"
	"github.com/solrush/rush/x/shared/pricing"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// Swap trades amountIn against the pool in the direction given by side and
// credits the output to trader. All checks run before any balance moves:
// a paused pool, an empty pool or an output below minOut abort the swap.
func (k Keeper) Swap(
	ctx context.Context,
	trader sdk.AccAddress,
	poolID uint64,
	side sharedtypes.Side,
	amountIn, minOut math.Int,
) (*types.SwapResult, error) {
	start := time.Now()

	if err := side.Validate(); err != nil {
		return nil, err
	}
	if !amountIn.IsPositive() {
		return nil, sharedtypes.ErrZeroAmount.Wrap("swap amount")
	}

	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if pool.Paused {
		k.metrics.SwapsTotal.WithLabelValues(poolLabel(poolID), side.String(), "paused").Inc()
		return nil, sharedtypes.ErrPoolPaused.Wrapf("pool %d", poolID)
	}

	leg, err := pool.Leg(side)
	if err != nil {
		return nil, err
	}
	amountOut, err := pricing.SwapOutput(amountIn, leg.ReserveIn, leg.ReserveOut, pool.FeeRateBps)
	if err != nil {
		return nil, err
	}
	if amountOut.IsZero() || amountOut.LT(minOut) {
		k.metrics.SwapsTotal.WithLabelValues(poolLabel(poolID), side.String(), "slippage").Inc()
		return nil, sharedtypes.ErrSlippageExceeded.Wrapf("output %s%s below minimum %s", amountOut, leg.DenomOut, minOut)
	}
	fee, err := pricing.SwapFee(amountIn, pool.FeeRateBps)
	if err != nil {
		return nil, err
	}

	newReserveIn, err := pricing.SafeAdd(leg.ReserveIn, amountIn)
	if err != nil {
		return nil, err
	}
	newReserveOut, err := pricing.SafeSub(leg.ReserveOut, amountOut)
	if err != nil {
		return nil, err
	}
	if err := checkConstantProduct(leg.ReserveIn, leg.ReserveOut, newReserveIn, newReserveOut); err != nil {
		return nil, err
	}

	vault, err := k.vault(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if err := k.ledger.Transfer(ctx, trader, vault, sdk.NewCoin(leg.DenomIn, amountIn)); err != nil {
		return nil, err
	}
	if err := k.ledger.Transfer(ctx, vault, trader, sdk.NewCoin(leg.DenomOut, amountOut)); err != nil {
		return nil, err
	}

	if side == sharedtypes.SideSell {
		pool.ReserveA, pool.ReserveB = newReserveIn, newReserveOut
		pool.VolumeA = pool.VolumeA.Add(amountIn)
		pool.FeesA = pool.FeesA.Add(fee)
	} else {
		pool.ReserveB, pool.ReserveA = newReserveIn, newReserveOut
		pool.VolumeB = pool.VolumeB.Add(amountIn)
		pool.FeesB = pool.FeesB.Add(fee)
	}
	if err := k.SetPool(ctx, pool); err != nil {
		return nil, err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeSwap,
			sdk.NewAttribute(types.AttributeKeyPoolID, fmt.Sprintf("%d", poolID)),
			sdk.NewAttribute(types.AttributeKeyTrader, trader.String()),
			sdk.NewAttribute(types.AttributeKeySide, side.String()),
			sdk.NewAttribute(types.AttributeKeyAmountIn, sdk.NewCoin(leg.DenomIn, amountIn).String()),
			sdk.NewAttribute(types.AttributeKeyAmountOut, sdk.NewCoin(leg.DenomOut, amountOut).String()),
			sdk.NewAttribute(types.AttributeKeyFee, fee.String()),
		),
	)

	result := &types.SwapResult{
		PoolID:    poolID,
		Side:      side,
		DenomIn:   leg.DenomIn,
		DenomOut:  leg.DenomOut,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Fee:       fee,
	}
	k.recordSwap(ctx, *pool, *result, time.Since(start))

	k.Logger(ctx).Debug("swap executed",
		"pool_id", poolID,
		"side", side.String(),
		"amount_in", amountIn.String(),
		"amount_out", amountOut.String(),
	)
	return result, nil
}

// SwapExact is the entry point other components trade through.
func (k Keeper) SwapExact(ctx context.Context, trader sdk.AccAddress, poolID uint64, side sharedtypes.Side, amountIn, minOut math.Int) (math.Int, error) {
	result, err := k.Swap(ctx, trader, poolID, side, amountIn, minOut)
	if err != nil {
		return math.Int{}, err
	}
	return result.AmountOut, nil
}

// checkConstantProduct rejects any state change that would shrink k.
func checkConstantProduct(oldIn, oldOut, newIn, newOut math.Int) error {
	oldK, err := pricing.SafeMul(oldIn, oldOut)
	if err != nil {
		return err
	}
	newK, err := pricing.SafeMul(newIn, newOut)
	if err != nil {
		return err
	}
	if newK.LT(oldK) {
		return sharedtypes.ErrInvariantBroken.Wrapf("constant product decreased from %s to %s", oldK, newK)
	}
	return nil
}
