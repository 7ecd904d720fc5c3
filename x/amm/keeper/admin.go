package keeper

import (
	"context"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/amm/types"
	sharedkeeper "github.com/solrush/rush/x/shared/keeper"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// IsPaused reports whether swaps on the pool are halted.
func (k Keeper) IsPaused(ctx context.Context, poolID uint64) (bool, error) {
	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return false, err
	}
	return pool.Paused, nil
}

// SetPaused pauses or resumes swaps on a pool. Only the authority may call it.
// Liquidity can still be added and removed while a pool is paused.
func (k Keeper) SetPaused(ctx context.Context, authority sdk.AccAddress, poolID uint64, paused bool) error {
	if err := sharedkeeper.ValidateAuthority(k.authority, authority.String()); err != nil {
		return err
	}

	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return err
	}
	if pool.Paused == paused {
		return sharedtypes.ErrInvalidState.Wrapf("pool %d paused=%t already", poolID, paused)
	}

	pool.Paused = paused
	if err := k.SetPool(ctx, pool); err != nil {
		return err
	}

	eventType := types.EventTypePoolResumed
	if paused {
		eventType = types.EventTypePoolPaused
	}
	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(eventType, sdk.NewAttribute(types.AttributeKeyPoolID, fmt.Sprintf("%d", poolID))),
	)

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.PoolPaused.WithLabelValues(poolLabel(poolID)).Set(boolGauge(paused))
	})
	k.Logger(ctx).Info("pool pause state changed", "pool_id", poolID, "paused", paused)
	return nil
}

// UpdateFeeRate changes a pool's swap fee. Only the authority may call it.
func (k Keeper) UpdateFeeRate(ctx context.Context, authority sdk.AccAddress, poolID uint64, feeRateBps uint32) error {
	if err := sharedkeeper.ValidateAuthority(k.authority, authority.String()); err != nil {
		return err
	}
	if feeRateBps > types.MaxFeeRateBps {
		return sharedtypes.ErrInvalidFeeRate.Wrapf("%d bps exceeds maximum %d", feeRateBps, types.MaxFeeRateBps)
	}

	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return err
	}
	oldRate := pool.FeeRateBps
	pool.FeeRateBps = feeRateBps
	if err := k.SetPool(ctx, pool); err != nil {
		return err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeFeeRateUpdated,
			sdk.NewAttribute(types.AttributeKeyPoolID, fmt.Sprintf("%d", poolID)),
			sdk.NewAttribute(types.AttributeKeyOldRate, fmt.Sprintf("%d", oldRate)),
			sdk.NewAttribute(types.AttributeKeyFeeRate, fmt.Sprintf("%d", feeRateBps)),
		),
	)

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.PoolFeeTier.WithLabelValues(poolLabel(poolID)).Set(float64(feeRateBps))
	})
	return nil
}
