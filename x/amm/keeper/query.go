package keeper

import (
	"context"

	"cosmossdk.io/math"

	"github.com/solrush/rush/x/amm/types"
	sharedkeeper "github.com/solrush/rush/x/shared/keeper"
	"github.com/solrush/rush/x/shared/pricing"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

var _ sharedkeeper.PoolKeeperV1 = Keeper{}

// GetPoolInfo returns the pool view shared with other components.
func (k Keeper) GetPoolInfo(ctx context.Context, poolID uint64) (sharedkeeper.PoolInfo, error) {
	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return sharedkeeper.PoolInfo{}, err
	}
	return sharedkeeper.PoolInfo{
		PoolID:     pool.Id,
		Base:       pool.Pair.Base,
		Quote:      pool.Pair.Quote,
		ReserveA:   pool.ReserveA,
		ReserveB:   pool.ReserveB,
		FeeRateBps: pool.FeeRateBps,
		Paused:     pool.Paused,
	}, nil
}

// SpotPrice returns the pool's current quote price of one base unit, scaled
// by pricing.PriceScale.
func (k Keeper) SpotPrice(ctx context.Context, poolID uint64) (math.Int, error) {
	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return math.Int{}, err
	}
	return pricing.SpotPrice(pool.ReserveA, pool.ReserveB)
}

// QuoteSwap previews a swap without touching state.
func (k Keeper) QuoteSwap(ctx context.Context, poolID uint64, side sharedtypes.Side, amountIn math.Int) (*types.SwapQuote, error) {
	if err := side.Validate(); err != nil {
		return nil, err
	}
	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	leg, err := pool.Leg(side)
	if err != nil {
		return nil, err
	}
	amountOut, err := pricing.SwapOutput(amountIn, leg.ReserveIn, leg.ReserveOut, pool.FeeRateBps)
	if err != nil {
		return nil, err
	}
	fee, err := pricing.SwapFee(amountIn, pool.FeeRateBps)
	if err != nil {
		return nil, err
	}
	spot, err := pricing.SpotPrice(pool.ReserveA, pool.ReserveB)
	if err != nil {
		return nil, err
	}
	impact, err := pricing.PriceImpactPct(amountIn, leg.ReserveIn, leg.ReserveOut, amountOut)
	if err != nil {
		return nil, err
	}

	return &types.SwapQuote{
		SwapResult: types.SwapResult{
			PoolID:    poolID,
			Side:      side,
			DenomIn:   leg.DenomIn,
			DenomOut:  leg.DenomOut,
			AmountIn:  amountIn,
			AmountOut: amountOut,
			Fee:       fee,
		},
		SpotPrice:      spot,
		PriceImpactPct: impact,
	}, nil
}

// GetFeeInfo returns a pool's fee rate and cumulative fee/volume statistics.
func (k Keeper) GetFeeInfo(ctx context.Context, poolID uint64) (*types.FeeInfo, error) {
	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	return &types.FeeInfo{
		PoolID:     pool.Id,
		FeeRateBps: pool.FeeRateBps,
		FeesA:      pool.FeesA,
		FeesB:      pool.FeesB,
		VolumeA:    pool.VolumeA,
		VolumeB:    pool.VolumeB,
	}, nil
}
