package keeper

import (
	"context"

	"cosmossdk.io/math"

	"github.com/solrush/rush/x/perp/types"
	"github.com/solrush/rush/x/shared/pricing"
)

// GetPositionHealth marks an open position to the pool's current price.
func (k Keeper) GetPositionHealth(ctx context.Context, id types.PositionID) (*types.PositionHealth, error) {
	position, err := k.GetPosition(ctx, id)
	if err != nil {
		return nil, err
	}
	price, err := k.pools.SpotPrice(ctx, position.PoolID)
	if err != nil {
		return nil, err
	}
	settlement, err := position.Settle(price, k.GetFundingState(ctx, position.PoolID).CumulativeIndex)
	if err != nil {
		return nil, err
	}

	distance := price.Sub(position.LiquidationPrice)
	if position.Side == pricing.PositionSideShort {
		distance = distance.Neg()
	}
	distanceBps := distance.Mul(math.NewInt(pricing.BpsDenominator)).Quo(price)

	return &types.PositionHealth{
		Position:     *position,
		CurrentPrice: price,
		Settlement:   settlement,
		Liquidatable: position.IsLiquidatable(price),
		DistanceBps:  distanceBps.Int64(),
	}, nil
}

// GetLiquidatablePositions returns the open positions of a pool that may be
// liquidated at the current price.
func (k Keeper) GetLiquidatablePositions(ctx context.Context, poolID uint64) ([]*types.Position, error) {
	positions, err := k.GetOpenPositions(ctx, poolID)
	if err != nil || len(positions) == 0 {
		return nil, err
	}
	price, err := k.pools.SpotPrice(ctx, poolID)
	if err != nil {
		return nil, err
	}

	var liquidatable []*types.Position
	for _, position := range positions {
		if position.IsLiquidatable(price) {
			liquidatable = append(liquidatable, position)
		}
	}
	return liquidatable, nil
}
