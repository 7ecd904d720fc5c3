package keeper

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/amm/types"
	sharedkeeper "github.com/solrush/rush/x/shared/keeper"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// GetNextPoolID returns the next pool ID and increments the counter
func (k Keeper) GetNextPoolID(ctx context.Context) uint64 {
	store := k.getStore(ctx)
	bz := store.Get(types.PoolCountKey)

	var poolID uint64 = 1
	if bz != nil {
		poolID = binary.BigEndian.Uint64(bz)
	}

	store.Set(types.PoolCountKey, sdk.Uint64ToBigEndian(poolID+1))
	return poolID
}

// InitializePool creates the pool for a trading pair with zero reserves.
// Liquidity is added separately through AddLiquidity.
func (k Keeper) InitializePool(ctx context.Context, creator sdk.AccAddress, pair types.TradingPair, feeRateBps uint32) (*types.Pool, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	if feeRateBps > types.MaxFeeRateBps {
		return nil, sharedtypes.ErrInvalidFeeRate.Wrapf("%d bps exceeds maximum %d", feeRateBps, types.MaxFeeRateBps)
	}

	store := k.getStore(ctx)
	pairKey := types.GetPoolByTokensKey(pair.Base, pair.Quote)
	if bz := store.Get(pairKey); bz != nil {
		return nil, sharedtypes.ErrPoolAlreadyExists.Wrapf("pool %d already trades %s", binary.BigEndian.Uint64(bz), pair)
	}

	sdkCtx := sdk.UnwrapSDKContext(ctx)
	pool := &types.Pool{
		Id:         k.GetNextPoolID(ctx),
		Pair:       pair,
		ReserveA:   math.ZeroInt(),
		ReserveB:   math.ZeroInt(),
		LpSupply:   math.ZeroInt(),
		FeeRateBps: feeRateBps,
		Creator:    creator.String(),
		CreatedAt:  sdkCtx.BlockTime().Unix(),
		VolumeA:    math.ZeroInt(),
		VolumeB:    math.ZeroInt(),
		FeesA:      math.ZeroInt(),
		FeesB:      math.ZeroInt(),
	}

	// Register the vault up front so its handle exists before any deposit.
	if _, err := k.vault(ctx, pool.Id); err != nil {
		return nil, err
	}
	if err := k.SetPool(ctx, pool); err != nil {
		return nil, err
	}
	store.Set(pairKey, sdk.Uint64ToBigEndian(pool.Id))

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypePoolCreated,
			sdk.NewAttribute(types.AttributeKeyPoolID, fmt.Sprintf("%d", pool.Id)),
			sdk.NewAttribute(types.AttributeKeyPair, pair.String()),
			sdk.NewAttribute(types.AttributeKeyCreator, creator.String()),
			sdk.NewAttribute(types.AttributeKeyFeeRate, fmt.Sprintf("%d", feeRateBps)),
		),
	)

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.PoolsTotal.Inc()
	})
	k.Logger(ctx).Info("pool initialized", "pool_id", pool.Id, "pair", pair.String(), "fee_bps", feeRateBps)

	return pool, nil
}

// GetPool returns a pool by ID
func (k Keeper) GetPool(ctx context.Context, poolID uint64) (*types.Pool, error) {
	bz := k.getStore(ctx).Get(types.GetPoolKey(poolID))
	if bz == nil {
		return nil, sharedtypes.ErrPoolNotFound.Wrapf("pool %d", poolID)
	}

	var pool types.Pool
	if err := json.Unmarshal(bz, &pool); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pool %d: %w", poolID, err)
	}
	return &pool, nil
}

// SetPool stores a pool
func (k Keeper) SetPool(ctx context.Context, pool *types.Pool) error {
	if err := pool.Validate(); err != nil {
		return err
	}
	bz, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("failed to marshal pool %d: %w", pool.Id, err)
	}
	k.getStore(ctx).Set(types.GetPoolKey(pool.Id), bz)
	return nil
}

// GetPoolByPair returns the pool trading pair, in either orientation.
func (k Keeper) GetPoolByPair(ctx context.Context, pair types.TradingPair) (*types.Pool, error) {
	bz := k.getStore(ctx).Get(types.GetPoolByTokensKey(pair.Base, pair.Quote))
	if bz == nil {
		return nil, sharedtypes.ErrPoolNotFound.Wrapf("no pool for %s", pair)
	}
	return k.GetPool(ctx, binary.BigEndian.Uint64(bz))
}

// IteratePools iterates over all pools
func (k Keeper) IteratePools(ctx context.Context, cb func(pool types.Pool) (stop bool)) error {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.PoolKey)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var pool types.Pool
		if err := json.Unmarshal(iterator.Value(), &pool); err != nil {
			return fmt.Errorf("failed to unmarshal pool: %w", err)
		}
		if cb(pool) {
			break
		}
	}
	return nil
}

// GetAllPools returns all pools
func (k Keeper) GetAllPools(ctx context.Context) ([]types.Pool, error) {
	var pools []types.Pool
	err := k.IteratePools(ctx, func(pool types.Pool) bool {
		pools = append(pools, pool)
		return false
	})
	return pools, err
}
