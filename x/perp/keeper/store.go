package keeper

import (
	"context"
	"encoding/json"
	"fmt"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/perp/types"
	sharedkeeper "github.com/solrush/rush/x/shared/keeper"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// GetParams returns the engine parameters, or the defaults if none are stored.
func (k Keeper) GetParams(ctx context.Context) types.Params {
	bz := k.getStore(ctx).Get(types.ParamsKey)
	if bz == nil {
		return types.DefaultParams()
	}
	var params types.Params
	if err := json.Unmarshal(bz, &params); err != nil {
		return types.DefaultParams()
	}
	return params
}

// SetParams stores validated engine parameters.
func (k Keeper) SetParams(ctx context.Context, params types.Params) error {
	if err := params.Validate(); err != nil {
		return sharedtypes.ErrInvalidParams.Wrap(err.Error())
	}
	bz, err := json.Marshal(params)
	if err != nil {
		return err
	}
	k.getStore(ctx).Set(types.ParamsKey, bz)
	return nil
}

// UpdateParams replaces the engine parameters. Only the authority may call it.
// Open positions keep the liquidation price they were opened with.
func (k Keeper) UpdateParams(ctx context.Context, authority sdk.AccAddress, params types.Params) error {
	if err := sharedkeeper.ValidateAuthority(k.authority, authority.String()); err != nil {
		return err
	}
	if err := k.SetParams(ctx, params); err != nil {
		return err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeParamsUpdated,
			sdk.NewAttribute(types.AttributeKeyLeverage, fmt.Sprintf("%d", params.MaxLeverage)),
			sdk.NewAttribute(types.AttributeKeyLiquidatorFee, fmt.Sprintf("%d", params.LiquidationFeeBps)),
		),
	)
	k.Logger(ctx).Info("perp params updated", "max_leverage", params.MaxLeverage, "liquidation_fee_bps", params.LiquidationFeeBps)
	return nil
}

// GetNextPositionSeq returns the owner's next sequence index and advances it.
func (k Keeper) GetNextPositionSeq(ctx context.Context, owner sdk.AccAddress) uint64 {
	store := k.getStore(ctx)
	key := types.PositionCountKey(owner)

	var seq uint64 = 1
	if bz := store.Get(key); bz != nil {
		seq = sdk.BigEndianToUint64(bz)
	}
	store.Set(key, sdk.Uint64ToBigEndian(seq+1))
	return seq
}

// GetPosition retrieves a position by ID.
func (k Keeper) GetPosition(ctx context.Context, id types.PositionID) (*types.Position, error) {
	bz := k.getStore(ctx).Get(types.PositionKey(id))
	if bz == nil {
		return nil, sharedtypes.ErrPositionNotFound.Wrapf("position %s", id)
	}

	var position types.Position
	if err := json.Unmarshal(bz, &position); err != nil {
		return nil, fmt.Errorf("failed to unmarshal position %s: %w", id, err)
	}
	return &position, nil
}

// setPosition stores a position and keeps the open index in step with its status.
func (k Keeper) setPosition(ctx context.Context, position *types.Position) error {
	bz, err := json.Marshal(position)
	if err != nil {
		return fmt.Errorf("failed to marshal position: %w", err)
	}

	store := k.getStore(ctx)
	id := position.ID()
	store.Set(types.PositionKey(id), bz)
	if position.Status == types.PositionStatusOpen {
		store.Set(types.OpenPositionKey(position.PoolID, id), []byte{})
	} else {
		store.Delete(types.OpenPositionKey(position.PoolID, id))
	}
	return nil
}

// GetPositionsByOwner returns every position opened by owner.
func (k Keeper) GetPositionsByOwner(ctx context.Context, owner sdk.AccAddress) ([]*types.Position, error) {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.PositionOwnerPrefix(owner))
	defer iterator.Close()

	var positions []*types.Position
	for ; iterator.Valid(); iterator.Next() {
		var position types.Position
		if err := json.Unmarshal(iterator.Value(), &position); err != nil {
			return nil, fmt.Errorf("failed to unmarshal position: %w", err)
		}
		positions = append(positions, &position)
	}
	return positions, nil
}

// IteratePositions walks every stored position until cb returns true.
func (k Keeper) IteratePositions(ctx context.Context, cb func(position *types.Position) (stop bool)) error {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.PositionKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var position types.Position
		if err := json.Unmarshal(iterator.Value(), &position); err != nil {
			return fmt.Errorf("failed to unmarshal position: %w", err)
		}
		if cb(&position) {
			break
		}
	}
	return nil
}

// GetOpenPositions returns the open positions of one pool.
func (k Keeper) GetOpenPositions(ctx context.Context, poolID uint64) ([]*types.Position, error) {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.OpenPositionPoolPrefix(poolID))
	defer iterator.Close()

	var ids []types.PositionID
	for ; iterator.Valid(); iterator.Next() {
		ids = append(ids, types.ParseOpenPositionKey(iterator.Key()))
	}

	positions := make([]*types.Position, 0, len(ids))
	for _, id := range ids {
		position, err := k.GetPosition(ctx, id)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	return positions, nil
}

// GetFundingState returns a pool's funding state; a pool never updated has
// a zero index.
func (k Keeper) GetFundingState(ctx context.Context, poolID uint64) types.FundingState {
	bz := k.getStore(ctx).Get(types.FundingStateKey(poolID))
	if bz == nil {
		return types.FundingState{PoolID: poolID}
	}
	var state types.FundingState
	if err := json.Unmarshal(bz, &state); err != nil {
		return types.FundingState{PoolID: poolID}
	}
	return state
}

func (k Keeper) setFundingState(ctx context.Context, state types.FundingState) error {
	bz, err := json.Marshal(state)
	if err != nil {
		return err
	}
	k.getStore(ctx).Set(types.FundingStateKey(state.PoolID), bz)
	return nil
}
