package keeper

import (
	"context"
	"encoding/json"
	"fmt"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/dca/types"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// GetNextOrderSeq returns the owner's next sequence index and advances it.
func (k Keeper) GetNextOrderSeq(ctx context.Context, owner sdk.AccAddress) uint64 {
	store := k.getStore(ctx)
	key := types.OrderCountKey(owner)

	var seq uint64 = 1
	if bz := store.Get(key); bz != nil {
		seq = sdk.BigEndianToUint64(bz)
	}
	store.Set(key, sdk.Uint64ToBigEndian(seq+1))
	return seq
}

// GetDCAOrder retrieves a DCA order by ID.
func (k Keeper) GetDCAOrder(ctx context.Context, id types.OrderID) (*types.DCAOrder, error) {
	bz := k.getStore(ctx).Get(types.DCAOrderKey(id))
	if bz == nil {
		return nil, sharedtypes.ErrOrderNotFound.Wrapf("dca order %s", id)
	}

	var order types.DCAOrder
	if err := json.Unmarshal(bz, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dca order %s: %w", id, err)
	}
	return &order, nil
}

// setDCAOrder stores an order and moves its schedule entry from prevNext to
// its current next execution time. Terminal orders leave the schedule.
func (k Keeper) setDCAOrder(ctx context.Context, order *types.DCAOrder, prevNext int64) error {
	bz, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal dca order: %w", err)
	}

	store := k.getStore(ctx)
	id := order.ID()
	store.Set(types.DCAOrderKey(id), bz)

	store.Delete(types.ScheduleKey(prevNext, id))
	if !order.Status.IsTerminal() {
		store.Set(types.ScheduleKey(order.NextExecutionTime, id), []byte{})
	}
	return nil
}

// GetDCAOrdersByOwner returns every order created by owner.
func (k Keeper) GetDCAOrdersByOwner(ctx context.Context, owner sdk.AccAddress) ([]*types.DCAOrder, error) {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.DCAOrderOwnerPrefix(owner))
	defer iterator.Close()

	var orders []*types.DCAOrder
	for ; iterator.Valid(); iterator.Next() {
		var order types.DCAOrder
		if err := json.Unmarshal(iterator.Value(), &order); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dca order: %w", err)
		}
		orders = append(orders, &order)
	}
	return orders, nil
}

// IterateDCAOrders walks every stored order until cb returns true.
func (k Keeper) IterateDCAOrders(ctx context.Context, cb func(order *types.DCAOrder) (stop bool)) error {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.DCAOrderKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var order types.DCAOrder
		if err := json.Unmarshal(iterator.Value(), &order); err != nil {
			return fmt.Errorf("failed to unmarshal dca order: %w", err)
		}
		if cb(&order) {
			break
		}
	}
	return nil
}

// GetDueDCAOrders returns the active orders whose next cycle is due at now,
// earliest first.
func (k Keeper) GetDueDCAOrders(ctx context.Context, now int64) ([]*types.DCAOrder, error) {
	iterator := k.getStore(ctx).Iterator(types.ScheduleKeyPrefix, types.ScheduleUpperBound(now))
	defer iterator.Close()

	var ids []types.OrderID
	for ; iterator.Valid(); iterator.Next() {
		ids = append(ids, types.ParseScheduleKey(iterator.Key()))
	}

	orders := make([]*types.DCAOrder, 0, len(ids))
	for _, id := range ids {
		order, err := k.GetDCAOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}
