package keeper

import (
	"context"
	"encoding/json"
	"fmt"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/orderbook/types"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// GetNextOrderSeq returns the book's next sequence index and advances it.
func (k Keeper) GetNextOrderSeq(ctx context.Context, poolID uint64) uint64 {
	store := k.getStore(ctx)
	key := types.OrderCountKey(poolID)

	var seq uint64 = 1
	if bz := store.Get(key); bz != nil {
		seq = sdk.BigEndianToUint64(bz)
	}
	store.Set(key, sdk.Uint64ToBigEndian(seq+1))
	return seq
}

// SetLimitOrder stores an order and keeps the secondary indexes in step with
// its status.
func (k Keeper) SetLimitOrder(ctx context.Context, order *types.LimitOrder) error {
	owner, err := sdk.AccAddressFromBech32(order.Owner)
	if err != nil {
		return fmt.Errorf("invalid owner address: %w", err)
	}

	bz, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal limit order: %w", err)
	}

	store := k.getStore(ctx)
	id := order.ID()
	store.Set(types.LimitOrderKey(id), bz)
	store.Set(types.LimitOrderByOwnerKey(owner, id), []byte{})
	if order.Status.IsTerminal() {
		store.Delete(types.LimitOrderOpenKey(id))
	} else {
		store.Set(types.LimitOrderOpenKey(id), []byte{})
	}
	return nil
}

// GetLimitOrder retrieves a limit order by ID.
func (k Keeper) GetLimitOrder(ctx context.Context, id types.OrderID) (*types.LimitOrder, error) {
	bz := k.getStore(ctx).Get(types.LimitOrderKey(id))
	if bz == nil {
		return nil, sharedtypes.ErrOrderNotFound.Wrapf("limit order %s", id)
	}

	var order types.LimitOrder
	if err := json.Unmarshal(bz, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal limit order %s: %w", id, err)
	}
	return &order, nil
}

// orderIDsUnder collects the order IDs indexed under prefix. The iterator is
// closed before any record is loaded.
func (k Keeper) orderIDsUnder(ctx context.Context, prefix []byte) []types.OrderID {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), prefix)
	defer iterator.Close()

	var ids []types.OrderID
	for ; iterator.Valid(); iterator.Next() {
		ids = append(ids, types.ParseOrderIDBytes(iterator.Key()))
	}
	return ids
}

// GetOrdersByOwner returns every order placed by owner, across all books.
func (k Keeper) GetOrdersByOwner(ctx context.Context, owner sdk.AccAddress) ([]*types.LimitOrder, error) {
	var orders []*types.LimitOrder
	for _, id := range k.orderIDsUnder(ctx, types.LimitOrderByOwnerPrefixFor(owner)) {
		order, err := k.GetLimitOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// IterateOpenOrders walks the non-terminal orders of one book in placement
// order until cb returns true.
func (k Keeper) IterateOpenOrders(ctx context.Context, poolID uint64, cb func(order *types.LimitOrder) (stop bool)) error {
	return k.walkOrders(ctx, types.LimitOrderOpenPoolPrefix(poolID), cb)
}

// GetOpenOrders returns all non-terminal orders of one book.
func (k Keeper) GetOpenOrders(ctx context.Context, poolID uint64) ([]*types.LimitOrder, error) {
	var orders []*types.LimitOrder
	err := k.IterateOpenOrders(ctx, poolID, func(order *types.LimitOrder) bool {
		orders = append(orders, order)
		return false
	})
	return orders, err
}

// IterateAllOpenOrders walks the non-terminal orders of every book.
func (k Keeper) IterateAllOpenOrders(ctx context.Context, cb func(order *types.LimitOrder) (stop bool)) error {
	return k.walkOrders(ctx, types.LimitOrderOpenPrefix, cb)
}

func (k Keeper) walkOrders(ctx context.Context, prefix []byte, cb func(order *types.LimitOrder) (stop bool)) error {
	for _, id := range k.orderIDsUnder(ctx, prefix) {
		order, err := k.GetLimitOrder(ctx, id)
		if err != nil {
			return err
		}
		if cb(order) {
			break
		}
	}
	return nil
}
