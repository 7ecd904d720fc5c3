package keeper

import (
	"context"

	"github.com/solrush/rush/x/dca/types"
)

// SetDCAOrder writes an order record as-is, skipping creation checks.
func (k Keeper) SetDCAOrder(ctx context.Context, order *types.DCAOrder) error {
	return k.setDCAOrder(ctx, order, order.NextExecutionTime)
}
