package keeper

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/orderbook/types"
)

// RegisterInvariants registers all order book invariants
func RegisterInvariants(ir sdk.InvariantRegistry, k *Keeper) {
	ir.RegisterRoute(types.ModuleName, "escrow-balance", EscrowBalanceInvariant(k))
}

// EscrowBalanceInvariant checks that every open order's escrow account holds
// exactly the order's escrowed amount.
func EscrowBalanceInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg   string
			count int
		)

		counts := make(map[uint64]int)
		err := k.IterateAllOpenOrders(ctx, func(order *types.LimitOrder) bool {
			counts[order.PoolID]++
			owner, err := sdk.AccAddressFromBech32(order.Owner)
			if err != nil {
				count++
				msg += fmt.Sprintf("order %s: %v\n", order.ID(), err)
				return false
			}
			escrow, err := k.escrow(ctx, owner, order.ID())
			if err != nil {
				count++
				msg += fmt.Sprintf("order %s: %v\n", order.ID(), err)
				return false
			}
			held := k.ledger.GetBalance(ctx, escrow, order.DenomIn)
			if !held.Amount.Equal(order.EscrowedAmount) {
				count++
				msg += fmt.Sprintf("order %s: escrow holds %s, expected %s\n",
					order.ID(), held.Amount, order.EscrowedAmount)
			}
			return false
		})
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "escrow-balance", err.Error()), true
		}
		for poolID, n := range counts {
			k.metrics.OpenOrders.WithLabelValues(poolLabel(poolID)).Set(float64(n))
		}

		broken := count != 0
		return sdk.FormatInvariant(
			types.ModuleName, "escrow-balance",
			fmt.Sprintf("found %d orders with mismatched escrow\n%s", count, msg),
		), broken
	}
}
