package keeper

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/perp/types"
	"github.com/solrush/rush/x/shared/pricing"
)

// RegisterInvariants registers all perpetual invariants
func RegisterInvariants(ir sdk.InvariantRegistry, k *Keeper) {
	ir.RegisterRoute(types.ModuleName, "margin-escrow", MarginEscrowInvariant(k))
}

// MarginEscrowInvariant checks that every open position's escrow holds its
// margin, that the margin covers size/leverage, that closed positions hold
// nothing, and that the liquidation price lies on the adverse side of entry.
func MarginEscrowInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg   string
			count int
		)

		err := k.IteratePositions(ctx, func(position *types.Position) bool {
			id := position.ID()
			escrow, err := k.marginEscrow(ctx, id)
			if err != nil {
				count++
				msg += fmt.Sprintf("position %s: %v\n", id, err)
				return false
			}
			held := k.ledger.GetBalance(ctx, escrow, position.Denom).Amount

			if position.Status != types.PositionStatusOpen {
				if !held.IsZero() {
					count++
					msg += fmt.Sprintf("position %s: %s but escrow holds %s\n", id, position.Status, held)
				}
				return false
			}

			if !held.Equal(position.Margin) {
				count++
				msg += fmt.Sprintf("position %s: escrow holds %s, margin %s\n", id, held, position.Margin)
			}
			required, err := pricing.RequiredMargin(position.Size, position.Leverage)
			if err != nil || position.Margin.LT(required) {
				count++
				msg += fmt.Sprintf("position %s: margin %s below required %s\n", id, position.Margin, required)
			}
			adverse := position.LiquidationPrice.LTE(position.EntryPrice)
			if position.Side == pricing.PositionSideShort {
				adverse = position.LiquidationPrice.GTE(position.EntryPrice)
			}
			if !adverse {
				count++
				msg += fmt.Sprintf("position %s: liquidation price %s on the wrong side of entry %s\n",
					id, position.LiquidationPrice, position.EntryPrice)
			}
			return false
		})
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "margin-escrow", err.Error()), true
		}

		broken := count != 0
		return sdk.FormatInvariant(
			types.ModuleName, "margin-escrow",
			fmt.Sprintf("found %d inconsistent positions\n%s", count, msg),
		), broken
	}
}
