package keeper

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/dca/types"
)

// RegisterInvariants registers all DCA invariants
func RegisterInvariants(ir sdk.InvariantRegistry, k *Keeper) {
	ir.RegisterRoute(types.ModuleName, "escrow-schedule", EscrowScheduleInvariant(k))
}

// EscrowScheduleInvariant checks, for every order, that cyclesExecuted never
// exceeds totalCycles, that the recorded remaining escrow equals
// amountPerCycle·(totalCycles − cyclesExecuted) while active and zero once
// terminal, and that the escrow account holds exactly that amount.
func EscrowScheduleInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg   string
			count int
		)

		err := k.IterateDCAOrders(ctx, func(order *types.DCAOrder) bool {
			id := order.ID()
			if order.CyclesExecuted > order.TotalCycles {
				count++
				msg += fmt.Sprintf("dca order %s: %d of %d cycles executed\n", id, order.CyclesExecuted, order.TotalCycles)
				return false
			}

			if order.Status.IsTerminal() {
				if !order.EscrowRemaining.IsZero() {
					count++
					msg += fmt.Sprintf("dca order %s: %s but escrow remaining %s\n", id, order.Status, order.EscrowRemaining)
				}
			} else {
				expected, err := order.ExpectedEscrow()
				if err != nil || !expected.Equal(order.EscrowRemaining) {
					count++
					msg += fmt.Sprintf("dca order %s: escrow remaining %s, expected %s\n", id, order.EscrowRemaining, expected)
				}
			}

			escrow, err := k.escrow(ctx, id)
			if err != nil {
				count++
				msg += fmt.Sprintf("dca order %s: %v\n", id, err)
				return false
			}
			held := k.ledger.GetBalance(ctx, escrow, order.DenomIn)
			if !held.Amount.Equal(order.EscrowRemaining) {
				count++
				msg += fmt.Sprintf("dca order %s: escrow holds %s, recorded %s\n", id, held.Amount, order.EscrowRemaining)
			}
			return false
		})
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "escrow-schedule", err.Error()), true
		}

		broken := count != 0
		return sdk.FormatInvariant(
			types.ModuleName, "escrow-schedule",
			fmt.Sprintf("found %d inconsistent dca orders\n%s", count, msg),
		), broken
	}
}
