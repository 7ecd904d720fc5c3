package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/ledger/types"
)

// RegisterInvariants registers all ledger invariants
func RegisterInvariants(ir sdk.InvariantRegistry, k *Keeper) {
	ir.RegisterRoute(types.ModuleName, "total-supply", TotalSupplyInvariant(k))
}

// TotalSupplyInvariant checks that the recorded supply of every denom equals
// the sum of all balances of that denom.
func TotalSupplyInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		sums := make(map[string]math.Int)
		k.IterateBalances(ctx, func(_ sdk.AccAddress, coin sdk.Coin) bool {
			if sum, ok := sums[coin.Denom]; ok {
				sums[coin.Denom] = sum.Add(coin.Amount)
			} else {
				sums[coin.Denom] = coin.Amount
			}
			return false
		})

		var (
			msg   string
			count int
		)
		k.IterateSupply(ctx, func(coin sdk.Coin) bool {
			sum, ok := sums[coin.Denom]
			if !ok {
				sum = math.ZeroInt()
			}
			if !sum.Equal(coin.Amount) {
				count++
				msg += fmt.Sprintf("%s: supply %s != sum of balances %s\n", coin.Denom, coin.Amount, sum)
			}
			delete(sums, coin.Denom)
			return false
		})
		for denom, sum := range sums {
			count++
			msg += fmt.Sprintf("%s: no supply recorded for balances totalling %s\n", denom, sum)
		}

		broken := count != 0
		return sdk.FormatInvariant(
			types.ModuleName, "total-supply",
			fmt.Sprintf("found %d denoms with mismatched supply\n%s", count, msg),
		), broken
	}
}
