package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/amm/types"
)

// RegisterInvariants registers all AMM invariants
func RegisterInvariants(ir sdk.InvariantRegistry, k *Keeper) {
	ir.RegisterRoute(types.ModuleName, "pool-reserves", PoolReservesInvariant(k))
	ir.RegisterRoute(types.ModuleName, "lp-supply", LPSupplyInvariant(k))
	ir.RegisterRoute(types.ModuleName, "pool-state", PoolStateInvariant(k))
}

// AllInvariants runs all invariants of the AMM module
func AllInvariants(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		res, stop := PoolReservesInvariant(k)(ctx)
		if stop {
			return res, stop
		}

		res, stop = LPSupplyInvariant(k)(ctx)
		if stop {
			return res, stop
		}

		return PoolStateInvariant(k)(ctx)
	}
}

// PoolReservesInvariant checks that every pool's vault holds exactly its reserves.
func PoolReservesInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg   string
			count int
		)

		pools, err := k.GetAllPools(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "pool-reserves", err.Error()), true
		}
		for _, pool := range pools {
			vault, err := k.vault(ctx, pool.Id)
			if err != nil {
				count++
				msg += fmt.Sprintf("pool %d: %v\n", pool.Id, err)
				continue
			}
			balanceA := k.ledger.GetBalance(ctx, vault, pool.Pair.Base)
			balanceB := k.ledger.GetBalance(ctx, vault, pool.Pair.Quote)

			if !balanceA.Amount.Equal(pool.ReserveA) {
				count++
				msg += fmt.Sprintf("pool %d: vault balance for %s (%s) != reserve (%s)\n",
					pool.Id, pool.Pair.Base, balanceA.Amount, pool.ReserveA)
			}
			if !balanceB.Amount.Equal(pool.ReserveB) {
				count++
				msg += fmt.Sprintf("pool %d: vault balance for %s (%s) != reserve (%s)\n",
					pool.Id, pool.Pair.Quote, balanceB.Amount, pool.ReserveB)
			}
		}

		broken := count != 0
		return sdk.FormatInvariant(
			types.ModuleName, "pool-reserves",
			fmt.Sprintf("found %d reserve mismatches\n%s", count, msg),
		), broken
	}
}

// LPSupplyInvariant checks that the sum of all holders' LP balances equals
// each pool's recorded LP supply.
func LPSupplyInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg   string
			count int
		)

		pools, err := k.GetAllPools(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "lp-supply", err.Error()), true
		}

		held := make(map[string]math.Int, len(pools))
		for _, pool := range pools {
			held[pool.LPDenom()] = math.ZeroInt()
		}
		k.ledger.IterateBalances(ctx, func(_ sdk.AccAddress, coin sdk.Coin) bool {
			if sum, ok := held[coin.Denom]; ok {
				held[coin.Denom] = sum.Add(coin.Amount)
			}
			return false
		})

		for _, pool := range pools {
			sum := held[pool.LPDenom()]
			supply := k.ledger.GetSupply(ctx, pool.LPDenom())
			if !sum.Equal(pool.LpSupply) || !supply.Equal(pool.LpSupply) {
				count++
				msg += fmt.Sprintf("pool %d: lp supply %s, ledger supply %s, held %s\n",
					pool.Id, pool.LpSupply, supply, sum)
			}
		}

		broken := count != 0
		return sdk.FormatInvariant(
			types.ModuleName, "lp-supply",
			fmt.Sprintf("found %d pools with inconsistent lp supply\n%s", count, msg),
		), broken
	}
}

// PoolStateInvariant checks structural pool invariants: non-negative
// amounts, lpSupply = 0 iff both reserves are 0, and the fee cap.
func PoolStateInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg   string
			count int
		)

		pools, err := k.GetAllPools(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "pool-state", err.Error()), true
		}
		for _, pool := range pools {
			if err := pool.Validate(); err != nil {
				count++
				msg += fmt.Sprintf("pool %d: %v\n", pool.Id, err)
			}
		}

		broken := count != 0
		return sdk.FormatInvariant(
			types.ModuleName, "pool-state",
			fmt.Sprintf("found %d invalid pools\n%s", count, msg),
		), broken
	}
}
