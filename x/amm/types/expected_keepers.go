package types

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	sharedkeeper "github.com/solrush/rush/x/shared/keeper"
)

// LedgerKeeper defines the ledger operations the AMM needs: the shared
// settlement boundary plus LP token issuance.
type LedgerKeeper interface {
	sharedkeeper.LedgerKeeperV1

	Mint(ctx context.Context, to sdk.AccAddress, coin sdk.Coin) error
	Burn(ctx context.Context, from sdk.AccAddress, coin sdk.Coin) error
	GetSupply(ctx context.Context, denom string) math.Int
	IterateBalances(ctx context.Context, cb func(addr sdk.AccAddress, coin sdk.Coin) (stop bool))
}
