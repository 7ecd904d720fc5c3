package keeper

import (
	"context"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	ledgertypes "github.com/solrush/rush/x/ledger/types"
	"github.com/solrush/rush/x/orderbook/types"
)

// Keeper owns the limit-order books, one per pool.
type Keeper struct {
	storeKey storetypes.StoreKey
	ledger   types.LedgerKeeper
	pools    types.PoolKeeper
	metrics  *OrderBookMetrics
}

func NewKeeper(key storetypes.StoreKey, ledger types.LedgerKeeper, pools types.PoolKeeper) *Keeper {
	return &Keeper{
		storeKey: key,
		ledger:   ledger,
		pools:    pools,
		metrics:  NewOrderBookMetrics(),
	}
}

func (k Keeper) getStore(ctx context.Context) storetypes.KVStore {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return sdkCtx.KVStore(k.storeKey)
}

// Logger returns a module-specific logger.
func (k Keeper) Logger(ctx context.Context) log.Logger {
	return sdk.UnwrapSDKContext(ctx).Logger().With("module", "x/"+types.ModuleName)
}

// escrow returns the ledger handle holding an order's funds.
func (k Keeper) escrow(ctx context.Context, owner sdk.AccAddress, id types.OrderID) (sdk.AccAddress, error) {
	return k.ledger.AccountFor(ctx, ledgertypes.PurposeLimitEscrow, owner, id.PoolID, id.Seq)
}
