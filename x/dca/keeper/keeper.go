package keeper

import (
	"context"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/dca/types"
	ledgertypes "github.com/solrush/rush/x/ledger/types"
)

// Keeper schedules recurring orders and runs them one cycle at a time.
type Keeper struct {
	storeKey storetypes.StoreKey
	ledger   types.LedgerKeeper
	pools    types.PoolKeeper
	metrics  *DCAMetrics
}

func NewKeeper(key storetypes.StoreKey, ledger types.LedgerKeeper, pools types.PoolKeeper) *Keeper {
	return &Keeper{
		storeKey: key,
		ledger:   ledger,
		pools:    pools,
		metrics:  NewDCAMetrics(),
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

func (k Keeper) escrow(ctx context.Context, id types.OrderID) (sdk.AccAddress, error) {
	return k.ledger.AccountFor(ctx, ledgertypes.PurposeDCAEscrow, id.Owner, id.Seq)
}
