package keeper

import (
	"context"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	ledgertypes "github.com/solrush/rush/x/ledger/types"
	"github.com/solrush/rush/x/perp/types"
)

// Keeper owns leveraged positions, the per-pool funding index and the
// per-pool insurance fund.
type Keeper struct {
	storeKey  storetypes.StoreKey
	ledger    types.LedgerKeeper
	pools     types.PoolKeeper
	authority string
	metrics   *PerpMetrics
}

func NewKeeper(key storetypes.StoreKey, ledger types.LedgerKeeper, pools types.PoolKeeper, authority string) *Keeper {
	return &Keeper{
		storeKey:  key,
		ledger:    ledger,
		pools:     pools,
		authority: authority,
		metrics:   NewPerpMetrics(),
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

// GetAuthority returns the address allowed to run admin operations.
func (k Keeper) GetAuthority() string {
	return k.authority
}

func (k Keeper) marginEscrow(ctx context.Context, id types.PositionID) (sdk.AccAddress, error) {
	return k.ledger.AccountFor(ctx, ledgertypes.PurposeMarginEscrow, id.Owner, id.Seq)
}

func (k Keeper) insuranceFund(ctx context.Context, poolID uint64) (sdk.AccAddress, error) {
	return k.ledger.AccountFor(ctx, ledgertypes.PurposeInsuranceFund, nil, poolID)
}
