package keeper

import (
	"context"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/amm/types"
	ledgertypes "github.com/solrush/rush/x/ledger/types"
)

// Keeper owns the constant-product pools, one per trading pair.
type Keeper struct {
	storeKey  storetypes.StoreKey
	ledger    types.LedgerKeeper
	authority string
	metrics   *AMMMetrics
}

func NewKeeper(key storetypes.StoreKey, ledger types.LedgerKeeper, authority string) *Keeper {
	return &Keeper{
		storeKey:  key,
		ledger:    ledger,
		authority: authority,
		metrics:   NewAMMMetrics(),
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

// vault returns the ledger handle holding a pool's reserves.
func (k Keeper) vault(ctx context.Context, poolID uint64) (sdk.AccAddress, error) {
	return k.ledger.AccountFor(ctx, ledgertypes.PurposePoolVault, nil, poolID)
}

// VaultAddress exposes the handle of a pool's vault.
func (k Keeper) VaultAddress(ctx context.Context, poolID uint64) (sdk.AccAddress, error) {
	return k.vault(ctx, poolID)
}
