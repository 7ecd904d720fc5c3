package keeper

import (
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	"github.com/cometbft/cometbft/crypto"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	ammkeeper "github.com/solrush/rush/x/amm/keeper"
	ammtypes "github.com/solrush/rush/x/amm/types"
	dcakeeper "github.com/solrush/rush/x/dca/keeper"
	dcatypes "github.com/solrush/rush/x/dca/types"
	ledgerkeeper "github.com/solrush/rush/x/ledger/keeper"
	ledgertypes "github.com/solrush/rush/x/ledger/types"
	orderbookkeeper "github.com/solrush/rush/x/orderbook/keeper"
	orderbooktypes "github.com/solrush/rush/x/orderbook/types"
	perpkeeper "github.com/solrush/rush/x/perp/keeper"
	perptypes "github.com/solrush/rush/x/perp/types"
)

// GenesisTime is the block time every test context starts at.
var GenesisTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Keepers bundles every engine keeper over one multistore.
type Keepers struct {
	Ledger    *ledgerkeeper.Keeper
	AMM       *ammkeeper.Keeper
	OrderBook *orderbookkeeper.Keeper
	DCA       *dcakeeper.Keeper
	Perp      *perpkeeper.Keeper

	Authority sdk.AccAddress
}

// TestAddr derives a deterministic account address from a name.
func TestAddr(name string) sdk.AccAddress {
	return sdk.AccAddress(crypto.AddressHash([]byte(name)))
}

// EngineKeepers creates the full keeper set on an in-memory store. There are
// no mocks: every keeper talks to the real ledger and pool keepers.
func EngineKeepers(t testing.TB) (Keepers, sdk.Context) {
	ledgerKey := storetypes.NewKVStoreKey(ledgertypes.StoreKey)
	ammKey := storetypes.NewKVStoreKey(ammtypes.StoreKey)
	orderbookKey := storetypes.NewKVStoreKey(orderbooktypes.StoreKey)
	dcaKey := storetypes.NewKVStoreKey(dcatypes.StoreKey)
	perpKey := storetypes.NewKVStoreKey(perptypes.StoreKey)

	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	for _, key := range []*storetypes.KVStoreKey{ledgerKey, ammKey, orderbookKey, dcaKey, perpKey} {
		stateStore.MountStoreWithDB(key, storetypes.StoreTypeIAVL, db)
	}
	require.NoError(t, stateStore.LoadLatestVersion())

	authority := TestAddr("authority")
	ledger := ledgerkeeper.NewKeeper(ledgerKey)
	amm := ammkeeper.NewKeeper(ammKey, ledger, authority.String())

	k := Keepers{
		Ledger:    ledger,
		AMM:       amm,
		OrderBook: orderbookkeeper.NewKeeper(orderbookKey, ledger, amm),
		DCA:       dcakeeper.NewKeeper(dcaKey, ledger, amm),
		Perp:      perpkeeper.NewKeeper(perpKey, ledger, amm, authority.String()),
		Authority: authority,
	}

	ctx := sdk.NewContext(stateStore, cmtproto.Header{Height: 1, Time: GenesisTime}, false, log.NewNopLogger())
	return k, ctx
}

// Fund mints coins straight into addr.
func Fund(t testing.TB, k Keepers, ctx sdk.Context, addr sdk.AccAddress, coins ...sdk.Coin) {
	for _, coin := range coins {
		require.NoError(t, k.Ledger.Mint(ctx, addr, coin))
	}
}

// SeedPool creates a base/quote pool at the default fee and deposits the
// given reserves from a dedicated provider. It returns the pool ID.
func SeedPool(t testing.TB, k Keepers, ctx sdk.Context, base, quote string, reserveA, reserveB math.Int) uint64 {
	provider := TestAddr("pool-provider")
	pool, err := k.AMM.InitializePool(ctx, provider, ammtypes.NewTradingPair(base, quote), ammtypes.DefaultFeeRateBps)
	require.NoError(t, err)

	Fund(t, k, ctx, provider, sdk.NewCoin(base, reserveA), sdk.NewCoin(quote, reserveB))
	_, err = k.AMM.AddLiquidity(ctx, provider, pool.Id, reserveA, reserveB, math.ZeroInt())
	require.NoError(t, err)
	return pool.Id
}

// AdvanceTime returns ctx with the block time moved forward by d.
func AdvanceTime(ctx sdk.Context, d time.Duration) sdk.Context {
	return ctx.WithBlockTime(ctx.BlockTime().Add(d)).WithBlockHeight(ctx.BlockHeight() + 1)
}
