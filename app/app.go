// Package app wires the rush settlement engine.
//
// The engine mounts one KV store per component on a single database and
// exposes every operation as a method on App. Each operation is one
// transaction: it runs against a cached view of the multistore and is written
// back only when it succeeds, so a failed operation leaves no trace in
// reserves, records or ledger balances.
//
// Concurrency follows the pool/account ownership of the records involved. An
// operation holds keyed locks for the pools and accounts it may write (see
// locks.go) for its whole duration, and record status checks inside the
// keepers turn racing permissionless triggers into one success and
// InvalidState for everyone else.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/app/telemetry"
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

const Name = "rush"

// Options configures a new App.
type Options struct {
	// DB backs every component store. Writes land in it as soon as an
	// operation commits.
	DB dbm.DB

	Logger log.Logger

	// Authority may pause pools, change fees, update perpetual parameters
	// and funding rates, and mint through Fund. Empty disables all of them.
	Authority sdk.AccAddress

	// Clock supplies the execution time of each operation. Defaults to
	// time.Now.
	Clock func() time.Time

	// Telemetry provides the meter for operation metrics. Optional.
	Telemetry *telemetry.Provider
}

// App is the settlement engine.
type App struct {
	logger log.Logger
	clock  func() time.Time

	db   dbm.DB
	cms  storetypes.CommitMultiStore
	keys map[string]*storetypes.KVStoreKey

	LedgerKeeper    *ledgerkeeper.Keeper
	AMMKeeper       *ammkeeper.Keeper
	OrderBookKeeper *orderbookkeeper.Keeper
	DCAKeeper       *dcakeeper.Keeper
	PerpKeeper      *perpkeeper.Keeper

	authority  sdk.AccAddress
	invariants *InvariantRegistry
	tel        *telemetry.Provider
	opMetrics  *telemetry.OperationMetrics

	locks *lockManager
	// storeMu separates reads of the underlying database from commits. The
	// execution phase of an operation reads under RLock; write-back takes
	// the exclusive lock.
	storeMu sync.RWMutex
	height  atomic.Int64
}

// New mounts the component stores on opts.DB and builds the keepers.
func New(opts Options) (*App, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	tel := opts.Telemetry
	if tel == nil {
		var err error
		if tel, err = telemetry.NewProvider(telemetry.Config{}); err != nil {
			return nil, err
		}
	}
	opMetrics, err := telemetry.NewOperationMetrics(tel.Meter())
	if err != nil {
		return nil, fmt.Errorf("failed to create operation metrics: %w", err)
	}

	keys := storetypes.NewKVStoreKeys(
		ledgertypes.StoreKey,
		ammtypes.StoreKey,
		orderbooktypes.StoreKey,
		dcatypes.StoreKey,
		perptypes.StoreKey,
	)

	cms := store.NewCommitMultiStore(opts.DB, logger, metrics.NewNoOpMetrics())
	for _, key := range keys {
		cms.MountStoreWithDB(key, storetypes.StoreTypeDB, nil)
	}
	if err := cms.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("failed to load stores: %w", err)
	}

	app := &App{
		logger:     logger.With("module", "app"),
		clock:      clock,
		db:         opts.DB,
		cms:        cms,
		keys:       keys,
		authority:  opts.Authority,
		invariants: NewInvariantRegistry(),
		tel:        tel,
		opMetrics:  opMetrics,
		locks:      newLockManager(),
	}

	authority := ""
	if !opts.Authority.Empty() {
		authority = opts.Authority.String()
	}

	app.LedgerKeeper = ledgerkeeper.NewKeeper(keys[ledgertypes.StoreKey])
	app.AMMKeeper = ammkeeper.NewKeeper(keys[ammtypes.StoreKey], app.LedgerKeeper, authority)
	app.OrderBookKeeper = orderbookkeeper.NewKeeper(keys[orderbooktypes.StoreKey], app.LedgerKeeper, app.AMMKeeper)
	app.DCAKeeper = dcakeeper.NewKeeper(keys[dcatypes.StoreKey], app.LedgerKeeper, app.AMMKeeper)
	app.PerpKeeper = perpkeeper.NewKeeper(keys[perptypes.StoreKey], app.LedgerKeeper, app.AMMKeeper, authority)

	ledgerkeeper.RegisterInvariants(app.invariants, app.LedgerKeeper)
	ammkeeper.RegisterInvariants(app.invariants, app.AMMKeeper)
	orderbookkeeper.RegisterInvariants(app.invariants, app.OrderBookKeeper)
	dcakeeper.RegisterInvariants(app.invariants, app.DCAKeeper)
	perpkeeper.RegisterInvariants(app.invariants, app.PerpKeeper)

	return app, nil
}

// Authority returns the admin address, or nil when none is configured.
func (app *App) Authority() sdk.AccAddress { return app.authority }

// Logger returns the engine logger.
func (app *App) Logger() log.Logger { return app.logger }

// GetKey returns the store key of a component.
func (app *App) GetKey(storeKey string) *storetypes.KVStoreKey {
	return app.keys[storeKey]
}

// Height returns the sequence number of the last operation context handed
// out.
func (app *App) Height() int64 { return app.height.Load() }

// newContext builds the execution context of one operation. The block
// header carries the operation clock; the keepers read "now" from it.
func (app *App) newContext(ctx context.Context, height int64) sdk.Context {
	header := cmtproto.Header{
		ChainID: Name,
		Height:  height,
		Time:    app.clock().UTC(),
	}
	return sdk.NewContext(app.cms, header, false, app.logger).WithContext(ctx)
}

// Close releases the database.
func (app *App) Close() error {
	release := app.locks.AcquireAll()
	defer release()

	app.storeMu.Lock()
	defer app.storeMu.Unlock()
	return app.db.Close()
}
