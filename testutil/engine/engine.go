// Package engine builds a complete in-memory App for tests, driven by a
// manual clock.
package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"cosmossdk.io/math"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/solrush/rush/app"
	keepertest "github.com/solrush/rush/testutil/keeper"
	ammtypes "github.com/solrush/rush/x/amm/types"
)

// Clock is a settable time source for App.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Engine bundles an App with its clock and authority.
type Engine struct {
	App       *app.App
	Clock     *Clock
	Authority sdk.AccAddress
}

// New creates an App on a fresh memdb starting at keepertest.GenesisTime.
func New(t testing.TB) *Engine {
	return NewWithDB(t, dbm.NewMemDB())
}

// NewWithDB creates an App on db.
func NewWithDB(t testing.TB, db dbm.DB) *Engine {
	clock := NewClock(keepertest.GenesisTime)
	authority := keepertest.TestAddr("authority")

	a, err := app.New(app.Options{
		DB:        db,
		Authority: authority,
		Clock:     clock.Now,
	})
	require.NoError(t, err)
	return &Engine{App: a, Clock: clock, Authority: authority}
}

// Fund mints coins to addr through the authority.
func (e *Engine) Fund(t testing.TB, addr sdk.AccAddress, coins ...sdk.Coin) {
	_, err := e.App.Fund(context.Background(), e.Authority, addr, sdk.NewCoins(coins...))
	require.NoError(t, err)
}

// SeedPool creates a base/quote pool and deposits the reserves from a
// dedicated provider.
func (e *Engine) SeedPool(t testing.TB, base, quote string, reserveA, reserveB math.Int) uint64 {
	ctx := context.Background()
	provider := keepertest.TestAddr("pool-provider")

	pool, _, err := e.App.InitializePool(ctx, provider, ammtypes.NewTradingPair(base, quote), ammtypes.DefaultFeeRateBps)
	require.NoError(t, err)

	e.Fund(t, provider, sdk.NewCoin(base, reserveA), sdk.NewCoin(quote, reserveB))
	_, _, err = e.App.AddLiquidity(ctx, provider, pool.Id, reserveA, reserveB, math.ZeroInt())
	require.NoError(t, err)
	return pool.Id
}

// Balance returns the committed balance of addr in denom.
func (e *Engine) Balance(t testing.TB, addr sdk.AccAddress, denom string) math.Int {
	coin, err := e.App.Balance(context.Background(), addr, denom)
	require.NoError(t, err)
	return coin.Amount
}

// RequireInvariants fails the test when any registered invariant is broken.
func (e *Engine) RequireInvariants(t testing.TB) {
	require.NoError(t, e.App.AssertInvariants(context.Background()))
}
