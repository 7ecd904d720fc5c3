package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cosmossdk.io/math"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/solrush/rush/app"
	"github.com/solrush/rush/testutil/engine"
	keepertest "github.com/solrush/rush/testutil/keeper"
	ammtypes "github.com/solrush/rush/x/amm/types"
	dcakeeper "github.com/solrush/rush/x/dca/keeper"
	ledgertypes "github.com/solrush/rush/x/ledger/types"
	orderbooktypes "github.com/solrush/rush/x/orderbook/types"
	perptypes "github.com/solrush/rush/x/perp/types"
	"github.com/solrush/rush/x/shared/pricing"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

const (
	base  = "usol"
	quote = "uusdc"
)

// AppTestSuite drives the engine through its public operations against a
// 1:2 pool.
type AppTestSuite struct {
	suite.Suite
	e      *engine.Engine
	ctx    context.Context
	trader sdk.AccAddress
	bot    sdk.AccAddress
	poolID uint64
}

func (s *AppTestSuite) SetupTest() {
	s.e = engine.New(s.T())
	s.ctx = context.Background()
	s.trader = keepertest.TestAddr("trader")
	s.bot = keepertest.TestAddr("keeper-bot")
	s.poolID = s.e.SeedPool(s.T(), base, quote, math.NewInt(1_000_000), math.NewInt(2_000_000))
	s.e.Fund(s.T(), s.trader, sdk.NewInt64Coin(base, 1_000_000), sdk.NewInt64Coin(quote, 1_000_000))
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppTestSuite))
}

func hasEvent(events sdk.Events, eventType string) bool {
	for _, ev := range events {
		if ev.Type == eventType {
			return true
		}
	}
	return false
}

func (s *AppTestSuite) TestSwapCommitsOnSuccess() {
	res, events, err := s.e.App.Swap(s.ctx, s.trader, s.poolID, sharedtypes.SideBuy, math.NewInt(10_000), math.NewInt(4_900))
	s.Require().NoError(err)
	s.Require().Equal(math.NewInt(4_960), res.AmountOut)
	s.Require().True(hasEvent(events, ammtypes.EventTypeSwap))

	s.Require().Equal(math.NewInt(1_004_960), s.e.Balance(s.T(), s.trader, base))
	s.Require().Equal(math.NewInt(990_000), s.e.Balance(s.T(), s.trader, quote))

	pool, err := s.e.App.Pool(s.ctx, s.poolID)
	s.Require().NoError(err)
	s.Require().Equal(math.NewInt(995_040), pool.ReserveA)
	s.Require().Equal(math.NewInt(2_010_000), pool.ReserveB)
	s.e.RequireInvariants(s.T())
}

func (s *AppTestSuite) TestFailedSwapLeavesNoTrace() {
	before, err := s.e.App.Pool(s.ctx, s.poolID)
	s.Require().NoError(err)

	_, events, err := s.e.App.Swap(s.ctx, s.trader, s.poolID, sharedtypes.SideBuy, math.NewInt(10_000), math.NewInt(5_000))
	s.Require().ErrorIs(err, sharedtypes.ErrSlippageExceeded)
	s.Require().Empty(events)

	after, err := s.e.App.Pool(s.ctx, s.poolID)
	s.Require().NoError(err)
	s.Require().Equal(before, after)
	s.Require().Equal(math.NewInt(1_000_000), s.e.Balance(s.T(), s.trader, base))
	s.Require().Equal(math.NewInt(1_000_000), s.e.Balance(s.T(), s.trader, quote))
}

func (s *AppTestSuite) TestSwapMoreThanBalanceFails() {
	_, _, err := s.e.App.Swap(s.ctx, s.trader, s.poolID, sharedtypes.SideSell, math.NewInt(2_000_000), math.ZeroInt())
	s.Require().ErrorIs(err, sharedtypes.ErrInsufficientBalance)
	s.Require().Equal(math.NewInt(1_000_000), s.e.Balance(s.T(), s.trader, base))
	s.e.RequireInvariants(s.T())
}

func (s *AppTestSuite) placeBuy(limit math.Int, expiresAt int64) *orderbooktypes.LimitOrder {
	order, _, err := s.e.App.PlaceLimitOrder(s.ctx, s.trader, s.poolID, sharedtypes.SideBuy, math.NewInt(10_000), limit, 100, expiresAt)
	s.Require().NoError(err)
	return order
}

func (s *AppTestSuite) TestConcurrentExecuteLimitOrder_ExactlyOneWins() {
	order := s.placeBuy(math.NewInt(2_100_000_000), 0)

	const racers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		stales int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _, err := s.e.App.ExecuteLimitOrder(s.ctx, s.bot, order.ID())

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, sharedtypes.ErrInvalidState):
				stales++
			default:
				s.T().Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Require().Equal(1, wins)
	s.Require().Equal(racers-1, stales)

	filled, err := s.e.App.LimitOrder(s.ctx, order.ID())
	s.Require().NoError(err)
	s.Require().Equal(orderbooktypes.OrderStatusFilled, filled.Status)
	s.Require().Equal(math.NewInt(1_000_000).Add(filled.AmountOut), s.e.Balance(s.T(), s.trader, base))
	s.Require().Equal(math.NewInt(990_000), s.e.Balance(s.T(), s.trader, quote))
	s.e.RequireInvariants(s.T())
}

func (s *AppTestSuite) TestExecuteExpiredOrderCommitsRefund() {
	now := s.e.Clock.Now().Unix()
	order := s.placeBuy(math.NewInt(1_900_000_000), now+60)
	s.Require().Equal(math.NewInt(990_000), s.e.Balance(s.T(), s.trader, quote))

	s.e.Clock.Advance(2 * time.Minute)
	expired, _, err := s.e.App.ExecuteLimitOrder(s.ctx, s.bot, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrOrderExpired)
	s.Require().Equal(orderbooktypes.OrderStatusExpired, expired.Status)

	stored, err := s.e.App.LimitOrder(s.ctx, order.ID())
	s.Require().NoError(err)
	s.Require().Equal(orderbooktypes.OrderStatusExpired, stored.Status)
	s.Require().Equal(math.NewInt(1_000_000), s.e.Balance(s.T(), s.trader, quote))

	_, _, err = s.e.App.ExecuteLimitOrder(s.ctx, s.bot, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrInvalidState)
	s.e.RequireInvariants(s.T())
}

func (s *AppTestSuite) TestProcessExpiredOrders() {
	now := s.e.Clock.Now().Unix()
	s.placeBuy(math.NewInt(1_900_000_000), now+60)
	s.placeBuy(math.NewInt(1_900_000_000), now+600)
	s.placeBuy(math.NewInt(1_900_000_000), 0)

	s.e.Clock.Advance(5 * time.Minute)
	n, _, err := s.e.App.ProcessExpiredOrders(s.ctx, s.bot)
	s.Require().NoError(err)
	s.Require().Equal(1, n)

	open, err := s.e.App.OpenLimitOrders(s.ctx, s.poolID)
	s.Require().NoError(err)
	s.Require().Len(open, 2)
	s.Require().Equal(math.NewInt(980_000), s.e.Balance(s.T(), s.trader, quote))
	s.e.RequireInvariants(s.T())
}

func (s *AppTestSuite) TestPauseBlocksSwapsAndLimitExecution() {
	order := s.placeBuy(math.NewInt(2_100_000_000), 0)

	_, err := s.e.App.PausePool(s.ctx, s.trader, s.poolID)
	s.Require().ErrorIs(err, sharedtypes.ErrUnauthorized)

	_, err = s.e.App.PausePool(s.ctx, s.e.Authority, s.poolID)
	s.Require().NoError(err)

	_, _, err = s.e.App.Swap(s.ctx, s.trader, s.poolID, sharedtypes.SideBuy, math.NewInt(1_000), math.ZeroInt())
	s.Require().ErrorIs(err, sharedtypes.ErrPoolPaused)
	_, _, err = s.e.App.ExecuteLimitOrder(s.ctx, s.bot, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrPoolPaused)

	_, err = s.e.App.ResumePool(s.ctx, s.e.Authority, s.poolID)
	s.Require().NoError(err)
	_, _, err = s.e.App.ExecuteLimitOrder(s.ctx, s.bot, order.ID())
	s.Require().NoError(err)
}

func (s *AppTestSuite) TestUpdateFeeRate() {
	_, err := s.e.App.UpdateFeeRate(s.ctx, s.e.Authority, s.poolID, 101)
	s.Require().ErrorIs(err, sharedtypes.ErrInvalidFeeRate)

	_, err = s.e.App.UpdateFeeRate(s.ctx, s.e.Authority, s.poolID, 0)
	s.Require().NoError(err)

	info, err := s.e.App.FeeInfo(s.ctx, s.poolID)
	s.Require().NoError(err)
	s.Require().Equal(uint32(0), info.FeeRateBps)
}

func (s *AppTestSuite) TestFund() {
	outsider := keepertest.TestAddr("outsider")

	_, err := s.e.App.Fund(s.ctx, outsider, outsider, sdk.NewCoins(sdk.NewInt64Coin(quote, 1)))
	s.Require().ErrorIs(err, sharedtypes.ErrUnauthorized)

	_, err = s.e.App.Fund(s.ctx, s.e.Authority, outsider, sdk.NewCoins(sdk.NewInt64Coin(ammtypes.LPDenom(s.poolID), 1)))
	s.Require().ErrorIs(err, sharedtypes.ErrInvalidCoin)

	vault := ledgertypes.DeriveHandle(nil, ledgertypes.PurposePoolVault, s.poolID)
	_, err = s.e.App.Fund(s.ctx, s.e.Authority, vault, sdk.NewCoins(sdk.NewInt64Coin(quote, 1)))
	s.Require().ErrorIs(err, sharedtypes.ErrUnauthorized)

	supply, err := s.e.App.Supply(s.ctx, quote)
	s.Require().NoError(err)
	_, err = s.e.App.Fund(s.ctx, s.e.Authority, outsider, sdk.NewCoins(sdk.NewInt64Coin(quote, 500)))
	s.Require().NoError(err)
	after, err := s.e.App.Supply(s.ctx, quote)
	s.Require().NoError(err)
	s.Require().Equal(supply.AddRaw(500), after)
	s.e.RequireInvariants(s.T())
}

func (s *AppTestSuite) TestDCALifecycle() {
	order, _, err := s.e.App.CreateDCAOrder(s.ctx, s.trader, dcakeeper.DCAOrderParams{
		PoolID:                s.poolID,
		Side:                  sharedtypes.SideBuy,
		AmountPerCycle:        math.NewInt(1_000),
		TotalCycles:           2,
		CycleFrequencySeconds: 3600,
		SlippageToleranceBps:  100,
	})
	s.Require().NoError(err)

	due, err := s.e.App.DueDCAOrders(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(due, 1)

	_, _, err = s.e.App.ExecuteDCAOrder(s.ctx, s.bot, order.ID())
	s.Require().NoError(err)
	_, _, err = s.e.App.ExecuteDCAOrder(s.ctx, s.bot, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrTooEarly)

	s.e.Clock.Advance(time.Hour)
	done, _, err := s.e.App.ExecuteDCAOrder(s.ctx, s.bot, order.ID())
	s.Require().NoError(err)
	s.Require().Equal(uint64(2), done.CyclesExecuted)
	s.Require().Equal(math.NewInt(998_000), s.e.Balance(s.T(), s.trader, quote))
	s.e.RequireInvariants(s.T())
}

func (s *AppTestSuite) TestPerpLifecycle() {
	position, _, err := s.e.App.OpenPosition(s.ctx, s.trader, s.poolID, pricing.PositionSideLong, math.NewInt(100_000), 10, math.NewInt(10_000))
	s.Require().NoError(err)
	s.Require().Equal(math.NewInt(2_000_000_000), position.EntryPrice)

	_, _, err = s.e.App.Liquidate(s.ctx, s.bot, position.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrNotLiquidatable)

	health, err := s.e.App.PositionHealth(s.ctx, position.ID())
	s.Require().NoError(err)
	s.Require().False(health.Liquidatable)
	s.Require().Equal(int64(1000), health.DistanceBps)

	closed, _, err := s.e.App.ClosePosition(s.ctx, s.trader, position.ID())
	s.Require().NoError(err)
	s.Require().Equal(perptypes.PositionStatusClosed, closed.Status)
	s.Require().Equal(math.NewInt(1_000_000), s.e.Balance(s.T(), s.trader, quote))
	s.e.RequireInvariants(s.T())
}

func (s *AppTestSuite) TestUpdatePerpParams() {
	params := perptypes.Params{MaxLeverage: 5, LiquidationFeeBps: 100}
	_, err := s.e.App.UpdatePerpParams(s.ctx, s.trader, params)
	s.Require().ErrorIs(err, sharedtypes.ErrUnauthorized)

	_, err = s.e.App.UpdatePerpParams(s.ctx, s.e.Authority, params)
	s.Require().NoError(err)
	got, err := s.e.App.PerpParams(s.ctx)
	s.Require().NoError(err)
	s.Require().Equal(params, got)

	_, _, err = s.e.App.OpenPosition(s.ctx, s.trader, s.poolID, pricing.PositionSideLong, math.NewInt(100_000), 10, math.NewInt(10_000))
	s.Require().ErrorIs(err, sharedtypes.ErrMaxLeverageExceeded)
}

func (s *AppTestSuite) TestConcurrentSwapsAcrossPools() {
	atomPool := s.e.SeedPool(s.T(), "uatom", quote, math.NewInt(1_000_000), math.NewInt(10_000_000))

	traders := make([]sdk.AccAddress, 6)
	for i := range traders {
		traders[i] = keepertest.TestAddr("swapper-" + string(rune('a'+i)))
		s.e.Fund(s.T(), traders[i], sdk.NewInt64Coin(base, 100_000), sdk.NewInt64Coin("uatom", 100_000), sdk.NewInt64Coin(quote, 100_000))
	}
	supplyBefore, err := s.e.App.Supply(s.ctx, quote)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for i, trader := range traders {
		wg.Add(1)
		go func(i int, trader sdk.AccAddress) {
			defer wg.Done()
			poolID := s.poolID
			if i%2 == 1 {
				poolID = atomPool
			}
			for j := 0; j < 10; j++ {
				side := sharedtypes.SideBuy
				if j%2 == 1 {
					side = sharedtypes.SideSell
				}
				if _, _, err := s.e.App.Swap(s.ctx, trader, poolID, side, math.NewInt(1_000), math.ZeroInt()); err != nil {
					s.T().Errorf("swap %d/%d: %v", i, j, err)
				}
			}
		}(i, trader)
	}
	wg.Wait()

	supplyAfter, err := s.e.App.Supply(s.ctx, quote)
	s.Require().NoError(err)
	s.Require().Equal(supplyBefore, supplyAfter)
	s.e.RequireInvariants(s.T())
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	db, err := dbm.NewDB("rush", dbm.GoLevelDBBackend, dir)
	require.NoError(t, err)
	e := engine.NewWithDB(t, db)
	poolID := e.SeedPool(t, base, quote, math.NewInt(1_000_000), math.NewInt(2_000_000))
	require.NoError(t, e.App.Close())

	db, err = dbm.NewDB("rush", dbm.GoLevelDBBackend, dir)
	require.NoError(t, err)
	reopened := engine.NewWithDB(t, db)
	defer reopened.App.Close()

	pool, err := reopened.App.Pool(context.Background(), poolID)
	require.NoError(t, err)
	require.Equal(t, math.NewInt(1_000_000), pool.ReserveA)
	require.Equal(t, math.NewInt(2_000_000), pool.ReserveB)
	reopened.RequireInvariants(t)
}

func TestNewRequiresDB(t *testing.T) {
	_, err := app.New(app.Options{})
	require.Error(t, err)
}
