package trigger_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/solrush/rush/pkg/trigger"
	"github.com/solrush/rush/testutil/engine"
	keepertest "github.com/solrush/rush/testutil/keeper"
	dcakeeper "github.com/solrush/rush/x/dca/keeper"
	orderbooktypes "github.com/solrush/rush/x/orderbook/types"
	perptypes "github.com/solrush/rush/x/perp/types"
	"github.com/solrush/rush/x/shared/pricing"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

const (
	base  = "usol"
	quote = "uusdc"
)

type BotTestSuite struct {
	suite.Suite
	e      *engine.Engine
	ctx    context.Context
	trader sdk.AccAddress
	keeper sdk.AccAddress
	poolID uint64
	bot    *trigger.Bot
}

func (s *BotTestSuite) SetupTest() {
	s.e = engine.New(s.T())
	s.ctx = context.Background()
	s.trader = keepertest.TestAddr("trader")
	s.keeper = keepertest.TestAddr("keeper-bot")
	s.poolID = s.e.SeedPool(s.T(), base, quote, math.NewInt(1_000_000), math.NewInt(2_000_000))
	s.e.Fund(s.T(), s.trader, sdk.NewInt64Coin(base, 1_000_000), sdk.NewInt64Coin(quote, 1_000_000))

	cfg := trigger.DefaultConfig(s.keeper)
	cfg.TriggersPerSecond = 1000
	cfg.Burst = 100

	var err error
	s.bot, err = trigger.NewBot(s.e.App, cfg, log.NewNopLogger())
	s.Require().NoError(err)
}

func TestBotSuite(t *testing.T) {
	suite.Run(t, new(BotTestSuite))
}

func (s *BotTestSuite) place(side sharedtypes.Side, limit int64, expiresAt int64) *orderbooktypes.LimitOrder {
	order, _, err := s.e.App.PlaceLimitOrder(s.ctx, s.trader, s.poolID, side, math.NewInt(10_000), math.NewInt(limit), 100, expiresAt)
	s.Require().NoError(err)
	return order
}

func (s *BotTestSuite) TestSweepFiresEligibleTriggers() {
	now := s.e.Clock.Now().Unix()
	executable := s.place(sharedtypes.SideBuy, 2_100_000_000, 0)
	resting := s.place(sharedtypes.SideSell, 3_000_000_000, 0)
	stale := s.place(sharedtypes.SideBuy, 1_900_000_000, now+60)

	dca, _, err := s.e.App.CreateDCAOrder(s.ctx, s.trader, dcakeeper.DCAOrderParams{
		PoolID:                s.poolID,
		Side:                  sharedtypes.SideBuy,
		AmountPerCycle:        math.NewInt(1_000),
		TotalCycles:           3,
		CycleFrequencySeconds: 3600,
		SlippageToleranceBps:  100,
	})
	s.Require().NoError(err)

	s.e.Clock.Advance(2 * time.Minute)
	report, err := s.bot.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Require().Equal(s.bot.RunID(), report.RunID)
	s.Require().Equal(uint64(1), report.Sweep)
	s.Require().Equal(1, report.Expired)
	s.Require().Equal(1, report.LimitExecuted)
	s.Require().Equal(1, report.DCAExecuted)
	s.Require().Zero(report.Liquidated)
	s.Require().Zero(report.Failed)

	statuses := map[orderbooktypes.OrderID]orderbooktypes.OrderStatus{
		executable.ID(): orderbooktypes.OrderStatusFilled,
		resting.ID():    orderbooktypes.OrderStatusOpen,
		stale.ID():      orderbooktypes.OrderStatusExpired,
	}
	for id, want := range statuses {
		order, err := s.e.App.LimitOrder(s.ctx, id)
		s.Require().NoError(err)
		s.Require().Equal(want, order.Status, "order %s", id)
	}

	got, err := s.e.App.DCAOrder(s.ctx, dca.ID())
	s.Require().NoError(err)
	s.Require().Equal(uint64(1), got.CyclesExecuted)

	// Nothing is eligible again until the next DCA cycle.
	report, err = s.bot.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Require().Equal(trigger.Report{RunID: s.bot.RunID(), Sweep: 2}, report)
	s.e.RequireInvariants(s.T())
}

func (s *BotTestSuite) TestSweepLiquidates() {
	position, _, err := s.e.App.OpenPosition(s.ctx, s.trader, s.poolID, pricing.PositionSideLong, math.NewInt(100_000), 10, math.NewInt(10_000))
	s.Require().NoError(err)

	report, err := s.bot.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Require().Zero(report.Liquidated)

	seller := keepertest.TestAddr("seller")
	s.e.Fund(s.T(), seller, sdk.NewInt64Coin(base, 60_000))
	_, _, err = s.e.App.Swap(s.ctx, seller, s.poolID, sharedtypes.SideSell, math.NewInt(60_000), math.ZeroInt())
	s.Require().NoError(err)

	report, err = s.bot.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Require().Equal(1, report.Liquidated)

	liquidated, err := s.e.App.Position(s.ctx, position.ID())
	s.Require().NoError(err)
	s.Require().Equal(perptypes.PositionStatusLiquidated, liquidated.Status)
	s.Require().Equal(math.NewInt(200), s.e.Balance(s.T(), s.keeper, quote))
	s.e.RequireInvariants(s.T())
}

func (s *BotTestSuite) TestFailedTriggerDoesNotStopSweep() {
	order := s.place(sharedtypes.SideBuy, 2_100_000_000, 0)
	_, err := s.e.App.PausePool(s.ctx, s.e.Authority, s.poolID)
	s.Require().NoError(err)

	report, err := s.bot.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Require().Equal(1, report.Failed)
	s.Require().Zero(report.LimitExecuted)

	stored, err := s.e.App.LimitOrder(s.ctx, order.ID())
	s.Require().NoError(err)
	s.Require().Equal(orderbooktypes.OrderStatusOpen, stored.Status)
}

func (s *BotTestSuite) TestRunStopsOnCancel() {
	cfg := trigger.DefaultConfig(s.keeper)
	cfg.Interval = 10 * time.Millisecond
	var sweeps atomic.Int64
	cfg.OnSweep = func(trigger.Report) { sweeps.Add(1) }
	bot, err := trigger.NewBot(s.e.App, cfg, log.NewNopLogger())
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		s.Require().NoError(err)
	case <-time.After(5 * time.Second):
		s.FailNow("bot did not stop")
	}
	s.Require().Positive(sweeps.Load())
}

func TestNewBotValidation(t *testing.T) {
	e := engine.New(t)
	executor := keepertest.TestAddr("keeper-bot")

	_, err := trigger.NewBot(e.App, trigger.Config{Interval: time.Second, TriggersPerSecond: 1, Burst: 1}, log.NewNopLogger())
	require.Error(t, err)

	cfg := trigger.DefaultConfig(executor)
	cfg.Interval = 0
	_, err = trigger.NewBot(e.App, cfg, log.NewNopLogger())
	require.Error(t, err)

	cfg = trigger.DefaultConfig(executor)
	cfg.Burst = 0
	_, err = trigger.NewBot(e.App, cfg, log.NewNopLogger())
	require.Error(t, err)

	a, err := trigger.NewBot(e.App, trigger.DefaultConfig(executor), log.NewNopLogger())
	require.NoError(t, err)
	b, err := trigger.NewBot(e.App, trigger.DefaultConfig(executor), log.NewNopLogger())
	require.NoError(t, err)
	require.NotEqual(t, a.RunID(), b.RunID())
}
