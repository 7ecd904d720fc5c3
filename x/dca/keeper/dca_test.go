package keeper_test

import (
	stdmath "math"
	"testing"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/suite"

	keepertest "github.com/solrush/rush/testutil/keeper"
	"github.com/solrush/rush/x/dca/keeper"
	"github.com/solrush/rush/x/dca/types"
	ledgertypes "github.com/solrush/rush/x/ledger/types"
	"github.com/solrush/rush/x/shared/pricing"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

const (
	base  = "usol"
	quote = "uusdc"
)

type DCATestSuite struct {
	suite.Suite
	k      keepertest.Keepers
	ctx    sdk.Context
	owner  sdk.AccAddress
	other  sdk.AccAddress
	bot    sdk.AccAddress
	poolID uint64
}

func (s *DCATestSuite) SetupTest() {
	s.k, s.ctx = keepertest.EngineKeepers(s.T())
	s.owner = keepertest.TestAddr("dca-owner")
	s.other = keepertest.TestAddr("someone-else")
	s.bot = keepertest.TestAddr("keeper-bot")
	s.poolID = keepertest.SeedPool(s.T(), s.k, s.ctx, base, quote, math.NewInt(1_000_000), math.NewInt(2_000_000))

	keepertest.Fund(s.T(), s.k, s.ctx, s.owner, sdk.NewInt64Coin(base, 500_000), sdk.NewInt64Coin(quote, 500_000))
}

func TestDCASuite(t *testing.T) {
	suite.Run(t, new(DCATestSuite))
}

func (s *DCATestSuite) params() keeper.DCAOrderParams {
	return keeper.DCAOrderParams{
		PoolID:                s.poolID,
		Side:                  sharedtypes.SideBuy,
		AmountPerCycle:        math.NewInt(10_000),
		TotalCycles:           3,
		CycleFrequencySeconds: 3600,
		SlippageToleranceBps:  100,
		MinPrice:              math.ZeroInt(),
		MaxPrice:              math.ZeroInt(),
	}
}

func (s *DCATestSuite) create(p keeper.DCAOrderParams) *types.DCAOrder {
	order, err := s.k.DCA.CreateDCAOrder(s.ctx, s.owner, p)
	s.Require().NoError(err)
	return order
}

func (s *DCATestSuite) balance(addr sdk.AccAddress, denom string) math.Int {
	return s.k.Ledger.GetBalance(s.ctx, addr, denom).Amount
}

func (s *DCATestSuite) escrowBalance(order *types.DCAOrder) math.Int {
	handle, err := s.k.Ledger.AccountFor(s.ctx, ledgertypes.PurposeDCAEscrow, s.owner, order.Seq)
	s.Require().NoError(err)
	return s.balance(handle, order.DenomIn)
}

func (s *DCATestSuite) assertInvariant() {
	msg, broken := keeper.EscrowScheduleInvariant(s.k.DCA)(s.ctx)
	s.Require().False(broken, msg)
}

func (s *DCATestSuite) TestCreateDCAOrder() {
	order := s.create(s.params())

	s.Require().Equal(uint64(1), order.Seq)
	s.Require().Equal(quote, order.DenomIn)
	s.Require().Equal(base, order.DenomOut)
	s.Require().Equal(types.DCAStatusOpen, order.Status)
	s.Require().Zero(order.CyclesExecuted)
	s.Require().Equal(s.ctx.BlockTime().Unix(), order.NextExecutionTime)
	s.Require().Equal(math.NewInt(30_000), order.EscrowRemaining)

	s.Require().Equal(math.NewInt(470_000), s.balance(s.owner, quote))
	s.Require().Equal(math.NewInt(30_000), s.escrowBalance(order))

	second := s.create(s.params())
	s.Require().Equal(uint64(2), second.Seq)
	s.assertInvariant()
}

func (s *DCATestSuite) TestCreateDCAOrder_Validation() {
	testCases := []struct {
		name   string
		mutate func(p *keeper.DCAOrderParams)
		err    error
	}{
		{"zero amount per cycle", func(p *keeper.DCAOrderParams) { p.AmountPerCycle = math.ZeroInt() }, sharedtypes.ErrZeroAmount},
		{"zero cycles", func(p *keeper.DCAOrderParams) { p.TotalCycles = 0 }, sharedtypes.ErrZeroAmount},
		{"zero frequency", func(p *keeper.DCAOrderParams) { p.CycleFrequencySeconds = 0 }, sharedtypes.ErrInvalidCycleFrequency},
		{"frequency past int64", func(p *keeper.DCAOrderParams) { p.CycleFrequencySeconds = stdmath.MaxInt64 }, sharedtypes.ErrInvalidCycleFrequency},
		{"schedule past int64", func(p *keeper.DCAOrderParams) { p.CycleFrequencySeconds = stdmath.MaxInt64 / 3 }, sharedtypes.ErrInvalidCycleFrequency},
		{"slippage above 100%", func(p *keeper.DCAOrderParams) { p.SlippageToleranceBps = 10_001 }, sharedtypes.ErrInvalidSlippageTolerance},
		{"inverted price range", func(p *keeper.DCAOrderParams) {
			p.MinPrice = math.NewInt(3 * pricing.PriceScale)
			p.MaxPrice = math.NewInt(1 * pricing.PriceScale)
		}, sharedtypes.ErrInvalidPriceRange},
		{"unspecified side", func(p *keeper.DCAOrderParams) { p.Side = sharedtypes.SideUnspecified }, sharedtypes.ErrInvalidSide},
		{"unknown pool", func(p *keeper.DCAOrderParams) { p.PoolID = 99 }, sharedtypes.ErrPoolNotFound},
		{"budget above balance", func(p *keeper.DCAOrderParams) { p.TotalCycles = 100 }, sharedtypes.ErrInsufficientBalance},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			p := s.params()
			tc.mutate(&p)
			_, err := s.k.DCA.CreateDCAOrder(s.ctx, s.owner, p)
			s.Require().ErrorIs(err, tc.err)
		})
	}
	s.Require().Equal(math.NewInt(500_000), s.balance(s.owner, quote))
}

func (s *DCATestSuite) TestExecuteDCAOrder_FullSchedule() {
	order := s.create(s.params())
	id := order.ID()
	start := s.ctx.BlockTime().Unix()

	executed, err := s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, id)
	s.Require().NoError(err)
	s.Require().Equal(types.DCAStatusPartiallyFilled, executed.Status)
	s.Require().Equal(uint64(1), executed.CyclesExecuted)
	s.Require().Equal(start+3600, executed.NextExecutionTime)
	s.Require().Equal(math.NewInt(20_000), executed.EscrowRemaining)
	s.Require().Equal(executed.TotalAmountOut, s.balance(s.owner, base).Sub(math.NewInt(500_000)))
	s.assertInvariant()

	_, err = s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, id)
	s.Require().ErrorIs(err, sharedtypes.ErrTooEarly)

	for cycle := uint64(2); cycle <= 3; cycle++ {
		s.ctx = keepertest.AdvanceTime(s.ctx, time.Hour)
		executed, err = s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, id)
		s.Require().NoError(err)
		s.Require().Equal(cycle, executed.CyclesExecuted)
	}

	s.Require().Equal(types.DCAStatusFilled, executed.Status)
	s.Require().True(executed.EscrowRemaining.IsZero())
	s.Require().True(s.escrowBalance(order).IsZero())
	s.Require().Equal(math.NewInt(470_000), s.balance(s.owner, quote))

	s.ctx = keepertest.AdvanceTime(s.ctx, time.Hour)
	_, err = s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, id)
	s.Require().ErrorIs(err, sharedtypes.ErrInvalidState)
	s.assertInvariant()
}

func (s *DCATestSuite) TestExecuteDCAOrder_ScheduleOverflow() {
	order := s.create(s.params())
	order.CycleFrequencySeconds = stdmath.MaxInt64
	s.Require().NoError(s.k.DCA.SetDCAOrder(s.ctx, order))

	_, err := s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrArithmeticOverflow)

	stored, err := s.k.DCA.GetDCAOrder(s.ctx, order.ID())
	s.Require().NoError(err)
	s.Require().Zero(stored.CyclesExecuted)
	s.Require().Equal(order.NextExecutionTime, stored.NextExecutionTime)
	s.Require().Equal(math.NewInt(30_000), s.escrowBalance(order))
	s.Require().Equal(math.NewInt(500_000), s.balance(s.owner, base))

	// A long but representable schedule keeps the TooEarly gate.
	p := s.params()
	p.TotalCycles = 2
	p.CycleFrequencySeconds = (stdmath.MaxInt64 - s.ctx.BlockTime().Unix()) / 2
	long := s.create(p)
	executed, err := s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, long.ID())
	s.Require().NoError(err)
	s.Require().Greater(executed.NextExecutionTime, s.ctx.BlockTime().Unix())

	_, err = s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, long.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrTooEarly)
}

func (s *DCATestSuite) TestExecuteDCAOrder_SellSide() {
	p := s.params()
	p.Side = sharedtypes.SideSell
	p.TotalCycles = 1
	p.SlippageToleranceBps = 200
	order := s.create(p)

	executed, err := s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, order.ID())
	s.Require().NoError(err)
	s.Require().Equal(types.DCAStatusFilled, executed.Status)
	s.Require().Equal(math.NewInt(490_000), s.balance(s.owner, base))
	s.Require().Equal(math.NewInt(500_000).Add(executed.TotalAmountOut), s.balance(s.owner, quote))
}

func (s *DCATestSuite) TestExecuteDCAOrder_PriceOutOfRange() {
	p := s.params()
	p.MinPrice = math.NewInt(3 * pricing.PriceScale)
	low := s.create(p)

	p = s.params()
	p.MaxPrice = math.NewInt(1 * pricing.PriceScale)
	high := s.create(p)

	p = s.params()
	p.MinPrice = math.NewInt(1 * pricing.PriceScale)
	p.MaxPrice = math.NewInt(3 * pricing.PriceScale)
	inside := s.create(p)

	_, err := s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, low.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrPriceOutOfRange)
	_, err = s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, high.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrPriceOutOfRange)
	_, err = s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, inside.ID())
	s.Require().NoError(err)

	stored, err := s.k.DCA.GetDCAOrder(s.ctx, low.ID())
	s.Require().NoError(err)
	s.Require().Zero(stored.CyclesExecuted)
	s.Require().Equal(types.DCAStatusOpen, stored.Status)
}

func (s *DCATestSuite) TestCancelDCAOrder_BeforeAnyCycle() {
	order := s.create(s.params())

	_, err := s.k.DCA.CancelDCAOrder(s.ctx, s.other, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrUnauthorized)

	cancelled, err := s.k.DCA.CancelDCAOrder(s.ctx, s.owner, order.ID())
	s.Require().NoError(err)
	s.Require().Equal(types.DCAStatusCancelled, cancelled.Status)
	s.Require().Equal(math.NewInt(500_000), s.balance(s.owner, quote))
	s.Require().True(s.escrowBalance(order).IsZero())

	_, err = s.k.DCA.CancelDCAOrder(s.ctx, s.owner, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrInvalidState)
	_, err = s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrInvalidState)
	s.assertInvariant()
}

func (s *DCATestSuite) TestCancelDCAOrder_AfterOneCycle() {
	order := s.create(s.params())
	_, err := s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, order.ID())
	s.Require().NoError(err)

	before := s.balance(s.owner, quote)
	_, err = s.k.DCA.CancelDCAOrder(s.ctx, s.owner, order.ID())
	s.Require().NoError(err)
	s.Require().Equal(before.Add(math.NewInt(20_000)), s.balance(s.owner, quote))
	s.assertInvariant()
}

func (s *DCATestSuite) TestGetDueDCAOrders() {
	first := s.create(s.params())
	second := s.create(s.params())

	due, err := s.k.DCA.GetDueDCAOrders(s.ctx, s.ctx.BlockTime().Unix())
	s.Require().NoError(err)
	s.Require().Len(due, 2)

	_, err = s.k.DCA.ExecuteDCAOrder(s.ctx, s.bot, first.ID())
	s.Require().NoError(err)

	due, err = s.k.DCA.GetDueDCAOrders(s.ctx, s.ctx.BlockTime().Unix())
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Require().Equal(second.Seq, due[0].Seq)

	_, err = s.k.DCA.CancelDCAOrder(s.ctx, s.owner, second.ID())
	s.Require().NoError(err)

	later := s.ctx.BlockTime().Add(time.Hour).Unix()
	due, err = s.k.DCA.GetDueDCAOrders(s.ctx, later)
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Require().Equal(first.Seq, due[0].Seq)

	orders, err := s.k.DCA.GetDCAOrdersByOwner(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Require().Len(orders, 2)
}
