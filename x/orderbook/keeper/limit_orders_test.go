package keeper_test

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/suite"

	keepertest "github.com/solrush/rush/testutil/keeper"
	ledgertypes "github.com/solrush/rush/x/ledger/types"
	"github.com/solrush/rush/x/orderbook/keeper"
	"github.com/solrush/rush/x/orderbook/types"
	"github.com/solrush/rush/x/shared/pricing"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

const (
	base  = "usol"
	quote = "uusdc"
)

// LimitOrderTestSuite tests the limit order book against a 1:2 pool
// (spot price 2 quote per base).
type LimitOrderTestSuite struct {
	suite.Suite
	k       keepertest.Keepers
	ctx     sdk.Context
	trader1 sdk.AccAddress
	trader2 sdk.AccAddress
	keeper  sdk.AccAddress
	poolID  uint64
}

func (s *LimitOrderTestSuite) SetupTest() {
	s.k, s.ctx = keepertest.EngineKeepers(s.T())
	s.trader1 = keepertest.TestAddr("trader1")
	s.trader2 = keepertest.TestAddr("trader2")
	s.keeper = keepertest.TestAddr("keeper-bot")
	s.poolID = keepertest.SeedPool(s.T(), s.k, s.ctx, base, quote, math.NewInt(1_000_000), math.NewInt(2_000_000))

	keepertest.Fund(s.T(), s.k, s.ctx, s.trader1, sdk.NewInt64Coin(base, 1_000_000), sdk.NewInt64Coin(quote, 1_000_000))
	keepertest.Fund(s.T(), s.k, s.ctx, s.trader2, sdk.NewInt64Coin(base, 1_000_000), sdk.NewInt64Coin(quote, 1_000_000))
}

func TestLimitOrderSuite(t *testing.T) {
	suite.Run(t, new(LimitOrderTestSuite))
}

func price(units int64, tenths int64) math.Int {
	return math.NewInt(units*pricing.PriceScale + tenths*pricing.PriceScale/10)
}

func (s *LimitOrderTestSuite) balance(addr sdk.AccAddress, denom string) math.Int {
	return s.k.Ledger.GetBalance(s.ctx, addr, denom).Amount
}

func (s *LimitOrderTestSuite) escrowBalance(order *types.LimitOrder) math.Int {
	owner := sdk.MustAccAddressFromBech32(order.Owner)
	handle := s.escrowHandle(owner, order.ID())
	return s.balance(handle, order.DenomIn)
}

func (s *LimitOrderTestSuite) escrowHandle(owner sdk.AccAddress, id types.OrderID) sdk.AccAddress {
	handle, err := s.k.Ledger.AccountFor(s.ctx, ledgertypes.PurposeLimitEscrow, owner, id.PoolID, id.Seq)
	s.Require().NoError(err)
	return handle
}

func (s *LimitOrderTestSuite) place(owner sdk.AccAddress, side sharedtypes.Side, amount int64, limit math.Int, expiresAt int64) *types.LimitOrder {
	order, err := s.k.OrderBook.PlaceLimitOrder(s.ctx, owner, s.poolID, side, math.NewInt(amount), limit, 100, expiresAt)
	s.Require().NoError(err)
	return order
}

func (s *LimitOrderTestSuite) assertInvariant() {
	msg, broken := keeper.EscrowBalanceInvariant(s.k.OrderBook)(s.ctx)
	s.Require().False(broken, msg)
}

// ============================================================================
// PlaceLimitOrder Tests
// ============================================================================

func (s *LimitOrderTestSuite) TestPlaceLimitOrder_BuyEscrowsQuote() {
	order := s.place(s.trader1, sharedtypes.SideBuy, 100_000, price(2, 1), 0)

	s.Require().Equal(s.poolID, order.PoolID)
	s.Require().Equal(uint64(1), order.Seq)
	s.Require().Equal(s.trader1.String(), order.Owner)
	s.Require().Equal(quote, order.DenomIn)
	s.Require().Equal(base, order.DenomOut)
	s.Require().Equal(types.OrderStatusOpen, order.Status)
	s.Require().Equal(math.NewInt(100_000), order.EscrowedAmount)

	s.Require().Equal(math.NewInt(900_000), s.balance(s.trader1, quote))
	s.Require().Equal(math.NewInt(100_000), s.escrowBalance(order))
	s.assertInvariant()
}

func (s *LimitOrderTestSuite) TestPlaceLimitOrder_SellEscrowsBase() {
	order := s.place(s.trader1, sharedtypes.SideSell, 50_000, price(1, 9), 0)

	s.Require().Equal(base, order.DenomIn)
	s.Require().Equal(quote, order.DenomOut)
	s.Require().Equal(math.NewInt(950_000), s.balance(s.trader1, base))
	s.Require().Equal(math.NewInt(50_000), s.escrowBalance(order))
}

func (s *LimitOrderTestSuite) TestPlaceLimitOrder_SequencePerPool() {
	first := s.place(s.trader1, sharedtypes.SideBuy, 1_000, price(2, 0), 0)
	second := s.place(s.trader2, sharedtypes.SideSell, 1_000, price(2, 0), 0)

	s.Require().Equal(uint64(1), first.Seq)
	s.Require().Equal(uint64(2), second.Seq)
	s.Require().NotEqual(s.escrowHandle(s.trader1, first.ID()), s.escrowHandle(s.trader2, second.ID()))
}

func (s *LimitOrderTestSuite) TestPlaceLimitOrder_Validation() {
	now := s.ctx.BlockTime().Unix()

	testCases := []struct {
		name     string
		poolID   uint64
		side     sharedtypes.Side
		amount   math.Int
		limit    math.Int
		slippage uint32
		expires  int64
		err      error
	}{
		{"zero amount", s.poolID, sharedtypes.SideBuy, math.ZeroInt(), price(2, 0), 100, 0, sharedtypes.ErrZeroAmount},
		{"zero limit price", s.poolID, sharedtypes.SideBuy, math.NewInt(10), math.ZeroInt(), 100, 0, sharedtypes.ErrInvalidLimitPrice},
		{"slippage above 100%", s.poolID, sharedtypes.SideBuy, math.NewInt(10), price(2, 0), 10_001, 0, sharedtypes.ErrInvalidSlippageTolerance},
		{"expiry in the past", s.poolID, sharedtypes.SideBuy, math.NewInt(10), price(2, 0), 100, now - 1, sharedtypes.ErrInvalidExpiration},
		{"expiry now", s.poolID, sharedtypes.SideBuy, math.NewInt(10), price(2, 0), 100, now, sharedtypes.ErrInvalidExpiration},
		{"unknown pool", 999, sharedtypes.SideBuy, math.NewInt(10), price(2, 0), 100, 0, sharedtypes.ErrPoolNotFound},
		{"unspecified side", s.poolID, sharedtypes.SideUnspecified, math.NewInt(10), price(2, 0), 100, 0, sharedtypes.ErrInvalidSide},
		{"insufficient balance", s.poolID, sharedtypes.SideBuy, math.NewInt(5_000_000), price(2, 0), 100, 0, sharedtypes.ErrInsufficientBalance},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.k.OrderBook.PlaceLimitOrder(s.ctx, s.trader1, tc.poolID, tc.side, tc.amount, tc.limit, tc.slippage, tc.expires)
			s.Require().ErrorIs(err, tc.err)
		})
	}

	open, err := s.k.OrderBook.GetOpenOrders(s.ctx, s.poolID)
	s.Require().NoError(err)
	s.Require().Empty(open)
}

// ============================================================================
// ExecuteLimitOrder Tests
// ============================================================================

func (s *LimitOrderTestSuite) TestExecuteLimitOrder_Buy() {
	order := s.place(s.trader1, sharedtypes.SideBuy, 100_000, price(2, 1), 0)

	quoted, err := s.k.AMM.QuoteSwap(s.ctx, s.poolID, sharedtypes.SideBuy, math.NewInt(100_000))
	s.Require().NoError(err)

	executed, err := s.k.OrderBook.ExecuteLimitOrder(s.ctx, s.keeper, order.ID())
	s.Require().NoError(err)
	s.Require().Equal(types.OrderStatusFilled, executed.Status)
	s.Require().Equal(quoted.AmountOut, executed.AmountOut)
	s.Require().NotZero(executed.ClosedAt)

	s.Require().Equal(math.NewInt(1_000_000).Add(quoted.AmountOut), s.balance(s.trader1, base))
	s.Require().True(s.escrowBalance(order).IsZero())
	s.Require().True(s.balance(s.keeper, base).IsZero(), "executor earns nothing")

	open, err := s.k.OrderBook.GetOpenOrders(s.ctx, s.poolID)
	s.Require().NoError(err)
	s.Require().Empty(open)
	s.assertInvariant()
}

func (s *LimitOrderTestSuite) TestExecuteLimitOrder_Sell() {
	order := s.place(s.trader1, sharedtypes.SideSell, 10_000, price(1, 9), 0)

	executed, err := s.k.OrderBook.ExecuteLimitOrder(s.ctx, s.keeper, order.ID())
	s.Require().NoError(err)
	s.Require().Equal(types.OrderStatusFilled, executed.Status)
	s.Require().True(executed.AmountOut.IsPositive())
	s.Require().Equal(math.NewInt(1_000_000).Add(executed.AmountOut), s.balance(s.trader1, quote))
}

func (s *LimitOrderTestSuite) TestExecuteLimitOrder_PriceNotReached() {
	buy := s.place(s.trader1, sharedtypes.SideBuy, 10_000, price(1, 9), 0)
	sell := s.place(s.trader2, sharedtypes.SideSell, 10_000, price(2, 1), 0)

	_, err := s.k.OrderBook.ExecuteLimitOrder(s.ctx, s.keeper, buy.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrOrderNotExecutable)
	_, err = s.k.OrderBook.ExecuteLimitOrder(s.ctx, s.keeper, sell.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrOrderNotExecutable)

	stored, err := s.k.OrderBook.GetLimitOrder(s.ctx, buy.ID())
	s.Require().NoError(err)
	s.Require().Equal(types.OrderStatusOpen, stored.Status)
	s.Require().Equal(math.NewInt(10_000), s.escrowBalance(stored))
}

func (s *LimitOrderTestSuite) TestExecuteLimitOrder_ExactLimitExecutes() {
	order := s.place(s.trader1, sharedtypes.SideSell, 1_000, price(2, 0), 0)

	_, err := s.k.OrderBook.ExecuteLimitOrder(s.ctx, s.keeper, order.ID())
	s.Require().NoError(err)
}

func (s *LimitOrderTestSuite) TestExecuteLimitOrder_SlippageExceeded() {
	// Price condition holds but selling the pool's whole base reserve moves
	// the price far past the tolerated shortfall.
	order := s.place(s.trader1, sharedtypes.SideSell, 1_000_000, price(2, 0), 0)

	_, err := s.k.OrderBook.ExecuteLimitOrder(s.ctx, s.keeper, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrSlippageExceeded)
}

func (s *LimitOrderTestSuite) TestExecuteLimitOrder_AtMostOnce() {
	order := s.place(s.trader1, sharedtypes.SideBuy, 10_000, price(2, 1), 0)

	_, err := s.k.OrderBook.ExecuteLimitOrder(s.ctx, s.keeper, order.ID())
	s.Require().NoError(err)
	after := s.balance(s.trader1, base)

	_, err = s.k.OrderBook.ExecuteLimitOrder(s.ctx, s.trader2, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrInvalidState)
	s.Require().Equal(after, s.balance(s.trader1, base))
}

func (s *LimitOrderTestSuite) TestExecuteLimitOrder_Expired() {
	now := s.ctx.BlockTime().Unix()
	order := s.place(s.trader1, sharedtypes.SideBuy, 10_000, price(2, 1), now+60)

	s.ctx = keepertest.AdvanceTime(s.ctx, 2*time.Minute)

	expired, err := s.k.OrderBook.ExecuteLimitOrder(s.ctx, s.keeper, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrOrderExpired)
	s.Require().Equal(types.OrderStatusExpired, expired.Status)
	s.Require().Equal(math.NewInt(1_000_000), s.balance(s.trader1, quote))
	s.Require().True(s.escrowBalance(order).IsZero())

	_, err = s.k.OrderBook.ExecuteLimitOrder(s.ctx, s.keeper, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrInvalidState)
}

func (s *LimitOrderTestSuite) TestExecuteLimitOrder_NotFound() {
	_, err := s.k.OrderBook.ExecuteLimitOrder(s.ctx, s.keeper, types.OrderID{PoolID: s.poolID, Seq: 42})
	s.Require().ErrorIs(err, sharedtypes.ErrOrderNotFound)
}

// ============================================================================
// CancelLimitOrder Tests
// ============================================================================

func (s *LimitOrderTestSuite) TestCancelLimitOrder() {
	order := s.place(s.trader1, sharedtypes.SideBuy, 10_000, price(1, 0), 0)

	_, err := s.k.OrderBook.CancelLimitOrder(s.ctx, s.trader2, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrUnauthorized)

	cancelled, err := s.k.OrderBook.CancelLimitOrder(s.ctx, s.trader1, order.ID())
	s.Require().NoError(err)
	s.Require().Equal(types.OrderStatusCancelled, cancelled.Status)
	s.Require().Equal(math.NewInt(1_000_000), s.balance(s.trader1, quote))

	_, err = s.k.OrderBook.CancelLimitOrder(s.ctx, s.trader1, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrInvalidState)
	_, err = s.k.OrderBook.ExecuteLimitOrder(s.ctx, s.keeper, order.ID())
	s.Require().ErrorIs(err, sharedtypes.ErrInvalidState)
	s.assertInvariant()
}

// ============================================================================
// Expiry sweep and queries
// ============================================================================

func (s *LimitOrderTestSuite) TestProcessExpiredOrders() {
	now := s.ctx.BlockTime().Unix()
	short := s.place(s.trader1, sharedtypes.SideBuy, 10_000, price(1, 0), now+60)
	long := s.place(s.trader2, sharedtypes.SideSell, 10_000, price(3, 0), now+3600)
	forever := s.place(s.trader2, sharedtypes.SideSell, 10_000, price(3, 0), 0)

	s.ctx = keepertest.AdvanceTime(s.ctx, 10*time.Minute)

	n, err := s.k.OrderBook.ProcessExpiredOrders(s.ctx)
	s.Require().NoError(err)
	s.Require().Equal(1, n)

	stored, err := s.k.OrderBook.GetLimitOrder(s.ctx, short.ID())
	s.Require().NoError(err)
	s.Require().Equal(types.OrderStatusExpired, stored.Status)

	open, err := s.k.OrderBook.GetOpenOrders(s.ctx, s.poolID)
	s.Require().NoError(err)
	s.Require().Len(open, 2)
	s.Require().Equal(long.ID(), open[0].ID())
	s.Require().Equal(forever.ID(), open[1].ID())

	n, err = s.k.OrderBook.ProcessExpiredOrders(s.ctx)
	s.Require().NoError(err)
	s.Require().Zero(n)
	s.assertInvariant()
}

func (s *LimitOrderTestSuite) TestGetOrdersByOwner() {
	s.place(s.trader1, sharedtypes.SideBuy, 1_000, price(1, 0), 0)
	s.place(s.trader2, sharedtypes.SideBuy, 1_000, price(1, 0), 0)
	s.place(s.trader1, sharedtypes.SideSell, 1_000, price(3, 0), 0)

	orders, err := s.k.OrderBook.GetOrdersByOwner(s.ctx, s.trader1)
	s.Require().NoError(err)
	s.Require().Len(orders, 2)
	for _, order := range orders {
		s.Require().Equal(s.trader1.String(), order.Owner)
	}
}
