package pricing

import (
	stdmath "math"
	"math/big"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/solrush/rush/x/shared/types"
)

func TestSwapOutput(t *testing.T) {
	tests := []struct {
		name       string
		amountIn   int64
		reserveIn  int64
		reserveOut int64
		feeBps     uint32
		want       int64
		wantErr    error
	}{
		{"reference swap", 100, 1000, 2000, 30, 180, nil},
		{"no fee", 100, 1000, 2000, 0, 181, nil},
		{"zero input", 0, 1000, 2000, 30, 0, nil},
		{"empty in reserve", 100, 0, 2000, 30, 0, types.ErrPoolEmpty},
		{"empty out reserve", 100, 1000, 0, 30, 0, types.ErrPoolEmpty},
		{"fee above 100%", 100, 1000, 2000, 10_001, 0, types.ErrInvalidFeeRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SwapOutput(math.NewInt(tt.amountIn), math.NewInt(tt.reserveIn), math.NewInt(tt.reserveOut), tt.feeBps)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Int64())
		})
	}
}

func TestSwapOutputDecreasesWithFee(t *testing.T) {
	in, rIn, rOut := math.NewInt(1_000_000), math.NewInt(50_000_000), math.NewInt(80_000_000)
	prev, err := SwapOutput(in, rIn, rOut, 0)
	require.NoError(t, err)
	for fee := uint32(1); fee <= MaxFeeRateBps; fee++ {
		out, err := SwapOutput(in, rIn, rOut, fee)
		require.NoError(t, err)
		require.True(t, out.LT(prev), "fee %d: %s !< %s", fee, out, prev)
		prev = out
	}
}

func TestSwapFee(t *testing.T) {
	fee, err := SwapFee(math.NewInt(100), 30)
	require.NoError(t, err)
	require.Equal(t, int64(1), fee.Int64())

	fee, err = SwapFee(math.NewInt(10_000), 30)
	require.NoError(t, err)
	require.Equal(t, int64(30), fee.Int64())
}

func TestLpTokens(t *testing.T) {
	initial, err := InitialLpTokens(math.NewInt(1_000_000), math.NewInt(2_000_000))
	require.NoError(t, err)
	require.Equal(t, int64(1_414_213), initial.Int64())

	minted, err := ProportionalLpTokens(math.NewInt(1000), math.NewInt(2000), math.NewInt(10000), math.NewInt(20000), math.NewInt(14142))
	require.NoError(t, err)
	require.Equal(t, int64(1414), minted.Int64())

	// Depositing excess B does not mint more than the A side allows.
	minted, err = ProportionalLpTokens(math.NewInt(1000), math.NewInt(9000), math.NewInt(10000), math.NewInt(20000), math.NewInt(14142))
	require.NoError(t, err)
	require.Equal(t, int64(1414), minted.Int64())

	_, err = ProportionalLpTokens(math.NewInt(1), math.NewInt(1), math.ZeroInt(), math.NewInt(1), math.NewInt(1))
	require.ErrorIs(t, err, types.ErrPoolEmpty)
}

func TestWithdrawAmounts(t *testing.T) {
	a, b, err := WithdrawAmounts(math.NewInt(1414), math.NewInt(14142), math.NewInt(10000), math.NewInt(20000))
	require.NoError(t, err)
	require.Equal(t, int64(999), a.Int64())
	require.Equal(t, int64(1999), b.Int64())

	_, _, err = WithdrawAmounts(math.NewInt(2), math.NewInt(1), math.NewInt(1), math.NewInt(1))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)

	_, _, err = WithdrawAmounts(math.NewInt(1), math.ZeroInt(), math.ZeroInt(), math.ZeroInt())
	require.ErrorIs(t, err, types.ErrPoolEmpty)
}

func TestPriceImpactPct(t *testing.T) {
	impact, err := PriceImpactPct(math.NewInt(100), math.NewInt(1000), math.NewInt(2000), math.NewInt(180))
	require.NoError(t, err)
	// spot 2.0, executed 1.8
	require.Equal(t, "10.000000000000000000", impact.String())

	impact, err = PriceImpactPct(math.ZeroInt(), math.NewInt(1000), math.NewInt(2000), math.ZeroInt())
	require.NoError(t, err)
	require.True(t, impact.IsZero())
}

func TestMarginMath(t *testing.T) {
	margin, err := RequiredMargin(math.NewInt(10_001), 10)
	require.NoError(t, err)
	require.Equal(t, int64(1001), margin.Int64())

	_, err = RequiredMargin(math.NewInt(1), 0)
	require.ErrorIs(t, err, types.ErrInvalidLeverage)

	liq, err := LiquidationPrice(math.NewInt(10000), 10, PositionSideLong)
	require.NoError(t, err)
	require.Equal(t, int64(9000), liq.Int64())

	liq, err = LiquidationPrice(math.NewInt(10000), 2, PositionSideShort)
	require.NoError(t, err)
	require.Equal(t, int64(15000), liq.Int64())
}

func TestMarginLiquidationPrice(t *testing.T) {
	// margin equal to size/leverage matches the leverage formula
	liq, err := MarginLiquidationPrice(math.NewInt(10000), math.NewInt(10000), math.NewInt(1000), PositionSideLong)
	require.NoError(t, err)
	require.Equal(t, int64(9000), liq.Int64())

	liq, err = MarginLiquidationPrice(math.NewInt(10000), math.NewInt(10000), math.NewInt(2000), PositionSideLong)
	require.NoError(t, err)
	require.Equal(t, int64(8000), liq.Int64())

	liq, err = MarginLiquidationPrice(math.NewInt(10000), math.NewInt(10000), math.NewInt(20000), PositionSideLong)
	require.NoError(t, err)
	require.True(t, liq.IsZero())

	liq, err = MarginLiquidationPrice(math.NewInt(10000), math.NewInt(10000), math.NewInt(5000), PositionSideShort)
	require.NoError(t, err)
	require.Equal(t, int64(15000), liq.Int64())
}

func TestPnl(t *testing.T) {
	tests := []struct {
		name                 string
		entry, current, size int64
		side                 PositionSide
		want                 int64
	}{
		{"long profit", 10000, 11000, 10000, PositionSideLong, 1000},
		{"short profit", 10000, 9000, 10000, PositionSideShort, 1000},
		{"long loss", 10000, 9000, 10000, PositionSideLong, -1000},
		{"short loss", 10000, 11000, 10000, PositionSideShort, -1000},
		{"loss rounds down", 3, 2, 10, PositionSideLong, -4},
		{"profit rounds down", 3, 4, 10, PositionSideLong, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Pnl(math.NewInt(tt.entry), math.NewInt(tt.current), math.NewInt(tt.size), tt.side)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Int64())
		})
	}

	_, err := Pnl(math.ZeroInt(), math.NewInt(1), math.NewInt(1), PositionSideLong)
	require.ErrorIs(t, err, types.ErrZeroAmount)
}

func TestFundingPayment(t *testing.T) {
	pay, err := FundingPayment(math.NewInt(1_000_000), 250)
	require.NoError(t, err)
	require.Equal(t, int64(250), pay.Int64())

	pay, err = FundingPayment(math.NewInt(10), -1)
	require.NoError(t, err)
	require.Equal(t, int64(-1), pay.Int64())
}

func TestPriceConversions(t *testing.T) {
	price, err := SpotPrice(math.NewInt(1000), math.NewInt(2000))
	require.NoError(t, err)
	require.Equal(t, int64(2*PriceScale), price.Int64())

	_, err = SpotPrice(math.ZeroInt(), math.NewInt(2000))
	require.ErrorIs(t, err, types.ErrPoolEmpty)

	base, err := QuoteToBase(math.NewInt(400), price)
	require.NoError(t, err)
	require.Equal(t, int64(200), base.Int64())

	quote, err := BaseToQuote(math.NewInt(200), price)
	require.NoError(t, err)
	require.Equal(t, int64(400), quote.Int64())

	minOut, err := ApplySlippage(math.NewInt(1000), 100)
	require.NoError(t, err)
	require.Equal(t, int64(990), minOut.Int64())

	_, err = ApplySlippage(math.NewInt(1000), 10_001)
	require.ErrorIs(t, err, types.ErrInvalidSlippageTolerance)
}

func TestOverflow(t *testing.T) {
	huge := math.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 255))
	_, err := SafeMul(huge, math.NewInt(4))
	require.ErrorIs(t, err, types.ErrArithmeticOverflow)

	_, err = SafeAdd(huge, huge)
	require.ErrorIs(t, err, types.ErrArithmeticOverflow)

	_, err = SafeSub(math.NewInt(1), math.NewInt(2))
	require.ErrorIs(t, err, types.ErrArithmeticOverflow)

	_, err = InitialLpTokens(huge, huge)
	require.NoError(t, err)

	// the intermediate product may exceed 256 bits when the quotient fits
	out, err := SafeMulDiv(huge, math.NewInt(4), math.NewInt(8))
	require.NoError(t, err)
	require.True(t, out.Equal(huge.QuoRaw(2)))
}

func TestSafeAddInt64(t *testing.T) {
	sum, err := SafeAddInt64(1_767_225_600, 3600)
	require.NoError(t, err)
	require.Equal(t, int64(1_767_229_200), sum)

	sum, err = SafeAddInt64(stdmath.MaxInt64-1, 1)
	require.NoError(t, err)
	require.Equal(t, int64(stdmath.MaxInt64), sum)

	_, err = SafeAddInt64(1_767_225_600, stdmath.MaxInt64)
	require.ErrorIs(t, err, types.ErrArithmeticOverflow)

	_, err = SafeAddInt64(-1, stdmath.MinInt64)
	require.ErrorIs(t, err, types.ErrArithmeticOverflow)
}
