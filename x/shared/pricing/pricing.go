// Package pricing implements the stateless math of the settlement engine:
// the constant-product swap formula, LP share accounting, price impact and
// perpetual margin math. Every function is integer fixed-point with explicit
// floor/ceil rounding and fails with ErrArithmeticOverflow instead of
// wrapping.
package pricing

import (
	"fmt"
	"math/big"

	"cosmossdk.io/math"

	"github.com/solrush/rush/x/shared/types"
)

const (
	// BpsDenominator is 100% expressed in basis points.
	BpsDenominator = 10_000
	// MaxFeeRateBps caps a pool's swap fee at 1%.
	MaxFeeRateBps = 100
	// PriceScale is the fixed-point scale of quoted prices.
	PriceScale = 1_000_000_000
	// FundingScale is the fixed-point scale of funding indexes (parts per million).
	FundingScale = 1_000_000
)

var (
	bpsDenominator = math.NewInt(BpsDenominator)
	priceScale     = math.NewInt(PriceScale)
	fundingScale   = math.NewInt(FundingScale)
)

// PositionSide is the direction of a leveraged position.
type PositionSide uint8

const (
	PositionSideUnspecified PositionSide = iota
	PositionSideLong
	PositionSideShort
)

func (s PositionSide) String() string {
	switch s {
	case PositionSideLong:
		return "long"
	case PositionSideShort:
		return "short"
	default:
		return "unspecified"
	}
}

// ParsePositionSide parses "long" or "short".
func ParsePositionSide(s string) (PositionSide, error) {
	switch s {
	case "long", "Long", "LONG":
		return PositionSideLong, nil
	case "short", "Short", "SHORT":
		return PositionSideShort, nil
	default:
		return PositionSideUnspecified, types.ErrInvalidSide.Wrapf("unknown position side %q", s)
	}
}

func (s PositionSide) MarshalText() ([]byte, error) {
	if s != PositionSideLong && s != PositionSideShort {
		return nil, fmt.Errorf("cannot marshal position side %d", s)
	}
	return []byte(s.String()), nil
}

func (s *PositionSide) UnmarshalText(text []byte) error {
	v, err := ParsePositionSide(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func validateBps(bps uint32) error {
	if bps > BpsDenominator {
		return types.ErrInvalidSlippageTolerance.Wrapf("%d bps exceeds %d", bps, BpsDenominator)
	}
	return nil
}

// SwapOutput returns the constant-product output for amountIn after the fee:
//
//	amountInNet = floor(amountIn*(10000-feeBps)/10000)
//	amountOut   = floor(reserveOut*amountInNet/(reserveIn+amountInNet))
func SwapOutput(amountIn, reserveIn, reserveOut math.Int, feeBps uint32) (math.Int, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return math.Int{}, types.ErrPoolEmpty
	}
	if feeBps > BpsDenominator {
		return math.Int{}, types.ErrInvalidFeeRate.Wrapf("%d bps", feeBps)
	}
	if amountIn.IsZero() {
		return math.ZeroInt(), nil
	}
	amountInNet, err := SafeMulDiv(amountIn, math.NewInt(int64(BpsDenominator-feeBps)), bpsDenominator)
	if err != nil {
		return math.Int{}, err
	}
	denominator, err := SafeAdd(reserveIn, amountInNet)
	if err != nil {
		return math.Int{}, err
	}
	return SafeMulDiv(reserveOut, amountInNet, denominator)
}

// SwapFee returns the part of amountIn retained by the pool as fee.
func SwapFee(amountIn math.Int, feeBps uint32) (math.Int, error) {
	net, err := SafeMulDiv(amountIn, math.NewInt(int64(BpsDenominator-feeBps)), bpsDenominator)
	if err != nil {
		return math.Int{}, err
	}
	return SafeSub(amountIn, net)
}

// InitialLpTokens returns floor(sqrt(amountA*amountB)).
func InitialLpTokens(amountA, amountB math.Int) (math.Int, error) {
	product := new(big.Int).Mul(amountA.BigInt(), amountB.BigInt())
	return fromBig(product.Sqrt(product), "initial lp")
}

// ProportionalLpTokens mints against the binding side of the deposit:
// floor(min(amountA*supply/reserveA, amountB*supply/reserveB)).
func ProportionalLpTokens(amountA, amountB, reserveA, reserveB, totalSupply math.Int) (math.Int, error) {
	if reserveA.IsZero() || reserveB.IsZero() {
		return math.Int{}, types.ErrPoolEmpty
	}
	byA, err := SafeMulDiv(amountA, totalSupply, reserveA)
	if err != nil {
		return math.Int{}, err
	}
	byB, err := SafeMulDiv(amountB, totalSupply, reserveB)
	if err != nil {
		return math.Int{}, err
	}
	return math.MinInt(byA, byB), nil
}

// WithdrawAmounts returns the reserves owed for burning lpBurn shares.
func WithdrawAmounts(lpBurn, totalSupply, reserveA, reserveB math.Int) (math.Int, math.Int, error) {
	if totalSupply.IsZero() {
		return math.Int{}, math.Int{}, types.ErrPoolEmpty
	}
	if lpBurn.GT(totalSupply) {
		return math.Int{}, math.Int{}, types.ErrInsufficientBalance.Wrapf("burn %s exceeds supply %s", lpBurn, totalSupply)
	}
	amountA, err := SafeMulDiv(lpBurn, reserveA, totalSupply)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}
	amountB, err := SafeMulDiv(lpBurn, reserveB, totalSupply)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}
	return amountA, amountB, nil
}

// maxDecOperandBits keeps LegacyDec conversions clear of its internal bit limit.
const maxDecOperandBits = 192

// PriceImpactPct returns (spot - executed)/spot * 100 where spot is
// reserveOut/reserveIn and executed is amountOut/amountIn. It is computed as
// (reserveOut*amountIn - amountOut*reserveIn)/(reserveOut*amountIn) so the
// only rounding is the final decimal quotient.
func PriceImpactPct(amountIn, reserveIn, reserveOut, amountOut math.Int) (math.LegacyDec, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return math.LegacyDec{}, types.ErrPoolEmpty
	}
	if amountIn.IsZero() {
		return math.LegacyZeroDec(), nil
	}
	spotOut, err := SafeMul(reserveOut, amountIn)
	if err != nil {
		return math.LegacyDec{}, err
	}
	execOut, err := SafeMul(amountOut, reserveIn)
	if err != nil {
		return math.LegacyDec{}, err
	}
	if spotOut.BigInt().BitLen() > maxDecOperandBits || execOut.BigInt().BitLen() > maxDecOperandBits {
		return math.LegacyDec{}, types.ErrArithmeticOverflow.Wrap("price impact operands too large")
	}
	diff := spotOut.Sub(execOut)
	return math.LegacyNewDecFromInt(diff).MulInt64(100).QuoInt(spotOut), nil
}

// RequiredMargin returns ceil(size/leverage).
func RequiredMargin(size math.Int, leverage uint32) (math.Int, error) {
	if leverage == 0 {
		return math.Int{}, types.ErrInvalidLeverage.Wrap("leverage must be positive")
	}
	return SafeMulDivCeil(size, math.OneInt(), math.NewInt(int64(leverage)))
}

// LiquidationPrice returns entry*(1-1/leverage) for longs and
// entry*(1+1/leverage) for shorts, floored.
func LiquidationPrice(entry math.Int, leverage uint32, side PositionSide) (math.Int, error) {
	if leverage == 0 {
		return math.Int{}, types.ErrInvalidLeverage.Wrap("leverage must be positive")
	}
	lev := math.NewInt(int64(leverage))
	switch side {
	case PositionSideLong:
		return SafeMulDiv(entry, lev.SubRaw(1), lev)
	case PositionSideShort:
		return SafeMulDiv(entry, lev.AddRaw(1), lev)
	default:
		return math.Int{}, types.ErrInvalidSide.Wrapf("%s", side)
	}
}

// MarginLiquidationPrice returns the price at which the given margin is
// exhausted: entry*(size-margin)/size for longs (zero once margin covers the
// whole notional) and entry*(size+margin)/size for shorts.
func MarginLiquidationPrice(entry, size, margin math.Int, side PositionSide) (math.Int, error) {
	if size.IsZero() {
		return math.Int{}, types.ErrZeroAmount.Wrap("position size")
	}
	switch side {
	case PositionSideLong:
		if margin.GTE(size) {
			return math.ZeroInt(), nil
		}
		return SafeMulDiv(entry, size.Sub(margin), size)
	case PositionSideShort:
		total, err := SafeAdd(size, margin)
		if err != nil {
			return math.Int{}, err
		}
		return SafeMulDiv(entry, total, size)
	default:
		return math.Int{}, types.ErrInvalidSide.Wrapf("%s", side)
	}
}

// Pnl returns the signed profit of a position: (current-entry)/entry*size for
// longs and (entry-current)/entry*size for shorts. Losses round away from
// zero so the engine never under-collects.
func Pnl(entry, current, size math.Int, side PositionSide) (math.Int, error) {
	if !entry.IsPositive() {
		return math.Int{}, types.ErrZeroAmount.Wrap("entry price")
	}
	var diff *big.Int
	switch side {
	case PositionSideLong:
		diff = new(big.Int).Sub(current.BigInt(), entry.BigInt())
	case PositionSideShort:
		diff = new(big.Int).Sub(entry.BigInt(), current.BigInt())
	default:
		return math.Int{}, types.ErrInvalidSide.Wrapf("%s", side)
	}
	return floorQuo(diff.Mul(diff, size.BigInt()), entry)
}

// FundingPayment returns size*deltaIndex/FundingScale, the signed amount a
// long pays (a short receives) for the funding accrued since it opened.
func FundingPayment(size math.Int, deltaIndex int64) (math.Int, error) {
	num := new(big.Int).Mul(size.BigInt(), big.NewInt(deltaIndex))
	return floorQuo(num, fundingScale)
}

// SpotPrice returns reserveB*PriceScale/reserveA, the quote price of one
// unit of the base token.
func SpotPrice(reserveA, reserveB math.Int) (math.Int, error) {
	if reserveA.IsZero() || reserveB.IsZero() {
		return math.Int{}, types.ErrPoolEmpty
	}
	return SafeMulDiv(reserveB, priceScale, reserveA)
}

// SpotOutput returns the fee-less output at the current reserve ratio.
func SpotOutput(amountIn, reserveIn, reserveOut math.Int) (math.Int, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return math.Int{}, types.ErrPoolEmpty
	}
	return SafeMulDiv(amountIn, reserveOut, reserveIn)
}

// QuoteToBase converts a quote amount at price into base units.
func QuoteToBase(quoteAmount, price math.Int) (math.Int, error) {
	if price.IsZero() {
		return math.Int{}, types.ErrInvalidLimitPrice.Wrap("price must be positive")
	}
	return SafeMulDiv(quoteAmount, priceScale, price)
}

// BaseToQuote converts a base amount at price into quote units.
func BaseToQuote(baseAmount, price math.Int) (math.Int, error) {
	return SafeMulDiv(baseAmount, price, priceScale)
}

// ApplySlippage returns amount*(10000-bps)/10000.
func ApplySlippage(amount math.Int, bps uint32) (math.Int, error) {
	if err := validateBps(bps); err != nil {
		return math.Int{}, err
	}
	return SafeMulDiv(amount, math.NewInt(int64(BpsDenominator-bps)), bpsDenominator)
}

// BpsOf returns floor(amount*bps/10000).
func BpsOf(amount math.Int, bps uint32) (math.Int, error) {
	if err := validateBps(bps); err != nil {
		return math.Int{}, err
	}
	return SafeMulDiv(amount, math.NewInt(int64(bps)), bpsDenominator)
}
