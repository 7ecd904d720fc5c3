package types

import (
	"fmt"
	"strings"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// TradingPair is an ordered Base/Quote pair. Prices are quoted as Quote per Base.
type TradingPair struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

func NewTradingPair(base, quote string) TradingPair {
	return TradingPair{Base: base, Quote: quote}
}

// ParseTradingPair parses "BASE/QUOTE".
func ParseTradingPair(s string) (TradingPair, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return TradingPair{}, sharedtypes.ErrInvalidTradingPair.Wrapf("expected BASE/QUOTE, got %q", s)
	}
	pair := NewTradingPair(parts[0], parts[1])
	return pair, pair.Validate()
}

func (p TradingPair) String() string {
	return p.Base + "/" + p.Quote
}

func (p TradingPair) Validate() error {
	if err := sdk.ValidateDenom(p.Base); err != nil {
		return sharedtypes.ErrInvalidTradingPair.Wrapf("base: %s", err)
	}
	if err := sdk.ValidateDenom(p.Quote); err != nil {
		return sharedtypes.ErrInvalidTradingPair.Wrapf("quote: %s", err)
	}
	if p.Base == p.Quote {
		return sharedtypes.ErrInvalidTradingPair.Wrapf("base and quote are both %s", p.Base)
	}
	return nil
}

// Pool is a constant-product pool for one trading pair. ReserveA holds the
// base token and ReserveB the quote token.
type Pool struct {
	Id         uint64      `json:"id"`
	Pair       TradingPair `json:"pair"`
	ReserveA   math.Int    `json:"reserve_a"`
	ReserveB   math.Int    `json:"reserve_b"`
	LpSupply   math.Int    `json:"lp_supply"`
	FeeRateBps uint32      `json:"fee_rate_bps"`
	Paused     bool        `json:"paused"`
	Creator    string      `json:"creator"`
	CreatedAt  int64       `json:"created_at"`

	// Cumulative statistics, by input token.
	VolumeA math.Int `json:"volume_a"`
	VolumeB math.Int `json:"volume_b"`
	FeesA   math.Int `json:"fees_a"`
	FeesB   math.Int `json:"fees_b"`
}

// LPDenom returns the denom of the pool's LP token.
func (p Pool) LPDenom() string {
	return LPDenom(p.Id)
}

// LPDenomPrefix prefixes every LP token denom.
const LPDenomPrefix = "lp/"

// LPDenom returns the LP token denom of pool id.
func LPDenom(poolID uint64) string {
	return fmt.Sprintf("%s%d", LPDenomPrefix, poolID)
}

// IsEmpty reports whether the pool holds no liquidity.
func (p Pool) IsEmpty() bool {
	return p.LpSupply.IsZero()
}

// SwapLeg describes the input and output side of a swap.
type SwapLeg struct {
	DenomIn    string
	DenomOut   string
	ReserveIn  math.Int
	ReserveOut math.Int
}

// Leg returns the reserves used by a swap in the given direction.
func (p Pool) Leg(side sharedtypes.Side) (SwapLeg, error) {
	switch side {
	case sharedtypes.SideBuy:
		return SwapLeg{DenomIn: p.Pair.Quote, DenomOut: p.Pair.Base, ReserveIn: p.ReserveB, ReserveOut: p.ReserveA}, nil
	case sharedtypes.SideSell:
		return SwapLeg{DenomIn: p.Pair.Base, DenomOut: p.Pair.Quote, ReserveIn: p.ReserveA, ReserveOut: p.ReserveB}, nil
	default:
		return SwapLeg{}, sharedtypes.ErrInvalidSide.Wrapf("%d", side)
	}
}

// Validate checks the structural invariants of a stored pool.
func (p Pool) Validate() error {
	if err := p.Pair.Validate(); err != nil {
		return err
	}
	if p.ReserveA.IsNegative() || p.ReserveB.IsNegative() || p.LpSupply.IsNegative() {
		return sharedtypes.ErrInvariantBroken.Wrapf("pool %d has negative amounts", p.Id)
	}
	empty := p.ReserveA.IsZero() && p.ReserveB.IsZero()
	if p.LpSupply.IsZero() != empty {
		return sharedtypes.ErrInvariantBroken.Wrapf("pool %d: lp supply %s with reserves %s/%s", p.Id, p.LpSupply, p.ReserveA, p.ReserveB)
	}
	if p.FeeRateBps > MaxFeeRateBps {
		return sharedtypes.ErrInvalidFeeRate.Wrapf("%d bps", p.FeeRateBps)
	}
	return nil
}

// SwapResult is the settled outcome of one swap.
type SwapResult struct {
	PoolID    uint64           `json:"pool_id"`
	Side      sharedtypes.Side `json:"side"`
	DenomIn   string           `json:"denom_in"`
	DenomOut  string           `json:"denom_out"`
	AmountIn  math.Int         `json:"amount_in"`
	AmountOut math.Int         `json:"amount_out"`
	Fee       math.Int         `json:"fee"`
}

// SwapQuote is a read-only preview of a swap.
type SwapQuote struct {
	SwapResult
	SpotPrice      math.Int       `json:"spot_price"`
	PriceImpactPct math.LegacyDec `json:"price_impact_pct"`
}

// FeeInfo summarizes a pool's fee configuration and what it has collected.
type FeeInfo struct {
	PoolID     uint64   `json:"pool_id"`
	FeeRateBps uint32   `json:"fee_rate_bps"`
	FeesA      math.Int `json:"fees_a"`
	FeesB      math.Int `json:"fees_b"`
	VolumeA    math.Int `json:"volume_a"`
	VolumeB    math.Int `json:"volume_b"`
}
