package types

import (
	"fmt"
	"strconv"
	"strings"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/shared/pricing"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// PositionStatus is the lifecycle state of a perpetual position.
type PositionStatus uint8

const (
	PositionStatusUnspecified PositionStatus = iota
	PositionStatusOpen
	PositionStatusLiquidated
	PositionStatusClosed
)

var positionStatusNames = map[PositionStatus]string{
	PositionStatusOpen:       "open",
	PositionStatusLiquidated: "liquidated",
	PositionStatusClosed:     "closed",
}

func (s PositionStatus) String() string {
	if name, ok := positionStatusNames[s]; ok {
		return name
	}
	return "unspecified"
}

func (s PositionStatus) MarshalText() ([]byte, error) {
	name, ok := positionStatusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown position status %d", s)
	}
	return []byte(name), nil
}

func (s *PositionStatus) UnmarshalText(text []byte) error {
	for status, name := range positionStatusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown position status %q", string(text))
}

// PositionID addresses a position: its owner and the owner's sequence index.
type PositionID struct {
	Owner sdk.AccAddress `json:"owner"`
	Seq   uint64         `json:"seq"`
}

func (id PositionID) String() string {
	return fmt.Sprintf("%s/%d", id.Owner, id.Seq)
}

// ParsePositionID parses the "owner/seq" form produced by PositionID.String.
func ParsePositionID(s string) (PositionID, error) {
	owner, seqStr, ok := strings.Cut(s, "/")
	if !ok {
		return PositionID{}, sharedtypes.ErrPositionNotFound.Wrapf("malformed position id %q", s)
	}
	addr, err := sdk.AccAddressFromBech32(owner)
	if err != nil {
		return PositionID{}, sharedtypes.ErrPositionNotFound.Wrapf("malformed position id %q: %s", s, err)
	}
	seq, err := strconv.ParseUint(seqStr, 10, 64)
	if err != nil {
		return PositionID{}, sharedtypes.ErrPositionNotFound.Wrapf("malformed position id %q", s)
	}
	return PositionID{Owner: addr, Seq: seq}, nil
}

// Position is a leveraged perpetual position against a pool's quoted price.
// Size, margin and pnl are in the pool's quote token.
type Position struct {
	Owner             string               `json:"owner"`
	Seq               uint64               `json:"seq"`
	PoolID            uint64               `json:"pool_id"`
	Denom             string               `json:"denom"`
	Side              pricing.PositionSide `json:"side"`
	Size              math.Int             `json:"size"`
	EntryPrice        math.Int             `json:"entry_price"`
	Leverage          uint32               `json:"leverage"`
	Margin            math.Int             `json:"margin"`
	LiquidationPrice  math.Int             `json:"liquidation_price"`
	EntryFundingIndex int64                `json:"entry_funding_index"`
	Status            PositionStatus       `json:"status"`
	OpenedAt          int64                `json:"opened_at"`

	// Set when the position leaves the Open state.
	ClosedAt    int64    `json:"closed_at,omitempty"`
	ExitPrice   math.Int `json:"exit_price"`
	RealizedPnl math.Int `json:"realized_pnl"`
	FundingPaid math.Int `json:"funding_paid"`
	Payout      math.Int `json:"payout"`
}

// ID returns the position's identity. The owner must be a valid address.
func (p Position) ID() PositionID {
	return PositionID{Owner: sdk.MustAccAddressFromBech32(p.Owner), Seq: p.Seq}
}

// IsLiquidatable reports whether price has crossed the liquidation price in
// the adverse direction.
func (p Position) IsLiquidatable(price math.Int) bool {
	if p.Side == pricing.PositionSideLong {
		return price.LTE(p.LiquidationPrice)
	}
	return price.GTE(p.LiquidationPrice)
}

// Settlement is the outcome of marking a position to a price.
type Settlement struct {
	Pnl     math.Int `json:"pnl"`
	Funding math.Int `json:"funding"`
	Payout  math.Int `json:"payout"`
}

// Settle computes pnl and accrued funding at price and the resulting payout
// max(0, margin + pnl ∓ funding). Longs pay positive funding, shorts receive it.
func (p Position) Settle(price math.Int, fundingIndex int64) (Settlement, error) {
	pnl, err := pricing.Pnl(p.EntryPrice, price, p.Size, p.Side)
	if err != nil {
		return Settlement{}, err
	}
	funding, err := pricing.FundingPayment(p.Size, fundingIndex-p.EntryFundingIndex)
	if err != nil {
		return Settlement{}, err
	}

	net := pnl.Sub(funding)
	if p.Side == pricing.PositionSideShort {
		net = pnl.Add(funding)
	}
	payout, err := pricing.SafeAdd(p.Margin, net)
	if err != nil {
		return Settlement{}, err
	}
	if payout.IsNegative() {
		payout = math.ZeroInt()
	}
	return Settlement{Pnl: pnl, Funding: funding, Payout: payout}, nil
}

// PositionHealth is the mark-to-market view of an open position.
type PositionHealth struct {
	Position     Position   `json:"position"`
	CurrentPrice math.Int   `json:"current_price"`
	Settlement   Settlement `json:"settlement"`
	Liquidatable bool       `json:"liquidatable"`
	// DistanceBps is how far the price may move adversely before
	// liquidation, in basis points of the current price.
	DistanceBps int64 `json:"distance_bps"`
}
