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

// DCAStatus tracks a recurring order through its cycles.
//
//	Open → PartiallyFilled → ... → Filled
//	Open | PartiallyFilled → Cancelled
type DCAStatus uint8

const (
	DCAStatusUnspecified DCAStatus = iota
	DCAStatusOpen
	DCAStatusPartiallyFilled
	DCAStatusFilled
	DCAStatusCancelled
)

var dcaStatusNames = map[DCAStatus]string{
	DCAStatusOpen:            "open",
	DCAStatusPartiallyFilled: "partially_filled",
	DCAStatusFilled:          "filled",
	DCAStatusCancelled:       "cancelled",
}

func (s DCAStatus) String() string {
	if name, ok := dcaStatusNames[s]; ok {
		return name
	}
	return "unspecified"
}

// IsTerminal reports whether no further cycle may run.
func (s DCAStatus) IsTerminal() bool {
	return s == DCAStatusFilled || s == DCAStatusCancelled
}

func (s DCAStatus) MarshalText() ([]byte, error) {
	name, ok := dcaStatusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown dca status %d", s)
	}
	return []byte(name), nil
}

func (s *DCAStatus) UnmarshalText(text []byte) error {
	for status, name := range dcaStatusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown dca status %q", string(text))
}

// OrderID addresses a DCA order: its owner and the owner's sequence index.
type OrderID struct {
	Owner sdk.AccAddress `json:"owner"`
	Seq   uint64         `json:"seq"`
}

func (id OrderID) String() string {
	return fmt.Sprintf("%s/%d", id.Owner, id.Seq)
}

// ParseOrderID parses the "owner/seq" form produced by OrderID.String.
func ParseOrderID(s string) (OrderID, error) {
	owner, seqStr, ok := strings.Cut(s, "/")
	if !ok {
		return OrderID{}, sharedtypes.ErrOrderNotFound.Wrapf("malformed dca order id %q", s)
	}
	addr, err := sdk.AccAddressFromBech32(owner)
	if err != nil {
		return OrderID{}, sharedtypes.ErrOrderNotFound.Wrapf("malformed dca order id %q: %s", s, err)
	}
	seq, err := strconv.ParseUint(seqStr, 10, 64)
	if err != nil {
		return OrderID{}, sharedtypes.ErrOrderNotFound.Wrapf("malformed dca order id %q", s)
	}
	return OrderID{Owner: addr, Seq: seq}, nil
}

// DCAOrder is a recurring order that trades AmountPerCycle every
// CycleFrequencySeconds until TotalCycles have run. The full budget is
// escrowed at creation and drawn down one cycle at a time.
type DCAOrder struct {
	Owner                 string           `json:"owner"`
	Seq                   uint64           `json:"seq"`
	PoolID                uint64           `json:"pool_id"`
	Side                  sharedtypes.Side `json:"side"`
	DenomIn               string           `json:"denom_in"`
	DenomOut              string           `json:"denom_out"`
	AmountPerCycle        math.Int         `json:"amount_per_cycle"`
	TotalCycles           uint64           `json:"total_cycles"`
	CyclesExecuted        uint64           `json:"cycles_executed"`
	CycleFrequencySeconds int64            `json:"cycle_frequency_seconds"`
	NextExecutionTime     int64            `json:"next_execution_time"`
	SlippageToleranceBps  uint32           `json:"slippage_tolerance_bps"`

	// MinPrice and MaxPrice bound the pool price a cycle may run at;
	// zero leaves that side unbounded.
	MinPrice math.Int `json:"min_price"`
	MaxPrice math.Int `json:"max_price"`

	EscrowRemaining math.Int  `json:"escrow_remaining"`
	TotalAmountOut  math.Int  `json:"total_amount_out"`
	Status          DCAStatus `json:"status"`
	CreatedAt       int64     `json:"created_at"`
	LastExecutedAt  int64     `json:"last_executed_at,omitempty"`
}

// ID returns the order's identity. The owner must be a valid address.
func (o DCAOrder) ID() OrderID {
	return OrderID{Owner: sdk.MustAccAddressFromBech32(o.Owner), Seq: o.Seq}
}

// RemainingCycles returns the number of cycles not yet run.
func (o DCAOrder) RemainingCycles() uint64 {
	return o.TotalCycles - o.CyclesExecuted
}

// ExpectedEscrow returns amountPerCycle times the remaining cycles.
func (o DCAOrder) ExpectedEscrow() (math.Int, error) {
	return pricing.SafeMul(o.AmountPerCycle, math.NewIntFromUint64(o.RemainingCycles()))
}

// IsDue reports whether a cycle may run at now.
func (o DCAOrder) IsDue(now int64) bool {
	return now >= o.NextExecutionTime
}

// PriceInRange reports whether price lies inside the configured bounds.
func (o DCAOrder) PriceInRange(price math.Int) bool {
	if o.MinPrice.IsPositive() && price.LT(o.MinPrice) {
		return false
	}
	if o.MaxPrice.IsPositive() && price.GT(o.MaxPrice) {
		return false
	}
	return true
}
