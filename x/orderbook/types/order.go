package types

import (
	"fmt"
	"strconv"
	"strings"

	"cosmossdk.io/math"

	"github.com/solrush/rush/x/shared/pricing"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// OrderStatus represents the current status of a limit order in its lifecycle.
//
// Order Lifecycle:
//
//	Open → Filled    (executed by any caller once the price condition holds)
//	Open → Cancelled (owner cancellation, escrow refunded)
//	Open → Expired   (execution attempted after expiry, escrow refunded)
//
// PartiallyFilled is part of the status set but execution is all-or-nothing,
// so no transition currently produces it.
type OrderStatus uint8

const (
	OrderStatusUnspecified OrderStatus = iota
	OrderStatusOpen
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCancelled
	OrderStatusExpired
)

var orderStatusNames = map[OrderStatus]string{
	OrderStatusOpen:            "open",
	OrderStatusPartiallyFilled: "partially_filled",
	OrderStatusFilled:          "filled",
	OrderStatusCancelled:       "cancelled",
	OrderStatusExpired:         "expired",
}

func (s OrderStatus) String() string {
	if name, ok := orderStatusNames[s]; ok {
		return name
	}
	return "unspecified"
}

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusExpired
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	name, ok := orderStatusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown order status %d", s)
	}
	return []byte(name), nil
}

func (s *OrderStatus) UnmarshalText(text []byte) error {
	for status, name := range orderStatusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown order status %q", string(text))
}

// OrderID addresses a limit order: the pool's book and the sequence index
// the book assigned at placement.
type OrderID struct {
	PoolID uint64 `json:"pool_id"`
	Seq    uint64 `json:"seq"`
}

func (id OrderID) String() string {
	return fmt.Sprintf("%d-%d", id.PoolID, id.Seq)
}

// ParseOrderID parses the "pool-seq" form produced by OrderID.String.
func ParseOrderID(s string) (OrderID, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return OrderID{}, sharedtypes.ErrOrderNotFound.Wrapf("malformed order id %q", s)
	}
	poolID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return OrderID{}, sharedtypes.ErrOrderNotFound.Wrapf("malformed order id %q", s)
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return OrderID{}, sharedtypes.ErrOrderNotFound.Wrapf("malformed order id %q", s)
	}
	return OrderID{PoolID: poolID, Seq: seq}, nil
}

// LimitOrder represents a limit order in a pool's book.
//
// The full amountIn is moved into a dedicated escrow account at placement and
// stays there until the order is cancelled, expires or executes. Execution
// swaps the whole escrow through the pool in one step.
type LimitOrder struct {
	// PoolID and Seq form the order's identity
	PoolID uint64 `json:"pool_id"`
	Seq    uint64 `json:"seq"`
	// Owner is the address that placed the order
	Owner string `json:"owner"`
	// Side is buy (pay quote) or sell (pay base)
	Side sharedtypes.Side `json:"side"`
	// DenomIn is the token escrowed and sold
	DenomIn string `json:"denom_in"`
	// DenomOut is the token received on execution
	DenomOut string `json:"denom_out"`
	// AmountIn is the amount of DenomIn to trade
	AmountIn math.Int `json:"amount_in"`
	// LimitPrice is quote per base, scaled by pricing.PriceScale
	LimitPrice math.Int `json:"limit_price"`
	// SlippageToleranceBps bounds the output shortfall against the limit price
	SlippageToleranceBps uint32 `json:"slippage_tolerance_bps"`
	// ExpiresAt is a unix timestamp; 0 means no expiry
	ExpiresAt int64 `json:"expires_at"`
	// EscrowedAmount is fixed at creation
	EscrowedAmount math.Int `json:"escrowed_amount"`
	// AmountOut is what the owner received on execution
	AmountOut math.Int `json:"amount_out"`
	// Status is the current status of the order
	Status OrderStatus `json:"status"`
	// CreatedAt and ClosedAt are unix timestamps
	CreatedAt int64 `json:"created_at"`
	ClosedAt  int64 `json:"closed_at,omitempty"`
}

// ID returns the order's identity.
func (o LimitOrder) ID() OrderID {
	return OrderID{PoolID: o.PoolID, Seq: o.Seq}
}

// IsExpired reports whether the order has an expiry that lies before now.
func (o LimitOrder) IsExpired(now int64) bool {
	return o.ExpiresAt != 0 && now > o.ExpiresAt
}

// PriceSatisfied reports whether the pool price allows execution: a buy
// executes at or below its limit, a sell at or above it.
func (o LimitOrder) PriceSatisfied(price math.Int) bool {
	if o.Side == sharedtypes.SideBuy {
		return price.LTE(o.LimitPrice)
	}
	return price.GTE(o.LimitPrice)
}

// MinimumOut returns the least output acceptable at the limit price after
// slippage tolerance.
func (o LimitOrder) MinimumOut() (math.Int, error) {
	var expected math.Int
	var err error
	if o.Side == sharedtypes.SideBuy {
		expected, err = pricing.QuoteToBase(o.EscrowedAmount, o.LimitPrice)
	} else {
		expected, err = pricing.BaseToQuote(o.EscrowedAmount, o.LimitPrice)
	}
	if err != nil {
		return math.Int{}, err
	}
	return pricing.ApplySlippage(expected, o.SlippageToleranceBps)
}
