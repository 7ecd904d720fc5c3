package types

import (
	"fmt"

	"github.com/solrush/rush/x/shared/pricing"
)

const (
	DefaultMaxLeverage       uint32 = 10
	DefaultLiquidationFeeBps uint32 = 200
)

// Params are the governance-controlled engine parameters.
type Params struct {
	MaxLeverage       uint32 `json:"max_leverage"`
	LiquidationFeeBps uint32 `json:"liquidation_fee_bps"`
}

func DefaultParams() Params {
	return Params{
		MaxLeverage:       DefaultMaxLeverage,
		LiquidationFeeBps: DefaultLiquidationFeeBps,
	}
}

func (p Params) Validate() error {
	if p.MaxLeverage == 0 {
		return fmt.Errorf("max leverage must be positive")
	}
	if p.LiquidationFeeBps > pricing.BpsDenominator {
		return fmt.Errorf("liquidation fee %d bps exceeds 100%%", p.LiquidationFeeBps)
	}
	return nil
}

// FundingState is the cumulative funding index of one pool, in parts per
// million of position size.
type FundingState struct {
	PoolID          uint64 `json:"pool_id"`
	CumulativeIndex int64  `json:"cumulative_index"`
	CurrentRate     int64  `json:"current_rate"`
	UpdatedAt       int64  `json:"updated_at"`
}
