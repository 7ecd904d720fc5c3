package types

import "github.com/solrush/rush/x/shared/pricing"

const (
	// MaxFeeRateBps caps a pool's swap fee at 1%.
	MaxFeeRateBps = pricing.MaxFeeRateBps
	// DefaultFeeRateBps is the fee used when a pool is created without one.
	DefaultFeeRateBps uint32 = 30
)
