package types

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// Codespace is shared by every engine module so a caller can match any
// failure with errors.Is regardless of which component raised it.
const Codespace = "rush"

// Validation errors: caller-correctable before submission.
var (
	ErrInvalidFeeRate           = errorsmod.Register(Codespace, 2, "fee rate exceeds maximum")
	ErrZeroAmount               = errorsmod.Register(Codespace, 3, "amount cannot be zero")
	ErrMaxLeverageExceeded      = errorsmod.Register(Codespace, 4, "leverage exceeds configured maximum")
	ErrInvalidLeverage          = errorsmod.Register(Codespace, 5, "invalid leverage")
	ErrInvalidLimitPrice        = errorsmod.Register(Codespace, 6, "invalid limit price")
	ErrInvalidSlippageTolerance = errorsmod.Register(Codespace, 7, "invalid slippage tolerance")
	ErrInvalidExpiration        = errorsmod.Register(Codespace, 8, "invalid expiration")
	ErrInvalidCycleFrequency    = errorsmod.Register(Codespace, 9, "invalid cycle frequency")
	ErrInvalidPriceRange        = errorsmod.Register(Codespace, 10, "invalid price range")
	ErrInvalidTradingPair       = errorsmod.Register(Codespace, 11, "invalid trading pair")
	ErrInvalidSide              = errorsmod.Register(Codespace, 12, "invalid side")
	ErrPoolNotFound             = errorsmod.Register(Codespace, 13, "pool not found")
	ErrPoolAlreadyExists        = errorsmod.Register(Codespace, 14, "pool already exists")
	ErrOrderNotFound            = errorsmod.Register(Codespace, 15, "order not found")
	ErrPositionNotFound         = errorsmod.Register(Codespace, 16, "position not found")
	ErrInvalidParams            = errorsmod.Register(Codespace, 17, "invalid params")
	ErrInvalidCoin              = errorsmod.Register(Codespace, 18, "invalid coin")
)

// Economic errors: depend on market conditions at execution time.
var (
	ErrSlippageExceeded      = errorsmod.Register(Codespace, 20, "slippage tolerance exceeded")
	ErrPoolEmpty             = errorsmod.Register(Codespace, 21, "pool has no liquidity")
	ErrPoolPaused            = errorsmod.Register(Codespace, 22, "pool is paused")
	ErrInsufficientMargin    = errorsmod.Register(Codespace, 23, "insufficient margin")
	ErrPriceOutOfRange       = errorsmod.Register(Codespace, 24, "price outside allowed range")
	ErrOrderNotExecutable    = errorsmod.Register(Codespace, 25, "order price condition not met")
	ErrNotLiquidatable       = errorsmod.Register(Codespace, 26, "position is not liquidatable")
	ErrInsufficientInsurance = errorsmod.Register(Codespace, 27, "insurance fund cannot cover payout")
)

// Concurrency and staleness errors.
var (
	ErrInvalidState = errorsmod.Register(Codespace, 30, "record is not in a valid state for this operation")
	ErrTooEarly     = errorsmod.Register(Codespace, 31, "execution time not reached")
	ErrOrderExpired = errorsmod.Register(Codespace, 32, "order expired")
)

// Authorization and resource errors.
var (
	ErrUnauthorized         = errorsmod.Register(Codespace, 40, "unauthorized")
	ErrInsufficientBalance  = errorsmod.Register(Codespace, 50, "insufficient balance")
	ErrArithmeticOverflow   = errorsmod.Register(Codespace, 51, "arithmetic overflow")
	ErrInvariantBroken      = errorsmod.Register(Codespace, 52, "invariant broken")
	ErrInvalidAccountHandle = errorsmod.Register(Codespace, 53, "invalid account handle")
)

// ErrorClass groups errors by what a caller should do about them.
type ErrorClass uint8

const (
	ClassUnknown ErrorClass = iota
	ClassValidation
	ClassEconomic
	ClassConcurrency
	ClassAuthorization
	ClassResource
)

func (c ErrorClass) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassEconomic:
		return "economic"
	case ClassConcurrency:
		return "concurrency"
	case ClassAuthorization:
		return "authorization"
	case ClassResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Retryable reports whether the same call may succeed later against fresh state.
func (c ErrorClass) Retryable() bool {
	return c == ClassEconomic || c == ClassConcurrency
}

var classes = []struct {
	class ErrorClass
	errs  []error
}{
	{ClassValidation, []error{
		ErrInvalidFeeRate, ErrZeroAmount, ErrMaxLeverageExceeded, ErrInvalidLeverage,
		ErrInvalidLimitPrice, ErrInvalidSlippageTolerance, ErrInvalidExpiration,
		ErrInvalidCycleFrequency, ErrInvalidPriceRange, ErrInvalidTradingPair,
		ErrInvalidSide, ErrPoolNotFound, ErrPoolAlreadyExists, ErrOrderNotFound,
		ErrPositionNotFound, ErrInvalidParams, ErrInvalidCoin,
	}},
	{ClassEconomic, []error{
		ErrSlippageExceeded, ErrPoolEmpty, ErrPoolPaused, ErrInsufficientMargin,
		ErrPriceOutOfRange, ErrOrderNotExecutable, ErrNotLiquidatable, ErrInsufficientInsurance,
	}},
	{ClassConcurrency, []error{ErrInvalidState, ErrTooEarly, ErrOrderExpired}},
	{ClassAuthorization, []error{ErrUnauthorized}},
	{ClassResource, []error{
		ErrInsufficientBalance, ErrArithmeticOverflow, ErrInvariantBroken, ErrInvalidAccountHandle,
	}},
}

// Class returns the taxonomy class of err, or ClassUnknown.
func Class(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}
	for _, c := range classes {
		for _, target := range c.errs {
			if errors.Is(err, target) {
				return c.class
			}
		}
	}
	return ClassUnknown
}
