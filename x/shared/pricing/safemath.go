package pricing

import (
	stdmath "math"
	"math/big"

	"cosmossdk.io/math"

	"github.com/solrush/rush/x/shared/types"
)

// Checked arithmetic over math.Int. Results that would not fit in a
// math.Int (256 bits) fail with ErrArithmeticOverflow instead of panicking.

func fromBig(v *big.Int, op string) (math.Int, error) {
	if v.BitLen() > math.MaxBitLen {
		return math.Int{}, types.ErrArithmeticOverflow.Wrapf("%s result exceeds %d bits", op, math.MaxBitLen)
	}
	return math.NewIntFromBigInt(v), nil
}

// SafeAdd adds a and b and fails if the sum exceeds 256 bits.
func SafeAdd(a, b math.Int) (math.Int, error) {
	return fromBig(new(big.Int).Add(a.BigInt(), b.BigInt()), "addition")
}

// SafeSub subtracts b from a and fails if the result would be negative.
func SafeSub(a, b math.Int) (math.Int, error) {
	if a.LT(b) {
		return math.Int{}, types.ErrArithmeticOverflow.Wrapf("underflow: cannot subtract %s from %s", b, a)
	}
	return a.Sub(b), nil
}

// SafeMul multiplies a and b and fails if the product exceeds 256 bits.
func SafeMul(a, b math.Int) (math.Int, error) {
	if a.IsZero() || b.IsZero() {
		return math.ZeroInt(), nil
	}
	return fromBig(new(big.Int).Mul(a.BigInt(), b.BigInt()), "multiplication")
}

// SafeAddInt64 adds two unix timestamps or durations in seconds.
func SafeAddInt64(a, b int64) (int64, error) {
	if (b > 0 && a > stdmath.MaxInt64-b) || (b < 0 && a < stdmath.MinInt64-b) {
		return 0, types.ErrArithmeticOverflow.Wrapf("%d + %d overflows int64", a, b)
	}
	return a + b, nil
}

// SafeQuo divides a by b, truncating toward zero.
func SafeQuo(a, b math.Int) (math.Int, error) {
	if b.IsZero() {
		return math.Int{}, types.ErrArithmeticOverflow.Wrap("division by zero")
	}
	return a.Quo(b), nil
}

// SafeMulDiv computes floor(a*b/c) for non-negative operands. The
// intermediate product may exceed 256 bits; only the quotient must fit.
func SafeMulDiv(a, b, c math.Int) (math.Int, error) {
	if c.IsZero() {
		return math.Int{}, types.ErrArithmeticOverflow.Wrap("division by zero")
	}
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	return fromBig(product.Quo(product, c.BigInt()), "mul-div")
}

// SafeMulDivCeil computes ceil(a*b/c) for non-negative operands.
func SafeMulDivCeil(a, b, c math.Int) (math.Int, error) {
	if c.IsZero() {
		return math.Int{}, types.ErrArithmeticOverflow.Wrap("division by zero")
	}
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	quo, rem := new(big.Int).QuoRem(product, c.BigInt(), new(big.Int))
	if rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return fromBig(quo, "mul-div")
}

// floorQuo divides a signed numerator by a positive denominator rounding
// toward negative infinity.
func floorQuo(num *big.Int, den math.Int) (math.Int, error) {
	if !den.IsPositive() {
		return math.Int{}, types.ErrArithmeticOverflow.Wrap("division by non-positive value")
	}
	// big.Int.Div is Euclidean, which is floor division for a positive divisor.
	return fromBig(new(big.Int).Div(num, den.BigInt()), "signed division")
}
