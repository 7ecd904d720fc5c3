package pricing

import (
	"testing"

	"cosmossdk.io/math"
	"pgregory.net/rapid"
)

func drawAmount(t *rapid.T, label string, lo, hi int64) math.Int {
	return math.NewInt(rapid.Int64Range(lo, hi).Draw(t, label))
}

// TestSwapGrowsInvariant checks that k never decreases across a swap and
// strictly grows whenever a fee is charged.
func TestSwapGrowsInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveIn := drawAmount(t, "reserveIn", 1, 1<<40)
		reserveOut := drawAmount(t, "reserveOut", 1, 1<<40)
		amountIn := drawAmount(t, "amountIn", 1, 1<<40)
		feeBps := rapid.Uint32Range(0, MaxFeeRateBps).Draw(t, "feeBps")

		out, err := SwapOutput(amountIn, reserveIn, reserveOut, feeBps)
		if err != nil {
			t.Fatalf("swap output: %v", err)
		}
		if out.GTE(reserveOut) {
			t.Fatalf("output %s drains reserve %s", out, reserveOut)
		}

		oldK := reserveIn.Mul(reserveOut)
		newK := reserveIn.Add(amountIn).Mul(reserveOut.Sub(out))
		if newK.LT(oldK) {
			t.Fatalf("k decreased: %s -> %s", oldK, newK)
		}
		if feeBps > 0 && !newK.GT(oldK) {
			t.Fatalf("k did not grow with fee %d: %s -> %s", feeBps, oldK, newK)
		}
	})
}

// TestSwapOutputMonotoneInFee checks that a higher fee never pays more.
func TestSwapOutputMonotoneInFee(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveIn := drawAmount(t, "reserveIn", 1, 1<<40)
		reserveOut := drawAmount(t, "reserveOut", 1, 1<<40)
		amountIn := drawAmount(t, "amountIn", 0, 1<<40)
		lo := rapid.Uint32Range(0, MaxFeeRateBps-1).Draw(t, "lo")
		hi := rapid.Uint32Range(lo+1, MaxFeeRateBps).Draw(t, "hi")

		outLo, err := SwapOutput(amountIn, reserveIn, reserveOut, lo)
		if err != nil {
			t.Fatal(err)
		}
		outHi, err := SwapOutput(amountIn, reserveIn, reserveOut, hi)
		if err != nil {
			t.Fatal(err)
		}
		if outHi.GT(outLo) {
			t.Fatalf("fee %d paid %s, fee %d paid %s", hi, outHi, lo, outLo)
		}
	})
}

// TestAddRemoveRoundTrip checks that depositing and immediately withdrawing
// never returns more than was deposited and loses at most rounding dust.
func TestAddRemoveRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveA := drawAmount(t, "reserveA", 1_000, 1<<40)
		reserveB := drawAmount(t, "reserveB", 1_000, 1<<40)
		supply, err := InitialLpTokens(reserveA, reserveB)
		if err != nil {
			t.Fatal(err)
		}
		amountA := drawAmount(t, "amountA", 1, 1<<40)
		amountB, err := SafeMulDivCeil(amountA, reserveB, reserveA)
		if err != nil {
			t.Fatal(err)
		}

		minted, err := ProportionalLpTokens(amountA, amountB, reserveA, reserveB, supply)
		if err != nil {
			t.Fatal(err)
		}
		outA, outB, err := WithdrawAmounts(minted, supply.Add(minted), reserveA.Add(amountA), reserveB.Add(amountB))
		if err != nil {
			t.Fatal(err)
		}
		if outA.GT(amountA) || outB.GT(amountB) {
			t.Fatalf("withdrew more than deposited: %s/%s from %s/%s", outA, outB, amountA, amountB)
		}

		// Loss is bounded by one LP unit's worth of each reserve plus floor dust.
		unitA := reserveA.Add(amountA).Quo(supply).AddRaw(2)
		unitB := reserveB.Add(amountB).Quo(supply).AddRaw(2)
		if amountA.Sub(outA).GT(unitA) || amountB.Sub(outB).GT(unitB) {
			t.Fatalf("round trip lost too much: %s/%s of %s/%s", outA, outB, amountA, amountB)
		}
	})
}

// TestLiquidationPriceBracketsEntry checks that the liquidation price sits
// on the adverse side of entry for every valid leverage.
func TestLiquidationPriceBracketsEntry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		entry := drawAmount(t, "entry", 1, 1<<50)
		leverage := rapid.Uint32Range(1, 100).Draw(t, "leverage")

		long, err := LiquidationPrice(entry, leverage, PositionSideLong)
		if err != nil {
			t.Fatal(err)
		}
		short, err := LiquidationPrice(entry, leverage, PositionSideShort)
		if err != nil {
			t.Fatal(err)
		}
		if long.GT(entry) || short.LT(entry) {
			t.Fatalf("entry %s lev %d: long %s short %s", entry, leverage, long, short)
		}
	})
}

// TestPnlIsZeroSum checks that a long and a short of equal size at the same
// entry mirror each other within one unit of rounding.
func TestPnlIsZeroSum(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		entry := drawAmount(t, "entry", 1, 1<<40)
		current := drawAmount(t, "current", 0, 1<<40)
		size := drawAmount(t, "size", 0, 1<<40)

		long, err := Pnl(entry, current, size, PositionSideLong)
		if err != nil {
			t.Fatal(err)
		}
		short, err := Pnl(entry, current, size, PositionSideShort)
		if err != nil {
			t.Fatal(err)
		}
		sum := long.Add(short)
		if sum.IsPositive() || sum.LT(math.NewInt(-1)) {
			t.Fatalf("long %s + short %s = %s", long, short, sum)
		}
	})
}
