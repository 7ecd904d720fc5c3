package types_test

import (
	"bytes"
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/solrush/rush/x/dca/types"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

func TestPriceInRange(t *testing.T) {
	testCases := []struct {
		name     string
		min, max int64
		price    int64
		expected bool
	}{
		{"unbounded", 0, 0, 5, true},
		{"at min", 5, 0, 5, true},
		{"below min", 5, 0, 4, false},
		{"at max", 0, 5, 5, true},
		{"above max", 0, 5, 6, false},
		{"inside", 2, 8, 5, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			order := types.DCAOrder{MinPrice: math.NewInt(tc.min), MaxPrice: math.NewInt(tc.max)}
			require.Equal(t, tc.expected, order.PriceInRange(math.NewInt(tc.price)))
		})
	}
}

func TestExpectedEscrow(t *testing.T) {
	order := types.DCAOrder{AmountPerCycle: math.NewInt(250), TotalCycles: 4, CyclesExecuted: 1}
	escrow, err := order.ExpectedEscrow()
	require.NoError(t, err)
	require.Equal(t, math.NewInt(750), escrow)
	require.Equal(t, uint64(3), order.RemainingCycles())
}

func TestScheduleKeyRoundTrip(t *testing.T) {
	id := types.OrderID{Owner: sdk.AccAddress([]byte("dca_owner_address___")), Seq: 9}
	require.Equal(t, id, types.ParseScheduleKey(types.ScheduleKey(1_700_000_000, id)))

	// Keys due at or before now sort below the upper bound.
	require.Negative(t, bytes.Compare(types.ScheduleKey(100, id), types.ScheduleUpperBound(100)))
	require.Positive(t, bytes.Compare(types.ScheduleKey(101, id), types.ScheduleUpperBound(100)))
}

func TestParseOrderID(t *testing.T) {
	id := types.OrderID{Owner: sdk.AccAddress([]byte("dca_owner_address___")), Seq: 3}
	parsed, err := types.ParseOrderID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = types.ParseOrderID("nope")
	require.ErrorIs(t, err, sharedtypes.ErrOrderNotFound)
}
