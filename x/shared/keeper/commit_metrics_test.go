package keeper_test

import (
	"context"
	"testing"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/solrush/rush/x/shared/keeper"
)

func TestOnCommitWithoutBufferRunsImmediately(t *testing.T) {
	ran := false
	keeper.OnCommit(context.Background(), func() { ran = true })
	require.True(t, ran)
}

func TestPendingMetricsFlushInOrder(t *testing.T) {
	ctx, pending := keeper.WithPendingMetrics(sdk.Context{}.WithContext(context.Background()))

	var got []int
	keeper.OnCommit(ctx, func() { got = append(got, 1) })
	keeper.OnCommit(ctx, func() { got = append(got, 2) })

	// Derived contexts share the buffer.
	nested := ctx.WithBlockHeight(5)
	keeper.OnCommit(nested, func() { got = append(got, 3) })

	require.Empty(t, got)
	require.Equal(t, 3, pending.Len())

	pending.Flush()
	require.Equal(t, []int{1, 2, 3}, got)
	require.Zero(t, pending.Len())

	pending.Flush()
	require.Len(t, got, 3)
}
