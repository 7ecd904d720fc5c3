package keeper

import (
	"context"
	"fmt"
	stdmath "math"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/perp/types"
	sharedkeeper "github.com/solrush/rush/x/shared/keeper"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// UpdateFundingRate records a new funding rate for a pool and adds it to the
// cumulative index. Positive rates are paid by longs to shorts. Only the
// authority may call it.
func (k Keeper) UpdateFundingRate(ctx context.Context, authority sdk.AccAddress, poolID uint64, rate int64) (types.FundingState, error) {
	if err := sharedkeeper.ValidateAuthority(k.authority, authority.String()); err != nil {
		return types.FundingState{}, err
	}
	if _, err := k.pools.GetPoolInfo(ctx, poolID); err != nil {
		return types.FundingState{}, err
	}

	state := k.GetFundingState(ctx, poolID)
	if (rate > 0 && state.CumulativeIndex > stdmath.MaxInt64-rate) ||
		(rate < 0 && state.CumulativeIndex < stdmath.MinInt64-rate) {
		return types.FundingState{}, sharedtypes.ErrArithmeticOverflow.Wrapf("funding index %d + %d", state.CumulativeIndex, rate)
	}
	state.CumulativeIndex += rate
	state.CurrentRate = rate
	state.UpdatedAt = sdk.UnwrapSDKContext(ctx).BlockTime().Unix()
	if err := k.setFundingState(ctx, state); err != nil {
		return types.FundingState{}, err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeFundingUpdated,
			sdk.NewAttribute(types.AttributeKeyPoolID, fmt.Sprintf("%d", poolID)),
			sdk.NewAttribute(types.AttributeKeyRate, fmt.Sprintf("%d", rate)),
			sdk.NewAttribute(types.AttributeKeyIndex, fmt.Sprintf("%d", state.CumulativeIndex)),
		),
	)

	sharedkeeper.OnCommit(ctx, func() {
		k.metrics.FundingIndex.WithLabelValues(poolLabel(poolID)).Set(float64(state.CumulativeIndex))
	})
	return state, nil
}

// DepositInsurance moves quote tokens from depositor into a pool's insurance
// fund. Anyone may capitalise the fund.
func (k Keeper) DepositInsurance(ctx context.Context, depositor sdk.AccAddress, poolID uint64, amount math.Int) error {
	if !amount.IsPositive() {
		return sharedtypes.ErrZeroAmount.Wrap("insurance deposit")
	}
	pool, err := k.pools.GetPoolInfo(ctx, poolID)
	if err != nil {
		return err
	}
	insurance, err := k.insuranceFund(ctx, poolID)
	if err != nil {
		return err
	}
	coin := sdk.NewCoin(pool.Quote, amount)
	if err := k.ledger.Transfer(ctx, depositor, insurance, coin); err != nil {
		return err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeInsuranceDeposit,
			sdk.NewAttribute(types.AttributeKeyPoolID, fmt.Sprintf("%d", poolID)),
			sdk.NewAttribute(types.AttributeKeyDepositor, depositor.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, coin.String()),
		),
	)
	return nil
}

// InsuranceBalance returns the balance of a pool's insurance fund.
func (k Keeper) InsuranceBalance(ctx context.Context, poolID uint64) (sdk.Coin, error) {
	pool, err := k.pools.GetPoolInfo(ctx, poolID)
	if err != nil {
		return sdk.Coin{}, err
	}
	insurance, err := k.insuranceFund(ctx, poolID)
	if err != nil {
		return sdk.Coin{}, err
	}
	return k.ledger.GetBalance(ctx, insurance, pool.Quote), nil
}
