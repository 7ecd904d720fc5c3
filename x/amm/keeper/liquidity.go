package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/amm/types"
	"github.com/solrush/rush/x/shared/pricing"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// GetLPBalance returns the LP tokens of poolID held by provider.
func (k Keeper) GetLPBalance(ctx context.Context, poolID uint64, provider sdk.AccAddress) math.Int {
	return k.ledger.GetBalance(ctx, provider, types.LPDenom(poolID)).Amount
}

// AddLiquidity deposits amountA of the base token and amountB of the quote
// token and mints LP tokens to the provider. The first deposit mints
// floor(sqrt(amountA*amountB)); later deposits mint against the binding side
// of the current reserve ratio, and the full amounts are still taken.
func (k Keeper) AddLiquidity(ctx context.Context, provider sdk.AccAddress, poolID uint64, amountA, amountB, minLp math.Int) (math.Int, error) {
	if !amountA.IsPositive() || !amountB.IsPositive() {
		return math.Int{}, sharedtypes.ErrZeroAmount.Wrapf("deposit %s/%s", amountA, amountB)
	}

	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return math.Int{}, err
	}

	var minted math.Int
	if pool.LpSupply.IsZero() {
		minted, err = pricing.InitialLpTokens(amountA, amountB)
	} else {
		minted, err = pricing.ProportionalLpTokens(amountA, amountB, pool.ReserveA, pool.ReserveB, pool.LpSupply)
	}
	if err != nil {
		return math.Int{}, err
	}
	if minted.IsZero() {
		return math.Int{}, sharedtypes.ErrZeroAmount.Wrap("deposit too small to mint lp tokens")
	}
	if minted.LT(minLp) {
		return math.Int{}, sharedtypes.ErrSlippageExceeded.Wrapf("would mint %s lp, minimum %s", minted, minLp)
	}

	newReserveA, err := pricing.SafeAdd(pool.ReserveA, amountA)
	if err != nil {
		return math.Int{}, err
	}
	newReserveB, err := pricing.SafeAdd(pool.ReserveB, amountB)
	if err != nil {
		return math.Int{}, err
	}
	newSupply, err := pricing.SafeAdd(pool.LpSupply, minted)
	if err != nil {
		return math.Int{}, err
	}

	vault, err := k.vault(ctx, poolID)
	if err != nil {
		return math.Int{}, err
	}
	if err := k.ledger.Transfer(ctx, provider, vault, sdk.NewCoin(pool.Pair.Base, amountA)); err != nil {
		return math.Int{}, err
	}
	if err := k.ledger.Transfer(ctx, provider, vault, sdk.NewCoin(pool.Pair.Quote, amountB)); err != nil {
		return math.Int{}, err
	}
	if err := k.ledger.Mint(ctx, provider, sdk.NewCoin(pool.LPDenom(), minted)); err != nil {
		return math.Int{}, err
	}

	pool.ReserveA = newReserveA
	pool.ReserveB = newReserveB
	pool.LpSupply = newSupply
	if err := k.SetPool(ctx, pool); err != nil {
		return math.Int{}, err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeLiquidityAdded,
			sdk.NewAttribute(types.AttributeKeyPoolID, fmt.Sprintf("%d", poolID)),
			sdk.NewAttribute(types.AttributeKeyProvider, provider.String()),
			sdk.NewAttribute(types.AttributeKeyAmountA, amountA.String()),
			sdk.NewAttribute(types.AttributeKeyAmountB, amountB.String()),
			sdk.NewAttribute(types.AttributeKeyLPTokens, minted.String()),
		),
	)

	k.recordLiquidity(ctx, *pool, amountA, amountB, true)
	return minted, nil
}

// RemoveLiquidity burns lpBurn LP tokens and pays out the proportional share
// of both reserves.
func (k Keeper) RemoveLiquidity(ctx context.Context, provider sdk.AccAddress, poolID uint64, lpBurn, minA, minB math.Int) (math.Int, math.Int, error) {
	if !lpBurn.IsPositive() {
		return math.Int{}, math.Int{}, sharedtypes.ErrZeroAmount.Wrap("lp burn amount")
	}

	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}

	if balance := k.GetLPBalance(ctx, poolID, provider); balance.LT(lpBurn) {
		return math.Int{}, math.Int{}, sharedtypes.ErrInsufficientBalance.Wrapf("lp balance %s < burn %s", balance, lpBurn)
	}

	amountA, amountB, err := pricing.WithdrawAmounts(lpBurn, pool.LpSupply, pool.ReserveA, pool.ReserveB)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}
	if amountA.LT(minA) || amountB.LT(minB) {
		return math.Int{}, math.Int{}, sharedtypes.ErrSlippageExceeded.Wrapf(
			"withdraw %s/%s below minimum %s/%s", amountA, amountB, minA, minB)
	}
	if amountA.IsZero() && amountB.IsZero() {
		return math.Int{}, math.Int{}, sharedtypes.ErrZeroAmount.Wrap("burn too small to withdraw anything")
	}

	newReserveA, err := pricing.SafeSub(pool.ReserveA, amountA)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}
	newReserveB, err := pricing.SafeSub(pool.ReserveB, amountB)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}
	newSupply, err := pricing.SafeSub(pool.LpSupply, lpBurn)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}

	vault, err := k.vault(ctx, poolID)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}
	if err := k.ledger.Burn(ctx, provider, sdk.NewCoin(pool.LPDenom(), lpBurn)); err != nil {
		return math.Int{}, math.Int{}, err
	}
	if err := k.ledger.Transfer(ctx, vault, provider, sdk.NewCoin(pool.Pair.Base, amountA)); err != nil {
		return math.Int{}, math.Int{}, err
	}
	if err := k.ledger.Transfer(ctx, vault, provider, sdk.NewCoin(pool.Pair.Quote, amountB)); err != nil {
		return math.Int{}, math.Int{}, err
	}

	pool.ReserveA = newReserveA
	pool.ReserveB = newReserveB
	pool.LpSupply = newSupply
	if err := k.SetPool(ctx, pool); err != nil {
		return math.Int{}, math.Int{}, err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeLiquidityRemoved,
			sdk.NewAttribute(types.AttributeKeyPoolID, fmt.Sprintf("%d", poolID)),
			sdk.NewAttribute(types.AttributeKeyProvider, provider.String()),
			sdk.NewAttribute(types.AttributeKeyAmountA, amountA.String()),
			sdk.NewAttribute(types.AttributeKeyAmountB, amountB.String()),
			sdk.NewAttribute(types.AttributeKeyLPTokens, lpBurn.String()),
		),
	)

	k.recordLiquidity(ctx, *pool, amountA, amountB, false)
	return amountA, amountB, nil
}
