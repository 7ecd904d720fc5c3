package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	"cosmossdk.io/store/prefix"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/ledger/types"
	"github.com/solrush/rush/x/shared/pricing"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

func unmarshalInt(bz []byte) (math.Int, error) {
	if bz == nil {
		return math.ZeroInt(), nil
	}
	var v math.Int
	if err := v.Unmarshal(bz); err != nil {
		return math.Int{}, err
	}
	return v, nil
}

func (k Keeper) getInt(ctx context.Context, key []byte) math.Int {
	v, err := unmarshalInt(k.getStore(ctx).Get(key))
	if err != nil {
		// Values are only ever written by setInt.
		panic(fmt.Sprintf("corrupt ledger value at %X: %v", key, err))
	}
	return v
}

func (k Keeper) setInt(ctx context.Context, key []byte, v math.Int) error {
	store := k.getStore(ctx)
	if v.IsZero() {
		store.Delete(key)
		return nil
	}
	bz, err := v.Marshal()
	if err != nil {
		return err
	}
	store.Set(key, bz)
	return nil
}

// GetBalance returns the balance of denom held by addr.
func (k Keeper) GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin {
	return sdk.NewCoin(denom, k.getInt(ctx, types.GetBalanceKey(addr, denom)))
}

// GetAllBalances returns every non-zero balance held by addr.
func (k Keeper) GetAllBalances(ctx context.Context, addr sdk.AccAddress) sdk.Coins {
	store := prefix.NewStore(k.getStore(ctx), types.GetAddressBalancesPrefix(addr))
	iterator := store.Iterator(nil, nil)
	defer iterator.Close()

	coins := sdk.NewCoins()
	for ; iterator.Valid(); iterator.Next() {
		amount, err := unmarshalInt(iterator.Value())
		if err != nil {
			continue
		}
		coins = coins.Add(sdk.NewCoin(string(iterator.Key()), amount))
	}
	return coins
}

// GetSupply returns the total amount of denom in existence.
func (k Keeper) GetSupply(ctx context.Context, denom string) math.Int {
	return k.getInt(ctx, types.GetSupplyKey(denom))
}

// IterateBalances calls cb for every stored balance until cb returns true.
func (k Keeper) IterateBalances(ctx context.Context, cb func(addr sdk.AccAddress, coin sdk.Coin) (stop bool)) {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.BalanceKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		addr, denom := types.SplitBalanceKey(iterator.Key()[len(types.BalanceKeyPrefix):])
		amount, err := unmarshalInt(iterator.Value())
		if err != nil {
			continue
		}
		if cb(addr, sdk.NewCoin(denom, amount)) {
			break
		}
	}
}

// IterateSupply calls cb for every denom with a recorded supply.
func (k Keeper) IterateSupply(ctx context.Context, cb func(coin sdk.Coin) (stop bool)) {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.SupplyKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		denom := string(iterator.Key()[len(types.SupplyKeyPrefix):])
		amount, err := unmarshalInt(iterator.Value())
		if err != nil {
			continue
		}
		if cb(sdk.NewCoin(denom, amount)) {
			break
		}
	}
}

func (k Keeper) subBalance(ctx context.Context, addr sdk.AccAddress, coin sdk.Coin) error {
	key := types.GetBalanceKey(addr, coin.Denom)
	balance := k.getInt(ctx, key)
	if balance.LT(coin.Amount) {
		return sharedtypes.ErrInsufficientBalance.Wrapf("%s has %s%s, needs %s", addr, balance, coin.Denom, coin)
	}
	return k.setInt(ctx, key, balance.Sub(coin.Amount))
}

func (k Keeper) addBalance(ctx context.Context, addr sdk.AccAddress, coin sdk.Coin) error {
	key := types.GetBalanceKey(addr, coin.Denom)
	balance, err := pricing.SafeAdd(k.getInt(ctx, key), coin.Amount)
	if err != nil {
		return err
	}
	return k.setInt(ctx, key, balance)
}

// Transfer moves coin from one account to another. A zero amount is a no-op.
// The move is atomic with respect to the surrounding cached context: either
// both balances change or the caller discards the context.
func (k Keeper) Transfer(ctx context.Context, from, to sdk.AccAddress, coin sdk.Coin) error {
	if err := coin.Validate(); err != nil {
		return sharedtypes.ErrInvalidCoin.Wrap(err.Error())
	}
	if coin.IsZero() || from.Equals(to) {
		return nil
	}
	if err := k.subBalance(ctx, from, coin); err != nil {
		return err
	}
	if err := k.addBalance(ctx, to, coin); err != nil {
		return err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeTransfer,
			sdk.NewAttribute(types.AttributeKeySender, from.String()),
			sdk.NewAttribute(types.AttributeKeyRecipient, to.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, coin.String()),
		),
	)
	return nil
}

// Mint creates coin in the recipient's account and grows the supply.
func (k Keeper) Mint(ctx context.Context, to sdk.AccAddress, coin sdk.Coin) error {
	if err := coin.Validate(); err != nil {
		return sharedtypes.ErrInvalidCoin.Wrap(err.Error())
	}
	if coin.IsZero() {
		return nil
	}
	supply, err := pricing.SafeAdd(k.GetSupply(ctx, coin.Denom), coin.Amount)
	if err != nil {
		return err
	}
	if err := k.addBalance(ctx, to, coin); err != nil {
		return err
	}
	if err := k.setInt(ctx, types.GetSupplyKey(coin.Denom), supply); err != nil {
		return err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeMint,
			sdk.NewAttribute(types.AttributeKeyRecipient, to.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, coin.String()),
		),
	)
	return nil
}

// Burn destroys coin from the holder's account and shrinks the supply.
func (k Keeper) Burn(ctx context.Context, from sdk.AccAddress, coin sdk.Coin) error {
	if err := coin.Validate(); err != nil {
		return sharedtypes.ErrInvalidCoin.Wrap(err.Error())
	}
	if coin.IsZero() {
		return nil
	}
	if err := k.subBalance(ctx, from, coin); err != nil {
		return err
	}
	supply, err := pricing.SafeSub(k.GetSupply(ctx, coin.Denom), coin.Amount)
	if err != nil {
		return err
	}
	if err := k.setInt(ctx, types.GetSupplyKey(coin.Denom), supply); err != nil {
		return err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeBurn,
			sdk.NewAttribute(types.AttributeKeySender, from.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, coin.String()),
		),
	)
	return nil
}
