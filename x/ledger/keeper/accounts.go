package keeper

import (
	"context"
	"encoding/json"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/solrush/rush/x/ledger/types"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// AccountFor returns the opaque handle of the engine-held account identified
// by (owner, purpose, sequence), registering it on first use. Callers treat
// the handle as an ordinary ledger account.
func (k Keeper) AccountFor(ctx context.Context, purpose types.AccountPurpose, owner sdk.AccAddress, sequence ...uint64) (sdk.AccAddress, error) {
	if err := purpose.Validate(); err != nil {
		return nil, sharedtypes.ErrInvalidAccountHandle.Wrap(err.Error())
	}

	handle := types.DeriveHandle(owner, purpose, sequence...)
	store := k.getStore(ctx)
	key := types.GetAccountKey(handle)
	if store.Has(key) {
		return handle, nil
	}

	info := types.AccountInfo{
		Handle:   handle.String(),
		Purpose:  purpose,
		Sequence: sequence,
	}
	if len(owner) > 0 {
		info.Owner = owner.String()
	}
	bz, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	store.Set(key, bz)

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeAccountRegister,
			sdk.NewAttribute(types.AttributeKeyHandle, info.Handle),
			sdk.NewAttribute(types.AttributeKeyOwner, info.Owner),
			sdk.NewAttribute(types.AttributeKeyPurpose, string(purpose)),
		),
	)
	return handle, nil
}

// GetAccountInfo explains a handle previously issued by AccountFor.
func (k Keeper) GetAccountInfo(ctx context.Context, handle sdk.AccAddress) (types.AccountInfo, bool) {
	bz := k.getStore(ctx).Get(types.GetAccountKey(handle))
	if bz == nil {
		return types.AccountInfo{}, false
	}
	var info types.AccountInfo
	if err := json.Unmarshal(bz, &info); err != nil {
		return types.AccountInfo{}, false
	}
	return info, true
}

// IsEngineAccount reports whether addr is a registered engine-held account.
func (k Keeper) IsEngineAccount(ctx context.Context, addr sdk.AccAddress) bool {
	return k.getStore(ctx).Has(types.GetAccountKey(addr))
}
