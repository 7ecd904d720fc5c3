package keeper

import storetypes "cosmossdk.io/store/types"

// StoreKey exposes the ledger store to tests that corrupt it on purpose.
func (k Keeper) StoreKey() storetypes.StoreKey {
	return k.storeKey
}
