package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
)

const (
	// ModuleName defines the module name
	ModuleName = "amm"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName
)

// Store key prefixes
var (
	PoolKey         = []byte{0x01} // prefix for pool store
	PoolCountKey    = []byte{0x02} // key for pool count
	PoolByTokensKey = []byte{0x03} // prefix for pool lookup by token pair
)

// GetPoolKey returns the store key for a pool
func GetPoolKey(poolID uint64) []byte {
	return append(append([]byte{}, PoolKey...), sdk.Uint64ToBigEndian(poolID)...)
}

// GetPoolByTokensKey returns the store key for pool lookup by token pair.
// Denoms are ordered so a pair and its inverse share one key.
func GetPoolByTokensKey(tokenA, tokenB string) []byte {
	if tokenA > tokenB {
		tokenA, tokenB = tokenB, tokenA
	}
	key := append([]byte{}, PoolByTokensKey...)
	key = append(key, []byte(tokenA)...)
	key = append(key, 0x00)
	return append(key, []byte(tokenB)...)
}
