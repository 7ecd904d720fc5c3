package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
)

const (
	// ModuleName defines the module name
	ModuleName = "ledger"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName
)

// Store key prefixes
var (
	BalanceKeyPrefix = []byte{0x01} // address | denom -> math.Int
	SupplyKeyPrefix  = []byte{0x02} // denom -> math.Int
	AccountKeyPrefix = []byte{0x03} // handle -> AccountInfo
)

// GetBalanceKey returns the store key for an account's balance of denom.
func GetBalanceKey(addr sdk.AccAddress, denom string) []byte {
	key := append([]byte{}, BalanceKeyPrefix...)
	key = append(key, address.MustLengthPrefix(addr)...)
	return append(key, []byte(denom)...)
}

// SplitBalanceKey returns the address and denom encoded in a balance key
// with the prefix already stripped.
func SplitBalanceKey(key []byte) (sdk.AccAddress, string) {
	addrLen := int(key[0])
	addr := sdk.AccAddress(key[1 : 1+addrLen])
	return addr, string(key[1+addrLen:])
}

// GetAddressBalancesPrefix returns the prefix over all balances of addr.
func GetAddressBalancesPrefix(addr sdk.AccAddress) []byte {
	key := append([]byte{}, BalanceKeyPrefix...)
	return append(key, address.MustLengthPrefix(addr)...)
}

// GetSupplyKey returns the store key for the total supply of denom.
func GetSupplyKey(denom string) []byte {
	key := append([]byte{}, SupplyKeyPrefix...)
	return append(key, []byte(denom)...)
}

// GetAccountKey returns the store key for a registered account handle.
func GetAccountKey(handle sdk.AccAddress) []byte {
	key := append([]byte{}, AccountKeyPrefix...)
	return append(key, address.MustLengthPrefix(handle)...)
}
