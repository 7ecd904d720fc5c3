package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
)

const (
	// ModuleName defines the module name
	ModuleName = "orderbook"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName
)

// Store key prefixes for limit orders.
//
// Orders live under their (pool, sequence) key. Two secondary indexes keep
// lookups cheap: by owner for account queries, and an open-order index per
// pool that keepers scan for executable and expired orders.
var (
	// LimitOrderKeyPrefix is the prefix for primary limit order storage.
	// Key format: 0x01 || poolID || seq
	LimitOrderKeyPrefix = []byte{0x01}

	// OrderCountKeyPrefix holds each book's next sequence index.
	// Key format: 0x02 || poolID
	OrderCountKeyPrefix = []byte{0x02}

	// LimitOrderByOwnerPrefix indexes orders by owner address.
	// Key format: 0x03 || len(owner) || owner || poolID || seq
	LimitOrderByOwnerPrefix = []byte{0x03}

	// LimitOrderOpenPrefix indexes orders that are not yet terminal.
	// Key format: 0x04 || poolID || seq
	LimitOrderOpenPrefix = []byte{0x04}
)

func idBytes(id OrderID) []byte {
	return append(sdk.Uint64ToBigEndian(id.PoolID), sdk.Uint64ToBigEndian(id.Seq)...)
}

// LimitOrderKey returns the primary store key of an order.
func LimitOrderKey(id OrderID) []byte {
	return append(append([]byte{}, LimitOrderKeyPrefix...), idBytes(id)...)
}

// OrderCountKey returns the key of a book's sequence counter.
func OrderCountKey(poolID uint64) []byte {
	return append(append([]byte{}, OrderCountKeyPrefix...), sdk.Uint64ToBigEndian(poolID)...)
}

// LimitOrderByOwnerPrefixFor returns the owner index prefix for one address.
func LimitOrderByOwnerPrefixFor(owner sdk.AccAddress) []byte {
	return append(append([]byte{}, LimitOrderByOwnerPrefix...), address.MustLengthPrefix(owner)...)
}

// LimitOrderByOwnerKey returns the owner index key of an order.
func LimitOrderByOwnerKey(owner sdk.AccAddress, id OrderID) []byte {
	return append(LimitOrderByOwnerPrefixFor(owner), idBytes(id)...)
}

// LimitOrderOpenPoolPrefix returns the open index prefix of one book.
func LimitOrderOpenPoolPrefix(poolID uint64) []byte {
	return append(append([]byte{}, LimitOrderOpenPrefix...), sdk.Uint64ToBigEndian(poolID)...)
}

// LimitOrderOpenKey returns the open index key of an order.
func LimitOrderOpenKey(id OrderID) []byte {
	return append(append([]byte{}, LimitOrderOpenPrefix...), idBytes(id)...)
}

// ParseOrderIDBytes decodes the trailing poolID || seq of an index key.
func ParseOrderIDBytes(bz []byte) OrderID {
	n := len(bz)
	return OrderID{
		PoolID: sdk.BigEndianToUint64(bz[n-16 : n-8]),
		Seq:    sdk.BigEndianToUint64(bz[n-8:]),
	}
}
