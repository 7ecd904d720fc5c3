package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
)

const (
	// ModuleName defines the module name
	ModuleName = "dca"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName
)

// Store key prefixes for recurring orders.
var (
	// DCAOrderKeyPrefix is the prefix for primary DCA order storage.
	// Key format: 0x01 || len(owner) || owner || seq
	DCAOrderKeyPrefix = []byte{0x01}

	// OrderCountKeyPrefix holds each owner's next sequence index.
	// Key format: 0x02 || len(owner) || owner
	OrderCountKeyPrefix = []byte{0x02}

	// ScheduleKeyPrefix indexes active orders by their next execution time.
	// Key format: 0x03 || nextExecutionTime || len(owner) || owner || seq
	ScheduleKeyPrefix = []byte{0x03}
)

func ownerPrefix(prefix []byte, owner sdk.AccAddress) []byte {
	return append(append([]byte{}, prefix...), address.MustLengthPrefix(owner)...)
}

// DCAOrderKey returns the primary store key of an order.
func DCAOrderKey(id OrderID) []byte {
	return append(ownerPrefix(DCAOrderKeyPrefix, id.Owner), sdk.Uint64ToBigEndian(id.Seq)...)
}

// DCAOrderOwnerPrefix returns the prefix of all orders of one owner.
func DCAOrderOwnerPrefix(owner sdk.AccAddress) []byte {
	return ownerPrefix(DCAOrderKeyPrefix, owner)
}

// OrderCountKey returns the key of an owner's sequence counter.
func OrderCountKey(owner sdk.AccAddress) []byte {
	return ownerPrefix(OrderCountKeyPrefix, owner)
}

// ScheduleKey returns the schedule index key of an order due at nextExecution.
func ScheduleKey(nextExecution int64, id OrderID) []byte {
	key := append(append([]byte{}, ScheduleKeyPrefix...), sdk.Uint64ToBigEndian(uint64(nextExecution))...)
	key = append(key, address.MustLengthPrefix(id.Owner)...)
	return append(key, sdk.Uint64ToBigEndian(id.Seq)...)
}

// ScheduleUpperBound returns the exclusive end key for orders due at or before now.
func ScheduleUpperBound(now int64) []byte {
	return append(append([]byte{}, ScheduleKeyPrefix...), sdk.Uint64ToBigEndian(uint64(now)+1)...)
}

// ParseScheduleKey decodes the order ID of a schedule index key.
func ParseScheduleKey(key []byte) OrderID {
	rest := key[len(ScheduleKeyPrefix)+8:]
	n := int(rest[0])
	return OrderID{
		Owner: sdk.AccAddress(rest[1 : 1+n]),
		Seq:   sdk.BigEndianToUint64(rest[1+n:]),
	}
}
