package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
)

const (
	// ModuleName defines the module name
	ModuleName = "perp"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName
)

var (
	// PositionKeyPrefix is the prefix for primary position storage.
	// Key format: 0x01 || len(owner) || owner || seq
	PositionKeyPrefix = []byte{0x01}

	// PositionCountKeyPrefix holds each owner's next sequence index.
	// Key format: 0x02 || len(owner) || owner
	PositionCountKeyPrefix = []byte{0x02}

	// OpenPositionPrefix indexes open positions per pool.
	// Key format: 0x03 || poolID || len(owner) || owner || seq
	OpenPositionPrefix = []byte{0x03}

	// FundingStateKeyPrefix holds the funding index of each pool.
	// Key format: 0x04 || poolID
	FundingStateKeyPrefix = []byte{0x04}

	// ParamsKey holds the engine parameters.
	ParamsKey = []byte{0x05}
)

func ownerPrefix(prefix []byte, owner sdk.AccAddress) []byte {
	return append(append([]byte{}, prefix...), address.MustLengthPrefix(owner)...)
}

// PositionKey returns the primary store key of a position.
func PositionKey(id PositionID) []byte {
	return append(ownerPrefix(PositionKeyPrefix, id.Owner), sdk.Uint64ToBigEndian(id.Seq)...)
}

// PositionOwnerPrefix returns the prefix of all positions of one owner.
func PositionOwnerPrefix(owner sdk.AccAddress) []byte {
	return ownerPrefix(PositionKeyPrefix, owner)
}

// PositionCountKey returns the key of an owner's sequence counter.
func PositionCountKey(owner sdk.AccAddress) []byte {
	return ownerPrefix(PositionCountKeyPrefix, owner)
}

// OpenPositionPoolPrefix returns the open index prefix of one pool.
func OpenPositionPoolPrefix(poolID uint64) []byte {
	return append(append([]byte{}, OpenPositionPrefix...), sdk.Uint64ToBigEndian(poolID)...)
}

// OpenPositionKey returns the open index key of a position.
func OpenPositionKey(poolID uint64, id PositionID) []byte {
	key := append(OpenPositionPoolPrefix(poolID), address.MustLengthPrefix(id.Owner)...)
	return append(key, sdk.Uint64ToBigEndian(id.Seq)...)
}

// ParseOpenPositionKey decodes the position ID of an open index key.
func ParseOpenPositionKey(key []byte) PositionID {
	rest := key[len(OpenPositionPrefix)+8:]
	n := int(rest[0])
	return PositionID{
		Owner: sdk.AccAddress(rest[1 : 1+n]),
		Seq:   sdk.BigEndianToUint64(rest[1+n:]),
	}
}

// FundingStateKey returns the key of a pool's funding state.
func FundingStateKey(poolID uint64) []byte {
	return append(append([]byte{}, FundingStateKeyPrefix...), sdk.Uint64ToBigEndian(poolID)...)
}
