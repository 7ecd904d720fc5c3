package app

import (
	"sync"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

const (
	// Bech32PrefixAccAddr defines the Bech32 prefix of an account's address
	Bech32PrefixAccAddr = "rush"
	// Bech32PrefixAccPub defines the Bech32 prefix of an account's public key
	Bech32PrefixAccPub = "rushpub"

	// CoinType is the SLIP44 coin type used to derive account keys.
	CoinType = 118
)

var setConfigOnce sync.Once

// SetConfig installs the rush address prefixes in the global SDK config and
// seals it. Addresses stringify with the "rush" prefix afterwards. Safe to
// call more than once.
func SetConfig() {
	setConfigOnce.Do(func() {
		config := sdk.GetConfig()
		config.SetBech32PrefixForAccount(Bech32PrefixAccAddr, Bech32PrefixAccPub)
		config.SetCoinType(CoinType)
		config.Seal()
	})
}
