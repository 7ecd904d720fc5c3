package keeper

import (
	"context"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	ledgertypes "github.com/solrush/rush/x/ledger/types"
	"github.com/solrush/rush/x/shared/types"
)

// =============================================================================
// Settlement Ledger Interfaces (Versioned)
// =============================================================================

// LedgerKeeperV1 is the value-transfer boundary every stateful component
// settles through. Transfers are atomic with the cached context they run in.
type LedgerKeeperV1 interface {
	// Transfer moves coin between two accounts. Zero amounts are a no-op.
	Transfer(ctx context.Context, from, to sdk.AccAddress, coin sdk.Coin) error

	// GetBalance returns the balance of denom held by addr.
	GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin

	// AccountFor returns the opaque handle of an engine-held account.
	AccountFor(ctx context.Context, purpose ledgertypes.AccountPurpose, owner sdk.AccAddress, sequence ...uint64) (sdk.AccAddress, error)
}

// =============================================================================
// Pool Keeper Interfaces (Versioned)
// =============================================================================

// PoolKeeperV1 is the read-price and swap surface that the order book, the
// DCA scheduler and the perpetual engine use. They never touch reserves any
// other way.
type PoolKeeperV1 interface {
	// GetPoolInfo returns pool information by ID.
	GetPoolInfo(ctx context.Context, poolID uint64) (PoolInfo, error)

	// SpotPrice returns the pool's quoted price (quote per base, scaled).
	SpotPrice(ctx context.Context, poolID uint64) (sdkmath.Int, error)

	// SwapExact executes a swap through the pool's own entry point and
	// returns the output credited to trader.
	SwapExact(ctx context.Context, trader sdk.AccAddress, poolID uint64, side types.Side, amountIn, minOut sdkmath.Int) (sdkmath.Int, error)
}

// PoolInfo holds pool data returned to other components.
type PoolInfo struct {
	PoolID     uint64
	Base       string
	Quote      string
	ReserveA   sdkmath.Int
	ReserveB   sdkmath.Int
	FeeRateBps uint32
	Paused     bool
}

// DenomIn returns the token a trader pays on side.
func (p PoolInfo) DenomIn(side types.Side) string {
	if side == types.SideBuy {
		return p.Quote
	}
	return p.Base
}

// DenomOut returns the token a trader receives on side.
func (p PoolInfo) DenomOut(side types.Side) string {
	if side == types.SideBuy {
		return p.Base
	}
	return p.Quote
}

// Reserves returns (reserveIn, reserveOut) for a swap on side.
func (p PoolInfo) Reserves(side types.Side) (sdkmath.Int, sdkmath.Int) {
	if side == types.SideBuy {
		return p.ReserveB, p.ReserveA
	}
	return p.ReserveA, p.ReserveB
}

const (
	// LedgerKeeperVersion is the current ledger keeper interface version.
	LedgerKeeperVersion = "v1.0.0"

	// PoolKeeperVersion is the current pool keeper interface version.
	PoolKeeperVersion = "v1.0.0"
)
