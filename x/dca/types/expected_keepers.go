package types

import (
	sharedkeeper "github.com/solrush/rush/x/shared/keeper"
)

// LedgerKeeper defines the expected settlement ledger.
type LedgerKeeper interface {
	sharedkeeper.LedgerKeeperV1
}

// PoolKeeper defines the expected pool surface.
type PoolKeeper interface {
	sharedkeeper.PoolKeeperV1
}
