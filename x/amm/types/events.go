package types

// AMM event types and attribute keys
const (
	EventTypePoolCreated      = "pool_created"
	EventTypeLiquidityAdded   = "liquidity_added"
	EventTypeLiquidityRemoved = "liquidity_removed"
	EventTypeSwap             = "swap"
	EventTypePoolPaused       = "pool_paused"
	EventTypePoolResumed      = "pool_resumed"
	EventTypeFeeRateUpdated   = "fee_rate_updated"

	AttributeKeyPoolID    = "pool_id"
	AttributeKeyPair      = "pair"
	AttributeKeyCreator   = "creator"
	AttributeKeyProvider  = "provider"
	AttributeKeyTrader    = "trader"
	AttributeKeySide      = "side"
	AttributeKeyAmountA   = "amount_a"
	AttributeKeyAmountB   = "amount_b"
	AttributeKeyLPTokens  = "lp_tokens"
	AttributeKeyAmountIn  = "amount_in"
	AttributeKeyAmountOut = "amount_out"
	AttributeKeyFee       = "fee"
	AttributeKeyFeeRate   = "fee_rate_bps"
	AttributeKeyOldRate   = "old_fee_rate_bps"
)
