package types

// Order book event types and attribute keys
const (
	EventTypeOrderPlaced    = "limit_order_placed"
	EventTypeOrderCancelled = "limit_order_cancelled"
	EventTypeOrderExecuted  = "limit_order_executed"
	EventTypeOrderExpired   = "limit_order_expired"

	AttributeKeyOrderID    = "order_id"
	AttributeKeyOwner      = "owner"
	AttributeKeyExecutor   = "executor"
	AttributeKeySide       = "side"
	AttributeKeyAmountIn   = "amount_in"
	AttributeKeyAmountOut  = "amount_out"
	AttributeKeyLimitPrice = "limit_price"
	AttributeKeyPoolPrice  = "pool_price"
	AttributeKeyRefund     = "refund"
)
