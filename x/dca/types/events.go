package types

// DCA event types and attribute keys
const (
	EventTypeDCACreated   = "dca_order_created"
	EventTypeDCAExecuted  = "dca_cycle_executed"
	EventTypeDCACompleted = "dca_order_completed"
	EventTypeDCACancelled = "dca_order_cancelled"

	AttributeKeyOrderID        = "order_id"
	AttributeKeyOwner          = "owner"
	AttributeKeyExecutor       = "executor"
	AttributeKeyPoolID         = "pool_id"
	AttributeKeySide           = "side"
	AttributeKeyAmountPerCycle = "amount_per_cycle"
	AttributeKeyTotalCycles    = "total_cycles"
	AttributeKeyCycle          = "cycle"
	AttributeKeyAmountOut      = "amount_out"
	AttributeKeyPoolPrice      = "pool_price"
	AttributeKeyNextExecution  = "next_execution"
	AttributeKeyRefund         = "refund"
)
