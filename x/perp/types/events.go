package types

// Perpetual event types and attribute keys
const (
	EventTypePositionOpened     = "position_opened"
	EventTypeMarginAdded        = "margin_added"
	EventTypePositionClosed     = "position_closed"
	EventTypePositionLiquidated = "position_liquidated"
	EventTypeInsuranceDeposit   = "insurance_deposit"
	EventTypeFundingUpdated     = "funding_rate_updated"
	EventTypeParamsUpdated      = "perp_params_updated"

	AttributeKeyPositionID       = "position_id"
	AttributeKeyOwner            = "owner"
	AttributeKeyPoolID           = "pool_id"
	AttributeKeySide             = "side"
	AttributeKeySize             = "size"
	AttributeKeyLeverage         = "leverage"
	AttributeKeyMargin           = "margin"
	AttributeKeyEntryPrice       = "entry_price"
	AttributeKeyExitPrice        = "exit_price"
	AttributeKeyLiquidationPrice = "liquidation_price"
	AttributeKeyPnl              = "pnl"
	AttributeKeyFunding          = "funding"
	AttributeKeyPayout           = "payout"
	AttributeKeyLiquidator       = "liquidator"
	AttributeKeyLiquidatorFee    = "liquidator_fee"
	AttributeKeyDepositor        = "depositor"
	AttributeKeyAmount           = "amount"
	AttributeKeyRate             = "rate"
	AttributeKeyIndex            = "cumulative_index"
)
