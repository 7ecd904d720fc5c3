package types

// Ledger event types and attribute keys
const (
	EventTypeTransfer        = "transfer"
	EventTypeMint            = "mint"
	EventTypeBurn            = "burn"
	EventTypeAccountRegister = "account_registered"

	AttributeKeySender    = "sender"
	AttributeKeyRecipient = "recipient"
	AttributeKeyAmount    = "amount"
	AttributeKeyHandle    = "handle"
	AttributeKeyOwner     = "owner"
	AttributeKeyPurpose   = "purpose"
)
