package types

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
)

// AccountPurpose names what an engine-held account is used for.
type AccountPurpose string

const (
	PurposePoolVault     AccountPurpose = "pool_vault"
	PurposeInsuranceFund AccountPurpose = "insurance_fund"
	PurposeLimitEscrow   AccountPurpose = "limit_escrow"
	PurposeDCAEscrow     AccountPurpose = "dca_escrow"
	PurposeMarginEscrow  AccountPurpose = "margin_escrow"
)

// Validate rejects unknown purposes.
func (p AccountPurpose) Validate() error {
	switch p {
	case PurposePoolVault, PurposeInsuranceFund, PurposeLimitEscrow, PurposeDCAEscrow, PurposeMarginEscrow:
		return nil
	default:
		return fmt.Errorf("unknown account purpose %q", string(p))
	}
}

// AccountInfo is the registry entry behind an opaque account handle.
type AccountInfo struct {
	Handle   string         `json:"handle"`
	Owner    string         `json:"owner,omitempty"`
	Purpose  AccountPurpose `json:"purpose"`
	Sequence []uint64       `json:"sequence"`
}

// DeriveHandle returns the account address for (owner, purpose, sequence).
// An empty owner denotes an engine-owned account such as a pool vault.
func DeriveHandle(owner sdk.AccAddress, purpose AccountPurpose, sequence ...uint64) sdk.AccAddress {
	keys := make([][]byte, 0, len(sequence)+2)
	keys = append(keys, []byte(purpose), address.MustLengthPrefix(owner))
	for _, seq := range sequence {
		keys = append(keys, sdk.Uint64ToBigEndian(seq))
	}
	return sdk.AccAddress(address.Module(ModuleName, keys...))
}
