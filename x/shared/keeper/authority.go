// Package keeper provides shared keeper interfaces and utilities for cross-module communication.
package keeper

import (
	"github.com/solrush/rush/x/shared/types"
)

// ValidateAuthority checks that the provided authority matches the expected authority.
// This guards the admin-only operations: pause/resume, fee-rate and perpetual
// parameter updates. An engine started without an authority rejects every
// admin call.
//
// Usage example:
//
//	if err := sharedkeeper.ValidateAuthority(k.authority, caller.String()); err != nil {
//	    return err
//	}
func ValidateAuthority(expected, actual string) error {
	if expected == "" {
		return types.ErrUnauthorized.Wrap("no authority configured")
	}
	if expected != actual {
		return types.ErrUnauthorized.Wrapf(
			"invalid authority; expected %s, got %s",
			expected,
			actual,
		)
	}
	return nil
}
