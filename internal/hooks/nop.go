// Package hooks provides default lifecycle hook implementations.
package hooks

import "github.com/korospace/BE-WA-blaster/types"

// NewNop returns a Hooks value with no callbacks set.
//
// Callers check individual fields for nil before invoking, so an empty
// Hooks value is the complete no-op implementation.
func NewNop() types.Hooks {
	return types.Hooks{}
}
