// Package notify provides types.Notifier implementations.
package notify

import (
	"context"

	"github.com/korospace/BE-WA-blaster/types"
)

// NopNotifier discards all alerts.
//
// Used as the default when no notifier is configured.
type NopNotifier struct{}

var _ types.Notifier = (*NopNotifier)(nil)

// NewNop creates a new no-op notifier.
func NewNop() *NopNotifier {
	return &NopNotifier{}
}

// Send discards the alert.
func (*NopNotifier) Send(_ context.Context, _, _, _ string) error {
	return nil
}
