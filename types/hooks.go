package types

import "context"

// Hooks are optional lifecycle callbacks.
//
// All hooks run in background goroutines so they never block the session
// event loop. Hook errors are logged and discarded. Nil fields are
// skipped.
type Hooks struct {
	// OnStatusChanged fires after a transition completed its store update
	// and queue move.
	OnStatusChanged func(ctx context.Context, instanceID string, from, to Status) error

	// OnUnplannedDisconnect fires when a session drops without a
	// deliberate logout, before the self-heal attempt.
	OnUnplannedDisconnect func(ctx context.Context, instanceID, reason string) error
}
