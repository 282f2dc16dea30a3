package types

import "errors"

// Sentinel errors for the wablaster library.
//
// All components use these sentinels for known error conditions and wrap
// external errors with context using fmt.Errorf("...: %w", err).

// Caller-visible errors - surfaced through the Manager public API.
var (
	// ErrInstanceNotFound is returned when the instance (or tenant) is
	// absent. Never retried.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrInstanceExists is returned when creating an instance whose id is
	// already taken.
	ErrInstanceExists = errors.New("instance already exists")

	// ErrInstanceNotReady is returned when an operation requires a ready
	// instance and none is. Surfaced, never retried.
	ErrInstanceNotReady = errors.New("instance not ready")

	// ErrInstanceDeleted is returned when an operation targets a
	// soft-deleted instance. Deleted instances are never resurrected.
	ErrInstanceDeleted = errors.New("instance deleted")
)

// Internal failure classes - logged and healed by the next sweeper cycle,
// not surfaced to callers.
var (
	// ErrProviderInit indicates provider session initialization failed.
	ErrProviderInit = errors.New("provider initialization failed")

	// ErrStorageIO indicates a queue or store access failure.
	ErrStorageIO = errors.New("storage access failed")

	// ErrNotification indicates a realtime publish or notifier alert
	// failure. Never propagated, never blocks a transition.
	ErrNotification = errors.New("notification failed")
)

// Lifecycle errors - Manager start/stop misuse.
var (
	// ErrAlreadyStarted is returned when Start is called on a running
	// manager.
	ErrAlreadyStarted = errors.New("manager already started")

	// ErrNotStarted is returned when operations require a started manager.
	ErrNotStarted = errors.New("manager not started")
)
