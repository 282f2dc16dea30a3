package wablaster

import (
	"errors"

	"github.com/korospace/BE-WA-blaster/types"
)

// Constructor errors returned by NewManager.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnRequired is returned when the NATS connection is nil.
	ErrConnRequired = errors.New("NATS connection is required")

	// ErrProviderRequired is returned when the session provider is nil.
	ErrProviderRequired = errors.New("session provider is required")
)

// Re-exported sentinels from the types package, so callers of the public
// API can check errors without importing types.
var (
	// ErrInstanceNotFound is returned when the instance is absent.
	ErrInstanceNotFound = types.ErrInstanceNotFound

	// ErrInstanceExists is returned when creating an instance whose id is
	// already taken.
	ErrInstanceExists = types.ErrInstanceExists

	// ErrInstanceNotReady is returned when an operation requires a ready
	// instance and none is.
	ErrInstanceNotReady = types.ErrInstanceNotReady

	// ErrInstanceDeleted is returned when an operation targets a
	// soft-deleted instance.
	ErrInstanceDeleted = types.ErrInstanceDeleted

	// ErrAlreadyStarted is returned when Start is called on a running
	// manager.
	ErrAlreadyStarted = types.ErrAlreadyStarted

	// ErrNotStarted is returned when operations require a started manager.
	ErrNotStarted = types.ErrNotStarted
)
