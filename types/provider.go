package types

import "context"

// ConnState is the provider-reported liveness state of a session.
type ConnState int

const (
	// ConnStateDisconnected indicates the session has no transport.
	ConnStateDisconnected ConnState = iota

	// ConnStateConnecting indicates the session is establishing transport.
	ConnStateConnecting

	// ConnStateConnected indicates the session transport is healthy.
	ConnStateConnected
)

// String returns a human-readable name for the connection state.
func (c ConnState) String() string {
	switch c {
	case ConnStateDisconnected:
		return "disconnected"
	case ConnStateConnecting:
		return "connecting"
	case ConnStateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// SessionProvider opens provider sessions for instances.
//
// This is the boundary to the actual chat-protocol engine. The library
// never speaks the wire protocol itself; it consumes the capability set
// below and the event stream each handle exposes.
type SessionProvider interface {
	// Open creates (but does not initialize) a session handle for the
	// instance. The returned handle's event channel must deliver events
	// serially, in the order the provider emitted them.
	Open(ctx context.Context, instanceID string) (SessionHandle, error)
}

// SessionHandle is one live provider session.
//
// Initialize, SendMessage and Logout may block on external I/O and are
// never called while holding registry locks.
type SessionHandle interface {
	// Initialize starts the session (connect, restore credentials, emit
	// qr/authenticated/ready events).
	Initialize(ctx context.Context) error

	// State reports the provider's current liveness state.
	State(ctx context.Context) (ConnState, error)

	// SendMessage sends a text message to a formatted recipient address.
	SendMessage(ctx context.Context, recipient, text string) error

	// Logout deliberately ends the authenticated session.
	Logout(ctx context.Context) error

	// Destroy tears the session down and releases its resources. The
	// event channel is closed after Destroy.
	Destroy(ctx context.Context) error

	// Events returns the serial event stream for this session.
	Events() <-chan Event
}
