package types

// EventType identifies a provider-emitted session event.
type EventType int

const (
	// EventQR indicates the provider issued a QR payload for pairing.
	EventQR EventType = iota

	// EventAuthenticated indicates the pairing scan succeeded.
	EventAuthenticated

	// EventReady indicates the session is connected and able to send.
	EventReady

	// EventAuthFailure indicates the provider rejected the stored
	// credentials.
	EventAuthFailure

	// EventDisconnected indicates the provider session dropped.
	EventDisconnected
)

// String returns a human-readable name for the event type.
func (e EventType) String() string {
	switch e {
	case EventQR:
		return "qr"
	case EventAuthenticated:
		return "authenticated"
	case EventReady:
		return "ready"
	case EventAuthFailure:
		return "auth_failure"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is a single session event emitted by a SessionHandle.
//
// The provider emits events serially per session; the session adapter
// consumes them from a channel, preserving per-instance ordering.
type Event struct {
	// Type is the event kind.
	Type EventType

	// QR carries the pairing payload for EventQR events.
	QR string

	// Phone carries the authenticated phone number for EventReady events.
	Phone string

	// Reason carries the disconnect reason for EventDisconnected events.
	Reason string
}
