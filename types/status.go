package types

import (
	"encoding/json"
	"fmt"
)

// Status represents the lifecycle status of an instance.
//
// Statuses follow a defined progression during normal operation:
//
//	StatusDisconnected → StatusAwaitingScan → StatusAuthenticated → StatusReady
//
// Authentication failures and session drops move the instance to
// StatusAuthFailed or back to StatusDisconnected, from which the
// reconciliation sweeper resurrects it.
type Status int

const (
	// StatusDisconnected indicates no live provider session.
	StatusDisconnected Status = iota

	// StatusAwaitingScan indicates a QR payload was issued and is waiting
	// to be scanned.
	StatusAwaitingScan

	// StatusAuthenticated indicates the scan succeeded but the session is
	// not yet ready to send.
	StatusAuthenticated

	// StatusReady indicates the session is connected and can send messages.
	StatusReady

	// StatusAuthFailed indicates the provider rejected the session
	// credentials.
	StatusAuthFailed
)

// String returns the wire representation of the status.
//
// These strings are persisted in the instance store and published in
// realtime payloads, so they are part of the external contract.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusAwaitingScan:
		return "awaiting_scan"
	case StatusAuthenticated:
		return "authenticated"
	case StatusReady:
		return "ready"
	case StatusAuthFailed:
		return "auth_failed"
	default:
		return "unknown"
	}
}

// ParseStatus converts a wire string back into a Status.
//
// Returns:
//   - Status: Parsed status
//   - error: Error if the string is not a known status
func ParseStatus(s string) (Status, error) {
	switch s {
	case "disconnected":
		return StatusDisconnected, nil
	case "awaiting_scan":
		return StatusAwaitingScan, nil
	case "authenticated":
		return StatusAuthenticated, nil
	case "ready":
		return StatusReady, nil
	case "auth_failed":
		return StatusAuthFailed, nil
	default:
		return StatusDisconnected, fmt.Errorf("unknown status %q", s)
	}
}

// MarshalJSON encodes the status as its wire string.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes the status from its wire string.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}
