package types

import "context"

// Notifier sends best-effort alert messages.
//
// Used on unplanned disconnects only. Failures are logged, never retried,
// and never propagate to the triggering transition.
type Notifier interface {
	// Send delivers one alert message.
	Send(ctx context.Context, to, subject, body string) error
}
