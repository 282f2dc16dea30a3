package types

import "context"

// StatusUpdate is the realtime payload published on every transition.
type StatusUpdate struct {
	// Status is the wire status string after the transition.
	Status Status `json:"status"`

	// QR carries the pairing payload while awaiting scan.
	QR string `json:"qr,omitempty"`

	// Phone carries the authenticated phone number when ready.
	Phone string `json:"phone,omitempty"`
}

// EventPublisher delivers realtime status updates to subscribed clients.
//
// Publication is fire-and-forget: no acknowledgment, no retry. If no
// subscriber is listening the update is simply lost. Publish errors are
// logged by the caller and never fail the triggering transition.
type EventPublisher interface {
	// Publish sends the update on the tenant-scoped channel for the
	// instance.
	Publish(ctx context.Context, tenantID, instanceID string, update StatusUpdate) error
}
