package types

import "time"

// Instance is a tenant-scoped chat session identity and its current
// connection state.
//
// Instances are owned by the InstanceStore and mutated only by session
// adapter transitions or explicit deletion.
//
// Invariants:
//   - PhoneNumber is non-empty only when Status is StatusReady.
//   - QRPayload is non-empty only when Status is StatusAwaitingScan.
type Instance struct {
	// InstanceID is the opaque, unique instance identity.
	InstanceID string `json:"instance_id"`

	// TenantID is the owning tenant.
	TenantID string `json:"tenant_id"`

	// PhoneNumber is the authenticated phone number, set on ready.
	PhoneNumber string `json:"phone_number,omitempty"`

	// Status is the current lifecycle status.
	Status Status `json:"status"`

	// QRPayload is the pairing payload while awaiting scan.
	QRPayload string `json:"qr_payload,omitempty"`

	// Deleted marks the instance as soft-deleted. Deleted instances are
	// never resurrected.
	Deleted bool `json:"deleted"`

	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the record was last mutated.
	UpdatedAt time.Time `json:"updated_at"`

	// DeletedAt is when the record was soft-deleted, if ever.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
