package types

import "context"

// ListFilter narrows InstanceStore.List results.
//
// Zero-value fields are ignored.
type ListFilter struct {
	// TenantID restricts results to one tenant.
	TenantID string

	// Status restricts results to one lifecycle status.
	Status *Status

	// IncludeDeleted includes soft-deleted records when true.
	IncludeDeleted bool
}

// InstanceStore persists instance records.
//
// The default implementation is a JetStream KV bucket (internal/store);
// any storage with the same contract can be injected instead.
type InstanceStore interface {
	// Create persists a new instance record.
	// Returns ErrInstanceExists if the id is already taken.
	Create(ctx context.Context, inst Instance) error

	// FindByID returns the record for the id.
	// Returns ErrInstanceNotFound if absent.
	FindByID(ctx context.Context, instanceID string) (Instance, error)

	// UpdateStatus persists a status transition along with the phone and
	// QR payload values that accompany it. Empty phone/qr clear the
	// stored fields, which is how the invariants of Instance are kept.
	UpdateStatus(ctx context.Context, instanceID string, status Status, phone, qr string) error

	// SoftDelete marks the record deleted without removing it.
	// Returns ErrInstanceNotFound if absent.
	SoftDelete(ctx context.Context, instanceID string) error

	// List returns records matching the filter.
	List(ctx context.Context, filter ListFilter) ([]Instance, error)
}
