package types

import "context"

// QueueName identifies one of the two durable recovery queues.
type QueueName int

const (
	// QueueReady tracks instances believed to hold a healthy, connected
	// session. The sweeper demotes entries whose handle is missing or not
	// connected.
	QueueReady QueueName = iota

	// QueueDisconnect tracks instances needing resurrection. The sweeper
	// re-creates a session for entries with no live handle.
	QueueDisconnect
)

// String returns the queue's persisted name.
func (q QueueName) String() string {
	switch q {
	case QueueReady:
		return "ready"
	case QueueDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// QueueEntry is one recovery queue member.
type QueueEntry struct {
	// InstanceID is the instance identity, unique per queue.
	InstanceID string `json:"instance_id"`

	// TenantID is the owning tenant, carried so the sweeper can resurrect
	// without a store lookup.
	TenantID string `json:"tenant_id"`
}

// RecoveryQueues is the durable recovery set contract.
//
// The two queues are mutually exclusive per instance id: an id appears in
// at most one of them at a time. Implementations must make Move atomic to
// readers - a concurrent List must never observe an id present in neither
// or in both queues as a steady state.
//
// Backing storage can be any medium with atomic upsert/delete.
type RecoveryQueues interface {
	// Add inserts the id into the queue. Idempotent: a repeat add of the
	// same id to the same queue is a no-op. Adding an id that lives in the
	// other queue relocates it (equivalent to Move).
	Add(ctx context.Context, queue QueueName, instanceID, tenantID string) error

	// Remove deletes the id from the queue. No-op if the id is absent or
	// lives in the other queue.
	Remove(ctx context.Context, queue QueueName, instanceID string) error

	// Move atomically relocates the id into the queue, regardless of where
	// (or whether) it currently lives.
	Move(ctx context.Context, queue QueueName, instanceID, tenantID string) error

	// List returns all current entries of the queue.
	List(ctx context.Context, queue QueueName) ([]QueueEntry, error)
}
