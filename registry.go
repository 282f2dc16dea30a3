package wablaster

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/korospace/BE-WA-blaster/types"
)

// Registry is the process-wide map from instance id to the single live
// session handle.
//
// The concurrency contract: registry mutation is a critical section keyed
// by instance id. A creation in flight for id X de-duplicates concurrent
// requests for X (they all observe the same handle, with exactly one
// creation executed), while unrelated ids proceed independently.
//
// The registry is an explicitly constructed object passed by reference to
// the Manager and Sweeper - never a package-level singleton.
type Registry struct {
	sessions *xsync.Map[string, *Session]
	locks    *xsync.Map[string, *sync.Mutex]

	// create builds and starts a session. Runs under the per-id lock; it
	// must not perform provider I/O (session initialization is
	// asynchronous in the session's own goroutine).
	create func(ctx context.Context, instanceID, tenantID string) (*Session, error)

	logger types.Logger
}

// NewRegistry creates an empty registry.
//
// Parameters:
//   - create: Session factory invoked under the per-id creation lock
//   - logger: Logger for teardown diagnostics
//
// Returns:
//   - *Registry: Initialized registry
func NewRegistry(create func(ctx context.Context, instanceID, tenantID string) (*Session, error), logger types.Logger) *Registry {
	return &Registry{
		sessions: xsync.NewMap[string, *Session](),
		locks:    xsync.NewMap[string, *sync.Mutex](),
		create:   create,
		logger:   logger,
	}
}

// AcquireOrCreate returns the live session for the id, creating exactly
// one if none exists.
//
// Concurrent callers for the same id serialize on a per-id lock and all
// observe the same session; only one factory call executes. The factory
// checks the store's deletion flag, so a creation in flight for a deleted
// instance fails with ErrInstanceDeleted instead of resurrecting it.
//
// Parameters:
//   - ctx: Context for store access during creation
//   - instanceID: Instance identity
//   - tenantID: Owning tenant (used when the factory needs it)
//
// Returns:
//   - *Session: The single live session for the id
//   - error: Factory error (ErrInstanceNotFound, ErrInstanceDeleted, ...)
func (r *Registry) AcquireOrCreate(ctx context.Context, instanceID, tenantID string) (*Session, error) {
	if s := r.Get(instanceID); s != nil {
		return s, nil
	}

	lock, _ := r.locks.LoadOrStore(instanceID, &sync.Mutex{})
	lock.Lock()
	defer lock.Unlock()

	// Double-checked: another caller may have created while we waited.
	if s := r.Get(instanceID); s != nil {
		return s, nil
	}

	s, err := r.create(ctx, instanceID, tenantID)
	if err != nil {
		return nil, err
	}

	r.sessions.Store(instanceID, s)

	return s, nil
}

// Get returns the live session for the id, or nil.
//
// Sessions whose event loop has exited are treated as absent and lazily
// evicted, so the sweeper sees a dead adapter the same as a missing one.
func (r *Registry) Get(instanceID string) *Session {
	s, ok := r.sessions.Load(instanceID)
	if !ok {
		return nil
	}

	if s.Closed() {
		r.sessions.Compute(instanceID, func(cur *Session, loaded bool) (*Session, xsync.ComputeOp) {
			if loaded && cur == s {
				return nil, xsync.DeleteOp
			}

			return cur, xsync.CancelOp
		})

		return nil
	}

	return s
}

// Destroy tombstones the instance and tears down its session, serialized
// against creations for the same id.
//
// Runs under the per-id creation lock, so it can never interleave with a
// factory call in flight: either the creation completes first and the
// published session is torn down here, or the tombstone lands first and
// the factory observes the deletion flag. Without this ordering a
// concurrent destroy could finish between the factory's store read and
// the registry publish, leaving a live handle for a deleted instance.
//
// Parameters:
//   - ctx: Context for the tombstone write and provider teardown
//   - instanceID: Instance identity
//   - tombstone: Marks the instance deleted in durable storage
//
// Returns:
//   - error: The tombstone error, if any
func (r *Registry) Destroy(ctx context.Context, instanceID string, tombstone func(context.Context) error) error {
	lock, _ := r.locks.LoadOrStore(instanceID, &sync.Mutex{})
	lock.Lock()
	defer lock.Unlock()

	if err := tombstone(ctx); err != nil {
		return err
	}

	if s, ok := r.sessions.Load(instanceID); ok {
		s.markDeleted()
	}
	r.Release(ctx, instanceID)

	return nil
}

// Release removes the session for the id and tears it down.
//
// Used on delete and logout. No-op if the id holds no session.
//
// Parameters:
//   - ctx: Context bounding the provider teardown
//   - instanceID: Instance identity
func (r *Registry) Release(ctx context.Context, instanceID string) {
	s, ok := r.sessions.LoadAndDelete(instanceID)
	if !ok {
		return
	}

	if err := s.shutdown(ctx); err != nil {
		r.logger.Warn("session teardown failed", "instance_id", instanceID, "error", err)
	}
}

// Len returns the number of registered sessions, live or not.
func (r *Registry) Len() int {
	return r.sessions.Size()
}

// Shutdown tears down every registered session.
func (r *Registry) Shutdown(ctx context.Context) {
	r.sessions.Range(func(instanceID string, _ *Session) bool {
		r.Release(ctx, instanceID)
		return true
	})
}
