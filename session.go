package wablaster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/korospace/BE-WA-blaster/types"
)

// sessionDeps bundles the collaborators every session needs.
type sessionDeps struct {
	cfg       *Config
	provider  types.SessionProvider
	store     types.InstanceStore
	queues    types.RecoveryQueues
	publisher types.EventPublisher
	notifier  types.Notifier
	hooks     types.Hooks
	metrics   types.MetricsCollector
	logger    types.Logger
}

// Session is the adapter around one live provider session.
//
// A dedicated goroutine consumes the provider's serial event stream and
// turns each event into a state transition. Per-instance transitions are
// therefore strictly sequential, and each transition applies its side
// effects in a fixed order: persist to the store, move the recovery
// queue entry, publish the realtime update, then alert/hook/metrics.
// The store update always happens before the publish.
type Session struct {
	id       string
	tenantID string
	deps     sessionDeps

	status  atomic.Int32 // types.Status
	deleted atomic.Bool
	planned atomic.Bool // deliberate logout/teardown in progress
	closed  atomic.Bool // event loop exited

	mu     sync.Mutex // guards handle
	handle types.SessionHandle

	// control carries logout requests into the event loop, so the logout
	// transition serializes with event-driven ones.
	control chan chan error

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// newSession creates a session adapter seeded with the instance's
// persisted status. The event loop is not started; call start().
func newSession(instanceID, tenantID string, initial types.Status, deps sessionDeps) *Session {
	s := &Session{
		id:       instanceID,
		tenantID: tenantID,
		deps:     deps,
		control:  make(chan chan error),
		done:     make(chan struct{}),
	}
	s.status.Store(int32(initial))
	s.ctx, s.cancel = context.WithCancel(context.Background())

	return s
}

// start launches the event-consuming goroutine.
func (s *Session) start() {
	go s.run()
}

// InstanceID returns the instance identity.
func (s *Session) InstanceID() string {
	return s.id
}

// TenantID returns the owning tenant.
func (s *Session) TenantID() string {
	return s.tenantID
}

// Status returns the current lifecycle status.
func (s *Session) Status() types.Status {
	return types.Status(s.status.Load())
}

// Closed reports whether the event loop has exited. A closed session is
// dead weight: the registry treats it as absent and the sweeper
// resurrects a fresh one.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Connected reports whether the provider considers the session transport
// healthy. Used by the sweeper's liveness pass.
func (s *Session) Connected(ctx context.Context) bool {
	handle := s.getHandle()
	if handle == nil {
		return false
	}

	state, err := handle.State(ctx)
	if err != nil {
		return false
	}

	return state == types.ConnStateConnected
}

// SendMessage sends a text message through this session.
//
// The recipient is formatted with FormatRecipient before the provider
// call. Fails with ErrInstanceNotReady unless the current status is
// ready.
//
// Parameters:
//   - ctx: Context for the provider call
//   - recipient: Raw recipient phone number
//   - text: Message body
//
// Returns:
//   - error: ErrInstanceNotReady, or the provider send error
func (s *Session) SendMessage(ctx context.Context, recipient, text string) error {
	if s.Status() != types.StatusReady {
		return fmt.Errorf("%w: instance %s is %s", types.ErrInstanceNotReady, s.id, s.Status())
	}

	handle := s.getHandle()
	if handle == nil {
		return fmt.Errorf("%w: instance %s has no live handle", types.ErrInstanceNotReady, s.id)
	}

	err := handle.SendMessage(ctx, FormatRecipient(recipient), text)
	s.deps.metrics.RecordSend(s.id, err == nil)
	if err != nil {
		return fmt.Errorf("send via instance %s: %w", s.id, err)
	}

	return nil
}

// Logout deliberately ends the authenticated session.
//
// The logout is handed to the event loop, so its transition serializes
// with event-driven ones; the loop exits afterwards. No notifier alert
// fires and no self-heal runs; the instance stays in the disconnect
// queue, so the next sweep resurrects it into a fresh pairing flow.
//
// Parameters:
//   - ctx: Context bounding the wait for the event loop
//
// Returns:
//   - error: Provider logout error (the transition is applied regardless)
func (s *Session) Logout(ctx context.Context) error {
	s.planned.Store(true)

	req := make(chan error, 1)
	select {
	case s.control <- req:
	case <-s.done:
		// The event loop is gone; applying directly cannot race it.
		s.transition(types.StatusDisconnected, "", "")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("logout for instance %s: %w", s.id, ctx.Err())
	}

	select {
	case err := <-req:
		if err != nil {
			return fmt.Errorf("provider logout for instance %s: %w", s.id, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("logout for instance %s: %w", s.id, ctx.Err())
	}
}

// performLogout runs on the event loop goroutine: provider logout, the
// disconnected transition, then handle teardown.
func (s *Session) performLogout() error {
	var err error
	if handle := s.getHandle(); handle != nil {
		err = handle.Logout(s.ctx)
	}

	s.transition(types.StatusDisconnected, "", "")
	s.destroyHandle()

	return err
}

// markDeleted flags the instance as soft-deleted so the event loop stops
// self-healing and any creation-in-flight refuses to resurrect it.
func (s *Session) markDeleted() {
	s.deleted.Store(true)
	s.planned.Store(true)
}

// shutdown stops the event loop and destroys the provider handle.
func (s *Session) shutdown(ctx context.Context) error {
	s.planned.Store(true)
	s.cancel()

	var err error
	if handle := s.getHandle(); handle != nil {
		err = handle.Destroy(ctx)
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		return fmt.Errorf("session %s teardown: %w", s.id, ctx.Err())
	}

	return err
}

// run is the per-session event loop.
//
// Opens and initializes a provider session, consumes its events, and on
// unplanned disconnects tears the handle down and starts over - the
// self-heal attempt. Exits on context cancellation, deliberate logout,
// or unrecoverable open/init failure (the durable disconnect queue entry
// ensures the next sweep retries).
func (s *Session) run() {
	defer close(s.done)
	defer s.closed.Store(true)

	for {
		reinit := s.runOnce()
		if !reinit {
			return
		}

		select {
		case <-s.ctx.Done():
			return
		case req := <-s.control:
			// Logout while waiting to re-initialize: no handle exists, the
			// transition is the whole job.
			req <- s.performLogout()
			return
		case <-time.After(s.deps.cfg.ReinitDelay):
		}
	}
}

// runOnce drives one provider session from open to termination.
// Returns true when the session should be re-initialized (self-heal).
func (s *Session) runOnce() bool {
	handle, err := s.deps.provider.Open(s.ctx, s.id)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.deps.logger.Error("provider open failed, next sweep retries",
				"instance_id", s.id,
				"error", fmt.Errorf("%w: %w", types.ErrProviderInit, err),
			)
		}

		return false
	}
	s.setHandle(handle)

	initCtx, cancel := context.WithTimeout(s.ctx, s.deps.cfg.ProviderInitTimeout)
	err = handle.Initialize(initCtx)
	cancel()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Bounded startup: treat an initialization that never completes
			// as an authentication failure and leave the id in the
			// disconnect queue for the next sweep.
			s.deps.logger.Warn("provider initialization timed out",
				"instance_id", s.id,
				"timeout", s.deps.cfg.ProviderInitTimeout,
			)
			s.transition(types.StatusAuthFailed, "", "")
		} else if !errors.Is(err, context.Canceled) {
			s.deps.logger.Error("provider initialization failed, next sweep retries",
				"instance_id", s.id,
				"error", fmt.Errorf("%w: %w", types.ErrProviderInit, err),
			)
		}
		s.destroyHandle()

		return false
	}

	for {
		select {
		case <-s.ctx.Done():
			return false
		case req := <-s.control:
			req <- s.performLogout()
			return false
		case ev, ok := <-handle.Events():
			if !ok {
				// Provider closed the stream. Self-heal unless torn down.
				if s.planned.Load() || s.deleted.Load() {
					return false
				}

				s.destroyHandle()

				return true
			}

			if reinit := s.apply(ev); reinit {
				s.destroyHandle()

				return true
			}
		}
	}
}

// apply executes one provider event as a state transition.
// Returns true when the handle should be re-initialized.
func (s *Session) apply(ev types.Event) bool {
	from := s.Status()

	to, ok := nextStatus(from, ev.Type)
	if !ok {
		s.deps.logger.Warn("ignoring invalid transition",
			"instance_id", s.id,
			"from", from.String(),
			"event", ev.Type.String(),
		)

		return false
	}

	switch ev.Type {
	case types.EventQR:
		s.transition(to, "", ev.QR)

	case types.EventAuthenticated:
		s.transition(to, "", "")

	case types.EventReady:
		s.transition(to, ev.Phone, "")

	case types.EventAuthFailure:
		s.transition(to, "", "")

	case types.EventDisconnected:
		if s.planned.Load() {
			// Deliberate logout already applied its transition; the
			// provider's trailing disconnect event carries no new state.
			return false
		}

		s.transition(to, "", "")
		s.unplannedDisconnect(ev.Reason)

		return !s.deleted.Load()
	}

	return false
}

// nextStatus validates a transition and returns the target status.
//
// The provider may re-issue QR payloads while awaiting a scan, and may
// skip the pairing flow entirely when stored credentials are restored,
// so authenticated is accepted straight from disconnected.
func nextStatus(from types.Status, ev types.EventType) (types.Status, bool) {
	switch ev {
	case types.EventQR:
		if from == types.StatusDisconnected || from == types.StatusAwaitingScan {
			return types.StatusAwaitingScan, true
		}
	case types.EventAuthenticated:
		if from == types.StatusDisconnected || from == types.StatusAwaitingScan {
			return types.StatusAuthenticated, true
		}
	case types.EventReady:
		if from == types.StatusAuthenticated {
			return types.StatusReady, true
		}
	case types.EventAuthFailure:
		return types.StatusAuthFailed, true
	case types.EventDisconnected:
		return types.StatusDisconnected, true
	}

	return from, false
}

// transition persists a status change and fans out its side effects.
//
// Side-effect order is fixed: store update, queue move, realtime
// publish, then hooks and metrics. Store and queue failures are logged
// and the transition proceeds - the sweeper heals drift on the next
// cycle. Publish failures never fail the transition.
func (s *Session) transition(to types.Status, phone, qr string) {
	from := s.Status()

	opCtx, cancel := context.WithTimeout(context.Background(), s.deps.cfg.OperationTimeout)
	defer cancel()

	if err := s.deps.store.UpdateStatus(opCtx, s.id, to, phone, qr); err != nil {
		s.deps.logger.Error("status persist failed",
			"instance_id", s.id,
			"status", to.String(),
			"error", err,
		)
	}

	if err := s.deps.queues.Move(opCtx, queueFor(to), s.id, s.tenantID); err != nil {
		s.deps.logger.Error("queue move failed",
			"instance_id", s.id,
			"queue", queueFor(to).String(),
			"error", err,
		)
	}

	s.status.Store(int32(to))

	if err := s.deps.publisher.Publish(opCtx, s.tenantID, s.id, types.StatusUpdate{
		Status: to,
		QR:     qr,
		Phone:  phone,
	}); err != nil {
		s.deps.metrics.RecordPublish(false)
		s.deps.logger.Warn("realtime publish failed", "instance_id", s.id, "error", err)
	} else {
		s.deps.metrics.RecordPublish(true)
	}

	s.deps.logger.Info("status transition",
		"instance_id", s.id,
		"from", from.String(),
		"to", to.String(),
	)
	s.deps.metrics.RecordStatusTransition(s.id, from, to)

	if s.deps.hooks.OnStatusChanged != nil {
		// Hooks run in the background so they never block the event loop.
		go func() {
			if err := s.deps.hooks.OnStatusChanged(s.ctx, s.id, from, to); err != nil {
				s.deps.logger.Error("status change hook error",
					"instance_id", s.id, "from", from, "to", to, "error", err,
				)
			}
		}()
	}
}

// queueFor maps a status to the recovery queue that owns it. Only ready
// instances live in the ready queue; everything else is recovery work.
func queueFor(status types.Status) types.QueueName {
	if status == types.StatusReady {
		return types.QueueReady
	}

	return types.QueueDisconnect
}

// unplannedDisconnect fires the best-effort alert and hook for a session
// drop that was not a deliberate logout.
func (s *Session) unplannedDisconnect(reason string) {
	if reason == "" {
		reason = "no reason"
	}

	s.deps.logger.Warn("unplanned disconnect",
		"instance_id", s.id,
		"tenant_id", s.tenantID,
		"reason", reason,
	)

	if s.deps.cfg.AlertRecipient != "" {
		opCtx, cancel := context.WithTimeout(context.Background(), s.deps.cfg.OperationTimeout)
		defer cancel()

		subject := fmt.Sprintf("instance %s disconnected", s.id)
		body := fmt.Sprintf("Instance %s (tenant %s) disconnected: %s", s.id, s.tenantID, reason)
		if err := s.deps.notifier.Send(opCtx, s.deps.cfg.AlertRecipient, subject, body); err != nil {
			s.deps.metrics.RecordNotification(false)
			s.deps.logger.Warn("disconnect alert failed", "instance_id", s.id, "error", err)
		} else {
			s.deps.metrics.RecordNotification(true)
		}
	}

	if s.deps.hooks.OnUnplannedDisconnect != nil {
		go func() {
			if err := s.deps.hooks.OnUnplannedDisconnect(s.ctx, s.id, reason); err != nil {
				s.deps.logger.Error("disconnect hook error", "instance_id", s.id, "error", err)
			}
		}()
	}
}

// getHandle returns the current provider handle, or nil.
func (s *Session) getHandle() types.SessionHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.handle
}

// setHandle publishes a new provider handle.
func (s *Session) setHandle(handle types.SessionHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handle = handle
}

// destroyHandle tears down and clears the current provider handle.
func (s *Session) destroyHandle() {
	s.mu.Lock()
	handle := s.handle
	s.handle = nil
	s.mu.Unlock()

	if handle == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.deps.cfg.OperationTimeout)
	defer cancel()

	if err := handle.Destroy(ctx); err != nil {
		s.deps.logger.Warn("handle destroy failed", "instance_id", s.id, "error", err)
	}
}
