// Package wablaster orchestrates fleets of long-lived chat-session
// instances: one provider session per tenant instance, supervised through
// connect, authenticate, ready and disconnect states, with durable
// recovery queues and periodic reconciliation that self-heal sessions
// after process restarts or external session drops.
//
// # Quick Start
//
//	cfg := wablaster.DefaultConfig()
//	mgr, err := wablaster.NewManager(&cfg, natsConn, provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := mgr.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Stop()
//
//	inst, err := mgr.CreateInstance(ctx, "tenant-42")
//
// # Architecture
//
// The Manager composes four cooperating parts:
//
//   - Registry: process-wide map from instance id to the single live
//     session handle, with per-id create-if-absent semantics.
//   - Session: one adapter per live instance, consuming the provider's
//     serial event stream and turning each event into a state transition
//     with store, queue and notification side effects.
//   - Recovery queues: two durable, mutually exclusive sets (ready,
//     disconnect) in a NATS JetStream KV bucket, surviving restarts.
//   - Sweeper: a ticker-driven task that reconciles the queues against
//     the registry every cycle, demoting stale sessions and resurrecting
//     missing ones.
//
// State transitions are strictly sequential per instance, and the store
// update of a transition always happens before its realtime publish.
//
// # External collaborators
//
// The instance store, session provider, pub/sub transport and notifier
// are interfaces (see the types package). Defaults backed by NATS
// JetStream KV and core NATS publish are wired in by Start; any of them
// can be replaced through options.
package wablaster
