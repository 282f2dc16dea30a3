package wablaster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/korospace/BE-WA-blaster/types"
)

// Sweeper is the periodic reconciler between the durable recovery queues
// and the live registry.
//
// Every cycle runs two passes over the queue bucket:
//
//  1. Liveness: every ready-queue entry must hold a live, connected
//     session. Stale entries are demoted to disconnected with the full
//     transition side effects, including the unplanned-disconnect alert.
//  2. Recovery: every disconnect-queue entry with no live session gets a
//     fresh one created through the registry.
//
// The disconnect queue is listed after pass 1, so an entry demoted in
// pass 1 is already eligible for resurrection in pass 2 of the same
// cycle. Per-entry failures are logged and skipped; one bad entry never
// stops the sweep.
type Sweeper struct {
	registry *Registry
	deps     sessionDeps

	cancel context.CancelFunc
	done   chan struct{}
}

// newSweeper creates a sweeper over the registry and shared dependencies.
func newSweeper(registry *Registry, deps sessionDeps) *Sweeper {
	return &Sweeper{
		registry: registry,
		deps:     deps,
		done:     make(chan struct{}),
	}
}

// start launches the sweep loop at the configured interval.
func (sw *Sweeper) start() {
	var ctx context.Context
	ctx, sw.cancel = context.WithCancel(context.Background())

	go sw.run(ctx)
}

// stop halts the sweep loop and waits for the in-flight cycle.
func (sw *Sweeper) stop(ctx context.Context) error {
	sw.cancel()

	select {
	case <-sw.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sweeper stop: %w", ctx.Err())
	}
}

func (sw *Sweeper) run(ctx context.Context) {
	defer close(sw.done)

	ticker := time.NewTicker(sw.deps.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.sweep(ctx)
		}
	}
}

// sweep executes one two-pass reconciliation cycle.
func (sw *Sweeper) sweep(ctx context.Context) {
	start := time.Now()

	opCtx, cancel := context.WithTimeout(ctx, sw.deps.cfg.OperationTimeout)
	defer cancel()

	demoted := sw.demoteStale(opCtx)
	resurrected := sw.resurrect(opCtx)

	sw.deps.metrics.RecordSweep(demoted, resurrected, time.Since(start).Seconds())

	if demoted > 0 || resurrected > 0 {
		sw.deps.logger.Info("sweep cycle",
			"demoted", demoted,
			"resurrected", resurrected,
			"duration", time.Since(start),
		)
	}
}

// demoteStale is pass 1: ready-queue entries without a live connected
// session are demoted to disconnected.
func (sw *Sweeper) demoteStale(ctx context.Context) int {
	entries, err := sw.deps.queues.List(ctx, types.QueueReady)
	if err != nil {
		sw.deps.logger.Error("ready queue list failed", "error", err)
		return 0
	}
	sw.deps.metrics.RecordQueueDepth(types.QueueReady, len(entries))

	demoted := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return demoted
		}

		sess := sw.registry.Get(entry.InstanceID)
		if sess != nil && sess.Connected(ctx) {
			continue
		}

		if err := sw.demote(ctx, entry); err != nil {
			sw.deps.logger.Error("demotion failed",
				"instance_id", entry.InstanceID,
				"error", err,
			)

			continue
		}
		demoted++
	}

	return demoted
}

// demote applies the disconnected transition for an entry that has no
// session goroutine to apply it. Same side-effect order as a live
// transition: store, queue, publish, then alert.
func (sw *Sweeper) demote(ctx context.Context, entry types.QueueEntry) error {
	if err := sw.deps.store.UpdateStatus(ctx, entry.InstanceID, types.StatusDisconnected, "", ""); err != nil {
		if errors.Is(err, types.ErrInstanceNotFound) {
			// Queue entry outlived the record. Drop it.
			return sw.deps.queues.Remove(ctx, types.QueueReady, entry.InstanceID)
		}

		return fmt.Errorf("persist demotion: %w", err)
	}

	if err := sw.deps.queues.Move(ctx, types.QueueDisconnect, entry.InstanceID, entry.TenantID); err != nil {
		return fmt.Errorf("move to disconnect queue: %w", err)
	}

	if err := sw.deps.publisher.Publish(ctx, entry.TenantID, entry.InstanceID, types.StatusUpdate{
		Status: types.StatusDisconnected,
	}); err != nil {
		sw.deps.metrics.RecordPublish(false)
		sw.deps.logger.Warn("realtime publish failed", "instance_id", entry.InstanceID, "error", err)
	} else {
		sw.deps.metrics.RecordPublish(true)
	}

	sw.deps.metrics.RecordStatusTransition(entry.InstanceID, types.StatusReady, types.StatusDisconnected)

	reason := "session lost while marked ready"
	sw.deps.logger.Warn("unplanned disconnect",
		"instance_id", entry.InstanceID,
		"tenant_id", entry.TenantID,
		"reason", reason,
	)

	if sw.deps.cfg.AlertRecipient != "" {
		subject := fmt.Sprintf("instance %s disconnected", entry.InstanceID)
		body := fmt.Sprintf("Instance %s (tenant %s) disconnected: %s", entry.InstanceID, entry.TenantID, reason)
		if err := sw.deps.notifier.Send(ctx, sw.deps.cfg.AlertRecipient, subject, body); err != nil {
			sw.deps.metrics.RecordNotification(false)
			sw.deps.logger.Warn("disconnect alert failed", "instance_id", entry.InstanceID, "error", err)
		} else {
			sw.deps.metrics.RecordNotification(true)
		}
	}

	if sw.deps.hooks.OnUnplannedDisconnect != nil {
		go func() {
			if err := sw.deps.hooks.OnUnplannedDisconnect(context.WithoutCancel(ctx), entry.InstanceID, reason); err != nil {
				sw.deps.logger.Error("disconnect hook error", "instance_id", entry.InstanceID, "error", err)
			}
		}()
	}

	return nil
}

// resurrect is pass 2: disconnect-queue entries with no live session get
// a fresh one. Listed after pass 1 so entries demoted this cycle are
// picked up immediately.
func (sw *Sweeper) resurrect(ctx context.Context) int {
	entries, err := sw.deps.queues.List(ctx, types.QueueDisconnect)
	if err != nil {
		sw.deps.logger.Error("disconnect queue list failed", "error", err)
		return 0
	}
	sw.deps.metrics.RecordQueueDepth(types.QueueDisconnect, len(entries))

	resurrected := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return resurrected
		}

		if sw.registry.Get(entry.InstanceID) != nil {
			continue
		}

		_, err := sw.registry.AcquireOrCreate(ctx, entry.InstanceID, entry.TenantID)
		if err != nil {
			if errors.Is(err, types.ErrInstanceDeleted) || errors.Is(err, types.ErrInstanceNotFound) {
				// The record is gone or tombstoned; the queue entry is debris.
				if rmErr := sw.deps.queues.Remove(ctx, types.QueueDisconnect, entry.InstanceID); rmErr != nil {
					sw.deps.logger.Warn("stale queue entry cleanup failed",
						"instance_id", entry.InstanceID,
						"error", rmErr,
					)
				}

				continue
			}

			sw.deps.logger.Error("resurrection failed",
				"instance_id", entry.InstanceID,
				"error", err,
			)

			continue
		}
		resurrected++
	}

	return resurrected
}
