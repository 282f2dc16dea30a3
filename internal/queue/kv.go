// Package queue implements the durable recovery queues on a NATS
// JetStream KeyValue bucket.
//
// Both queues live in a single bucket keyed by instance id, with the
// queue membership stored in the value. A cross-queue move is therefore
// one atomic Put: a concurrent reader observes the id in exactly one
// queue at every instant, which is the mutual-exclusion contract the
// sweeper depends on.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/korospace/BE-WA-blaster/internal/logging"
	"github.com/korospace/BE-WA-blaster/types"
)

// record is the persisted value for one queue member.
type record struct {
	TenantID string `json:"tenant_id"`
	Queue    string `json:"queue"`
}

// KVQueues implements types.RecoveryQueues on one JetStream KV bucket.
//
// The bucket must be created without TTL: queue entries are the durable
// recovery state that survives process restarts.
type KVQueues struct {
	kv     jetstream.KeyValue
	logger types.Logger
}

// Compile-time assertion that KVQueues implements RecoveryQueues.
var _ types.RecoveryQueues = (*KVQueues)(nil)

// New creates recovery queues backed by the given KV bucket.
func New(kv jetstream.KeyValue, logger types.Logger) *KVQueues {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &KVQueues{kv: kv, logger: logger}
}

// Add inserts the id into the queue.
//
// Idempotent: if the id is already in the queue with the same tenant the
// call is a no-op. If the id lives in the other queue it is relocated.
func (q *KVQueues) Add(ctx context.Context, queue types.QueueName, instanceID, tenantID string) error {
	entry, err := q.kv.Get(ctx, instanceID)
	if err == nil {
		var cur record
		if jsonErr := json.Unmarshal(entry.Value(), &cur); jsonErr == nil {
			if cur.Queue == queue.String() && cur.TenantID == tenantID {
				return nil
			}
		}
	} else if !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("%w: get queue entry %s: %w", types.ErrStorageIO, instanceID, err)
	}

	return q.put(ctx, queue, instanceID, tenantID)
}

// Move atomically relocates the id into the queue.
func (q *KVQueues) Move(ctx context.Context, queue types.QueueName, instanceID, tenantID string) error {
	return q.put(ctx, queue, instanceID, tenantID)
}

// Remove deletes the id from the queue.
//
// No-op if the id is absent or lives in the other queue. The delete is
// revision-checked so a concurrent move to the other queue is never
// clobbered.
func (q *KVQueues) Remove(ctx context.Context, queue types.QueueName, instanceID string) error {
	entry, err := q.kv.Get(ctx, instanceID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}

		return fmt.Errorf("%w: get queue entry %s: %w", types.ErrStorageIO, instanceID, err)
	}

	var cur record
	if err := json.Unmarshal(entry.Value(), &cur); err != nil {
		return fmt.Errorf("%w: decode queue entry %s: %w", types.ErrStorageIO, instanceID, err)
	}

	if cur.Queue != queue.String() {
		return nil
	}

	err = q.kv.Delete(ctx, instanceID, jetstream.LastRevision(entry.Revision()))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("%w: delete queue entry %s: %w", types.ErrStorageIO, instanceID, err)
	}

	return nil
}

// List returns all current entries of the queue.
//
// Entries that cannot be read or decoded are logged and skipped: one bad
// value must not halt the sweeper, which lists both queues every cycle.
func (q *KVQueues) List(ctx context.Context, queue types.QueueName) ([]types.QueueEntry, error) {
	lister, err := q.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: list queue keys: %w", types.ErrStorageIO, err)
	}
	defer func() { _ = lister.Stop() }()

	var entries []types.QueueEntry
	for key := range lister.Keys() {
		entry, err := q.kv.Get(ctx, key)
		if err != nil {
			// Deleted between list and get: skip.
			if !errors.Is(err, jetstream.ErrKeyNotFound) {
				q.logger.Warn("skipping unreadable queue entry", "instance_id", key, "error", err)
			}

			continue
		}

		var cur record
		if err := json.Unmarshal(entry.Value(), &cur); err != nil {
			q.logger.Warn("skipping undecodable queue entry", "instance_id", key, "error", err)
			continue
		}

		if cur.Queue == queue.String() {
			entries = append(entries, types.QueueEntry{InstanceID: key, TenantID: cur.TenantID})
		}
	}

	return entries, nil
}

// put writes the membership record for the id. One Put is the atomic
// relocation primitive both Add and Move reduce to.
func (q *KVQueues) put(ctx context.Context, queue types.QueueName, instanceID, tenantID string) error {
	data, err := json.Marshal(record{TenantID: tenantID, Queue: queue.String()})
	if err != nil {
		return fmt.Errorf("encode queue entry %s: %w", instanceID, err)
	}

	if _, err := q.kv.Put(ctx, instanceID, data); err != nil {
		return fmt.Errorf("%w: put queue entry %s: %w", types.ErrStorageIO, instanceID, err)
	}

	return nil
}
