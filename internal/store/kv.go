// Package store implements the default instance store on a NATS
// JetStream KeyValue bucket.
//
// Records are keyed by instance id and updated with revision-checked
// read-modify-write, so concurrent writers (session event loop, sweeper,
// API callers) never lose updates.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/korospace/BE-WA-blaster/internal/logging"
	"github.com/korospace/BE-WA-blaster/types"
)

// maxUpdateAttempts bounds the revision-conflict retry loop.
const maxUpdateAttempts = 5

// KVStore implements types.InstanceStore on one JetStream KV bucket.
type KVStore struct {
	kv     jetstream.KeyValue
	logger types.Logger
}

// Compile-time assertion that KVStore implements InstanceStore.
var _ types.InstanceStore = (*KVStore)(nil)

// New creates an instance store backed by the given KV bucket.
//
// The bucket must be created without TTL.
func New(kv jetstream.KeyValue, logger types.Logger) *KVStore {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &KVStore{kv: kv, logger: logger}
}

// Create persists a new instance record.
//
// Uses the KV Create operation, which is atomic: concurrent creates for
// the same id yield exactly one winner, the rest get ErrInstanceExists.
func (s *KVStore) Create(ctx context.Context, inst types.Instance) error {
	now := time.Now().UTC()
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = now
	}
	inst.UpdatedAt = now

	data, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("encode instance %s: %w", inst.InstanceID, err)
	}

	if _, err := s.kv.Create(ctx, inst.InstanceID, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return fmt.Errorf("%w: %s", types.ErrInstanceExists, inst.InstanceID)
		}

		return fmt.Errorf("%w: create instance %s: %w", types.ErrStorageIO, inst.InstanceID, err)
	}

	return nil
}

// FindByID returns the record for the id.
func (s *KVStore) FindByID(ctx context.Context, instanceID string) (types.Instance, error) {
	inst, _, err := s.get(ctx, instanceID)
	return inst, err
}

// UpdateStatus persists a status transition.
//
// Phone and qr replace the stored fields wholesale; passing empty strings
// clears them, which keeps the record invariants (phone only when ready,
// qr only while awaiting scan).
func (s *KVStore) UpdateStatus(ctx context.Context, instanceID string, status types.Status, phone, qr string) error {
	return s.update(ctx, instanceID, func(inst *types.Instance) {
		inst.Status = status
		inst.PhoneNumber = phone
		inst.QRPayload = qr
	})
}

// SoftDelete marks the record deleted without removing it.
func (s *KVStore) SoftDelete(ctx context.Context, instanceID string) error {
	return s.update(ctx, instanceID, func(inst *types.Instance) {
		now := time.Now().UTC()
		inst.Deleted = true
		inst.DeletedAt = &now
	})
}

// List returns records matching the filter.
//
// Records that cannot be read or decoded are logged and skipped so one
// bad value never blanks a whole tenant listing.
func (s *KVStore) List(ctx context.Context, filter types.ListFilter) ([]types.Instance, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: list instance keys: %w", types.ErrStorageIO, err)
	}
	defer func() { _ = lister.Stop() }()

	var out []types.Instance
	for key := range lister.Keys() {
		inst, _, err := s.get(ctx, key)
		if err != nil {
			if !errors.Is(err, types.ErrInstanceNotFound) {
				s.logger.Warn("skipping unreadable instance record", "instance_id", key, "error", err)
			}

			continue
		}

		if inst.Deleted && !filter.IncludeDeleted {
			continue
		}
		if filter.TenantID != "" && inst.TenantID != filter.TenantID {
			continue
		}
		if filter.Status != nil && inst.Status != *filter.Status {
			continue
		}

		out = append(out, inst)
	}

	return out, nil
}

// get fetches a record along with its KV revision.
func (s *KVStore) get(ctx context.Context, instanceID string) (types.Instance, uint64, error) {
	entry, err := s.kv.Get(ctx, instanceID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return types.Instance{}, 0, fmt.Errorf("%w: %s", types.ErrInstanceNotFound, instanceID)
		}

		return types.Instance{}, 0, fmt.Errorf("%w: get instance %s: %w", types.ErrStorageIO, instanceID, err)
	}

	var inst types.Instance
	if err := json.Unmarshal(entry.Value(), &inst); err != nil {
		return types.Instance{}, 0, fmt.Errorf("%w: decode instance %s: %w", types.ErrStorageIO, instanceID, err)
	}

	return inst, entry.Revision(), nil
}

// update applies mutate under revision-checked read-modify-write.
func (s *KVStore) update(ctx context.Context, instanceID string, mutate func(*types.Instance)) error {
	var lastErr error

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		inst, revision, err := s.get(ctx, instanceID)
		if err != nil {
			return err
		}

		mutate(&inst)
		inst.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(inst)
		if err != nil {
			return fmt.Errorf("encode instance %s: %w", instanceID, err)
		}

		if _, err := s.kv.Update(ctx, instanceID, data, revision); err == nil {
			return nil
		} else {
			// Revision conflict: another writer got in first, re-read and
			// re-apply.
			lastErr = err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return fmt.Errorf("%w: update instance %s: %w", types.ErrStorageIO, instanceID, lastErr)
}
