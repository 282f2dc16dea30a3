package wablaster

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/korospace/BE-WA-blaster/internal/hooks"
	"github.com/korospace/BE-WA-blaster/internal/metrics"
	watest "github.com/korospace/BE-WA-blaster/testing"
	"github.com/korospace/BE-WA-blaster/types"
)

// memStore is an in-memory types.InstanceStore for unit tests that do
// not need a JetStream bucket.
type memStore struct {
	mu        sync.Mutex
	instances map[string]types.Instance
}

var _ types.InstanceStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{instances: make(map[string]types.Instance)}
}

func (s *memStore) Create(_ context.Context, inst types.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[inst.InstanceID]; ok {
		return fmt.Errorf("%w: %s", types.ErrInstanceExists, inst.InstanceID)
	}

	now := time.Now().UTC()
	inst.CreatedAt = now
	inst.UpdatedAt = now
	s.instances[inst.InstanceID] = inst

	return nil
}

func (s *memStore) FindByID(_ context.Context, instanceID string) (types.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[instanceID]
	if !ok {
		return types.Instance{}, fmt.Errorf("%w: %s", types.ErrInstanceNotFound, instanceID)
	}

	return inst, nil
}

func (s *memStore) UpdateStatus(_ context.Context, instanceID string, status types.Status, phone, qr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[instanceID]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrInstanceNotFound, instanceID)
	}

	inst.Status = status
	inst.PhoneNumber = phone
	inst.QRPayload = qr
	inst.UpdatedAt = time.Now().UTC()
	s.instances[instanceID] = inst

	return nil
}

func (s *memStore) SoftDelete(_ context.Context, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[instanceID]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrInstanceNotFound, instanceID)
	}

	now := time.Now().UTC()
	inst.Deleted = true
	inst.DeletedAt = &now
	s.instances[instanceID] = inst

	return nil
}

func (s *memStore) List(_ context.Context, filter types.ListFilter) ([]types.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Instance
	for _, inst := range s.instances {
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

// memQueues is an in-memory types.RecoveryQueues. Move calls per target
// queue are counted so tests can assert transition economy.
type memQueues struct {
	mu      sync.Mutex
	entries map[string]memQueueEntry
	moves   map[types.QueueName]int
}

type memQueueEntry struct {
	tenantID string
	queue    types.QueueName
}

var _ types.RecoveryQueues = (*memQueues)(nil)

func newMemQueues() *memQueues {
	return &memQueues{
		entries: make(map[string]memQueueEntry),
		moves:   make(map[types.QueueName]int),
	}
}

func (q *memQueues) Add(_ context.Context, queue types.QueueName, instanceID, tenantID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries[instanceID] = memQueueEntry{tenantID: tenantID, queue: queue}

	return nil
}

func (q *memQueues) Remove(_ context.Context, queue types.QueueName, instanceID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if entry, ok := q.entries[instanceID]; ok && entry.queue == queue {
		delete(q.entries, instanceID)
	}

	return nil
}

func (q *memQueues) Move(_ context.Context, queue types.QueueName, instanceID, tenantID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.moves[queue]++
	q.entries[instanceID] = memQueueEntry{tenantID: tenantID, queue: queue}

	return nil
}

func (q *memQueues) List(_ context.Context, queue types.QueueName) ([]types.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []types.QueueEntry
	for id, entry := range q.entries {
		if entry.queue == queue {
			out = append(out, types.QueueEntry{InstanceID: id, TenantID: entry.tenantID})
		}
	}

	return out, nil
}

func (q *memQueues) movesTo(queue types.QueueName) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.moves[queue]
}

func (q *memQueues) queueOf(instanceID string) (types.QueueName, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[instanceID]

	return entry.queue, ok
}

// publishedUpdate is one captured realtime publication.
type publishedUpdate struct {
	tenantID   string
	instanceID string
	update     types.StatusUpdate
}

// capturePublisher records every published status update in order.
type capturePublisher struct {
	mu      sync.Mutex
	updates []publishedUpdate
}

var _ types.EventPublisher = (*capturePublisher)(nil)

func (p *capturePublisher) Publish(_ context.Context, tenantID, instanceID string, update types.StatusUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.updates = append(p.updates, publishedUpdate{tenantID: tenantID, instanceID: instanceID, update: update})

	return nil
}

func (p *capturePublisher) all() []publishedUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]publishedUpdate, len(p.updates))
	copy(out, p.updates)

	return out
}

// captureNotifier records every alert.
type captureNotifier struct {
	mu   sync.Mutex
	sent []string
}

var _ types.Notifier = (*captureNotifier)(nil)

func (n *captureNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent = append(n.sent, fmt.Sprintf("%s: %s", to, subject))

	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.sent)
}

// testEnv bundles the in-memory collaborators for session, registry and
// sweeper unit tests.
type testEnv struct {
	cfg      Config
	provider *watest.FakeProvider
	store    *memStore
	queues   *memQueues
	pub      *capturePublisher
	notifier *captureNotifier
	logger   types.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := TestConfig()
	cfg.AlertRecipient = "ops@example.com"

	return &testEnv{
		cfg:      cfg,
		provider: watest.NewFakeProvider(),
		store:    newMemStore(),
		queues:   newMemQueues(),
		pub:      &capturePublisher{},
		notifier: &captureNotifier{},
		logger:   watest.NewTestLogger(t),
	}
}

func (e *testEnv) deps() sessionDeps {
	return sessionDeps{
		cfg:       &e.cfg,
		provider:  e.provider,
		store:     e.store,
		queues:    e.queues,
		publisher: e.pub,
		notifier:  e.notifier,
		hooks:     hooks.NewNop(),
		metrics:   metrics.NewNop(),
		logger:    e.logger,
	}
}

// seedInstance persists a record and its disconnect-queue entry.
func (e *testEnv) seedInstance(t *testing.T, instanceID, tenantID string) {
	t.Helper()

	ctx := t.Context()
	if err := e.store.Create(ctx, types.Instance{
		InstanceID: instanceID,
		TenantID:   tenantID,
		Status:     types.StatusDisconnected,
	}); err != nil {
		t.Fatalf("seed instance %s: %v", instanceID, err)
	}
	if err := e.queues.Add(ctx, types.QueueDisconnect, instanceID, tenantID); err != nil {
		t.Fatalf("seed queue entry %s: %v", instanceID, err)
	}
}

// startSession builds and starts a session for a seeded instance.
func (e *testEnv) startSession(t *testing.T, instanceID, tenantID string) *Session {
	t.Helper()

	s := newSession(instanceID, tenantID, types.StatusDisconnected, e.deps())
	s.start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.shutdown(ctx)
	})

	return s
}

// newFactory returns a registry session factory over this environment.
func (e *testEnv) newFactory() func(ctx context.Context, instanceID, tenantID string) (*Session, error) {
	deps := e.deps()

	return func(ctx context.Context, instanceID, tenantID string) (*Session, error) {
		inst, err := e.store.FindByID(ctx, instanceID)
		if err != nil {
			return nil, err
		}
		if inst.Deleted {
			return nil, fmt.Errorf("%w: %s", types.ErrInstanceDeleted, instanceID)
		}
		if tenantID == "" {
			tenantID = inst.TenantID
		}

		s := newSession(instanceID, tenantID, types.StatusDisconnected, deps)
		s.start()

		return s, nil
	}
}
