package wablaster

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/korospace/BE-WA-blaster/internal/hooks"
	"github.com/korospace/BE-WA-blaster/internal/kvutil"
	"github.com/korospace/BE-WA-blaster/internal/logging"
	"github.com/korospace/BE-WA-blaster/internal/metrics"
	"github.com/korospace/BE-WA-blaster/internal/notify"
	"github.com/korospace/BE-WA-blaster/internal/queue"
	"github.com/korospace/BE-WA-blaster/internal/store"
	"github.com/korospace/BE-WA-blaster/types"
)

// Manager orchestrates instance lifecycles for all tenants in the
// process.
//
// It owns the registry of live sessions, the durable instance store and
// recovery queues, and the reconciliation sweeper. All public operations
// are safe for concurrent use.
type Manager struct {
	cfg      *Config
	conn     *nats.Conn
	provider types.SessionProvider

	opts managerOptions

	mu       sync.Mutex
	started  bool
	stopped  bool
	deps     sessionDeps
	registry *Registry
	sweeper  *Sweeper
}

// NewManager creates a Manager.
//
// The configuration is defaulted and validated; the NATS connection and
// session provider are required. Storage, queues, publisher, notifier,
// hooks, metrics and logger are all overridable through options, with
// JetStream KV, core NATS publication and no-op collaborators as the
// defaults.
//
// Parameters:
//   - cfg: Manager configuration (defaults applied in place)
//   - conn: NATS connection for KV storage and realtime publication
//   - provider: Session provider backing the instances
//   - opts: Optional dependency overrides
//
// Returns:
//   - *Manager: Configured manager, not yet started
//   - error: ErrInvalidConfig, ErrConnRequired or ErrProviderRequired
func NewManager(cfg *Config, conn *nats.Conn, provider types.SessionProvider, opts ...Option) (*Manager, error) {
	if cfg == nil {
		defaults := DefaultConfig()
		cfg = &defaults
	}
	SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if conn == nil {
		return nil, ErrConnRequired
	}

	if provider == nil {
		return nil, ErrProviderRequired
	}

	options := managerOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if options.logger == nil {
		options.logger = logging.NewSlogDefault()
	}
	if options.notifier == nil {
		options.notifier = notify.NewNop()
	}
	if options.hooks == nil {
		h := hooks.NewNop()
		options.hooks = &h
	}
	if options.metrics == nil {
		options.metrics = metrics.NewNop()
	}

	cfg.ValidateWithWarnings(options.logger)

	return &Manager{
		cfg:      cfg,
		conn:     conn,
		provider: provider,
		opts:     options,
	}, nil
}

// Start wires storage and begins reconciliation.
//
// Creates the JetStream KV buckets when no custom store or queues were
// supplied, builds the session registry, and launches the sweeper. After
// Start returns, previously persisted disconnect-queue entries are
// resurrected by the first sweep cycle.
//
// Parameters:
//   - ctx: Context for bucket creation
//
// Returns:
//   - error: ErrAlreadyStarted, or a storage wiring error
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}

	instStore := m.opts.store
	queues := m.opts.queues

	if instStore == nil || queues == nil {
		js, err := jetstream.New(m.conn)
		if err != nil {
			return fmt.Errorf("create JetStream context: %w", err)
		}

		if instStore == nil {
			kv, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
				Bucket:      m.cfg.KVBuckets.InstanceBucket,
				Description: "instance records",
			}, 3)
			if err != nil {
				return fmt.Errorf("ensure instance bucket: %w", err)
			}
			instStore = store.New(kv, m.opts.logger)
		}

		if queues == nil {
			kv, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
				Bucket:      m.cfg.KVBuckets.QueueBucket,
				Description: "recovery queues",
			}, 3)
			if err != nil {
				return fmt.Errorf("ensure queue bucket: %w", err)
			}
			queues = queue.New(kv, m.opts.logger)
		}
	}

	publisher := m.opts.publisher
	if publisher == nil {
		publisher = newNATSPublisher(m.conn, m.cfg.Subjects.StatusPrefix)
	}

	m.deps = sessionDeps{
		cfg:       m.cfg,
		provider:  m.provider,
		store:     instStore,
		queues:    queues,
		publisher: publisher,
		notifier:  m.opts.notifier,
		hooks:     *m.opts.hooks,
		metrics:   m.opts.metrics,
		logger:    m.opts.logger,
	}

	m.registry = NewRegistry(m.newSession, m.opts.logger)
	m.sweeper = newSweeper(m.registry, m.deps)
	m.sweeper.start()

	m.started = true
	m.opts.logger.Info("manager started",
		"sweep_interval", m.cfg.SweepInterval,
		"instance_bucket", m.cfg.KVBuckets.InstanceBucket,
		"queue_bucket", m.cfg.KVBuckets.QueueBucket,
	)

	return nil
}

// Stop halts reconciliation and tears down every live session.
//
// Bounded by ShutdownTimeout. The durable store and queues are left
// intact: a later Start resumes from them.
//
// Returns:
//   - error: ErrNotStarted, or a teardown timeout error
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}
	if m.stopped {
		return nil
	}
	m.stopped = true

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ShutdownTimeout)
	defer cancel()

	err := m.sweeper.stop(ctx)
	m.registry.Shutdown(ctx)

	m.opts.logger.Info("manager stopped")

	return err
}

// running returns the registry and store of a started, non-stopped
// manager.
func (m *Manager) running() (*Registry, types.InstanceStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil, nil, ErrNotStarted
	}
	if m.stopped {
		return nil, nil, ErrNotStarted
	}

	return m.registry, m.deps.store, nil
}

// newSession is the registry's session factory. Runs under the per-id
// creation lock; reads the store but performs no provider I/O.
func (m *Manager) newSession(ctx context.Context, instanceID, tenantID string) (*Session, error) {
	inst, err := m.deps.store.FindByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	if inst.Deleted {
		return nil, fmt.Errorf("%w: instance %s", types.ErrInstanceDeleted, instanceID)
	}

	if tenantID == "" {
		tenantID = inst.TenantID
	}

	// A fresh session always starts from disconnected: whatever status the
	// record carries, the new provider handle has not authenticated yet.
	s := newSession(instanceID, tenantID, types.StatusDisconnected, m.deps)
	s.start()

	return s, nil
}

// CreateInstance registers a new instance for the tenant and starts its
// pairing flow.
//
// The record is persisted as disconnected, enqueued for recovery, and a
// session is created immediately; the QR payload arrives through the
// realtime publisher once the provider issues it.
//
// Parameters:
//   - ctx: Context for storage access
//   - tenantID: Owning tenant
//
// Returns:
//   - types.Instance: The persisted record
//   - error: ErrNotStarted, or a storage error
func (m *Manager) CreateInstance(ctx context.Context, tenantID string) (types.Instance, error) {
	registry, instStore, err := m.running()
	if err != nil {
		return types.Instance{}, err
	}

	inst := types.Instance{
		InstanceID: GenerateInstanceID(),
		TenantID:   tenantID,
		Status:     types.StatusDisconnected,
	}

	if err := instStore.Create(ctx, inst); err != nil {
		return types.Instance{}, fmt.Errorf("create instance record: %w", err)
	}

	if err := m.deps.queues.Add(ctx, types.QueueDisconnect, inst.InstanceID, tenantID); err != nil {
		return types.Instance{}, fmt.Errorf("enqueue instance %s: %w", inst.InstanceID, err)
	}

	if _, err := registry.AcquireOrCreate(ctx, inst.InstanceID, tenantID); err != nil {
		// The durable queue entry stands; the sweeper retries creation.
		m.opts.logger.Warn("initial session creation failed, sweeper will retry",
			"instance_id", inst.InstanceID,
			"error", err,
		)
	}

	return instStore.FindByID(ctx, inst.InstanceID)
}

// Instance returns the instance record and wakes its session.
//
// Waking means ensuring a live session exists for a non-deleted
// instance; a dormant instance read through this call starts
// re-initializing as a side effect.
//
// Parameters:
//   - ctx: Context for storage access
//   - instanceID: Instance identity
//
// Returns:
//   - types.Instance: The persisted record
//   - error: ErrNotStarted, ErrInstanceNotFound or ErrInstanceDeleted
func (m *Manager) Instance(ctx context.Context, instanceID string) (types.Instance, error) {
	registry, instStore, err := m.running()
	if err != nil {
		return types.Instance{}, err
	}

	inst, err := instStore.FindByID(ctx, instanceID)
	if err != nil {
		return types.Instance{}, err
	}

	if inst.Deleted {
		return types.Instance{}, fmt.Errorf("%w: instance %s", types.ErrInstanceDeleted, instanceID)
	}

	if _, err := registry.AcquireOrCreate(ctx, instanceID, inst.TenantID); err != nil {
		m.opts.logger.Warn("instance wake failed",
			"instance_id", instanceID,
			"error", err,
		)
	}

	return inst, nil
}

// Instances returns the tenant's non-deleted instances and wakes each of
// their sessions.
//
// Parameters:
//   - ctx: Context for storage access
//   - tenantID: Owning tenant
//
// Returns:
//   - []types.Instance: Persisted records, deleted ones excluded
//   - error: ErrNotStarted, or a storage error
func (m *Manager) Instances(ctx context.Context, tenantID string) ([]types.Instance, error) {
	registry, instStore, err := m.running()
	if err != nil {
		return nil, err
	}

	insts, err := instStore.List(ctx, types.ListFilter{TenantID: tenantID})
	if err != nil {
		return nil, fmt.Errorf("list instances for tenant %s: %w", tenantID, err)
	}

	for _, inst := range insts {
		if _, err := registry.AcquireOrCreate(ctx, inst.InstanceID, inst.TenantID); err != nil {
			m.opts.logger.Warn("instance wake failed",
				"instance_id", inst.InstanceID,
				"error", err,
			)
		}
	}

	return insts, nil
}

// SendMessage sends a text message through the instance.
//
// Fails with ErrInstanceNotReady unless the instance holds a live ready
// session; a dormant instance is woken so a later retry can succeed.
//
// Parameters:
//   - ctx: Context for the provider call
//   - instanceID: Sending instance
//   - recipient: Raw recipient phone number (formatted before sending)
//   - text: Message body
//
// Returns:
//   - error: ErrNotStarted, ErrInstanceNotFound, ErrInstanceDeleted,
//     ErrInstanceNotReady, or the provider send error
func (m *Manager) SendMessage(ctx context.Context, instanceID, recipient, text string) error {
	registry, _, err := m.running()
	if err != nil {
		return err
	}

	sess, err := registry.AcquireOrCreate(ctx, instanceID, "")
	if err != nil {
		return err
	}

	return sess.SendMessage(ctx, recipient, text)
}

// Logout deliberately ends the instance's authenticated session.
//
// No alert is sent and no self-heal runs; the instance remains in the
// disconnect queue, so the next sweep resurrects it into a fresh pairing
// flow.
//
// Parameters:
//   - ctx: Context for the provider call
//   - instanceID: Instance identity
//
// Returns:
//   - error: ErrNotStarted, ErrInstanceNotFound, ErrInstanceDeleted, or
//     the provider logout error
func (m *Manager) Logout(ctx context.Context, instanceID string) error {
	registry, instStore, err := m.running()
	if err != nil {
		return err
	}

	sess := registry.Get(instanceID)
	if sess == nil {
		// No live session. Validate the id and apply the durable part only.
		inst, err := instStore.FindByID(ctx, instanceID)
		if err != nil {
			return err
		}
		if inst.Deleted {
			return fmt.Errorf("%w: instance %s", types.ErrInstanceDeleted, instanceID)
		}

		if err := instStore.UpdateStatus(ctx, instanceID, types.StatusDisconnected, "", ""); err != nil {
			return fmt.Errorf("persist logout for instance %s: %w", instanceID, err)
		}

		return m.deps.queues.Move(ctx, types.QueueDisconnect, instanceID, inst.TenantID)
	}

	logoutErr := sess.Logout(ctx)
	registry.Release(ctx, instanceID)

	return logoutErr
}

// DestroyInstance soft-deletes the instance and tears down its session.
//
// The record is tombstoned, both recovery queues drop the id, and any
// live session is destroyed. A destroyed instance is never resurrected;
// its id stays reserved by the tombstone.
//
// Parameters:
//   - ctx: Context for storage access and provider teardown
//   - instanceID: Instance identity
//
// Returns:
//   - error: ErrNotStarted, ErrInstanceNotFound, or a storage error
func (m *Manager) DestroyInstance(ctx context.Context, instanceID string) error {
	registry, instStore, err := m.running()
	if err != nil {
		return err
	}

	// The tombstone write and session teardown run under the per-id
	// creation lock, so a creation in flight cannot publish a handle for
	// the deleted instance.
	if err := registry.Destroy(ctx, instanceID, func(ctx context.Context) error {
		return instStore.SoftDelete(ctx, instanceID)
	}); err != nil {
		return err
	}

	if err := m.deps.queues.Remove(ctx, types.QueueReady, instanceID); err != nil {
		return fmt.Errorf("dequeue instance %s: %w", instanceID, err)
	}
	if err := m.deps.queues.Remove(ctx, types.QueueDisconnect, instanceID); err != nil {
		return fmt.Errorf("dequeue instance %s: %w", instanceID, err)
	}

	return nil
}
