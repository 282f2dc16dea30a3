package wablaster

import "github.com/korospace/BE-WA-blaster/types"

// Option configures a Manager with optional dependencies.
type Option func(*managerOptions)

// managerOptions holds optional Manager configuration.
type managerOptions struct {
	store     types.InstanceStore
	queues    types.RecoveryQueues
	publisher types.EventPublisher
	notifier  types.Notifier
	hooks     *types.Hooks
	metrics   types.MetricsCollector
	logger    types.Logger
}

// WithStore sets a custom instance store.
//
// When unset, Start wires a JetStream KV-backed store.
func WithStore(store types.InstanceStore) Option {
	return func(o *managerOptions) {
		o.store = store
	}
}

// WithQueues sets custom recovery queues.
//
// When unset, Start wires JetStream KV-backed queues.
func WithQueues(queues types.RecoveryQueues) Option {
	return func(o *managerOptions) {
		o.queues = queues
	}
}

// WithPublisher sets a custom realtime event publisher.
//
// When unset, Start wires fire-and-forget core NATS publication on the
// configured subject prefix.
func WithPublisher(publisher types.EventPublisher) Option {
	return func(o *managerOptions) {
		o.publisher = publisher
	}
}

// WithNotifier sets the alert notifier used on unplanned disconnects.
//
// Example:
//
//	notifier := notify.NewSMTP(smtpCfg)
//	mgr, err := wablaster.NewManager(&cfg, nc, provider, wablaster.WithNotifier(notifier))
func WithNotifier(notifier types.Notifier) Option {
	return func(o *managerOptions) {
		o.notifier = notifier
	}
}

// WithHooks sets lifecycle event hooks.
//
// Example:
//
//	hooks := &types.Hooks{
//	    OnStatusChanged: func(ctx context.Context, id string, from, to types.Status) error {
//	        return recordTransition(id, from, to)
//	    },
//	}
//	mgr, err := wablaster.NewManager(&cfg, nc, provider, wablaster.WithHooks(hooks))
func WithHooks(hooks *types.Hooks) Option {
	return func(o *managerOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
func WithMetrics(metrics types.MetricsCollector) Option {
	return func(o *managerOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger (compatible with zap.SugaredLogger).
func WithLogger(logger types.Logger) Option {
	return func(o *managerOptions) {
		o.logger = logger
	}
}
