package wablaster

import (
	"fmt"
	"time"

	"github.com/korospace/BE-WA-blaster/types"
)

// KVBucketConfig configures NATS JetStream KV bucket names.
//
// Both buckets are created without TTL: they hold the durable state the
// system recovers from after a restart.
type KVBucketConfig struct {
	// InstanceBucket is the bucket name for instance records.
	InstanceBucket string `yaml:"instanceBucket"`

	// QueueBucket is the bucket name for the recovery queues. Both queues
	// share one bucket so a cross-queue move is a single atomic write.
	QueueBucket string `yaml:"queueBucket"`
}

// SubjectConfig configures realtime publish subjects.
type SubjectConfig struct {
	// StatusPrefix is the subject prefix for status updates. Updates are
	// published on "<StatusPrefix>.<tenantID>.<instanceID>".
	StatusPrefix string `yaml:"statusPrefix"`
}

// Config is the configuration for the Manager.
//
// All duration fields accept standard Go duration values like 5s or 1m.
type Config struct {
	// SweepInterval is the period of the reconciliation sweeper. Each
	// cycle demotes stale ready entries and resurrects handle-less
	// disconnect entries. Recommended: 5 seconds.
	SweepInterval time.Duration `yaml:"sweepInterval"`

	// ProviderInitTimeout bounds provider session initialization. On
	// expiry the instance transitions to auth_failed and is left in the
	// disconnect queue for the next sweep. Recommended: 60 seconds.
	ProviderInitTimeout time.Duration `yaml:"providerInitTimeout"`

	// ReinitDelay is the pause before re-initializing a session after an
	// unplanned disconnect. Keeps a flapping provider from spinning.
	// Recommended: 2 seconds.
	ReinitDelay time.Duration `yaml:"reinitDelay"`

	// OperationTimeout is the timeout for store and queue operations
	// performed by transitions and the sweeper. Recommended: 10 seconds.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// AlertRecipient is the notifier destination for unplanned-disconnect
	// alerts. Empty disables alerting even when a notifier is configured.
	AlertRecipient string `yaml:"alertRecipient"`

	// KVBuckets controls NATS JetStream KV bucket configuration.
	KVBuckets KVBucketConfig `yaml:"kvBuckets"`

	// Subjects controls realtime publish subjects.
	Subjects SubjectConfig `yaml:"subjects"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		SweepInterval:       5 * time.Second,
		ProviderInitTimeout: 60 * time.Second,
		ReinitDelay:         2 * time.Second,
		OperationTimeout:    10 * time.Second,
		ShutdownTimeout:     10 * time.Second,
		KVBuckets: KVBucketConfig{
			InstanceBucket: "wablaster-instances",
			QueueBucket:    "wablaster-queues",
		},
		Subjects: SubjectConfig{
			StatusPrefix: "wablaster.instance",
		},
	}
}

// SetDefaults fills in missing configuration values with production
// defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.ProviderInitTimeout == 0 {
		cfg.ProviderInitTimeout = defaults.ProviderInitTimeout
	}
	if cfg.ReinitDelay == 0 {
		cfg.ReinitDelay = defaults.ReinitDelay
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.KVBuckets.InstanceBucket == "" {
		cfg.KVBuckets.InstanceBucket = defaults.KVBuckets.InstanceBucket
	}
	if cfg.KVBuckets.QueueBucket == "" {
		cfg.KVBuckets.QueueBucket = defaults.KVBuckets.QueueBucket
	}
	if cfg.Subjects.StatusPrefix == "" {
		cfg.Subjects.StatusPrefix = defaults.Subjects.StatusPrefix
	}
}

// Validate checks configuration constraints.
//
// Hard validation rules:
//   - SweepInterval > 0 (the sweeper is the recovery mechanism)
//   - ProviderInitTimeout > 0 (bounded startup, auth_failed on expiry)
//   - OperationTimeout > 0
//   - ReinitDelay >= 0
//   - KV bucket names must differ (queues and records must not collide)
//
// Returns:
//   - error: Validation error with explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("SweepInterval must be > 0, got %v", cfg.SweepInterval)
	}

	if cfg.ProviderInitTimeout <= 0 {
		return fmt.Errorf("ProviderInitTimeout must be > 0, got %v", cfg.ProviderInitTimeout)
	}

	if cfg.OperationTimeout <= 0 {
		return fmt.Errorf("OperationTimeout must be > 0, got %v", cfg.OperationTimeout)
	}

	if cfg.ReinitDelay < 0 {
		return fmt.Errorf("ReinitDelay must be >= 0, got %v", cfg.ReinitDelay)
	}

	if cfg.KVBuckets.InstanceBucket == cfg.KVBuckets.QueueBucket {
		return fmt.Errorf(
			"InstanceBucket and QueueBucket must differ, both are %q",
			cfg.KVBuckets.InstanceBucket,
		)
	}

	return nil
}

// ValidateWithWarnings logs warnings for legal but non-recommended values.
//
// Called after Validate() in NewManager() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger types.Logger) {
	if cfg.ReinitDelay >= cfg.SweepInterval {
		logger.Warn(
			"ReinitDelay is not below SweepInterval; self-heal and sweeper resurrection will race",
			"reinitDelay", cfg.ReinitDelay,
			"sweepInterval", cfg.SweepInterval,
		)
	}

	if cfg.SweepInterval < time.Second {
		logger.Warn(
			"SweepInterval is very short, may cause excessive queue scans",
			"sweepInterval", cfg.SweepInterval,
			"recommended", "5s",
		)
	}
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Test timings are 10-100x faster than production defaults. Use
// DefaultConfig() for production deployments.
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.SweepInterval = 100 * time.Millisecond
	cfg.ProviderInitTimeout = 2 * time.Second
	cfg.ReinitDelay = 20 * time.Millisecond
	cfg.OperationTimeout = 5 * time.Second
	cfg.ShutdownTimeout = 5 * time.Second

	return cfg
}
