package wablaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, 5*time.Second, cfg.SweepInterval)
	require.Equal(t, 60*time.Second, cfg.ProviderInitTimeout)
	require.Equal(t, 2*time.Second, cfg.ReinitDelay)
	require.Equal(t, 10*time.Second, cfg.OperationTimeout)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, "wablaster-instances", cfg.KVBuckets.InstanceBucket)
	require.Equal(t, "wablaster-queues", cfg.KVBuckets.QueueBucket)
	require.Equal(t, "wablaster.instance", cfg.Subjects.StatusPrefix)
}

func TestSetDefaults(t *testing.T) {
	t.Run("fills empty config", func(t *testing.T) {
		cfg := Config{}
		SetDefaults(&cfg)

		require.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("preserves custom values", func(t *testing.T) {
		cfg := Config{
			SweepInterval:       time.Second,
			ProviderInitTimeout: 30 * time.Second,
			AlertRecipient:      "ops@example.com",
			KVBuckets: KVBucketConfig{
				InstanceBucket: "custom-instances",
			},
		}
		SetDefaults(&cfg)

		require.Equal(t, time.Second, cfg.SweepInterval)
		require.Equal(t, 30*time.Second, cfg.ProviderInitTimeout)
		require.Equal(t, "ops@example.com", cfg.AlertRecipient)
		require.Equal(t, "custom-instances", cfg.KVBuckets.InstanceBucket)
		require.Equal(t, "wablaster-queues", cfg.KVBuckets.QueueBucket)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid defaults", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, cfg.Validate())
	})

	t.Run("rejects zero sweep interval", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SweepInterval = 0
		require.ErrorContains(t, cfg.Validate(), "SweepInterval")
	})

	t.Run("rejects zero init timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ProviderInitTimeout = 0
		require.ErrorContains(t, cfg.Validate(), "ProviderInitTimeout")
	})

	t.Run("rejects negative reinit delay", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ReinitDelay = -time.Second
		require.ErrorContains(t, cfg.Validate(), "ReinitDelay")
	})

	t.Run("rejects colliding bucket names", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.KVBuckets.QueueBucket = cfg.KVBuckets.InstanceBucket
		require.ErrorContains(t, cfg.Validate(), "must differ")
	})
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	require.NoError(t, cfg.Validate())
	require.Less(t, cfg.SweepInterval, DefaultConfig().SweepInterval)
	require.Less(t, cfg.ReinitDelay, cfg.SweepInterval)
}
