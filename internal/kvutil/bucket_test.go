package kvutil

import (
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	watest "github.com/korospace/BE-WA-blaster/testing"
)

func TestEnsureBucket(t *testing.T) {
	_, nc := watest.StartEmbeddedNATS(t)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	cfg := jetstream.KeyValueConfig{
		Bucket:  "ensure-test",
		Storage: jetstream.MemoryStorage,
	}

	kv, err := EnsureBucket(t.Context(), js, cfg, 3)
	require.NoError(t, err)
	require.NotNil(t, kv)

	t.Run("opens existing bucket", func(t *testing.T) {
		again, err := EnsureBucket(t.Context(), js, cfg, 3)
		require.NoError(t, err)
		require.NotNil(t, again)

		_, err = kv.PutString(t.Context(), "key", "value")
		require.NoError(t, err)

		entry, err := again.Get(t.Context(), "key")
		require.NoError(t, err)
		require.Equal(t, "value", string(entry.Value()))
	})

	t.Run("defaults retries when non-positive", func(t *testing.T) {
		kv, err := EnsureBucket(t.Context(), js, cfg, 0)
		require.NoError(t, err)
		require.NotNil(t, kv)
	})
}
