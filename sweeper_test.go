package wablaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	watest "github.com/korospace/BE-WA-blaster/testing"
	"github.com/korospace/BE-WA-blaster/types"
)

func newTestSweeper(t *testing.T, env *testEnv) (*Sweeper, *Registry) {
	t.Helper()

	registry := NewRegistry(env.newFactory(), watest.NewTestLogger(t))
	t.Cleanup(func() { registry.Shutdown(t.Context()) })

	return newSweeper(registry, env.deps()), registry
}

func TestSweeperResurrectsDisconnected(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstance(t, "wai_b", "tenant-a")

	sw, registry := newTestSweeper(t, env)

	sw.sweep(t.Context())

	require.NotNil(t, registry.Get("wai_b"))
	env.provider.WaitForSession(t, "wai_b", 1)
	require.Equal(t, 1, env.provider.SessionCount("wai_b"))

	t.Run("second sweep does not duplicate", func(t *testing.T) {
		sw.sweep(t.Context())
		require.Equal(t, 1, env.provider.SessionCount("wai_b"))
	})
}

func TestSweeperDemotesStaleReady(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	// A is recorded ready but has no live session; B waits for recovery.
	require.NoError(t, env.store.Create(ctx, types.Instance{
		InstanceID:  "wai_a",
		TenantID:    "tenant-a",
		Status:      types.StatusReady,
		PhoneNumber: "628123",
	}))
	require.NoError(t, env.queues.Add(ctx, types.QueueReady, "wai_a", "tenant-a"))
	env.seedInstance(t, "wai_b", "tenant-a")

	sw, registry := newTestSweeper(t, env)

	// One cycle demotes A with a single alert and resurrects both.
	sw.sweep(ctx)

	inst, err := env.store.FindByID(ctx, "wai_a")
	require.NoError(t, err)
	require.Equal(t, types.StatusDisconnected, inst.Status)
	require.Equal(t, 1, env.notifier.count())

	require.NotNil(t, registry.Get("wai_a"))
	require.NotNil(t, registry.Get("wai_b"))

	t.Run("no repeat alert for a recovering entry", func(t *testing.T) {
		sw.sweep(ctx)
		require.Equal(t, 1, env.notifier.count())
	})
}

func TestSweeperKeepsConnectedReady(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstance(t, "wai_a", "tenant-a")

	sw, registry := newTestSweeper(t, env)

	s, err := registry.AcquireOrCreate(t.Context(), "wai_a", "tenant-a")
	require.NoError(t, err)

	fake := env.provider.WaitForSession(t, "wai_a", 1)
	fake.EmitReadyFlow("qr-1", "628123")

	require.Eventually(t, func() bool {
		return s.Status() == types.StatusReady
	}, 5*time.Second, 10*time.Millisecond)

	sw.sweep(t.Context())

	require.Zero(t, env.notifier.count())
	require.Equal(t, 1, env.provider.SessionCount("wai_a"))

	queue, ok := env.queues.queueOf("wai_a")
	require.True(t, ok)
	require.Equal(t, types.QueueReady, queue)
}

func TestSweeperDemotesNotConnectedHandle(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstance(t, "wai_a", "tenant-a")

	sw, registry := newTestSweeper(t, env)

	s, err := registry.AcquireOrCreate(t.Context(), "wai_a", "tenant-a")
	require.NoError(t, err)

	fake := env.provider.WaitForSession(t, "wai_a", 1)
	fake.EmitReadyFlow("qr-1", "628123")

	require.Eventually(t, func() bool {
		return s.Status() == types.StatusReady
	}, 5*time.Second, 10*time.Millisecond)

	// The handle is alive but its transport silently died.
	fake.SetState(types.ConnStateDisconnected)

	sw.sweep(t.Context())

	require.Equal(t, 1, env.notifier.count())

	queue, ok := env.queues.queueOf("wai_a")
	require.True(t, ok)
	require.Equal(t, types.QueueDisconnect, queue)

	inst, err := env.store.FindByID(t.Context(), "wai_a")
	require.NoError(t, err)
	require.Equal(t, types.StatusDisconnected, inst.Status)
}

func TestSweeperDropsDeletedEntries(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstance(t, "wai_a", "tenant-a")
	require.NoError(t, env.store.SoftDelete(t.Context(), "wai_a"))

	sw, registry := newTestSweeper(t, env)

	sw.sweep(t.Context())

	require.Nil(t, registry.Get("wai_a"))
	_, ok := env.queues.queueOf("wai_a")
	require.False(t, ok)
}
