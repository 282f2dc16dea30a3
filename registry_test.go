package wablaster

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	watest "github.com/korospace/BE-WA-blaster/testing"
	"github.com/korospace/BE-WA-blaster/types"
)

func TestRegistrySingleHandle(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstance(t, "wai_1", "tenant-a")

	var factoryCalls atomic.Int64
	inner := env.newFactory()
	factory := func(ctx context.Context, instanceID, tenantID string) (*Session, error) {
		factoryCalls.Add(1)
		time.Sleep(10 * time.Millisecond) // widen the race window
		return inner(ctx, instanceID, tenantID)
	}

	registry := NewRegistry(factory, watest.NewTestLogger(t))
	t.Cleanup(func() { registry.Shutdown(t.Context()) })

	const goroutines = 50
	sessions := make([]*Session, goroutines)
	errs := make([]error, goroutines)

	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sessions[i], errs[i] = registry.AcquireOrCreate(t.Context(), "wai_1", "tenant-a")
		}()
	}
	wg.Wait()

	// Exactly one creation, observed by every caller.
	require.Equal(t, int64(1), factoryCalls.Load())
	for i, s := range sessions {
		require.NoError(t, errs[i])
		require.Same(t, sessions[0], s)
	}
	require.Equal(t, 1, registry.Len())
}

func TestRegistryIndependentIDs(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstance(t, "wai_1", "tenant-a")
	env.seedInstance(t, "wai_2", "tenant-b")

	registry := NewRegistry(env.newFactory(), watest.NewTestLogger(t))
	t.Cleanup(func() { registry.Shutdown(t.Context()) })

	s1, err := registry.AcquireOrCreate(t.Context(), "wai_1", "tenant-a")
	require.NoError(t, err)
	s2, err := registry.AcquireOrCreate(t.Context(), "wai_2", "tenant-b")
	require.NoError(t, err)

	require.NotSame(t, s1, s2)
	require.Equal(t, 2, registry.Len())
}

func TestRegistryRefusesDeleted(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstance(t, "wai_1", "tenant-a")
	require.NoError(t, env.store.SoftDelete(t.Context(), "wai_1"))

	registry := NewRegistry(env.newFactory(), watest.NewTestLogger(t))

	_, err := registry.AcquireOrCreate(t.Context(), "wai_1", "tenant-a")
	require.ErrorIs(t, err, types.ErrInstanceDeleted)
	require.Zero(t, registry.Len())
}

func TestRegistryGetEvictsClosed(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstance(t, "wai_1", "tenant-a")

	registry := NewRegistry(env.newFactory(), watest.NewTestLogger(t))
	t.Cleanup(func() { registry.Shutdown(t.Context()) })

	s, err := registry.AcquireOrCreate(t.Context(), "wai_1", "tenant-a")
	require.NoError(t, err)
	require.Same(t, s, registry.Get("wai_1"))

	// A dead event loop makes the session invisible and evicted.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.shutdown(ctx))

	require.Nil(t, registry.Get("wai_1"))
	require.Zero(t, registry.Len())
}

func TestRegistryRelease(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstance(t, "wai_1", "tenant-a")

	registry := NewRegistry(env.newFactory(), watest.NewTestLogger(t))

	s, err := registry.AcquireOrCreate(t.Context(), "wai_1", "tenant-a")
	require.NoError(t, err)

	registry.Release(t.Context(), "wai_1")
	require.Zero(t, registry.Len())
	require.True(t, s.Closed())

	t.Run("noop for absent id", func(t *testing.T) {
		registry.Release(t.Context(), "wai_missing")
	})
}

func TestRegistryDestroyDuringCreate(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstance(t, "wai_1", "tenant-a")

	// Hold the factory mid-flight so a destroy can race the creation.
	entered := make(chan struct{})
	gate := make(chan struct{})
	inner := env.newFactory()
	factory := func(ctx context.Context, instanceID, tenantID string) (*Session, error) {
		close(entered)
		<-gate
		return inner(ctx, instanceID, tenantID)
	}

	registry := NewRegistry(factory, watest.NewTestLogger(t))
	t.Cleanup(func() { registry.Shutdown(t.Context()) })

	var (
		acquired *Session
		acqErr   error
	)
	acquireDone := make(chan struct{})
	go func() {
		defer close(acquireDone)
		acquired, acqErr = registry.AcquireOrCreate(t.Context(), "wai_1", "tenant-a")
	}()

	<-entered

	destroyDone := make(chan error, 1)
	go func() {
		destroyDone <- registry.Destroy(t.Context(), "wai_1", func(ctx context.Context) error {
			return env.store.SoftDelete(ctx, "wai_1")
		})
	}()

	// The destroy must serialize behind the in-flight creation instead of
	// tombstoning between the factory's store read and the publish.
	select {
	case err := <-destroyDone:
		t.Fatalf("destroy completed during creation: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	<-acquireDone
	require.NoError(t, <-destroyDone)

	// The creation won the lock, but its handle must not survive the
	// destroy: no live session for a soft-deleted instance.
	require.NoError(t, acqErr)
	require.NotNil(t, acquired)
	require.True(t, acquired.Closed())
	require.Nil(t, registry.Get("wai_1"))
	require.Zero(t, registry.Len())

	inst, err := env.store.FindByID(t.Context(), "wai_1")
	require.NoError(t, err)
	require.True(t, inst.Deleted)
}
