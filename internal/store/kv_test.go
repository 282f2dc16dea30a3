package store

import (
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	watest "github.com/korospace/BE-WA-blaster/testing"
	"github.com/korospace/BE-WA-blaster/types"
)

func newTestStore(t *testing.T) (*KVStore, jetstream.KeyValue) {
	t.Helper()

	_, nc := watest.StartEmbeddedNATS(t)
	kv := watest.CreateJetStreamKV(t, nc, "instances")

	return New(kv, watest.NewTestLogger(t)), kv
}

func TestKVStoreCreate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := t.Context()

	inst := types.Instance{InstanceID: "wai_1", TenantID: "tenant-a", Status: types.StatusDisconnected}
	require.NoError(t, s.Create(ctx, inst))

	got, err := s.FindByID(ctx, "wai_1")
	require.NoError(t, err)
	require.Equal(t, "tenant-a", got.TenantID)
	require.Equal(t, types.StatusDisconnected, got.Status)
	require.False(t, got.CreatedAt.IsZero())

	t.Run("duplicate id", func(t *testing.T) {
		err := s.Create(ctx, inst)
		require.ErrorIs(t, err, types.ErrInstanceExists)
	})
}

func TestKVStoreFindByID(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.FindByID(t.Context(), "wai_missing")
	require.ErrorIs(t, err, types.ErrInstanceNotFound)
}

func TestKVStoreUpdateStatus(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Create(ctx, types.Instance{InstanceID: "wai_1", TenantID: "tenant-a"}))

	t.Run("qr while awaiting scan", func(t *testing.T) {
		require.NoError(t, s.UpdateStatus(ctx, "wai_1", types.StatusAwaitingScan, "", "qr-payload"))

		got, err := s.FindByID(ctx, "wai_1")
		require.NoError(t, err)
		require.Equal(t, types.StatusAwaitingScan, got.Status)
		require.Equal(t, "qr-payload", got.QRPayload)
		require.Empty(t, got.PhoneNumber)
	})

	t.Run("ready clears qr and sets phone", func(t *testing.T) {
		require.NoError(t, s.UpdateStatus(ctx, "wai_1", types.StatusReady, "628123", ""))

		got, err := s.FindByID(ctx, "wai_1")
		require.NoError(t, err)
		require.Equal(t, types.StatusReady, got.Status)
		require.Empty(t, got.QRPayload)
		require.Equal(t, "628123", got.PhoneNumber)
	})

	t.Run("unknown id", func(t *testing.T) {
		err := s.UpdateStatus(ctx, "wai_missing", types.StatusReady, "", "")
		require.ErrorIs(t, err, types.ErrInstanceNotFound)
	})
}

func TestKVStoreSoftDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Create(ctx, types.Instance{InstanceID: "wai_1", TenantID: "tenant-a"}))
	require.NoError(t, s.SoftDelete(ctx, "wai_1"))

	got, err := s.FindByID(ctx, "wai_1")
	require.NoError(t, err)
	require.True(t, got.Deleted)
	require.NotNil(t, got.DeletedAt)

	t.Run("tombstone reserves the id", func(t *testing.T) {
		err := s.Create(ctx, types.Instance{InstanceID: "wai_1", TenantID: "tenant-b"})
		require.ErrorIs(t, err, types.ErrInstanceExists)
	})
}

func TestKVStoreList(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Create(ctx, types.Instance{InstanceID: "wai_a1", TenantID: "tenant-a", Status: types.StatusReady}))
	require.NoError(t, s.Create(ctx, types.Instance{InstanceID: "wai_a2", TenantID: "tenant-a"}))
	require.NoError(t, s.Create(ctx, types.Instance{InstanceID: "wai_b1", TenantID: "tenant-b"}))
	require.NoError(t, s.SoftDelete(ctx, "wai_a2"))

	t.Run("by tenant", func(t *testing.T) {
		out, err := s.List(ctx, types.ListFilter{TenantID: "tenant-a"})
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.Equal(t, "wai_a1", out[0].InstanceID)
	})

	t.Run("by status", func(t *testing.T) {
		ready := types.StatusReady
		out, err := s.List(ctx, types.ListFilter{Status: &ready})
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.Equal(t, "wai_a1", out[0].InstanceID)
	})

	t.Run("include deleted", func(t *testing.T) {
		out, err := s.List(ctx, types.ListFilter{TenantID: "tenant-a", IncludeDeleted: true})
		require.NoError(t, err)
		require.Len(t, out, 2)
	})
}

func TestKVStoreListSkipsCorruptRecords(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Create(ctx, types.Instance{InstanceID: "wai_good", TenantID: "tenant-a"}))

	// A value written outside the record codec must not blank the listing.
	_, err := kv.Put(ctx, "wai_bad", []byte("{not json"))
	require.NoError(t, err)

	out, err := s.List(ctx, types.ListFilter{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "wai_good", out[0].InstanceID)
}
