package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickcraft.ai/internal/persistence/snapshot"
	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/tuning"
	world "tickcraft.ai/internal/sim/world"
)

func openTest(t *testing.T) *SQLiteIndex {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteIndex_TicksAndAudits(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.WriteTick(world.TickLogEntry{Tick: 1, Commands: []string{"setblock 0 64 0 hopper", "weather rain"}, Digest: "aa"}))
	require.NoError(t, s.WriteTick(world.TickLogEntry{Tick: 2, Digest: "bb"}))
	require.NoError(t, s.WriteAudit(world.AuditEntry{Tick: 1, Kind: "DEVICE_PLACED", Pos: [3]int{0, 64, 0}}))
	require.NoError(t, s.WriteAudit(world.AuditEntry{Tick: 2, Kind: "ITEM_SMELTED", Pos: [3]int{0, 64, 0}, Data: map[string]any{"item": "IRON_INGOT"}}))
	require.NoError(t, s.WriteAudit(world.AuditEntry{Tick: 2, Kind: "ITEM_SMELTED", Pos: [3]int{5, 64, 0}}))
	require.NoError(t, s.Flush(ctx))

	d, err := s.TickDigest(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "bb", d)
	_, err = s.TickDigest(ctx, 9)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.Audits(ctx, AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	smelted, err := s.Audits(ctx, AuditFilter{Kind: "ITEM_SMELTED", At: &[3]int{0, 64, 0}})
	require.NoError(t, err)
	require.Len(t, smelted, 1)
	assert.Equal(t, "IRON_INGOT", smelted[0].Data["item"])

	limited, err := s.Audits(ctx, AuditFilter{FromTick: 2, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	var verbs int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commands WHERE verb='setblock'`).Scan(&verbs))
	assert.Equal(t, 1, verbs)
	assert.Equal(t, uint64(5), s.Stats().Written)
}

func TestSQLiteIndex_Snapshots(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	_, err := s.LatestSnapshot(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, Tick: 600},
		Seed:   42,
		Devices: []snapshot.DeviceV1{
			{Kind: "HOPPER"}, {Kind: "HOPPER"}, {Kind: "FURNACE"},
		},
	}
	s.RecordSnapshot("/data/600.snap.zst", snap)
	snap.Header.Tick = 1200
	s.RecordSnapshot("/data/1200.snap.zst", snap)
	require.NoError(t, s.Flush(ctx))

	latest, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1200), latest.Tick)
	assert.Equal(t, "/data/1200.snap.zst", latest.Path)
	assert.Equal(t, 3, latest.Devices)

	counts, err := s.DeviceCounts(ctx, 600)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"HOPPER": 2, "FURNACE": 1}, counts)
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	cats, err := catalogs.Load("../../../configs")
	require.NoError(t, err)

	require.NoError(t, s.UpsertCatalogs("../../../configs", cats, tuning.Defaults()))
	d, err := s.CatalogDigest(ctx, "items")
	require.NoError(t, err)
	assert.Equal(t, cats.Items.Digest, d)
	_, err = s.CatalogDigest(ctx, "tuning")
	require.NoError(t, err)
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: world.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(world.TickLogEntry{Tick: 2})
	_ = s.WriteAudit(world.AuditEntry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	assert.Equal(t, uint64(1), st.DropTickTotal)
	assert.Equal(t, uint64(1), st.DropAuditTotal)
	assert.Equal(t, uint64(1), st.DropSnapshotTotal)
	assert.Equal(t, 1, st.QueueDepth)
	assert.Equal(t, 1, st.QueueCapacity)
}

func TestSQLiteIndex_ClosedIgnoresWrites(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.WriteTick(world.TickLogEntry{Tick: 1}))
	assert.Error(t, s.Flush(context.Background()))
}
