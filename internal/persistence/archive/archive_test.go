package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickcraft.ai/internal/persistence/snapshot"
)

func writeSnap(t *testing.T, worldDir string, tick uint64) string {
	t.Helper()
	p := SnapshotPath(worldDir, tick)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("dummy"), 0o644))
	return p
}

func TestArchiveDaySnapshot_CopiesDayEnd(t *testing.T) {
	worldDir := filepath.Join(t.TempDir(), "w1")
	src := writeSnap(t, worldDir, 2)

	snap := snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: 1, WorldID: "w1", Tick: 2},
		Seed:     42,
		DayTicks: 3,
	}
	day, archivedPath, ok, err := ArchiveDaySnapshot(worldDir, src, snap)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, day)

	got, err := os.ReadFile(archivedPath)
	require.NoError(t, err)
	assert.Equal(t, "dummy", string(got))
	assert.FileExists(t, filepath.Join(filepath.Dir(archivedPath), "meta.json"))
}

func TestArchiveDaySnapshot_SkipsMidDay(t *testing.T) {
	worldDir := t.TempDir()
	src := writeSnap(t, worldDir, 4)
	_, _, ok, err := ArchiveDaySnapshot(worldDir, src, snapshot.SnapshotV1{
		Header:   snapshot.Header{Tick: 4},
		DayTicks: 3,
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrune_KeepsNewest(t *testing.T) {
	worldDir := t.TempDir()
	for _, tick := range []uint64{600, 1200, 1800, 2400} {
		writeSnap(t, worldDir, tick)
	}
	require.NoError(t, os.WriteFile(filepath.Join(worldDir, "snapshots", "notes.txt"), nil, 0o644))

	removed, err := Prune(worldDir, 2)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	ticks, err := ListSnapshots(worldDir)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1800, 2400}, ticks)
}

func TestListSnapshots_MissingDirIsEmpty(t *testing.T) {
	ticks, err := ListSnapshots(filepath.Join(t.TempDir(), "never_run"))
	require.NoError(t, err)
	assert.Empty(t, ticks)

	removed, err := Prune(filepath.Join(t.TempDir(), "never_run"), 1)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
