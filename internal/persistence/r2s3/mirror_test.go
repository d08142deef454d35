package r2s3

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu    sync.Mutex
	fails int
	keys  []string
}

func (f *fakeUploader) PutFile(_ context.Context, key, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("temporary failure")
	}
	f.keys = append(f.keys, key)
	return nil
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestMirror_KeyLayoutPerArtifact(t *testing.T) {
	world := filepath.Join(t.TempDir(), "worlds", "world_1")
	snap := filepath.Join(world, "snapshots", "600.snap.zst")
	day := filepath.Join(world, "archives", "day_0001", "599.snap.zst")
	seg := filepath.Join(world, "ticks", "ticks-000000000000.jsonl.zst")
	for _, p := range []string{snap, day, filepath.Join(filepath.Dir(day), "meta.json"), seg} {
		writeFile(t, p)
	}

	up := &fakeUploader{}
	m := NewMirror(up, Layout{Prefix: "/prod/", WorldID: "world_1"}, Options{Workers: 2, QueueCapacity: 8}, nil)
	m.EnqueueSnapshot(snap)
	m.EnqueueArchive(day)
	m.EnqueueSegment(seg)
	m.Close()

	sort.Strings(up.keys)
	assert.Equal(t, []string{
		"prod/world_1/archives/day_0001/599.snap.zst",
		"prod/world_1/archives/day_0001/meta.json",
		"prod/world_1/logs/ticks/ticks-000000000000.jsonl.zst",
		"prod/world_1/snapshots/600.snap.zst",
	}, up.keys)
	st := m.Stats()
	assert.Equal(t, uint64(1), st.Artifacts["snapshot"].Uploaded)
	assert.Equal(t, uint64(2), st.Artifacts["archive"].Uploaded)
	assert.Equal(t, uint64(1), st.Artifacts["segment"].Uploaded)
	assert.NotZero(t, st.Artifacts["snapshot"].LastSuccessUnix)
}

func TestMirror_RetriesThenSucceeds(t *testing.T) {
	p := filepath.Join(t.TempDir(), "snapshots", "a.snap.zst")
	writeFile(t, p)

	up := &fakeUploader{fails: 2}
	m := NewMirror(up, Layout{WorldID: "w"}, Options{}, nil)
	m.backoff = time.Millisecond
	m.EnqueueSnapshot(p)
	m.Close()

	assert.Equal(t, []string{"w/snapshots/a.snap.zst"}, up.keys)
	assert.Zero(t, m.Stats().Artifacts["snapshot"].Failed)
}

func TestMirror_GivesUpAfterAttempts(t *testing.T) {
	p := filepath.Join(t.TempDir(), "snapshots", "a.snap.zst")
	writeFile(t, p)

	up := &fakeUploader{fails: 10}
	m := NewMirror(up, Layout{WorldID: "w"}, Options{Attempts: 3}, nil)
	m.backoff = time.Millisecond
	m.EnqueueSnapshot(p)
	m.Close()

	assert.Empty(t, up.keys)
	assert.Equal(t, 7, up.fails, "three attempts were made")
	st := m.Stats().Artifacts["snapshot"]
	assert.Equal(t, uint64(1), st.Failed)
	assert.NotZero(t, st.LastErrorUnix)
}

func TestMirror_SkipsMissingAndMisplacedFiles(t *testing.T) {
	dir := t.TempDir()
	loose := filepath.Join(dir, "loose.snap.zst")
	writeFile(t, loose)

	up := &fakeUploader{}
	m := NewMirror(up, Layout{WorldID: "w"}, Options{}, nil)
	m.EnqueueSnapshot(filepath.Join(dir, "missing.snap.zst"))
	m.EnqueueArchive(loose)
	m.Close()

	assert.Empty(t, up.keys)
	st := m.Stats()
	assert.Equal(t, uint64(1), st.Artifacts["snapshot"].Skipped)
	assert.Equal(t, uint64(2), st.Artifacts["archive"].Skipped, "not in a day_ dir, and no meta.json")
	assert.Zero(t, st.Artifacts["archive"].Failed)
}

func TestMirror_SegmentsNeverWaitForRoom(t *testing.T) {
	block := make(chan struct{})
	up := &blockingUploader{release: block}
	m := NewMirror(up, Layout{WorldID: "w"}, Options{QueueCapacity: 1, EnqueueWait: time.Hour}, nil)

	seg := filepath.Join(t.TempDir(), "audit", "audit-000000000000.jsonl.zst")
	writeFile(t, seg)
	m.EnqueueSegment(seg) // picked up by the worker, which then blocks
	require.Eventually(t, func() bool { return up.started.Load() }, time.Second, time.Millisecond)
	m.EnqueueSegment(seg) // fills the queue

	start := time.Now()
	m.EnqueueSegment(seg)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, uint64(1), m.Stats().Dropped)

	close(block)
	m.Close()
	assert.Equal(t, uint64(2), m.Stats().Artifacts["segment"].Uploaded)
}

type blockingUploader struct {
	release chan struct{}
	started atomic.Bool
}

func (b *blockingUploader) PutFile(context.Context, string, string) error {
	b.started.Store(true)
	<-b.release
	return nil
}

func TestLayout_Key(t *testing.T) {
	l := Layout{Prefix: "bk", WorldID: "w1"}
	k, err := l.Key(Segment, filepath.Join("x", "audit", "audit-000000072000.jsonl.zst"))
	require.NoError(t, err)
	assert.Equal(t, "bk/w1/logs/audit/audit-000000072000.jsonl.zst", k)

	_, err = l.Key(Archive, filepath.Join("x", "snapshots", "1.snap.zst"))
	assert.Error(t, err)
	_, err = l.Key(Artifact(9), "a")
	assert.Error(t, err)
	assert.Equal(t, "archive", Archive.String())
}

func TestNormalizeObjectKey(t *testing.T) {
	assert.Equal(t, "a/b.zst", normalizeObjectKey(` \a\b.zst `))
	assert.Equal(t, "a/c", normalizeObjectKey("/a/b/../c"))
	assert.Equal(t, "", normalizeObjectKey("  "))
	assert.Equal(t, "application/zstd", contentType("x.snap.zst"))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TICKCRAFT_S3_BUCKET", "")
	_, ok := ConfigFromEnv()
	assert.False(t, ok)

	t.Setenv("TICKCRAFT_S3_BUCKET", "snaps")
	t.Setenv("TICKCRAFT_S3_PATH_STYLE", "1")
	cfg, ok := ConfigFromEnv()
	require.True(t, ok)
	assert.Equal(t, "snaps", cfg.Bucket)
	assert.True(t, cfg.UsePathStyle)
}
