package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	world "tickcraft.ai/internal/sim/world"
)

func TestTickLogger_RotatesBySegment(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir, 10)
	for tick := uint64(0); tick < 25; tick++ {
		require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: tick, Digest: "d"}))
	}
	require.NoError(t, l.Close())

	files, err := ListFiles(TicksDir(dir), "ticks")
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "ticks-000000000010.jsonl.zst", filepath.Base(files[1]))

	var got []uint64
	require.NoError(t, EachTick(dir, func(e world.TickLogEntry) error {
		got = append(got, e.Tick)
		return nil
	}))
	require.Len(t, got, 25)
	for i, tick := range got {
		assert.Equal(t, uint64(i), tick)
	}
}

func TestTickLogger_ReopenAppends(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir, 100)
	require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: 1, Commands: []string{"weather rain"}}))
	require.NoError(t, l.Close())

	l = NewTickLogger(dir, 100)
	require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: 2}))
	require.NoError(t, l.Close())

	var entries []world.TickLogEntry
	require.NoError(t, EachTick(dir, func(e world.TickLogEntry) error {
		entries = append(entries, e)
		return nil
	}))
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"weather rain"}, entries[0].Commands)
}

func TestEachAudit_StopsEarly(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir, 0)
	for i := 0; i < 5; i++ {
		require.NoError(t, l.WriteAudit(world.AuditEntry{Tick: uint64(i), Kind: "ITEM_SMELTED", Pos: [3]int{1, 2, 3}}))
	}
	require.NoError(t, l.Close())

	n := 0
	require.NoError(t, EachAudit(dir, func(e world.AuditEntry) error {
		n++
		if n == 2 {
			return ErrStop
		}
		return nil
	}))
	assert.Equal(t, 2, n)
}

func TestEachTick_CorruptLineFails(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(TicksDir(dir), "ticks", 0)
	require.NoError(t, w.Write(0, "not an entry"))
	require.NoError(t, w.Close())

	err := EachTick(dir, func(world.TickLogEntry) error { return nil })
	require.Error(t, err)
}

func TestEachTick_MissingDir(t *testing.T) {
	err := EachTick(filepath.Join(t.TempDir(), "nope"), func(world.TickLogEntry) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestJSONLZstdWriter_OnClose(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir, 10)
	var closed []string
	l.OnClose(func(path string) { closed = append(closed, filepath.Base(path)) })
	for tick := uint64(5); tick < 15; tick++ {
		require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: tick}))
	}
	assert.Equal(t, []string{"ticks-000000000000.jsonl.zst"}, closed)
	require.NoError(t, l.Close())
	assert.Equal(t, []string{"ticks-000000000000.jsonl.zst", "ticks-000000000010.jsonl.zst"}, closed)
	require.NoError(t, l.Close())
	assert.Len(t, closed, 2)
}
