package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plog "tickcraft.ai/internal/persistence/log"
	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/command"
	world "tickcraft.ai/internal/sim/world"
)

func loadCats(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../configs")
	require.NoError(t, err)
	return cats
}

var setup = []string{
	"setblock 0 66 0 chest",
	"give 0 66 0 iron_ore 8",
	"give 0 66 0 coal 2",
	"setblock 0 65 0 hopper",
	"setblock 0 64 0 furnace",
	"setblock 3 64 0 dispenser north",
	"give 3 64 0 arrow 4",
	"player join alice 1.5 64 1.5",
}

func linesFor(tick int) []string {
	var lines []string
	if tick == 0 {
		lines = append(lines, setup...)
	}
	switch tick % 14 {
	case 1:
		lines = append(lines, "power 3 64 0 on")
	case 8:
		lines = append(lines, "power 3 64 0 off")
	}
	if tick == 5 {
		lines = append(lines, "take 0 64 0 2")
	}
	return lines
}

// record runs a world for n ticks with a tick logger and returns it.
func record(t *testing.T, cats *catalogs.Catalogs, dir string, n int) *world.World {
	t.Helper()
	w, err := world.New(world.WorldConfig{Seed: 77}, cats)
	require.NoError(t, err)
	tl := plog.NewTickLogger(dir, 32)
	w.SetTickLogger(tl)
	for i := 0; i < n; i++ {
		cmds, err := command.ParseAll(cats, linesFor(i))
		require.NoError(t, err)
		w.StepOnce(cmds...)
	}
	require.NoError(t, tl.Close())
	return w
}

func TestRun_FromGenesisMatches(t *testing.T) {
	cats := loadCats(t)
	dir := t.TempDir()
	orig := record(t, cats, dir, 100)

	w, err := world.New(world.WorldConfig{Seed: 77}, cats)
	require.NoError(t, err)
	res, err := Run(w, cats, dir, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), res.Stepped)
	assert.Equal(t, uint64(100), res.Checked)
	assert.Equal(t, uint64(99), res.LastTick)
	assert.Equal(t, orig.CurrentTick(), w.CurrentTick())
}

func TestRun_FromSnapshot(t *testing.T) {
	cats := loadCats(t)
	dir := t.TempDir()
	record(t, cats, dir, 60)

	b, err := world.New(world.WorldConfig{Seed: 77}, cats)
	require.NoError(t, err)
	for i := 0; i < 40; i++ {
		cmds, err := command.ParseAll(cats, linesFor(i))
		require.NoError(t, err)
		b.StepOnce(cmds...)
	}
	c, err := world.New(world.WorldConfig{Seed: 77}, cats)
	require.NoError(t, err)
	require.NoError(t, c.ImportSnapshot(b.ExportSnapshot(39)))

	res, err := Run(c, cats, dir, Options{ToTick: 50}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), res.Stepped)
	assert.Equal(t, uint64(50), res.LastTick)
}

func TestRun_DetectsDivergence(t *testing.T) {
	cats := loadCats(t)
	dir := t.TempDir()
	record(t, cats, dir, 40)

	// A different seed draws different ids, so the digest differs at once.
	w, err := world.New(world.WorldConfig{Seed: 78}, cats)
	require.NoError(t, err)
	res, err := Run(w, cats, dir, Options{}, nil)
	require.ErrorIs(t, err, ErrDigestMismatch)
	assert.Equal(t, uint64(1), res.Checked)
}

func TestRun_FromTickSkipsVerification(t *testing.T) {
	cats := loadCats(t)
	dir := t.TempDir()
	record(t, cats, dir, 20)

	w, err := world.New(world.WorldConfig{Seed: 77}, cats)
	require.NoError(t, err)
	res, err := Run(w, cats, dir, Options{FromTick: 15}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), res.Stepped)
	assert.Equal(t, uint64(5), res.Checked)
}
