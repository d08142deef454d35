package worldtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickcraft.ai/internal/sim/device"
	"tickcraft.ai/internal/sim/geom"
	world "tickcraft.ai/internal/sim/world"
)

func hopperAt(t *testing.T, h *Harness, p geom.Pos) *device.Hopper {
	t.Helper()
	d, ok := h.W.DeviceAt(p)
	require.True(t, ok, "no device at %s", p)
	hp, ok := d.(*device.Hopper)
	require.True(t, ok, "device at %s is %s", p, d.Kind())
	return hp
}

func TestHopperChain_OneUnitPerCooldown(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Seed: 1})
	h.DoAll(
		"setblock 0 66 0 chest",
		"give 0 66 0 coal 10",
		"setblock 0 65 0 hopper",
		"setblock 0 64 0 chest",
	)

	hp := hopperAt(t, h, geom.P(0, 65, 0))
	assert.Equal(t, 1, h.Count(0, 65, 0, "COAL"), "hopper pulls on its first tick")
	assert.Equal(t, 9, h.Count(0, 66, 0, "COAL"))
	assert.Equal(t, 8, hp.Cooldown())

	total := func() int {
		return h.Count(0, 66, 0, "COAL") + h.Count(0, 65, 0, "COAL") + h.Count(0, 64, 0, "COAL")
	}
	for i := 0; i < 7; i++ {
		h.Step(1)
		assert.Equal(t, 0, h.Count(0, 64, 0, "COAL"), "tick %d: still cooling down", i+1)
		assert.Equal(t, 10, total())
	}
	h.Step(1)
	assert.Equal(t, 1, h.Count(0, 64, 0, "COAL"))
	assert.Equal(t, 1, h.Count(0, 65, 0, "COAL"))
	assert.Equal(t, 8, h.Count(0, 66, 0, "COAL"))
	assert.Equal(t, 8, hp.Cooldown())

	h.Step(8 * 10)
	assert.Equal(t, 10, h.Count(0, 64, 0, "COAL"))
	assert.Equal(t, 0, h.Count(0, 65, 0, "COAL"))
	assert.Equal(t, 0, h.Count(0, 66, 0, "COAL"))
}

func TestHopper_PoweredIsLocked(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Seed: 1})
	h.DoAll(
		"power 0 65 0 on",
		"setblock 0 66 0 chest",
		"give 0 66 0 coal 4",
		"setblock 0 65 0 hopper",
	)
	h.Step(20)
	assert.Equal(t, 4, h.Count(0, 66, 0, "COAL"))

	h.MustDo("power 0 65 0 off")
	assert.Equal(t, 3, h.Count(0, 66, 0, "COAL"))
}

func TestHopper_SucksLooseItems(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Seed: 1})
	h.DoAll(
		"drop 0 65 0 sand 2",
		"setblock 0 64 0 hopper",
	)
	// A loose stack is absorbed whole.
	assert.Equal(t, 2, h.Count(0, 64, 0, "SAND"))
	assert.Equal(t, 0, h.LooseCount("SAND"))
	assert.Empty(t, h.W.ItemEntities())

	h.MustDo("drop 5 65 5 sand 1")
	h.Step(8)
	assert.Equal(t, 1, h.LooseCount("SAND"), "items outside the bowl stay put")
}

func TestHopper_FeedsFurnaceBySide(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Seed: 1})
	h.DoAll(
		"setblock 0 65 0 chest",
		"give 0 65 0 coal 1",
		"give 0 65 0 iron_ore 1",
		"setblock 0 64 0 hopper east",
		"setblock 1 64 0 furnace",
	)
	// Side faces only reach the fuel slot.
	h.Step(8 * 3)
	assert.Equal(t, 1, h.Count(0, 64, 0, "IRON_ORE"), "ore cannot enter through a side")
	assert.True(t, h.Slot(1, 64, 0, 0).IsEmpty())
	assert.Equal(t, 1, h.Slot(1, 64, 0, 1).Count)
}

func TestGive_RespectsSlotRules(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Seed: 1})
	h.MustDo("setblock 0 64 0 furnace")

	_, err := h.Do("give 0 64 0 iron_ingot 1 2")
	require.Error(t, err, "result slot never accepts")
	_, err = h.Do("give 0 64 0 sand 1 1")
	require.Error(t, err, "fuel slot accepts fuel only")

	out := h.MustDo("give 0 64 0 coal 70 1")
	assert.Contains(t, out, "gave 64 COAL")
	assert.Equal(t, 64, h.Slot(0, 64, 0, 1).Count)

	_, err = h.Do("give 0 64 0 coal 1 7")
	require.ErrorIs(t, err, world.ErrBadSlot)
}

func TestTake_RemovesUnits(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Seed: 1})
	h.DoAll("setblock 0 64 0 barrel", "give 0 64 0 stick 10")
	out := h.MustDo("take 0 64 0 0 4")
	assert.Equal(t, "took 4 STICK", out)
	assert.Equal(t, 6, h.Count(0, 64, 0, "STICK"))

	_, err := h.Do("take 0 64 0 3")
	require.Error(t, err)
}
