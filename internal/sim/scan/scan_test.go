package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/geom"
)

type blockMap map[geom.Pos]string

func (m blockMap) BlockAt(p geom.Pos) string { return m[p] }

func blockCatalog(t *testing.T) *catalogs.BlockCatalog {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	require.NoError(t, err)
	return &cats.Blocks
}

func pyramid(m blockMap, top geom.Pos, levels int, id string) {
	for j := 1; j <= levels; j++ {
		for x := top.X - j; x <= top.X+j; x++ {
			for z := top.Z - j; z <= top.Z+j; z++ {
				m[geom.P(x, top.Y-j, z)] = id
			}
		}
	}
}

func TestPyramidLevels(t *testing.T) {
	cat := blockCatalog(t)
	top := geom.P(0, 10, 0)

	m := blockMap{}
	assert.Equal(t, 0, PyramidLevels(m, cat, top, 0))

	pyramid(m, top, 2, "IRON_BLOCK")
	assert.Equal(t, 2, PyramidLevels(m, cat, top, 0))

	pyramid(m, top, 4, "EMERALD_BLOCK")
	assert.Equal(t, 4, PyramidLevels(m, cat, top, 0))

	m[geom.P(3, 7, -3)] = "STONE"
	assert.Equal(t, 2, PyramidLevels(m, cat, top, 0))

	assert.Equal(t, 1, PyramidLevels(m, cat, top, 9), "stops at the bottom of the world")
}

func TestBeam_ResumesAcrossTicks(t *testing.T) {
	cat := blockCatalog(t)
	pos := geom.P(0, 0, 0)
	m := blockMap{pos: "BEACON", geom.P(0, 24, 0): "RED_STAINED_GLASS"}
	var s BeamScanner

	assert.False(t, s.Step(m, cat, pos, 24, 10))
	assert.True(t, s.Scanning())
	assert.False(t, s.Step(m, cat, pos, 24, 10))
	assert.Empty(t, s.Sections, "sections only change when a pass completes")
	require.True(t, s.Step(m, cat, pos, 24, 10))

	require.Len(t, s.Sections, 2)
	assert.Equal(t, Section{Color: [3]int{249, 255, 254}, Height: 24}, s.Sections[0])
	assert.Equal(t, [3]int{176, 46, 38}, s.Sections[1].Color)
	assert.False(t, s.Scanning())
}

func TestBeam_ColorsBlendAfterSecondSection(t *testing.T) {
	cat := blockCatalog(t)
	pos := geom.P(0, 0, 0)
	m := blockMap{
		pos:             "BEACON",
		geom.P(0, 1, 0): "RED_STAINED_GLASS",
		geom.P(0, 2, 0): "RED_STAINED_GLASS",
		geom.P(0, 3, 0): "BLUE_STAINED_GLASS",
	}
	var s BeamScanner
	require.True(t, s.Step(m, cat, pos, 3, 10))
	require.Len(t, s.Sections, 3)
	assert.Equal(t, 2, s.Sections[1].Height)
	assert.Equal(t, [3]int{(176 + 60) / 2, (46 + 68) / 2, (38 + 170) / 2}, s.Sections[2].Color)
}

func TestBeam_OpaqueBlockClearsBeam(t *testing.T) {
	cat := blockCatalog(t)
	pos := geom.P(0, 0, 0)
	m := blockMap{pos: "BEACON", geom.P(0, 3, 0): "STONE"}
	var s BeamScanner
	require.True(t, s.Step(m, cat, pos, 3, 10))
	assert.Empty(t, s.Sections)

	m[geom.P(0, 3, 0)] = "BEDROCK"
	require.True(t, s.Step(m, cat, pos, 3, 10))
	require.Len(t, s.Sections, 1)
	assert.Equal(t, 4, s.Sections[0].Height)
}

func conduitPool(pos geom.Pos) blockMap {
	m := blockMap{}
	for dx := -2; dx <= 2; dx++ {
		for dy := -2; dy <= 2; dy++ {
			for dz := -2; dz <= 2; dz++ {
				m[pos.Add(dx, dy, dz)] = "WATER"
			}
		}
	}
	m[pos] = "CONDUIT"
	return m
}

func TestConduitShape(t *testing.T) {
	cat := blockCatalog(t)
	pos := geom.P(0, 20, 0)
	m := conduitPool(pos)
	assert.Empty(t, ConduitShape(m, cat, pos))

	for dx := -2; dx <= 2; dx++ {
		for dy := -2; dy <= 2; dy++ {
			for dz := -2; dz <= 2; dz++ {
				if onConduitRing(dx, dy, dz) {
					m[pos.Add(dx, dy, dz)] = "PRISMARINE"
				}
			}
		}
	}
	frame := ConduitShape(m, cat, pos)
	assert.Len(t, frame, ConduitHuntingFrame)
	assert.Equal(t, 96, ConduitRadius(len(frame)))

	m[pos.Add(1, 1, 1)] = "STONE"
	assert.Nil(t, ConduitShape(m, cat, pos), "core must be water")
}

func TestRadiiAndDurations(t *testing.T) {
	assert.Equal(t, 50, BeaconRadius(4))
	assert.Equal(t, 340, BeaconDuration(4))
	assert.Equal(t, 220, BeaconDuration(1))
	assert.Equal(t, 32, ConduitRadius(16))
}
