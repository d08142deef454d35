// Package scan holds the block-volume scans behind beacons and conduits.
// Scans that can touch many blocks are resumable so their cost is spread
// over several ticks.
package scan

import (
	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/geom"
)

// Blocks reads block ids; "" is air.
type Blocks interface {
	BlockAt(p geom.Pos) string
}

const (
	MaxPyramidLevels     = 4
	DefaultBeamBlocks    = 10
	ConduitMinFrame      = 16
	ConduitHuntingFrame  = 42
	ConduitDestroyRadius = 8
)

// PyramidLevels counts the complete square layers of beacon base blocks
// under pos, up to four.
func PyramidLevels(b Blocks, cat *catalogs.BlockCatalog, pos geom.Pos, minY int) int {
	levels := 0
	for j := 1; j <= MaxPyramidLevels; j++ {
		y := pos.Y - j
		if y < minY {
			break
		}
		for x := pos.X - j; x <= pos.X+j; x++ {
			for z := pos.Z - j; z <= pos.Z+j; z++ {
				if !cat.IsBeaconBase(b.BlockAt(geom.P(x, y, z))) {
					return levels
				}
			}
		}
		levels = j
	}
	return levels
}

// ConduitShape returns the frame blocks around a conduit at pos. It returns
// nil when the 3x3x3 core is not entirely water. The conduit is active when
// len(frame) >= ConduitMinFrame.
func ConduitShape(b Blocks, cat *catalogs.BlockCatalog, pos geom.Pos) []geom.Pos {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if !cat.IsWater(b.BlockAt(pos.Add(dx, dy, dz))) {
					return nil
				}
			}
		}
	}
	frame := make([]geom.Pos, 0, 42)
	for dx := -2; dx <= 2; dx++ {
		for dy := -2; dy <= 2; dy++ {
			for dz := -2; dz <= 2; dz++ {
				if !onConduitRing(dx, dy, dz) {
					continue
				}
				p := pos.Add(dx, dy, dz)
				if cat.IsConduitFrame(b.BlockAt(p)) {
					frame = append(frame, p)
				}
			}
		}
	}
	return frame
}

// onConduitRing reports whether an offset lies on one of the three
// axis-aligned 5x5 rings around the core.
func onConduitRing(dx, dy, dz int) bool {
	ax, ay, az := abs(dx), abs(dy), abs(dz)
	if ax <= 1 && ay <= 1 && az <= 1 {
		return false
	}
	return (dx == 0 && (ay == 2 || az == 2)) ||
		(dy == 0 && (ax == 2 || az == 2)) ||
		(dz == 0 && (ax == 2 || ay == 2))
}

// ConduitRadius is the effect radius granted by a frame of n blocks.
func ConduitRadius(n int) int { return n / 7 * 16 }

// BeaconRadius is the effect radius of a beacon with the given pyramid levels.
func BeaconRadius(levels int) int { return levels*10 + 10 }

// BeaconDuration is the effect duration in ticks for the given levels.
func BeaconDuration(levels int) int { return (9 + levels*2) * 20 }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
