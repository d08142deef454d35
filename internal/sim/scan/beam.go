package scan

import (
	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/geom"
)

// Section is one colored stretch of a beacon beam.
type Section struct {
	Color  [3]int `json:"color"`
	Height int    `json:"height"`
}

// BeamScanner walks the column above a beacon a few blocks per tick. The
// published Sections only change when a full pass completes.
type BeamScanner struct {
	Sections []Section

	checking  []Section
	lastY     int
	started   bool
	completed bool
}

// Scanning reports whether a pass is in progress.
func (s *BeamScanner) Scanning() bool { return s.started && !s.completed }

// Reset abandons the current pass.
func (s *BeamScanner) Reset() {
	s.started = false
	s.completed = false
	s.checking = nil
}

// Step scans at most limit blocks of the column at pos up to surface (the
// highest non-air block of the column). It returns true when this call
// completed a pass and swapped in the new sections.
func (s *BeamScanner) Step(b Blocks, cat *catalogs.BlockCatalog, pos geom.Pos, surface, limit int) bool {
	if limit <= 0 {
		limit = DefaultBeamBlocks
	}
	if !s.started || s.completed || s.lastY < pos.Y {
		s.started = true
		s.completed = false
		s.checking = s.checking[:0]
		s.lastY = pos.Y - 1
	}

	y := s.lastY + 1
	for i := 0; i < limit && y <= surface; i++ {
		p := geom.P(pos.X, y, pos.Z)
		id := b.BlockAt(p)
		if color, ok := cat.BeamColor(id); ok {
			n := len(s.checking)
			switch {
			case n <= 1:
				s.checking = append(s.checking, Section{Color: color, Height: 1})
			case s.checking[n-1].Color == color:
				s.checking[n-1].Height++
			default:
				s.checking = append(s.checking, Section{Color: blend(s.checking[n-1].Color, color), Height: 1})
			}
		} else {
			n := len(s.checking)
			if n == 0 || (cat.IsOpaque(id) && id != "BEDROCK") {
				s.checking = s.checking[:0]
				s.lastY = surface
				break
			}
			s.checking[n-1].Height++
		}
		y++
		s.lastY++
	}

	if s.lastY < surface {
		return false
	}
	s.Sections = append([]Section(nil), s.checking...)
	s.completed = true
	return true
}

func blend(a, b [3]int) [3]int {
	return [3]int{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2, (a[2] + b[2]) / 2}
}
