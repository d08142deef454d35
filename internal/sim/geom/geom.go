// Package geom holds block positions, faces and the boxes used by area scans.
package geom

import (
	"fmt"
	"math"
	"strings"
)

// Pos is an integer block position.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func P(x, y, z int) Pos { return Pos{X: x, Y: y, Z: z} }

func (p Pos) Add(dx, dy, dz int) Pos { return Pos{p.X + dx, p.Y + dy, p.Z + dz} }

func (p Pos) Relative(f Face) Pos {
	d := f.Offset()
	return p.Add(d.X, d.Y, d.Z)
}

func (p Pos) Above() Pos { return p.Add(0, 1, 0) }
func (p Pos) Below() Pos { return p.Add(0, -1, 0) }

// Center is the middle of the block in continuous coordinates.
func (p Pos) Center() Vec {
	return Vec{float64(p.X) + 0.5, float64(p.Y) + 0.5, float64(p.Z) + 0.5}
}

func (p Pos) String() string { return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z) }

// Less orders positions by x, then y, then z.
func (p Pos) Less(o Pos) bool {
	if p.X != o.X {
		return p.X < o.X
	}
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.Z < o.Z
}

// Vec is a continuous position (entities, players).
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec) DistSq(o Vec) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// Block returns the block position containing v.
func (v Vec) Block() Pos {
	return Pos{int(math.Floor(v.X)), int(math.Floor(v.Y)), int(math.Floor(v.Z))}
}

// Box is an axis-aligned box; Min inclusive, Max exclusive.
type Box struct {
	Min Vec
	Max Vec
}

// BlockBox is the unit box of a block.
func BlockBox(p Pos) Box {
	lo := Vec{float64(p.X), float64(p.Y), float64(p.Z)}
	return Box{Min: lo, Max: Vec{lo.X + 1, lo.Y + 1, lo.Z + 1}}
}

func (b Box) Inflate(r float64) Box {
	return Box{
		Min: Vec{b.Min.X - r, b.Min.Y - r, b.Min.Z - r},
		Max: Vec{b.Max.X + r, b.Max.Y + r, b.Max.Z + r},
	}
}

// ExpandUp grows the box upwards to y.
func (b Box) ExpandUp(y float64) Box {
	if y > b.Max.Y {
		b.Max.Y = y
	}
	return b
}

func (b Box) Contains(v Vec) bool {
	return v.X >= b.Min.X && v.X < b.Max.X &&
		v.Y >= b.Min.Y && v.Y < b.Max.Y &&
		v.Z >= b.Min.Z && v.Z < b.Max.Z
}

// Face is one of the six block faces. NoFace marks an undirected access.
type Face int8

const (
	NoFace Face = -1
	Down   Face = 0
	Up     Face = 1
	North  Face = 2
	South  Face = 3
	West   Face = 4
	East   Face = 5
)

var faceNames = [...]string{"down", "up", "north", "south", "west", "east"}

var faceOffsets = [...]Pos{
	{0, -1, 0},
	{0, 1, 0},
	{0, 0, -1},
	{0, 0, 1},
	{-1, 0, 0},
	{1, 0, 0},
}

// Faces lists every face in index order.
var Faces = []Face{Down, Up, North, South, West, East}

func (f Face) Valid() bool { return f >= Down && f <= East }

func (f Face) Opposite() Face {
	if !f.Valid() {
		return NoFace
	}
	return f ^ 1
}

func (f Face) Offset() Pos {
	if !f.Valid() {
		return Pos{}
	}
	return faceOffsets[f]
}

func (f Face) Horizontal() bool { return f >= North && f <= East }

func (f Face) String() string {
	if !f.Valid() {
		return "none"
	}
	return faceNames[f]
}

func ParseFace(s string) (Face, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range faceNames {
		if n == s {
			return Face(i), nil
		}
	}
	return NoFace, fmt.Errorf("bad face %q", s)
}
