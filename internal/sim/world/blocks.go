package world

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/device"
	"tickcraft.ai/internal/sim/geom"
)

var (
	ErrUnknownBlock = errors.New("unknown block")
	ErrOutOfBounds  = errors.New("position out of bounds")
)

func (w *World) inBounds(p geom.Pos) bool {
	return p.Y >= w.cfg.MinY && p.Y < w.cfg.MinY+w.cfg.Tuning.WorldHeight
}

// CheckPos reports ErrOutOfBounds for positions outside the build height.
func (w *World) CheckPos(p geom.Pos) error {
	if !w.inBounds(p) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, p)
	}
	return nil
}

// SetBlock replaces the block at p. A device already there is removed
// first (its contents drop as item entities); when the new block is a
// device block the matching device is created with the given facing.
func (w *World) SetBlock(p geom.Pos, id string, facing geom.Face) (device.Device, error) {
	if id == "" {
		id = catalogs.Air
	}
	if !w.catalogs.Blocks.Known(id) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, id)
	}
	if err := w.CheckPos(p); err != nil {
		return nil, err
	}
	var d device.Device
	if kind := w.catalogs.Blocks.DeviceKind(id); kind != "" {
		nd, err := device.New(kind, p, facing, w.deviceDeps())
		if err != nil {
			return nil, err
		}
		d = nd
	}

	from := w.BlockAt(p)
	w.removeDevice(p)
	w.putBlock(p, id)
	if d != nil {
		w.addDevice(d)
	}
	w.emit(p, "BLOCK_CHANGE", map[string]any{"from": from, "to": id}, true)
	return d, nil
}

func (w *World) putBlock(p geom.Pos, id string) {
	delete(w.states, p)
	if id == catalogs.Air {
		delete(w.blocks, p)
	} else {
		w.blocks[p] = id
	}
	w.updateSurface(p.X, p.Z, p.Y, id != catalogs.Air)
}

func (w *World) updateSurface(x, z, y int, solid bool) {
	col := [2]int{x, z}
	top, ok := w.surface[col]
	switch {
	case solid:
		if !ok || y > top {
			w.surface[col] = y
		}
	case ok && y == top:
		for yy := y - 1; yy >= w.cfg.MinY; yy-- {
			if _, ok := w.blocks[geom.P(x, yy, z)]; ok {
				w.surface[col] = yy
				return
			}
		}
		delete(w.surface, col)
	}
}

func (w *World) BlockAt(p geom.Pos) string {
	if id, ok := w.blocks[p]; ok {
		return id
	}
	return catalogs.Air
}

// SurfaceHeight is MinY-1 for an empty column.
func (w *World) SurfaceHeight(x, z int) int {
	if y, ok := w.surface[[2]int{x, z}]; ok {
		return y
	}
	return w.cfg.MinY - 1
}

// BlockState returns a copy of the state properties of the block at p.
func (w *World) BlockState(p geom.Pos) map[string]string {
	st := w.states[p]
	if len(st) == 0 {
		return nil
	}
	out := make(map[string]string, len(st))
	for k, v := range st {
		out[k] = v
	}
	return out
}

func (w *World) SetBlockState(p geom.Pos, key, value string) {
	if _, ok := w.blocks[p]; !ok {
		w.log.Debug("state on air block ignored", zap.Stringer("pos", p), zap.String("key", key))
		return
	}
	st := w.states[p]
	if st == nil {
		st = map[string]string{}
		w.states[p] = st
	}
	if st[key] == value {
		return
	}
	st[key] = value
	w.emit(p, "BLOCK_STATE", map[string]any{"key": key, "value": value}, false)
}

func (w *World) MinY() int   { return w.cfg.MinY }
func (w *World) Height() int { return w.cfg.Tuning.WorldHeight }

// SetPower turns the redstone source at p on or off.
func (w *World) SetPower(p geom.Pos, on bool) {
	if on {
		w.powered[p] = true
	} else {
		delete(w.powered, p)
	}
}

// Powered reports a signal at p or on any of its six neighbours.
func (w *World) Powered(p geom.Pos) bool {
	if w.powered[p] {
		return true
	}
	for _, f := range geom.Faces {
		if w.powered[p.Relative(f)] {
			return true
		}
	}
	return false
}

func (w *World) SetRaining(v bool) {
	if w.raining == v {
		return
	}
	w.raining = v
	w.emit(geom.Pos{}, "WEATHER", map[string]any{"raining": v}, true)
}

func (w *World) Raining() bool { return w.raining }

// Night covers the same share of the day as the vanilla 13000..23000 window.
func (w *World) Night() bool {
	day := uint64(w.cfg.Tuning.DayTicks)
	t := w.tick.Load() % day
	return t*24 >= day*13 && t*24 < day*23
}

// InWaterOrRain reports whether v is inside water or exposed to rain.
func (w *World) InWaterOrRain(v geom.Vec) bool {
	p := v.Block()
	if w.catalogs.Blocks.IsWater(w.BlockAt(p)) {
		return true
	}
	return w.raining && w.SurfaceHeight(p.X, p.Z) < p.Y
}
