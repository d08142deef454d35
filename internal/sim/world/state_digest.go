package world

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
)

// stateDigest hashes everything a replay must reproduce. Maps are walked
// in sorted order and devices in tick order.
func (w *World) stateDigest(nowTick uint64) string {
	h := xxhash.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	digestWriteU64(h, &tmp, uint64(w.cfg.Seed))
	h.Write([]byte{boolByte(w.raining)})

	w.digestBlocks(h, &tmp)
	w.digestDevices(h, &tmp)
	w.digestEntities(h, &tmp)

	for _, st := range w.sortedSchedule() {
		digestWriteU64(h, &tmp, st.Due)
		digestWritePos(h, &tmp, st.Pos)
		h.Write([]byte(st.DeviceID))
		h.Write([]byte(st.Kind))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func (w *World) digestBlocks(h hashWriter, tmp *[8]byte) {
	for _, p := range sortedPositions(w.blocks) {
		digestWritePos(h, tmp, p)
		h.Write([]byte(w.blocks[p]))
		st := w.states[p]
		keys := make([]string, 0, len(st))
		for k := range st {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.Write([]byte(k))
			h.Write([]byte(st[k]))
		}
	}
	for _, p := range sortedPositions(w.powered) {
		digestWritePos(h, tmp, p)
	}
}

func (w *World) digestDevices(h hashWriter, tmp *[8]byte) {
	for _, d := range w.devices {
		if d.Removed() {
			continue
		}
		h.Write([]byte(d.Kind()))
		digestWritePos(h, tmp, d.Pos())
		b, err := d.Save().MarshalJSON()
		if err != nil {
			w.log.Warn("device state not digestible", zap.String("device", d.ID()), zap.Error(err))
			continue
		}
		h.Write(b)
	}
}

func (w *World) digestEntities(h hashWriter, tmp *[8]byte) {
	for _, p := range w.Players() {
		h.Write([]byte(p.ID))
		digestWriteVec(h, tmp, p.Pos)
		if p.Open != nil {
			digestWritePos(h, tmp, p.Open.Pos)
			h.Write([]byte(p.Open.DeviceID))
		}
		for _, id := range p.EffectIDs() {
			e := p.Effects[id]
			h.Write([]byte(id))
			digestWriteI64(h, tmp, int64(e.Amplifier))
			digestWriteI64(h, tmp, int64(e.Duration))
		}
	}
	for _, m := range w.Mobs() {
		h.Write([]byte(m.ID))
		h.Write([]byte(m.Kind))
		digestWriteVec(h, tmp, m.Pos)
		digestWriteU64(h, tmp, math.Float64bits(m.Health))
	}
	for _, e := range w.items {
		if e.Discarded {
			continue
		}
		h.Write([]byte(e.ID))
		digestWriteVec(h, tmp, e.Pos)
		digestWriteStack(h, tmp, e.Item)
		digestWriteI64(h, tmp, int64(e.Age))
	}
}

func (w *World) sortedSchedule() []scheduledTick {
	out := append([]scheduledTick(nil), w.scheduled...)
	sort.Slice(out, func(i, j int) bool { return schedule(out).Less(i, j) })
	return out
}

func sortedPositions[V any](m map[geom.Pos]V) []geom.Pos {
	out := make([]geom.Pos, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWritePos(h hashWriter, tmp *[8]byte, p geom.Pos) {
	digestWriteI64(h, tmp, int64(p.X))
	digestWriteI64(h, tmp, int64(p.Y))
	digestWriteI64(h, tmp, int64(p.Z))
}

func digestWriteVec(h hashWriter, tmp *[8]byte, v geom.Vec) {
	digestWriteU64(h, tmp, math.Float64bits(v.X))
	digestWriteU64(h, tmp, math.Float64bits(v.Y))
	digestWriteU64(h, tmp, math.Float64bits(v.Z))
}

func digestWriteStack(h hashWriter, tmp *[8]byte, s item.Stack) {
	h.Write([]byte(s.Item))
	digestWriteI64(h, tmp, int64(s.Count))
	digestWriteI64(h, tmp, int64(s.Damage))
	h.Write([]byte(s.Potion))
	h.Write([]byte(s.Name))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
