package world

import (
	"container/heap"

	"tickcraft.ai/internal/sim/device"
	"tickcraft.ai/internal/sim/geom"
)

// scheduledTick is a continuation a device asked for. It is bound to the
// device id so a replacement device at the same position never receives
// its predecessor's ticks.
type scheduledTick struct {
	Due      uint64
	Seq      uint64
	Pos      geom.Pos
	DeviceID string
	Kind     string
}

// schedule is a min-heap ordered by (Due, Seq).
type schedule []scheduledTick

func (s schedule) Len() int { return len(s) }
func (s schedule) Less(i, j int) bool {
	if s[i].Due != s[j].Due {
		return s[i].Due < s[j].Due
	}
	return s[i].Seq < s[j].Seq
}
func (s schedule) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s *schedule) Push(x any)   { *s = append(*s, x.(scheduledTick)) }
func (s *schedule) Pop() any {
	old := *s
	n := len(old)
	x := old[n-1]
	*s = old[:n-1]
	return x
}

// Schedule implements device.Level. Delays below one tick run next tick.
// A continuation of the same kind already pending for d is kept and the new
// one is ignored.
func (w *World) Schedule(d device.Device, delay int, kind string) {
	if delay < 1 {
		delay = 1
	}
	id := d.ID()
	for _, st := range w.scheduled {
		if st.DeviceID == id && st.Kind == kind {
			return
		}
	}
	w.nextSeq++
	heap.Push(&w.scheduled, scheduledTick{
		Due:      w.tick.Load() + uint64(delay),
		Seq:      w.nextSeq,
		Pos:      d.Pos(),
		DeviceID: id,
		Kind:     kind,
	})
}

// runScheduled fires every continuation due at or before now. Ticks whose
// device is gone, replaced or removed are dropped.
func (w *World) runScheduled(now uint64) {
	for w.scheduled.Len() > 0 && w.scheduled[0].Due <= now {
		st := heap.Pop(&w.scheduled).(scheduledTick)
		d, ok := w.DeviceAt(st.Pos)
		if !ok || d.ID() != st.DeviceID {
			continue
		}
		if s, ok := d.(device.Scheduled); ok {
			s.OnScheduledTick(w, st.Kind)
		}
	}
}

// PendingScheduled is the number of queued continuations.
func (w *World) PendingScheduled() int { return w.scheduled.Len() }
