// Package process holds the per-device business rules (cooking, brewing)
// that devices advance one tick at a time. Algorithms are stateless values;
// the state they mutate is owned and persisted by the device.
package process

import (
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/item"
)

// Outcome reports what one Advance call did.
type Outcome struct {
	// Done is set when at least one output was produced.
	Done bool
	// Progressed is set when a progress counter moved forward.
	Progressed bool
	// Changed is set when the state or the inventory was modified.
	Changed bool
	// ActiveChanged is set when the lit/brewing flag flipped.
	ActiveChanged bool
	// Drops are stacks the device must spill into the world.
	Drops []item.Stack
}

func (o *Outcome) merge(n Outcome) {
	o.Done = o.Done || n.Done
	o.Progressed = o.Progressed || n.Progressed
	o.Changed = o.Changed || n.Changed
	o.ActiveChanged = o.ActiveChanged != n.ActiveChanged
	o.Drops = append(o.Drops, n.Drops...)
}

// Algorithm is a process rule over a device state S and its slots.
type Algorithm[S any] interface {
	CanProcess(st *S, inv container.Container) bool
	Advance(st *S, inv container.Container, deltaTicks int) Outcome
}

// Phase is the visible state of a furnace-like device.
type Phase int

const (
	Unlit Phase = iota
	Lit
	Cooling
)

func (p Phase) String() string {
	switch p {
	case Lit:
		return "LIT"
	case Cooling:
		return "COOLING"
	default:
		return "UNLIT"
	}
}

// decay lowers progress by 2, clamped to [0, total].
func decay(progress, total int) int {
	progress -= 2
	if progress > total {
		progress = total
	}
	if progress < 0 {
		progress = 0
	}
	return progress
}
