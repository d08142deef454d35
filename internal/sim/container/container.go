// Package container implements fixed-size item slot arrays and the
// face-restricted access rules devices expose to transfers.
package container

import (
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
)

// DefaultMaxStack is the container-wide slot limit.
const DefaultMaxStack = 64

// Container is a fixed-length slot array. Slot indices are stable for the
// lifetime of the container.
type Container interface {
	Size() int
	Item(slot int) item.Stack
	SetItem(slot int, s item.Stack)
	// RemoveItem splits up to n units out of slot.
	RemoveItem(slot, n int) item.Stack
	IsEmpty() bool
	// MaxStackFor is the most units of s one slot may hold.
	MaxStackFor(s item.Stack) int
	CanPlaceItem(slot int, s item.Stack) bool
	CanTakeItem(slot int, s item.Stack) bool
	SetChanged()
}

// Sided containers expose a subset of their slots per face.
type Sided interface {
	Container
	SlotsForFace(f geom.Face) []int
	CanPlaceItemThroughFace(slot int, s item.Stack, f geom.Face) bool
	CanTakeItemThroughFace(slot int, s item.Stack, f geom.Face) bool
}

// Slots is the plain slot storage devices embed. Its predicates accept
// everything; devices shadow CanPlaceItem/CanTakeItem to restrict them.
type Slots struct {
	items    []item.Stack
	maxStack func(id string) int
	changed  func()
}

// NewSlots allocates n empty slots. maxStack reports the per-item limit and
// may be nil.
func NewSlots(n int, maxStack func(id string) int) *Slots {
	return &Slots{items: make([]item.Stack, n), maxStack: maxStack}
}

// OnChange installs the hook SetChanged calls.
func (c *Slots) OnChange(fn func()) { c.changed = fn }

func (c *Slots) Size() int { return len(c.items) }

func (c *Slots) Item(slot int) item.Stack {
	if slot < 0 || slot >= len(c.items) {
		return item.Empty
	}
	return c.items[slot]
}

func (c *Slots) SetItem(slot int, s item.Stack) {
	if slot < 0 || slot >= len(c.items) {
		return
	}
	s = item.Normalize(s)
	if limit := c.MaxStackFor(s); s.Count > limit {
		s.Count = limit
	}
	c.items[slot] = s
	c.SetChanged()
}

func (c *Slots) RemoveItem(slot, n int) item.Stack {
	if slot < 0 || slot >= len(c.items) {
		return item.Empty
	}
	out := c.items[slot].Split(n)
	if !out.IsEmpty() {
		c.SetChanged()
	}
	return out
}

// RemoveItemNoUpdate takes the whole slot without firing SetChanged.
func (c *Slots) RemoveItemNoUpdate(slot int) item.Stack {
	if slot < 0 || slot >= len(c.items) {
		return item.Empty
	}
	out := c.items[slot]
	c.items[slot] = item.Empty
	return out
}

func (c *Slots) IsEmpty() bool {
	for _, s := range c.items {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}

func (c *Slots) MaxStackFor(s item.Stack) int {
	limit := DefaultMaxStack
	if c.maxStack != nil && s.Item != "" {
		if m := c.maxStack(s.Item); m > 0 && m < limit {
			limit = m
		}
	}
	return limit
}

func (c *Slots) CanPlaceItem(int, item.Stack) bool { return true }
func (c *Slots) CanTakeItem(int, item.Stack) bool  { return true }

func (c *Slots) SetChanged() {
	if c.changed != nil {
		c.changed()
	}
}

// Clear empties every slot.
func (c *Slots) Clear() {
	for i := range c.items {
		c.items[i] = item.Empty
	}
	c.SetChanged()
}

// Stacks returns a copy of the slot array.
func (c *Slots) Stacks() []item.Stack {
	out := make([]item.Stack, len(c.items))
	copy(out, c.items)
	return out
}

// Load replaces the slot array without firing SetChanged. Entries beyond
// Size are ignored.
func (c *Slots) Load(stacks []item.Stack) {
	for i := range c.items {
		c.items[i] = item.Empty
	}
	for i, s := range stacks {
		if i >= len(c.items) {
			break
		}
		c.items[i] = item.Normalize(s)
	}
}

// Count sums the units of id held by c ("" counts everything).
func Count(c Container, id string) int {
	n := 0
	for i := 0; i < c.Size(); i++ {
		s := c.Item(i)
		if s.IsEmpty() {
			continue
		}
		if id == "" || s.Item == id {
			n += s.Count
		}
	}
	return n
}

// Drain empties c and returns the stacks it held, in slot order.
func Drain(c Container) []item.Stack {
	var out []item.Stack
	for i := 0; i < c.Size(); i++ {
		s := c.Item(i)
		if s.IsEmpty() {
			continue
		}
		out = append(out, c.RemoveItem(i, s.Count))
	}
	return out
}

// AllSlots returns [0, n).
func AllSlots(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
