// Package transfer moves items between containers one slot at a time,
// honoring per-slot and per-face rules and hopper cooldowns.
package transfer

import (
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
)

// DefaultCooldown is the number of ticks a transferring device waits after a
// successful move.
const DefaultCooldown = 8

// Cooled is a container that is itself a transferring device.
type Cooled interface {
	container.Container
	SetCooldown(ticks int)
	OnCustomCooldown() bool
	TickedGameTime() uint64
}

// Entity is a loose item lying in the world.
type Entity interface {
	Stack() item.Stack
	SetStack(s item.Stack)
	Discard()
}

// Policy is the hopper transfer algorithm. The zero value uses
// DefaultCooldown.
type Policy struct {
	Cooldown int
}

func (p Policy) cooldown() int {
	if p.Cooldown > 0 {
		return p.Cooldown
	}
	return DefaultCooldown
}

// Slots returns the slots of c reachable through face.
func Slots(c container.Container, face geom.Face) []int {
	if sided, ok := c.(container.Sided); ok && face.Valid() {
		return sided.SlotsForFace(face)
	}
	return container.AllSlots(c.Size())
}

// IsFull reports whether every slot reachable through face is at its limit.
func IsFull(c container.Container, face geom.Face) bool {
	for _, slot := range Slots(c, face) {
		s := c.Item(slot)
		if s.IsEmpty() || s.Count < c.MaxStackFor(s) {
			return false
		}
	}
	return true
}

// IsEmptyFor reports whether every slot reachable through face is empty.
func IsEmptyFor(c container.Container, face geom.Face) bool {
	for _, slot := range Slots(c, face) {
		if !c.Item(slot).IsEmpty() {
			return false
		}
	}
	return true
}

// AddItem places as much of s as dst accepts and returns what is left.
// src may be nil when the items come from outside any container.
func (p Policy) AddItem(src, dst container.Container, s item.Stack, face geom.Face) item.Stack {
	if sided, ok := dst.(container.Sided); ok && face.Valid() {
		for _, slot := range sided.SlotsForFace(face) {
			if s.IsEmpty() {
				break
			}
			s = p.tryMoveInItem(src, dst, s, slot, face)
		}
		return s
	}
	for slot := 0; slot < dst.Size() && !s.IsEmpty(); slot++ {
		s = p.tryMoveInItem(src, dst, s, slot, face)
	}
	return s
}

func canPlace(dst container.Container, s item.Stack, slot int, face geom.Face) bool {
	if !dst.CanPlaceItem(slot, s) {
		return false
	}
	if sided, ok := dst.(container.Sided); ok && !sided.CanPlaceItemThroughFace(slot, s, face) {
		return false
	}
	return true
}

func canTake(src container.Container, s item.Stack, slot int, face geom.Face) bool {
	if !src.CanTakeItem(slot, s) {
		return false
	}
	if sided, ok := src.(container.Sided); ok && !sided.CanTakeItemThroughFace(slot, s, face) {
		return false
	}
	return true
}

func (p Policy) tryMoveInItem(src, dst container.Container, s item.Stack, slot int, face geom.Face) item.Stack {
	if !canPlace(dst, s, slot, face) {
		return s
	}
	cur := dst.Item(slot)
	limit := dst.MaxStackFor(s)
	moved := false
	wasEmpty := dst.IsEmpty()

	switch {
	case cur.IsEmpty():
		n := s.Count
		if n > limit {
			n = limit
		}
		dst.SetItem(slot, s.WithCount(n))
		s.Shrink(n)
		moved = n > 0
	case item.SameItemAndData(cur, s) && cur.Count < limit:
		n := limit - cur.Count
		if n > s.Count {
			n = s.Count
		}
		s.Shrink(n)
		cur.Grow(n)
		dst.SetItem(slot, cur)
		moved = n > 0
	}

	if moved {
		if wasEmpty {
			p.staggerCooldown(src, dst)
		}
		dst.SetChanged()
	}
	return s
}

// staggerCooldown delays a hopper that just received its first item so that
// it does not pass the item on in the same tick. A destination that already
// ticked this game time is given one tick less.
func (p Policy) staggerCooldown(src, dst container.Container) {
	to, ok := dst.(Cooled)
	if !ok || to.OnCustomCooldown() {
		return
	}
	k := 0
	if from, ok := src.(Cooled); ok && to.TickedGameTime() >= from.TickedGameTime() {
		k = 1
	}
	to.SetCooldown(p.cooldown() - k)
}

// Eject pushes one unit from the first movable slot of from into to, which
// is entered through face. A failed move restores the source slot.
func (p Policy) Eject(from, to container.Container, face geom.Face) bool {
	if IsFull(to, face) {
		return false
	}
	for slot := 0; slot < from.Size(); slot++ {
		orig := from.Item(slot)
		if orig.IsEmpty() {
			continue
		}
		rest := p.AddItem(from, to, from.RemoveItem(slot, 1), face)
		if rest.IsEmpty() {
			to.SetChanged()
			return true
		}
		from.SetItem(slot, orig)
	}
	return false
}

// SuckIn pulls one unit from the bottom face of src into to.
func (p Policy) SuckIn(to, src container.Container) bool {
	const face = geom.Down
	if IsEmptyFor(src, face) {
		return false
	}
	for _, slot := range Slots(src, face) {
		if p.takeFromSlot(to, src, slot, face) {
			return true
		}
	}
	return false
}

func (p Policy) takeFromSlot(to, src container.Container, slot int, face geom.Face) bool {
	orig := src.Item(slot)
	if orig.IsEmpty() || !canTake(src, orig, slot, face) {
		return false
	}
	rest := p.AddItem(src, to, src.RemoveItem(slot, 1), geom.NoFace)
	if rest.IsEmpty() {
		src.SetChanged()
		return true
	}
	src.SetItem(slot, orig)
	return false
}

// SuckInEntity absorbs as much of e as to accepts. The entity is discarded
// once empty. It reports whether anything moved.
func (p Policy) SuckInEntity(to container.Container, e Entity) bool {
	s := e.Stack()
	rest := p.AddItem(nil, to, s, geom.NoFace)
	if rest.IsEmpty() {
		e.SetStack(item.Empty)
		e.Discard()
		return true
	}
	e.SetStack(rest)
	return rest.Count != s.Count
}
