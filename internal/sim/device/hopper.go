package device

import (
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
	"tickcraft.ai/internal/sim/tag"
	"tickcraft.ai/internal/sim/transfer"
)

// Hopper pulls from the container above (or loose items above) and pushes
// into the container it faces, one unit per successful tick.
type Hopper struct {
	base
	*container.Slots

	policy   transfer.Policy
	cooldown int
	ticked   uint64
}

func newHopper(b base) *Hopper {
	h := &Hopper{
		base:     b,
		Slots:    container.NewSlots(b.deps.Tuning.Hopper.Slots, b.deps.Cats.Items.MaxStack),
		policy:   transfer.Policy{Cooldown: b.deps.Tuning.Hopper.CooldownTicks},
		cooldown: -1,
	}
	if !h.facing.Valid() || h.facing == geom.Up {
		h.facing = geom.Down
	}
	return h
}

func (h *Hopper) Cooldown() int { return h.cooldown }

func (h *Hopper) SetCooldown(ticks int)  { h.cooldown = ticks }
func (h *Hopper) OnCustomCooldown() bool { return h.cooldown > h.policy.Cooldown }
func (h *Hopper) TickedGameTime() uint64 { return h.ticked }

func (h *Hopper) onCooldown() bool { return h.cooldown > 0 }

func (h *Hopper) ServerTick(lv Level, now uint64) {
	h.cooldown--
	h.ticked = now
	if h.onCooldown() {
		return
	}
	h.cooldown = 0
	h.tryMoveItems(lv)
}

func (h *Hopper) tryMoveItems(lv Level) bool {
	if h.onCooldown() || lv.Powered(h.pos) {
		return false
	}
	moved := false
	if !h.IsEmpty() {
		moved = h.eject(lv)
	}
	if !transfer.IsFull(h, geom.NoFace) {
		moved = h.suckIn(lv) || moved
	}
	if moved {
		h.SetCooldown(h.policy.Cooldown)
		h.SetChanged()
	}
	return moved
}

func (h *Hopper) eject(lv Level) bool {
	dst, ok := lv.ContainerAt(h.pos.Relative(h.facing))
	if !ok {
		return false
	}
	return h.policy.Eject(h, dst, h.facing.Opposite())
}

func (h *Hopper) suckIn(lv Level) bool {
	if src, ok := lv.ContainerAt(h.pos.Above()); ok {
		return h.policy.SuckIn(h, src)
	}
	for _, e := range lv.ItemEntitiesIn(h.suckBox()) {
		if e.Discarded {
			continue
		}
		if h.policy.SuckInEntity(h, e) {
			return true
		}
	}
	return false
}

// suckBox covers the block above the hopper and the top of its bowl.
func (h *Hopper) suckBox() geom.Box {
	b := geom.BlockBox(h.pos.Above())
	b.Min.Y -= 0.3125
	return b
}

func (h *Hopper) Drain() []item.Stack { return container.Drain(h) }

func (h *Hopper) Save() tag.Compound {
	t := tag.Compound{}
	h.saveBase(t)
	h.saveSlots(t, h.Slots)
	t.PutInt("TransferCooldown", int64(h.cooldown))
	return t
}

func (h *Hopper) Load(t tag.Compound) {
	h.loadBase(t)
	h.loadSlots(t, h.Slots)
	h.cooldown = t.IntOr("TransferCooldown", -1)
}
