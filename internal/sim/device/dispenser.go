package device

import (
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/item"
	"tickcraft.ai/internal/sim/tag"
	"tickcraft.ai/internal/sim/transfer"
)

const dispenseDelay = 4

// Dispenser covers dispensers and droppers. On a rising redstone edge it
// picks a random non-empty slot; a dispenser throws one unit out, a dropper
// first tries to insert it into the container it faces.
type Dispenser struct {
	base
	*container.Slots

	policy    transfer.Policy
	triggered bool
}

func newDispenser(b base) *Dispenser {
	return &Dispenser{
		base:   b,
		Slots:  container.NewSlots(9, b.deps.Cats.Items.MaxStack),
		policy: transfer.Policy{Cooldown: b.deps.Tuning.Hopper.CooldownTicks},
	}
}

func (d *Dispenser) ServerTick(lv Level, now uint64) {
	powered := lv.Powered(d.pos)
	if powered && !d.triggered {
		lv.Schedule(d, dispenseDelay, "dispense")
	}
	d.triggered = powered
}

func (d *Dispenser) OnScheduledTick(lv Level, kind string) {
	if kind == "dispense" {
		d.dispense(lv)
	}
}

// randomSlot picks a uniformly random non-empty slot, or -1.
func (d *Dispenser) randomSlot(lv Level) int {
	slot, seen := -1, 0
	for i := 0; i < d.Size(); i++ {
		if d.Item(i).IsEmpty() {
			continue
		}
		seen++
		if lv.Rand().Intn(seen) == 0 {
			slot = i
		}
	}
	return slot
}

func (d *Dispenser) dispense(lv Level) {
	slot := d.randomSlot(lv)
	if slot < 0 {
		lv.BroadcastEvent(d.pos, "DISPENSE_FAIL", nil)
		return
	}
	s := d.Item(slot)
	if d.kind == KindDropper {
		if dst, ok := lv.ContainerAt(d.pos.Relative(d.facing)); ok {
			rest := d.policy.AddItem(d, dst, s.WithCount(1), d.facing.Opposite())
			if rest.IsEmpty() {
				s.Shrink(1)
				d.SetItem(slot, s)
			}
			return
		}
	}
	lv.SpawnItem(d.front(), s.WithCount(1))
	lv.PlaySound(d.pos, "DISPENSE")
	lv.BroadcastEvent(d.pos, "DISPENSE", map[string]any{"item": s.Item, "slot": slot})
	s.Shrink(1)
	d.SetItem(slot, s)
}

func (d *Dispenser) Drain() []item.Stack { return container.Drain(d.Slots) }

func (d *Dispenser) Save() tag.Compound {
	t := tag.Compound{}
	d.saveBase(t)
	d.saveSlots(t, d.Slots)
	t.PutBool("Triggered", d.triggered)
	return t
}

func (d *Dispenser) Load(t tag.Compound) {
	d.loadBase(t)
	d.loadSlots(t, d.Slots)
	d.triggered = t.GetBool("Triggered")
}
