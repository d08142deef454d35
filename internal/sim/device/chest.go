package device

import (
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
	"tickcraft.ai/internal/sim/openers"
	"tickcraft.ai/internal/sim/tag"
)

const recheckKind = "openers_recheck"

// Chest covers chests and barrels: 27 plain slots plus an openers counter
// driving the lid (chest) or open state (barrel).
type Chest struct {
	base
	*container.Slots

	openers openers.Counter
}

func newChest(b base) *Chest {
	tu := b.deps.Tuning.Openers
	return &Chest{
		base:    b,
		Slots:   container.NewSlots(27, b.deps.Cats.Items.MaxStack),
		openers: openers.Counter{Delay: tu.RecheckDelayTicks, Radius: tu.ScanRadius},
	}
}

func (c *Chest) OpenCount() int { return c.openers.Count() }

func (c *Chest) StartOpen(lv Level, actor string) {
	if !c.removed {
		c.openers.Increment(actor, chestHost{c, lv})
	}
}

func (c *Chest) StopOpen(lv Level, actor string) {
	if !c.removed {
		c.openers.Decrement(actor, chestHost{c, lv})
	}
}

func (c *Chest) OnScheduledTick(lv Level, kind string) {
	if kind == recheckKind {
		c.openers.Recheck(chestHost{c, lv})
	}
}

func (c *Chest) ServerTick(Level, uint64) {}

func (c *Chest) Drain() []item.Stack { return container.Drain(c.Slots) }

func (c *Chest) Save() tag.Compound {
	t := tag.Compound{}
	c.saveBase(t)
	c.saveSlots(t, c.Slots)
	return t
}

func (c *Chest) Load(t tag.Compound) {
	c.loadBase(t)
	c.loadSlots(t, c.Slots)
}

// chestHost binds a chest to the level for one openers call.
type chestHost struct {
	c  *Chest
	lv Level
}

func (h chestHost) Viewers(radius float64) int {
	n := 0
	for _, p := range h.lv.PlayersIn(geom.BlockBox(h.c.pos).Inflate(radius)) {
		if p.Viewing(h.c.pos, h.c.id) {
			n++
		}
	}
	return n
}

func (h chestHost) ScheduleRecheck(delay int) { h.lv.Schedule(h.c, delay, recheckKind) }

func (h chestHost) Valid() bool {
	d, ok := h.lv.DeviceAt(h.c.pos)
	return ok && d == Device(h.c) && !h.c.removed
}

func (h chestHost) OnOpen(actor string) {
	if h.c.kind == KindBarrel {
		h.lv.PlaySound(h.c.pos, "BARREL_OPEN")
		h.lv.SetBlockState(h.c.pos, "open", "true")
	} else {
		h.lv.PlaySound(h.c.pos, "CHEST_OPEN")
	}
	h.lv.BroadcastEvent(h.c.pos, "CONTAINER_OPEN", map[string]any{"actor": actor})
}

func (h chestHost) OnClose(actor string) {
	if h.c.kind == KindBarrel {
		h.lv.PlaySound(h.c.pos, "BARREL_CLOSE")
		h.lv.SetBlockState(h.c.pos, "open", "false")
	} else {
		h.lv.PlaySound(h.c.pos, "CHEST_CLOSE")
	}
	h.lv.BroadcastEvent(h.c.pos, "CONTAINER_CLOSE", map[string]any{"actor": actor})
}

func (h chestHost) OnCountChanged(prev, next int) {
	if h.c.kind == KindChest {
		h.lv.BroadcastEvent(h.c.pos, "CHEST_LID", map[string]any{"openers": next})
	}
}
