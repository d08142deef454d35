package device

import (
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/item"
	"tickcraft.ai/internal/sim/process"
	"tickcraft.ai/internal/sim/tag"
)

// Campfire cooks up to four items at once and drops the results. Its slots
// are not reachable by transfers.
type Campfire struct {
	base

	Slots *container.Slots
	algo  process.Campfire
	state process.CampfireState
}

func newCampfire(b base) *Campfire {
	c := &Campfire{
		base:  b,
		Slots: container.NewSlots(process.CampfireSlots, b.deps.Cats.Items.MaxStack),
		algo:  process.Campfire{Cats: b.deps.Cats},
	}
	c.state.Lit = true
	return c
}

func (c *Campfire) Lit() bool                    { return c.state.Lit }
func (c *Campfire) State() process.CampfireState { return c.state }

func (c *Campfire) SetLit(lv Level, lit bool) {
	if c.state.Lit == lit {
		return
	}
	c.state.Lit = lit
	lv.SetBlockState(c.pos, "lit", boolString(lit))
	if lit {
		lv.PlaySound(c.pos, "CAMPFIRE_IGNITE")
	} else {
		lv.PlaySound(c.pos, "CAMPFIRE_EXTINGUISH")
	}
}

// PlaceFood puts one unit of food on the campfire.
func (c *Campfire) PlaceFood(lv Level, food *item.Stack) bool {
	if !c.algo.Place(&c.state, c.Slots, food) {
		return false
	}
	lv.BroadcastEvent(c.pos, "CAMPFIRE_PLACE", nil)
	return true
}

func (c *Campfire) ServerTick(lv Level, now uint64) {
	out := c.algo.Advance(&c.state, c.Slots, 1)
	if len(out.Drops) > 0 {
		spill(lv, c.pos, out.Drops)
		lv.BroadcastEvent(c.pos, "CAMPFIRE_COOKED", map[string]any{"count": len(out.Drops)})
	}
	if c.state.Lit && lv.Rand().Intn(10) == 0 {
		lv.SpawnParticle(c.pos, "CAMPFIRE_SMOKE")
	}
}

func (c *Campfire) Drain() []item.Stack { return container.Drain(c.Slots) }

func (c *Campfire) Save() tag.Compound {
	t := tag.Compound{}
	c.saveBase(t)
	c.saveSlots(t, c.Slots)
	t.PutBool("Lit", c.state.Lit)
	prog := make([]tag.Value, process.CampfireSlots)
	total := make([]tag.Value, process.CampfireSlots)
	for i := 0; i < process.CampfireSlots; i++ {
		prog[i] = tag.IntOf(c.state.Progress[i])
		total[i] = tag.IntOf(c.state.Total[i])
	}
	t.PutList("CookingTimes", prog)
	t.PutList("CookingTotalTimes", total)
	return t
}

func (c *Campfire) Load(t tag.Compound) {
	c.loadBase(t)
	c.loadSlots(t, c.Slots)
	c.state.Lit = !t.Has("Lit") || t.GetBool("Lit")
	c.state.Progress = readInts(t, "CookingTimes")
	c.state.Total = readInts(t, "CookingTotalTimes")
}

func readInts(t tag.Compound, key string) [process.CampfireSlots]int {
	var out [process.CampfireSlots]int
	list, _ := t.GetList(key)
	for i, v := range list {
		if i >= len(out) {
			break
		}
		if v.Kind == tag.KindInt {
			out[i] = int(v.Int)
		}
	}
	return out
}
