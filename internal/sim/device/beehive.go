package device

import (
	"strconv"

	"tickcraft.ai/internal/sim/entity"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
	"tickcraft.ai/internal/sim/tag"
)

const MaxHoneyLevel = 5

// Occupant is a bee stored inside a hive.
type Occupant struct {
	BeeID         string
	Nectar        bool
	TicksInHive   int
	MinOccupation int
}

// Beehive stores up to MaxOccupants bees and releases them once they have
// stayed long enough, unless it is night or raining. Bees returning with
// nectar raise the honey level.
type Beehive struct {
	base

	occupants []Occupant
	honey     int
}

func newBeehive(b base) *Beehive {
	if !b.facing.Horizontal() {
		b.facing = geom.South
	}
	return &Beehive{base: b}
}

func (h *Beehive) Occupants() []Occupant { return append([]Occupant(nil), h.occupants...) }
func (h *Beehive) Honey() int            { return h.honey }
func (h *Beehive) Full() bool            { return len(h.occupants) >= h.deps.Tuning.Beehive.MaxOccupants }

// AddOccupant takes a bee mob into the hive, removing it from the world.
func (h *Beehive) AddOccupant(lv Level, bee *entity.Mob) bool {
	if h.Full() {
		return false
	}
	tu := h.deps.Tuning.Beehive
	stay := tu.MinOccupationTicks
	if bee.Nectar {
		stay = tu.NectarOccupationTicks
	}
	h.occupants = append(h.occupants, Occupant{BeeID: bee.ID, Nectar: bee.Nectar, MinOccupation: stay})
	lv.RemoveMob(bee.ID)
	lv.PlaySound(h.pos, "BEEHIVE_ENTER")
	return true
}

func (h *Beehive) ServerTick(lv Level, now uint64) {
	kept := h.occupants[:0]
	for _, o := range h.occupants {
		o.TicksInHive++
		if o.TicksInHive > o.MinOccupation && h.release(lv, o, false) {
			continue
		}
		kept = append(kept, o)
	}
	h.occupants = kept
}

// release lets o out in front of the hive. Emergency releases (the hive
// was broken) ignore weather, time of day and a blocked entrance.
func (h *Beehive) release(lv Level, o Occupant, emergency bool) bool {
	if !emergency && (lv.Night() || lv.Raining()) {
		return false
	}
	front := h.pos.Relative(h.facing)
	if !emergency && lv.Catalogs().Blocks.IsOpaque(lv.BlockAt(front)) {
		return false
	}
	if o.BeeID == "" {
		o.BeeID = h.deps.id()
	}
	lv.SpawnMob(&entity.Mob{ID: o.BeeID, Kind: entity.KindBee, Pos: front.Center(), Health: 10})
	if o.Nectar && !emergency && h.honey < MaxHoneyLevel {
		add := 1
		if lv.Rand().Intn(100) == 0 {
			add = 2
		}
		if h.honey+add > MaxHoneyLevel {
			add--
		}
		h.setHoney(lv, h.honey+add)
	}
	lv.PlaySound(h.pos, "BEEHIVE_EXIT")
	return true
}

func (h *Beehive) setHoney(lv Level, n int) {
	h.honey = n
	lv.SetBlockState(h.pos, "honey_level", strconv.Itoa(n))
}

// Harvest empties a full hive into honeycomb.
func (h *Beehive) Harvest(lv Level) bool {
	if h.honey < MaxHoneyLevel {
		return false
	}
	lv.SpawnItem(h.pos.Above().Center(), item.Of("HONEYCOMB", 3))
	h.setHoney(lv, 0)
	lv.PlaySound(h.pos, "BEEHIVE_SHEAR")
	return true
}

// EmptyAll releases every occupant regardless of conditions.
func (h *Beehive) EmptyAll(lv Level) {
	for _, o := range h.occupants {
		h.release(lv, o, true)
	}
	h.occupants = nil
}

func (h *Beehive) Save() tag.Compound {
	t := tag.Compound{}
	h.saveBase(t)
	t.PutInt("HoneyLevel", int64(h.honey))
	bees := make([]tag.Value, 0, len(h.occupants))
	for _, o := range h.occupants {
		c := tag.Compound{}
		c.PutString("BeeID", o.BeeID)
		c.PutBool("HasNectar", o.Nectar)
		c.PutInt("TicksInHive", int64(o.TicksInHive))
		c.PutInt("MinOccupationTicks", int64(o.MinOccupation))
		bees = append(bees, tag.Nested(c))
	}
	t.PutList("Bees", bees)
	return t
}

func (h *Beehive) Load(t tag.Compound) {
	h.loadBase(t)
	h.honey = clampInt(t.IntOr("HoneyLevel", 0), 0, MaxHoneyLevel)
	h.occupants = nil
	list, _ := t.GetList("Bees")
	for _, v := range list {
		if v.Kind != tag.KindCompound || len(h.occupants) >= h.deps.Tuning.Beehive.MaxOccupants {
			h.log.Warn("dropping unreadable beehive occupant")
			continue
		}
		c := v.Compound
		h.occupants = append(h.occupants, Occupant{
			BeeID:         c.StringOr("BeeID", ""),
			Nectar:        c.GetBool("HasNectar"),
			TicksInHive:   c.IntOr("TicksInHive", 0),
			MinOccupation: c.IntOr("MinOccupationTicks", h.deps.Tuning.Beehive.MinOccupationTicks),
		})
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
