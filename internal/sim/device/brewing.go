package device

import (
	"fmt"

	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
	"tickcraft.ai/internal/sim/process"
	"tickcraft.ai/internal/sim/tag"
)

var (
	brewingUp    = []int{process.SlotIngredient}
	brewingDown  = []int{0, 1, 2, process.SlotIngredient}
	brewingSides = []int{0, 1, 2, process.SlotBrewFuel}
)

type BrewingStand struct {
	base
	*container.Slots

	algo    process.Algorithm[process.BrewState]
	state   process.BrewState
	bottles [3]bool
}

func newBrewingStand(b base) *BrewingStand {
	return &BrewingStand{
		base:  b,
		Slots: container.NewSlots(5, b.deps.Cats.Items.MaxStack),
		algo:  process.Brewing{Cats: b.deps.Cats},
	}
}

func (s *BrewingStand) State() process.BrewState { return s.state }

func (s *BrewingStand) CanPlaceItem(slot int, st item.Stack) bool {
	cats := s.deps.Cats
	switch slot {
	case process.SlotIngredient:
		return cats.Brewing.IsIngredient(st.Item)
	case process.SlotBrewFuel:
		return st.Is(cats.Brewing.FuelItem)
	default:
		return cats.Items.HasTag(st.Item, catalogs.TagBrewingBottle) && s.Slots.Item(slot).IsEmpty()
	}
}

func (s *BrewingStand) SlotsForFace(face geom.Face) []int {
	switch face {
	case geom.Up:
		return brewingUp
	case geom.Down:
		return brewingDown
	default:
		return brewingSides
	}
}

func (s *BrewingStand) CanPlaceItemThroughFace(slot int, st item.Stack, _ geom.Face) bool {
	return s.CanPlaceItem(slot, st)
}

// CanTakeItemThroughFace lets only empty bottles out of the ingredient slot.
func (s *BrewingStand) CanTakeItemThroughFace(slot int, st item.Stack, _ geom.Face) bool {
	if slot == process.SlotIngredient {
		return st.Is("GLASS_BOTTLE")
	}
	return true
}

func (s *BrewingStand) ServerTick(lv Level, now uint64) {
	out := s.algo.Advance(&s.state, s.Slots, 1)
	spill(lv, s.pos, out.Drops)
	if out.Done {
		lv.BroadcastEvent(s.pos, "BREW_COMPLETE", nil)
	}
	if out.Changed {
		s.SetChanged()
	}
	if bits := process.BottleBits(s.Slots); bits != s.bottles {
		s.bottles = bits
		for i, v := range bits {
			lv.SetBlockState(s.pos, fmt.Sprintf("has_bottle_%d", i), boolString(v))
		}
	}
}

func (s *BrewingStand) Drain() []item.Stack { return container.Drain(s.Slots) }

func (s *BrewingStand) Save() tag.Compound {
	t := tag.Compound{}
	s.saveBase(t)
	s.saveSlots(t, s.Slots)
	t.PutInt("BrewTime", int64(s.state.BrewTime))
	t.PutInt("Fuel", int64(s.state.Fuel))
	if s.state.Ingredient != "" {
		t.PutString("Ingredient", s.state.Ingredient)
	}
	return t
}

func (s *BrewingStand) Load(t tag.Compound) {
	s.loadBase(t)
	s.loadSlots(t, s.Slots)
	s.state.BrewTime = t.IntOr("BrewTime", 0)
	s.state.Fuel = t.IntOr("Fuel", 0)
	s.state.Ingredient = t.StringOr("Ingredient", "")
	if s.state.Ingredient == "" && s.state.BrewTime > 0 {
		s.state.Ingredient = s.Slots.Item(process.SlotIngredient).Item
	}
}
