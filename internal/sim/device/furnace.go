package device

import (
	"sort"

	"go.uber.org/zap"

	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
	"tickcraft.ai/internal/sim/process"
	"tickcraft.ai/internal/sim/tag"
)

var (
	furnaceUp    = []int{process.SlotInput}
	furnaceDown  = []int{process.SlotResult, process.SlotFuel}
	furnaceSides = []int{process.SlotFuel}
)

// Furnace covers furnaces, smokers and blast furnaces; they differ only in
// the cooking strategy they are built with.
type Furnace struct {
	base
	*container.Slots

	algo  process.Algorithm[process.CookState]
	cook  process.Cooking
	state process.CookState
}

func newFurnace(b base) *Furnace {
	cats := b.deps.Cats
	var cook process.Cooking
	switch b.kind {
	case KindSmoker:
		cook = process.NewSmoker(cats)
	case KindBlastFurnace:
		cook = process.NewBlastFurnace(cats)
	default:
		cook = process.NewFurnace(cats)
	}
	f := &Furnace{
		base:  b,
		Slots: container.NewSlots(3, cats.Items.MaxStack),
		algo:  cook,
		cook:  cook,
	}
	f.state.Total = cook.TotalTime(f.Slots)
	return f
}

func (f *Furnace) State() process.CookState { return f.state }
func (f *Furnace) Phase() process.Phase     { return f.state.Phase() }

// SetItem resets the cook cycle when the input slot receives a different item.
func (f *Furnace) SetItem(slot int, s item.Stack) {
	prev := f.Slots.Item(slot)
	same := !s.IsEmpty() && item.SameItemAndData(prev, s)
	f.Slots.SetItem(slot, s)
	if slot == process.SlotInput && !same {
		f.state.Total = f.cook.TotalTime(f.Slots)
		f.state.Progress = 0
	}
}

func (f *Furnace) CanPlaceItem(slot int, s item.Stack) bool {
	switch slot {
	case process.SlotResult:
		return false
	case process.SlotFuel:
		fuel := f.Slots.Item(process.SlotFuel)
		return f.deps.Cats.Fuels.IsFuel(s.Item) || (s.Is("BUCKET") && !fuel.Is("BUCKET"))
	default:
		return true
	}
}

func (f *Furnace) SlotsForFace(face geom.Face) []int {
	switch face {
	case geom.Down:
		return furnaceDown
	case geom.Up:
		return furnaceUp
	default:
		return furnaceSides
	}
}

func (f *Furnace) CanPlaceItemThroughFace(slot int, s item.Stack, _ geom.Face) bool {
	return f.CanPlaceItem(slot, s)
}

// CanTakeItemThroughFace only lets buckets out of the bottom of the fuel slot.
func (f *Furnace) CanTakeItemThroughFace(slot int, s item.Stack, face geom.Face) bool {
	if face == geom.Down && slot == process.SlotFuel {
		return s.Is("WATER_BUCKET") || s.Is("BUCKET")
	}
	return true
}

func (f *Furnace) ServerTick(lv Level, now uint64) {
	out := f.algo.Advance(&f.state, f.Slots, 1)
	if out.ActiveChanged {
		lv.SetBlockState(f.pos, "lit", boolString(f.state.Lit()))
	}
	if out.Changed {
		f.SetChanged()
	}
}

// ClaimExperience returns and clears the experience of completed recipes.
func (f *Furnace) ClaimExperience() float64 {
	xp := f.cook.Experience(&f.state)
	f.state.RecipesUsed = nil
	return xp
}

func (f *Furnace) Drain() []item.Stack { return container.Drain(f.Slots) }

func (f *Furnace) Save() tag.Compound {
	t := tag.Compound{}
	f.saveBase(t)
	f.saveSlots(t, f.Slots)
	t.PutInt("BurnTime", int64(f.state.LitTime))
	t.PutInt("BurnDuration", int64(f.state.LitDuration))
	t.PutInt("CookTime", int64(f.state.Progress))
	t.PutInt("CookTimeTotal", int64(f.state.Total))
	used := tag.Compound{}
	ids := make([]string, 0, len(f.state.RecipesUsed))
	for id := range f.state.RecipesUsed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		used.PutInt(id, int64(f.state.RecipesUsed[id]))
	}
	t.PutCompound("RecipesUsed", used)
	return t
}

func (f *Furnace) Load(t tag.Compound) {
	f.loadBase(t)
	f.loadSlots(t, f.Slots)
	f.state.LitTime = t.IntOr("BurnTime", 0)
	f.state.LitDuration = t.IntOr("BurnDuration", 0)
	f.state.Progress = t.IntOr("CookTime", 0)
	f.state.Total = t.IntOr("CookTimeTotal", f.cook.TotalTime(f.Slots))
	f.state.RecipesUsed = nil
	used, _ := t.GetCompound("RecipesUsed")
	for id, v := range used {
		if _, ok := f.deps.Cats.Recipes.ByID[id]; !ok || v.Kind != tag.KindInt {
			f.log.Warn("dropping unknown recipe from saved furnace", zap.String("recipe", id))
			continue
		}
		if f.state.RecipesUsed == nil {
			f.state.RecipesUsed = map[string]int{}
		}
		f.state.RecipesUsed[id] = int(v.Int)
	}
}
