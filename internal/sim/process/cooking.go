package process

import (
	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/item"
)

// Furnace-like slot layout.
const (
	SlotInput  = 0
	SlotFuel   = 1
	SlotResult = 2
)

// CookState is the persisted state of a furnace, smoker or blast furnace.
type CookState struct {
	LitTime     int
	LitDuration int
	Progress    int
	Total       int
	// RecipesUsed counts completed cycles per recipe id for experience.
	RecipesUsed map[string]int
}

func (s CookState) Lit() bool { return s.LitTime > 0 }

func (s CookState) Phase() Phase {
	switch {
	case s.Lit():
		return Lit
	case s.Progress > 0:
		return Cooling
	default:
		return Unlit
	}
}

// Cooking is the furnace rule. Smokers and blast furnaces use their own
// recipe type and burn fuel twice as fast.
type Cooking struct {
	Cats        *catalogs.Catalogs
	RecipeType  string
	FuelDivisor int
}

func NewFurnace(c *catalogs.Catalogs) Cooking {
	return Cooking{Cats: c, RecipeType: catalogs.RecipeSmelting, FuelDivisor: 1}
}

func NewSmoker(c *catalogs.Catalogs) Cooking {
	return Cooking{Cats: c, RecipeType: catalogs.RecipeSmoking, FuelDivisor: 2}
}

func NewBlastFurnace(c *catalogs.Catalogs) Cooking {
	return Cooking{Cats: c, RecipeType: catalogs.RecipeBlasting, FuelDivisor: 2}
}

// BurnDuration is how long one unit of fuel keeps this device lit.
func (c Cooking) BurnDuration(fuel item.Stack) int {
	if fuel.IsEmpty() {
		return 0
	}
	d := c.FuelDivisor
	if d <= 0 {
		d = 1
	}
	return c.Cats.Fuels.BurnTime(fuel.Item) / d
}

// TotalTime is the cook time of the recipe matching the input slot, or the
// default for this recipe type.
func (c Cooking) TotalTime(inv container.Container) int {
	if r, ok := c.recipe(inv); ok {
		return r.CookTicks
	}
	return catalogs.DefaultCookTicks(c.RecipeType)
}

func (c Cooking) recipe(inv container.Container) (catalogs.RecipeDef, bool) {
	in := inv.Item(SlotInput)
	if in.IsEmpty() {
		return catalogs.RecipeDef{}, false
	}
	return c.Cats.Recipes.Find(c.RecipeType, in.Item)
}

func (c Cooking) canBurn(r catalogs.RecipeDef, ok bool, inv container.Container) bool {
	if !ok || inv.Item(SlotInput).IsEmpty() {
		return false
	}
	result := item.Of(r.Output, r.Count)
	if result.IsEmpty() {
		return false
	}
	out := inv.Item(SlotResult)
	if out.IsEmpty() {
		return true
	}
	if !item.SameItemAndData(out, result) {
		return false
	}
	return out.Count+result.Count <= inv.MaxStackFor(out)
}

func (c Cooking) CanProcess(st *CookState, inv container.Container) bool {
	r, ok := c.recipe(inv)
	return c.canBurn(r, ok, inv)
}

// Advance runs deltaTicks furnace ticks.
func (c Cooking) Advance(st *CookState, inv container.Container, deltaTicks int) Outcome {
	var out Outcome
	for i := 0; i < deltaTicks; i++ {
		out.merge(c.tick(st, inv))
	}
	return out
}

func (c Cooking) tick(st *CookState, inv container.Container) Outcome {
	var out Outcome
	wasLit := st.Lit()
	if st.Lit() {
		st.LitTime--
	}
	fuel := inv.Item(SlotFuel)
	hasInput := !inv.Item(SlotInput).IsEmpty()
	hasFuel := !fuel.IsEmpty()

	if st.Lit() || (hasFuel && hasInput) {
		r, ok := c.recipe(inv)
		if !st.Lit() && c.canBurn(r, ok, inv) {
			st.LitTime = c.BurnDuration(fuel)
			st.LitDuration = st.LitTime
			if st.Lit() {
				out.Changed = true
				if hasFuel {
					c.consumeFuel(inv, fuel)
				}
			}
		}
		if st.Lit() && c.canBurn(r, ok, inv) {
			if st.Total <= 0 {
				st.Total = c.TotalTime(inv)
			}
			st.Progress++
			out.Progressed = true
			if st.Progress >= st.Total {
				st.Progress = 0
				if c.burn(r, inv) {
					if st.RecipesUsed == nil {
						st.RecipesUsed = map[string]int{}
					}
					st.RecipesUsed[r.RecipeID]++
					out.Done = true
				}
				st.Total = c.TotalTime(inv)
				out.Changed = true
			}
		} else if st.Progress != 0 {
			st.Progress = 0
			out.Changed = true
		}
	} else if st.Progress > 0 {
		st.Progress = decay(st.Progress, st.Total)
		out.Changed = true
	}

	if wasLit != st.Lit() {
		out.ActiveChanged = true
		out.Changed = true
	}
	return out
}

// consumeFuel takes one unit of fuel; an emptied slot receives the fuel's
// remainder item (a lava bucket leaves a bucket).
func (c Cooking) consumeFuel(inv container.Container, fuel item.Stack) {
	id := fuel.Item
	fuel.Shrink(1)
	if fuel.IsEmpty() {
		fuel = item.Of(c.Cats.Items.Remainder(id), 1)
	}
	inv.SetItem(SlotFuel, fuel)
}

func (c Cooking) burn(r catalogs.RecipeDef, inv container.Container) bool {
	if !c.canBurn(r, true, inv) {
		return false
	}
	in := inv.Item(SlotInput)
	result := item.Of(r.Output, r.Count)
	out := inv.Item(SlotResult)
	if out.IsEmpty() {
		out = result
	} else {
		out.Grow(result.Count)
	}
	inv.SetItem(SlotResult, out)

	if in.Is("WET_SPONGE") && inv.Item(SlotFuel).Is("BUCKET") {
		inv.SetItem(SlotFuel, item.Of("WATER_BUCKET", 1))
	}
	in.Shrink(1)
	inv.SetItem(SlotInput, in)
	return true
}

// Experience sums the experience of every recorded recipe use.
func (c Cooking) Experience(st *CookState) float64 {
	total := 0.0
	for id, n := range st.RecipesUsed {
		total += c.Cats.Recipes.ByID[id].XP * float64(n)
	}
	return total
}
