package process

import (
	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/item"
)

const CampfireSlots = 4

// CampfireState holds per-slot cook progress. Lit mirrors the block state.
type CampfireState struct {
	Lit      bool
	Progress [CampfireSlots]int
	Total    [CampfireSlots]int
}

type Campfire struct {
	Cats *catalogs.Catalogs
}

func (c Campfire) CanProcess(st *CampfireState, inv container.Container) bool {
	return st.Lit && !inv.IsEmpty()
}

// CookTime is the campfire cook time for s, or 0 when s has no recipe.
func (c Campfire) CookTime(s item.Stack) int {
	if s.IsEmpty() {
		return 0
	}
	r, ok := c.Cats.Recipes.Find(catalogs.RecipeCampfire, s.Item)
	if !ok {
		return 0
	}
	return r.CookTicks
}

// Place puts one unit of food into the first free slot.
func (c Campfire) Place(st *CampfireState, inv container.Container, food *item.Stack) bool {
	total := c.CookTime(*food)
	if total <= 0 {
		return false
	}
	for i := 0; i < CampfireSlots && i < inv.Size(); i++ {
		if inv.Item(i).IsEmpty() {
			st.Total[i] = total
			st.Progress[i] = 0
			inv.SetItem(i, food.Split(1))
			return true
		}
	}
	return false
}

func (c Campfire) Advance(st *CampfireState, inv container.Container, deltaTicks int) Outcome {
	var out Outcome
	for i := 0; i < deltaTicks; i++ {
		if st.Lit {
			out.merge(c.cook(st, inv))
		} else {
			out.merge(c.cool(st))
		}
	}
	return out
}

// cook advances every occupied slot; finished food is removed and returned
// as drops.
func (c Campfire) cook(st *CampfireState, inv container.Container) Outcome {
	var out Outcome
	for i := 0; i < CampfireSlots && i < inv.Size(); i++ {
		s := inv.Item(i)
		if s.IsEmpty() {
			continue
		}
		out.Changed = true
		out.Progressed = true
		st.Progress[i]++
		if st.Progress[i] < st.Total[i] {
			continue
		}
		result := s
		if r, ok := c.Cats.Recipes.Find(catalogs.RecipeCampfire, s.Item); ok {
			result = item.Of(r.Output, r.Count)
		}
		out.Drops = append(out.Drops, result)
		out.Done = true
		inv.SetItem(i, item.Empty)
		st.Progress[i] = 0
	}
	return out
}

func (c Campfire) cool(st *CampfireState) Outcome {
	var out Outcome
	for i := range st.Progress {
		if st.Progress[i] > 0 {
			st.Progress[i] = decay(st.Progress[i], st.Total[i])
			out.Changed = true
		}
	}
	return out
}
