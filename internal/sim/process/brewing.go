package process

import (
	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/item"
)

// Brewing stand slot layout: three bottles, the ingredient, blaze powder.
const (
	SlotBottle0    = 0
	SlotBottle2    = 2
	SlotIngredient = 3
	SlotBrewFuel   = 4
)

// BrewState is the persisted state of a brewing stand.
type BrewState struct {
	BrewTime int
	Fuel     int
	// Ingredient is the ingredient item present when brewing started.
	Ingredient string
}

func (s BrewState) Brewing() bool { return s.BrewTime > 0 }

type Brewing struct {
	Cats *catalogs.Catalogs
}

func (b Brewing) CanProcess(st *BrewState, inv container.Container) bool {
	ing := inv.Item(SlotIngredient)
	if ing.IsEmpty() || !b.Cats.Brewing.IsIngredient(ing.Item) {
		return false
	}
	for i := SlotBottle0; i <= SlotBottle2; i++ {
		if b.Cats.Brewing.HasMix(inv.Item(i), ing.Item) {
			return true
		}
	}
	return false
}

func (b Brewing) Advance(st *BrewState, inv container.Container, deltaTicks int) Outcome {
	var out Outcome
	for i := 0; i < deltaTicks; i++ {
		out.merge(b.tick(st, inv))
	}
	return out
}

func (b Brewing) tick(st *BrewState, inv container.Container) Outcome {
	var out Outcome
	cat := &b.Cats.Brewing

	if fuel := inv.Item(SlotBrewFuel); st.Fuel <= 0 && fuel.Is(cat.FuelItem) {
		st.Fuel = cat.FuelCharges
		fuel.Shrink(1)
		inv.SetItem(SlotBrewFuel, fuel)
		out.Changed = true
	}

	wasBrewing := st.Brewing()
	brewable := b.CanProcess(st, inv)
	ing := inv.Item(SlotIngredient)

	switch {
	case wasBrewing:
		st.BrewTime--
		out.Progressed = true
		done := st.BrewTime == 0
		if done && brewable {
			out.Drops = b.brew(inv)
			out.Done = true
			out.Changed = true
		} else if !brewable || !ing.Is(st.Ingredient) {
			st.BrewTime = 0
			out.Changed = true
		}
	case brewable && st.Fuel > 0:
		st.Fuel--
		st.BrewTime = cat.BrewTicks
		st.Ingredient = ing.Item
		out.Changed = true
	}

	if wasBrewing != st.Brewing() {
		out.ActiveChanged = true
	}
	return out
}

// brew mixes every bottle and consumes one ingredient. A remainder that does
// not fit back in the ingredient slot is returned for dropping.
func (b Brewing) brew(inv container.Container) []item.Stack {
	ing := inv.Item(SlotIngredient)
	for i := SlotBottle0; i <= SlotBottle2; i++ {
		if s := inv.Item(i); !s.IsEmpty() {
			inv.SetItem(i, b.Cats.Brewing.Mix(ing.Item, s))
		}
	}
	id := ing.Item
	ing.Shrink(1)
	var drops []item.Stack
	if rem := b.Cats.Items.Remainder(id); rem != "" {
		if ing.IsEmpty() {
			ing = item.Of(rem, 1)
		} else {
			drops = append(drops, item.Of(rem, 1))
		}
	}
	inv.SetItem(SlotIngredient, ing)
	return drops
}

// BottleBits reports which bottle slots are occupied.
func BottleBits(inv container.Container) [3]bool {
	var bits [3]bool
	for i := range bits {
		bits[i] = !inv.Item(SlotBottle0 + i).IsEmpty()
	}
	return bits
}
