package catalogs

import "tickcraft.ai/internal/sim/item"

// IsIngredient reports whether id appears as the ingredient of any mix.
func (c *BrewingCatalog) IsIngredient(id string) bool { return c.ingredients[id] }

// HasMix reports whether brewing ingredient into bottle changes it.
func (c *BrewingCatalog) HasMix(bottle item.Stack, ingredient string) bool {
	if bottle.IsEmpty() {
		return false
	}
	for _, m := range c.ContainerMixes {
		if m.From == bottle.Item && m.Ingredient == ingredient {
			return true
		}
	}
	for _, m := range c.PotionMixes {
		if m.From == bottle.Potion && m.Ingredient == ingredient {
			return true
		}
	}
	return false
}

// Mix returns the brewed form of bottle. Container mixes (item changes,
// potion kept) take precedence over potion mixes (item kept, potion changes).
// A bottle with no matching mix is returned unchanged.
func (c *BrewingCatalog) Mix(ingredient string, bottle item.Stack) item.Stack {
	if bottle.IsEmpty() {
		return bottle
	}
	for _, m := range c.ContainerMixes {
		if m.From == bottle.Item && m.Ingredient == ingredient {
			out := bottle
			out.Item = m.To
			return out
		}
	}
	for _, m := range c.PotionMixes {
		if m.From == bottle.Potion && m.Ingredient == ingredient {
			out := bottle
			out.Potion = m.To
			return out
		}
	}
	return bottle
}
