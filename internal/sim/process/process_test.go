package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/item"
)

func testCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	require.NoError(t, err)
	return cats
}

func furnaceSlots(cats *catalogs.Catalogs) *container.Slots {
	return container.NewSlots(3, cats.Items.MaxStack)
}

func TestCooking_199of200ProducesAndResets(t *testing.T) {
	cats := testCatalogs(t)
	c := NewFurnace(cats)
	inv := furnaceSlots(cats)
	inv.SetItem(SlotInput, item.Of("IRON_ORE", 2))
	inv.SetItem(SlotFuel, item.Of("COAL", 1))
	st := &CookState{LitTime: 50, LitDuration: 1600, Progress: 199, Total: 200}

	out := c.Advance(st, inv, 1)
	assert.True(t, out.Done)
	assert.Equal(t, 0, st.Progress)
	assert.Equal(t, 200, st.Total)
	assert.Equal(t, 49, st.LitTime)
	assert.Equal(t, item.Of("IRON_INGOT", 1), inv.Item(SlotResult))
	assert.Equal(t, 1, inv.Item(SlotInput).Count)
	assert.Equal(t, 1, inv.Item(SlotFuel).Count, "still lit, no new fuel consumed")
	assert.Equal(t, 1, st.RecipesUsed["iron_ingot_from_ore"])
}

func TestCooking_IgnitesAndCompletesCycle(t *testing.T) {
	cats := testCatalogs(t)
	c := NewFurnace(cats)
	inv := furnaceSlots(cats)
	inv.SetItem(SlotInput, item.Of("SAND", 1))
	inv.SetItem(SlotFuel, item.Of("COAL", 2))
	st := &CookState{Total: c.TotalTime(inv)}

	out := c.Advance(st, inv, 1)
	assert.True(t, out.ActiveChanged)
	assert.Equal(t, Lit, st.Phase())
	assert.Equal(t, 1600, st.LitDuration)
	assert.Equal(t, 1, inv.Item(SlotFuel).Count)
	assert.Equal(t, 1, st.Progress)

	for i := 0; i < 300; i++ {
		c.Advance(st, inv, 1)
		assert.LessOrEqual(t, st.Progress, st.Total)
	}
	assert.Equal(t, item.Of("GLASS", 1), inv.Item(SlotResult))
	assert.True(t, inv.Item(SlotInput).IsEmpty())
	assert.Equal(t, 0, st.Progress)
	assert.Equal(t, 1, inv.Item(SlotFuel).Count)
	assert.InDelta(t, 0.1, c.Experience(st), 1e-9)
}

func TestCooking_CoolingDecay(t *testing.T) {
	cats := testCatalogs(t)
	c := NewFurnace(cats)
	inv := furnaceSlots(cats)
	inv.SetItem(SlotInput, item.Of("IRON_ORE", 1))
	st := &CookState{Progress: 7, Total: 200}

	assert.Equal(t, Cooling, st.Phase())
	want := []int{5, 3, 1, 0, 0}
	for _, w := range want {
		c.Advance(st, inv, 1)
		assert.Equal(t, w, st.Progress)
	}
	assert.Equal(t, Unlit, st.Phase())
}

func TestCooking_LitButBlockedResetsProgress(t *testing.T) {
	cats := testCatalogs(t)
	c := NewFurnace(cats)
	inv := furnaceSlots(cats)
	inv.SetItem(SlotInput, item.Of("IRON_ORE", 1))
	inv.SetItem(SlotResult, item.Of("STONE", 64))
	st := &CookState{LitTime: 100, LitDuration: 1600, Progress: 40, Total: 200}

	assert.False(t, c.CanProcess(st, inv))
	c.Advance(st, inv, 1)
	assert.Equal(t, 0, st.Progress)
	assert.Equal(t, 99, st.LitTime)
}

func TestCooking_LavaBucketLeavesBucket(t *testing.T) {
	cats := testCatalogs(t)
	c := NewFurnace(cats)
	inv := furnaceSlots(cats)
	inv.SetItem(SlotInput, item.Of("COBBLESTONE", 1))
	inv.SetItem(SlotFuel, item.Of("LAVA_BUCKET", 1))
	st := &CookState{Total: 200}

	c.Advance(st, inv, 1)
	assert.Equal(t, 20000, st.LitDuration)
	assert.Equal(t, item.Of("BUCKET", 1), inv.Item(SlotFuel))
}

func TestCooking_WetSpongeFillsBucket(t *testing.T) {
	cats := testCatalogs(t)
	c := NewFurnace(cats)
	inv := furnaceSlots(cats)
	inv.SetItem(SlotInput, item.Of("WET_SPONGE", 1))
	inv.SetItem(SlotFuel, item.Of("BUCKET", 1))
	st := &CookState{LitTime: 10, LitDuration: 100, Progress: 199, Total: 200}

	out := c.Advance(st, inv, 1)
	require.True(t, out.Done)
	assert.Equal(t, item.Of("SPONGE", 1), inv.Item(SlotResult))
	assert.Equal(t, item.Of("WATER_BUCKET", 1), inv.Item(SlotFuel))
}

func TestCooking_SmokerHalvesBurnTime(t *testing.T) {
	cats := testCatalogs(t)
	assert.Equal(t, 800, NewSmoker(cats).BurnDuration(item.Of("COAL", 1)))
	assert.Equal(t, 800, NewBlastFurnace(cats).BurnDuration(item.Of("COAL", 1)))
	assert.Equal(t, 1600, NewFurnace(cats).BurnDuration(item.Of("COAL", 1)))

	inv := furnaceSlots(cats)
	inv.SetItem(SlotInput, item.Of("BEEF", 1))
	assert.Equal(t, 100, NewSmoker(cats).TotalTime(inv))
	assert.Equal(t, 200, NewFurnace(cats).TotalTime(inv))
	assert.Equal(t, 100, NewBlastFurnace(cats).TotalTime(inv), "no blasting recipe falls back to the type default")
}

func TestCooking_NoRecipeDoesNotIgnite(t *testing.T) {
	cats := testCatalogs(t)
	c := NewFurnace(cats)
	inv := furnaceSlots(cats)
	inv.SetItem(SlotInput, item.Of("STICK", 1))
	inv.SetItem(SlotFuel, item.Of("COAL", 1))
	st := &CookState{Total: 200}

	out := c.Advance(st, inv, 10)
	assert.False(t, st.Lit())
	assert.False(t, out.ActiveChanged)
	assert.Equal(t, 1, inv.Item(SlotFuel).Count)
}

func brewSlots() *container.Slots { return container.NewSlots(5, nil) }

func water() item.Stack { return item.Stack{Item: "POTION", Count: 1, Potion: "WATER"} }

func TestBrewing_FullCycle(t *testing.T) {
	cats := testCatalogs(t)
	b := Brewing{Cats: cats}
	inv := brewSlots()
	inv.SetItem(0, water())
	inv.SetItem(2, water())
	inv.SetItem(SlotIngredient, item.Of("NETHER_WART", 2))
	inv.SetItem(SlotBrewFuel, item.Of("BLAZE_POWDER", 1))
	st := &BrewState{}

	out := b.Advance(st, inv, 1)
	assert.True(t, out.ActiveChanged)
	assert.Equal(t, 19, st.Fuel)
	assert.Equal(t, 400, st.BrewTime)
	assert.Equal(t, "NETHER_WART", st.Ingredient)
	assert.True(t, inv.Item(SlotBrewFuel).IsEmpty())

	out = b.Advance(st, inv, 399)
	assert.False(t, out.Done)
	assert.Equal(t, 1, st.BrewTime)

	out = b.Advance(st, inv, 1)
	assert.True(t, out.Done)
	assert.Equal(t, "AWKWARD", inv.Item(0).Potion)
	assert.True(t, inv.Item(1).IsEmpty())
	assert.Equal(t, "AWKWARD", inv.Item(2).Potion)
	assert.Equal(t, 1, inv.Item(SlotIngredient).Count)
	assert.Equal(t, [3]bool{true, false, true}, BottleBits(inv))
}

func TestBrewing_IngredientChangeAborts(t *testing.T) {
	cats := testCatalogs(t)
	b := Brewing{Cats: cats}
	inv := brewSlots()
	inv.SetItem(0, item.Stack{Item: "POTION", Count: 1, Potion: "AWKWARD"})
	inv.SetItem(SlotIngredient, item.Of("SUGAR", 1))
	st := &BrewState{Fuel: 5}

	b.Advance(st, inv, 10)
	require.Equal(t, 391, st.BrewTime)

	inv.SetItem(SlotIngredient, item.Of("MAGMA_CREAM", 1))
	b.Advance(st, inv, 1)
	assert.Equal(t, 0, st.BrewTime)
	assert.Equal(t, "AWKWARD", inv.Item(0).Potion)

	b.Advance(st, inv, 1)
	assert.Equal(t, 400, st.BrewTime, "restarts with the new ingredient")
	assert.Equal(t, "MAGMA_CREAM", st.Ingredient)
	assert.Equal(t, 3, st.Fuel)
}

func TestBrewing_RemovedBottleAborts(t *testing.T) {
	cats := testCatalogs(t)
	b := Brewing{Cats: cats}
	inv := brewSlots()
	inv.SetItem(1, water())
	inv.SetItem(SlotIngredient, item.Of("NETHER_WART", 1))
	st := &BrewState{Fuel: 1}

	b.Advance(st, inv, 5)
	inv.SetItem(1, item.Empty)
	out := b.Advance(st, inv, 1)
	assert.True(t, out.ActiveChanged)
	assert.Equal(t, 0, st.BrewTime)
	assert.Equal(t, 0, st.Fuel)
}

func TestBrewing_RemainderReplacesEmptiedIngredient(t *testing.T) {
	cats := testCatalogs(t)
	b := Brewing{Cats: cats}
	inv := brewSlots()
	inv.SetItem(0, item.Stack{Item: "SPLASH_POTION", Count: 1, Potion: "AWKWARD"})
	inv.SetItem(SlotIngredient, item.Of("DRAGON_BREATH", 1))
	st := &BrewState{Fuel: 1}

	b.Advance(st, inv, 401)
	assert.Equal(t, "LINGERING_POTION", inv.Item(0).Item)
	assert.Equal(t, item.Of("GLASS_BOTTLE", 1), inv.Item(SlotIngredient))

	inv.SetItem(0, item.Stack{Item: "SPLASH_POTION", Count: 1, Potion: "AWKWARD"})
	inv.SetItem(SlotIngredient, item.Of("DRAGON_BREATH", 2))
	st.Fuel = 1
	out := b.Advance(st, inv, 401)
	assert.Equal(t, []item.Stack{item.Of("GLASS_BOTTLE", 1)}, out.Drops)
	assert.Equal(t, item.Of("DRAGON_BREATH", 1), inv.Item(SlotIngredient))
}

func TestCampfire_CooksAndDrops(t *testing.T) {
	cats := testCatalogs(t)
	c := Campfire{Cats: cats}
	inv := container.NewSlots(CampfireSlots, nil)
	st := &CampfireState{Lit: true}

	food := item.Of("BEEF", 2)
	require.True(t, c.Place(st, inv, &food))
	require.True(t, c.Place(st, inv, &food))
	assert.True(t, food.IsEmpty())
	stick := item.Of("STICK", 1)
	assert.False(t, c.Place(st, inv, &stick))

	out := c.Advance(st, inv, 599)
	assert.Empty(t, out.Drops)
	out = c.Advance(st, inv, 1)
	assert.Equal(t, []item.Stack{item.Of("COOKED_BEEF", 1), item.Of("COOKED_BEEF", 1)}, out.Drops)
	assert.True(t, inv.IsEmpty())
}

func TestCampfire_UnlitDecay(t *testing.T) {
	cats := testCatalogs(t)
	c := Campfire{Cats: cats}
	inv := container.NewSlots(CampfireSlots, nil)
	st := &CampfireState{Lit: true}
	food := item.Of("POTATO", 1)
	require.True(t, c.Place(st, inv, &food))

	c.Advance(st, inv, 5)
	st.Lit = false
	c.Advance(st, inv, 1)
	assert.Equal(t, 3, st.Progress[0])
	c.Advance(st, inv, 2)
	assert.Equal(t, 0, st.Progress[0])
	assert.False(t, inv.IsEmpty())
}
