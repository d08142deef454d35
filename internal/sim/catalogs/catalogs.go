package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrUnknownItem is returned when a catalog entry or a lookup names an item
// that items.json does not define.
var ErrUnknownItem = errors.New("unknown item")

const DefaultMaxStack = 64

type Catalogs struct {
	Items   ItemCatalog
	Fuels   FuelCatalog
	Recipes RecipeCatalog
	Brewing BrewingCatalog
	Blocks  BlockCatalog
	Effects EffectCatalog
}

type ItemCatalog struct {
	Defs   map[string]ItemDef
	Digest string
}

type ItemDef struct {
	ID        string   `json:"id"`
	MaxStack  int      `json:"max_stack,omitempty"`
	Remainder string   `json:"remainder,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

type FuelCatalog struct {
	BurnTicks map[string]int
	Digest    string
}

type FuelDef struct {
	Item      string `json:"item"`
	BurnTicks int    `json:"burn_ticks"`
}

type RecipeCatalog struct {
	ByID   map[string]RecipeDef
	Digest string

	byInput map[string]map[string]RecipeDef
}

const (
	RecipeSmelting = "SMELTING"
	RecipeSmoking  = "SMOKING"
	RecipeBlasting = "BLASTING"
	RecipeCampfire = "CAMPFIRE"
)

type RecipeDef struct {
	RecipeID  string  `json:"recipe_id"`
	Type      string  `json:"type"`
	Input     string  `json:"input"`
	Output    string  `json:"output"`
	Count     int     `json:"count,omitempty"`
	CookTicks int     `json:"cook_ticks,omitempty"`
	XP        float64 `json:"xp,omitempty"`
}

type BrewingCatalog struct {
	FuelItem       string `json:"fuel_item"`
	FuelCharges    int    `json:"fuel_charges"`
	BrewTicks      int    `json:"brew_ticks"`
	ContainerMixes []Mix  `json:"container_mixes"`
	PotionMixes    []Mix  `json:"potion_mixes"`
	Digest         string `json:"-"`

	ingredients map[string]bool
}

// Mix turns From into To when brewed with Ingredient. For container mixes
// From/To are item ids; for potion mixes they are potion ids.
type Mix struct {
	From       string `json:"from"`
	Ingredient string `json:"ingredient"`
	To         string `json:"to"`
}

type BlockCatalog struct {
	Defs   map[string]BlockDef
	Digest string
}

type BlockDef struct {
	ID           string `json:"id"`
	Opaque       bool   `json:"opaque,omitempty"`
	Water        bool   `json:"water,omitempty"`
	BeaconBase   bool   `json:"beacon_base,omitempty"`
	ConduitFrame bool   `json:"conduit_frame,omitempty"`
	BeamColor    []int  `json:"beam_color,omitempty"`
	Device       string `json:"device,omitempty"`
}

type EffectCatalog struct {
	BeaconTiers   [][]string `json:"beacon_tiers"`
	ConduitEffect string     `json:"conduit_effect"`
	Digest        string     `json:"-"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadFuels(filepath.Join(configDir, "fuels.json"), &c.Items, &c.Fuels); err != nil {
		return nil, err
	}
	if err := loadRecipes(filepath.Join(configDir, "recipes.json"), &c.Items, &c.Recipes); err != nil {
		return nil, err
	}
	if err := loadBrewing(filepath.Join(configDir, "brewing.json"), &c.Items, &c.Brewing); err != nil {
		return nil, err
	}
	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadEffects(filepath.Join(configDir, "effects.json"), &c.Effects); err != nil {
		return nil, err
	}

	return &c, nil
}

// Digests returns file name -> sha256 of the raw catalog file.
func (c *Catalogs) Digests() map[string]string {
	return map[string]string{
		"items.json":   c.Items.Digest,
		"fuels.json":   c.Fuels.Digest,
		"recipes.json": c.Recipes.Digest,
		"brewing.json": c.Brewing.Digest,
		"blocks.json":  c.Blocks.Digest,
		"effects.json": c.Effects.Digest,
	}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// readValidated reads a catalog file and checks it against its embedded schema.
func readValidated(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	if err := validate(name, raw); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return raw, nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := readValidated(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %s", d.ID)
		}
		if d.MaxStack <= 0 {
			d.MaxStack = DefaultMaxStack
		}
		out.Defs[d.ID] = d
	}
	for _, d := range defs {
		if d.Remainder != "" {
			if _, ok := out.Defs[d.Remainder]; !ok {
				return fmt.Errorf("items.json: %s remainder %s: %w", d.ID, d.Remainder, ErrUnknownItem)
			}
		}
	}
	return nil
}

func loadFuels(path string, items *ItemCatalog, out *FuelCatalog) error {
	raw, err := readValidated(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []FuelDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("fuels.json: %w", err)
	}
	out.BurnTicks = map[string]int{}
	for _, d := range defs {
		if err := items.Check(d.Item); err != nil {
			return fmt.Errorf("fuels.json: %w", err)
		}
		out.BurnTicks[d.Item] = d.BurnTicks
	}
	return nil
}

func loadRecipes(path string, items *ItemCatalog, out *RecipeCatalog) error {
	raw, err := readValidated(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.ByID = map[string]RecipeDef{}
	out.byInput = map[string]map[string]RecipeDef{}
	for _, r := range defs {
		if r.RecipeID == "" {
			return fmt.Errorf("recipes.json: empty recipe_id")
		}
		if err := items.Check(r.Input); err != nil {
			return fmt.Errorf("recipes.json: %s: %w", r.RecipeID, err)
		}
		if err := items.Check(r.Output); err != nil {
			return fmt.Errorf("recipes.json: %s: %w", r.RecipeID, err)
		}
		if r.Count <= 0 {
			r.Count = 1
		}
		if r.CookTicks <= 0 {
			r.CookTicks = DefaultCookTicks(r.Type)
		}
		byType := out.byInput[r.Type]
		if byType == nil {
			byType = map[string]RecipeDef{}
			out.byInput[r.Type] = byType
		}
		// First definition wins for a given input.
		if _, dup := byType[r.Input]; !dup {
			byType[r.Input] = r
		}
		out.ByID[r.RecipeID] = r
	}
	return nil
}

func loadBrewing(path string, items *ItemCatalog, out *BrewingCatalog) error {
	raw, err := readValidated(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("brewing.json: %w", err)
	}
	out.Digest = sha256Hex(raw)
	if out.FuelCharges <= 0 {
		out.FuelCharges = 20
	}
	if out.BrewTicks <= 0 {
		out.BrewTicks = 400
	}
	if err := items.Check(out.FuelItem); err != nil {
		return fmt.Errorf("brewing.json: fuel: %w", err)
	}
	out.ingredients = map[string]bool{}
	for _, m := range out.ContainerMixes {
		for _, id := range []string{m.From, m.Ingredient, m.To} {
			if err := items.Check(id); err != nil {
				return fmt.Errorf("brewing.json: container mix: %w", err)
			}
		}
		out.ingredients[m.Ingredient] = true
	}
	for _, m := range out.PotionMixes {
		if err := items.Check(m.Ingredient); err != nil {
			return fmt.Errorf("brewing.json: potion mix: %w", err)
		}
		out.ingredients[m.Ingredient] = true
	}
	return nil
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := readValidated(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		out.Defs[d.ID] = d
	}
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	return nil
}

func loadEffects(path string, out *EffectCatalog) error {
	raw, err := readValidated(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("effects.json: %w", err)
	}
	out.Digest = sha256Hex(raw)
	return nil
}

// DefaultCookTicks is the cook time used when a recipe leaves it unset.
func DefaultCookTicks(recipeType string) int {
	switch recipeType {
	case RecipeSmoking, RecipeBlasting:
		return 100
	case RecipeCampfire:
		return 600
	default:
		return 200
	}
}

// Check returns ErrUnknownItem (wrapped with the id) when id is not defined.
func (c *ItemCatalog) Check(id string) error {
	if _, ok := c.Defs[id]; !ok {
		return fmt.Errorf("%q: %w", id, ErrUnknownItem)
	}
	return nil
}

func (c *ItemCatalog) Known(id string) bool {
	_, ok := c.Defs[id]
	return ok
}

// MaxStack returns the per-slot limit for id; unknown items get DefaultMaxStack.
func (c *ItemCatalog) MaxStack(id string) int {
	if d, ok := c.Defs[id]; ok && d.MaxStack > 0 {
		return d.MaxStack
	}
	return DefaultMaxStack
}

// Remainder is the item left behind when id is consumed ("" for none).
func (c *ItemCatalog) Remainder(id string) string {
	return c.Defs[id].Remainder
}

func (c *ItemCatalog) HasTag(id, tag string) bool {
	for _, t := range c.Defs[id].Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// IDs returns every item id in sorted order.
func (c *ItemCatalog) IDs() []string {
	ids := make([]string, 0, len(c.Defs))
	for id := range c.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *FuelCatalog) IsFuel(id string) bool { return c.BurnTicks[id] > 0 }

func (c *FuelCatalog) BurnTime(id string) int { return c.BurnTicks[id] }

// Find returns the recipe of the given type whose input is id.
func (c *RecipeCatalog) Find(recipeType, id string) (RecipeDef, bool) {
	r, ok := c.byInput[recipeType][id]
	return r, ok
}
