package catalogs

// Item tags used by devices.
const (
	TagBeaconPayment = "BEACON_PAYMENT"
	TagBrewingBottle = "BREWING_BOTTLE"
	TagCampfireFood  = "CAMPFIRE_FOOD"
)

const Air = "AIR"

// Def returns the block definition; "" and unknown ids read as AIR.
func (c *BlockCatalog) Def(id string) BlockDef {
	if id == "" {
		id = Air
	}
	if d, ok := c.Defs[id]; ok {
		return d
	}
	return BlockDef{ID: id}
}

func (c *BlockCatalog) Known(id string) bool {
	_, ok := c.Defs[id]
	return ok
}

func (c *BlockCatalog) IsOpaque(id string) bool       { return c.Def(id).Opaque }
func (c *BlockCatalog) IsWater(id string) bool        { return c.Def(id).Water }
func (c *BlockCatalog) IsBeaconBase(id string) bool   { return c.Def(id).BeaconBase }
func (c *BlockCatalog) IsConduitFrame(id string) bool { return c.Def(id).ConduitFrame }
func (c *BlockCatalog) DeviceKind(id string) string   { return c.Def(id).Device }

// BeamColor returns the RGB tint a block adds to a beacon beam.
func (c *BlockCatalog) BeamColor(id string) ([3]int, bool) {
	d := c.Def(id)
	if len(d.BeamColor) != 3 {
		return [3]int{}, false
	}
	return [3]int{d.BeamColor[0], d.BeamColor[1], d.BeamColor[2]}, true
}

// BeaconTier returns the 1-based pyramid tier that unlocks effect, or 0 when
// no tier offers it.
func (c *EffectCatalog) BeaconTier(effect string) int {
	for i, tier := range c.BeaconTiers {
		for _, e := range tier {
			if e == effect {
				return i + 1
			}
		}
	}
	return 0
}
