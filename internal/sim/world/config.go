package world

import "tickcraft.ai/internal/sim/tuning"

type WorldConfig struct {
	ID   string
	Seed int64
	// MinY is the lowest buildable y; the world spans [MinY, MinY+Height).
	MinY int

	// Tuning carries tick rate, day length, height and the device knobs.
	// It is included in snapshots for deterministic replay/resume.
	Tuning tuning.Tuning
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	c.Tuning.ApplyDefaults()
}
