package world

import (
	"math/rand"

	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/device"
)

var _ device.Level = (*World)(nil)

func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }
func (w *World) GameTime() uint64             { return w.tick.Load() }
func (w *World) Rand() *rand.Rand             { return w.rng }
