package device

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/entity"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
	"tickcraft.ai/internal/sim/scan"
	"tickcraft.ai/internal/sim/tag"
)

var (
	ErrNoPayment     = errors.New("beacon needs a payment item")
	ErrEffectLocked  = errors.New("effect not available at this pyramid level")
	ErrUnknownEffect = errors.New("unknown beacon effect")
)

// Beacon scans its beam a few blocks per tick and, every check interval,
// recounts its pyramid and refreshes effects on players in range.
type Beacon struct {
	base

	Payment   *container.Slots
	levels    int
	primary   string
	secondary string
	beam      scan.BeamScanner
}

func newBeacon(b base) *Beacon {
	return &Beacon{base: b, Payment: container.NewSlots(1, b.deps.Cats.Items.MaxStack)}
}

func (b *Beacon) Levels() int               { return b.levels }
func (b *Beacon) Effects() (string, string) { return b.primary, b.secondary }
func (b *Beacon) Beam() []scan.Section      { return b.beam.Sections }
func (b *Beacon) Payable(s item.Stack) bool { return b.deps.Cats.Items.HasTag(s.Item, catalogs.TagBeaconPayment) }

func (b *Beacon) ServerTick(lv Level, now uint64) {
	cats := b.deps.Cats
	tu := b.deps.Tuning.Beacon
	surface := lv.SurfaceHeight(b.pos.X, b.pos.Z)
	completed := b.beam.Step(lv, &cats.Blocks, b.pos, surface, tu.BeamBlocksPerTick)

	prev := b.levels
	if now%uint64(tu.CheckEveryTicks) == 0 {
		if len(b.beam.Sections) > 0 {
			b.levels = scan.PyramidLevels(lv, &cats.Blocks, b.pos, lv.MinY())
		}
		if b.levels > 0 && len(b.beam.Sections) > 0 {
			b.applyEffects(lv)
			lv.PlaySound(b.pos, "BEACON_AMBIENT")
		}
	}
	if !completed {
		return
	}
	switch was, is := prev > 0, b.levels > 0; {
	case !was && is:
		lv.PlaySound(b.pos, "BEACON_ACTIVATE")
		lv.BroadcastEvent(b.pos, "BEACON_ACTIVATED", map[string]any{"levels": b.levels})
	case was && !is:
		lv.PlaySound(b.pos, "BEACON_DEACTIVATE")
		lv.BroadcastEvent(b.pos, "BEACON_DEACTIVATED", nil)
	}
}

func (b *Beacon) applyEffects(lv Level) {
	if b.primary == "" {
		return
	}
	amp := 0
	if b.levels >= 4 && b.primary == b.secondary {
		amp = 1
	}
	dur := scan.BeaconDuration(b.levels)
	box := geom.BlockBox(b.pos).Inflate(float64(scan.BeaconRadius(b.levels)))
	box = box.ExpandUp(box.Max.Y + float64(lv.Height()))
	players := lv.PlayersIn(box)
	for _, p := range players {
		p.AddEffect(entity.Effect{ID: b.primary, Amplifier: amp, Duration: dur, Ambient: true})
	}
	if b.levels >= 4 && b.secondary != "" && b.secondary != b.primary {
		for _, p := range players {
			p.AddEffect(entity.Effect{ID: b.secondary, Duration: dur, Ambient: true})
		}
	}
}

// SetEffects consumes one payment item and selects the effects. The
// secondary effect needs a full pyramid and must be the primary effect
// or one from the top tier.
func (b *Beacon) SetEffects(primary, secondary string) error {
	fx := &b.deps.Cats.Effects
	pay := b.Payment.Item(0)
	if pay.IsEmpty() || !b.Payable(pay) {
		return ErrNoPayment
	}
	tier := fx.BeaconTier(primary)
	if tier == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownEffect, primary)
	}
	if tier > b.levels || tier > len(fx.BeaconTiers)-1 {
		return fmt.Errorf("%w: %s", ErrEffectLocked, primary)
	}
	if secondary != "" {
		st := fx.BeaconTier(secondary)
		if st == 0 {
			return fmt.Errorf("%w: %s", ErrUnknownEffect, secondary)
		}
		if b.levels < scan.MaxPyramidLevels || (secondary != primary && st != len(fx.BeaconTiers)) {
			return fmt.Errorf("%w: %s", ErrEffectLocked, secondary)
		}
	}
	b.Payment.RemoveItem(0, 1)
	b.primary, b.secondary = primary, secondary
	return nil
}

func (b *Beacon) Drain() []item.Stack { return container.Drain(b.Payment) }

func (b *Beacon) Save() tag.Compound {
	t := tag.Compound{}
	b.saveBase(t)
	b.saveSlots(t, b.Payment)
	t.PutInt("Levels", int64(b.levels))
	if b.primary != "" {
		t.PutString("Primary", b.primary)
	}
	if b.secondary != "" {
		t.PutString("Secondary", b.secondary)
	}
	return t
}

func (b *Beacon) Load(t tag.Compound) {
	b.loadBase(t)
	b.loadSlots(t, b.Payment)
	b.levels = t.IntOr("Levels", 0)
	b.primary = b.loadEffect(t, "Primary")
	b.secondary = b.loadEffect(t, "Secondary")
}

func (b *Beacon) loadEffect(t tag.Compound, key string) string {
	id, ok := t.GetString(key)
	if !ok {
		return ""
	}
	if b.deps.Cats.Effects.BeaconTier(id) == 0 {
		b.log.Warn("dropping invalid beacon effect", zap.String("key", key), zap.String("effect", id))
		return ""
	}
	return id
}
