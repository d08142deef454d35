package device

import (
	"tickcraft.ai/internal/sim/entity"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/scan"
	"tickcraft.ai/internal/sim/tag"
)

const conduitDamage = 4.0

// Conduit validates its prismarine frame every check interval. While active
// it grants its effect to players in water or rain, and with a complete frame
// it attacks one hostile mob in range.
type Conduit struct {
	base

	active      bool
	frame       []geom.Pos
	target      string
	nextAmbient uint64
}

func newConduit(b base) *Conduit { return &Conduit{base: b} }

func (c *Conduit) Active() bool   { return c.active }
func (c *Conduit) Hunting() bool  { return c.active && len(c.frame) >= scan.ConduitHuntingFrame }
func (c *Conduit) FrameSize() int { return len(c.frame) }
func (c *Conduit) Target() string { return c.target }

func (c *Conduit) ServerTick(lv Level, now uint64) {
	tu := c.deps.Tuning.Conduit
	if now%uint64(tu.CheckEveryTicks) == 0 {
		c.frame = scan.ConduitShape(lv, &lv.Catalogs().Blocks, c.pos)
		active := len(c.frame) >= scan.ConduitMinFrame
		if active != c.active {
			if active {
				lv.PlaySound(c.pos, "CONDUIT_ACTIVATE")
			} else {
				lv.PlaySound(c.pos, "CONDUIT_DEACTIVATE")
			}
			lv.BroadcastEvent(c.pos, "CONDUIT_STATE", map[string]any{"active": active, "frame": len(c.frame)})
		}
		c.active = active
		if active {
			c.applyEffects(lv)
			c.updateTarget(lv)
		}
	}
	if !c.active {
		return
	}
	if now%80 == 0 {
		lv.PlaySound(c.pos, "CONDUIT_AMBIENT")
	}
	if now > c.nextAmbient {
		c.nextAmbient = now + 60 + uint64(lv.Rand().Intn(40))
		lv.PlaySound(c.pos, "CONDUIT_AMBIENT_SHORT")
	}
}

func (c *Conduit) applyEffects(lv Level) {
	r := scan.ConduitRadius(len(c.frame))
	box := geom.BlockBox(c.pos).Inflate(float64(r))
	box = box.ExpandUp(box.Max.Y + float64(lv.Height()))
	center := c.pos.Center()
	effect := lv.Catalogs().Effects.ConduitEffect
	dur := c.deps.Tuning.Conduit.EffectTicks
	for _, p := range lv.PlayersIn(box) {
		if p.Pos.Block().Center().DistSq(center) >= float64(r*r) || !lv.InWaterOrRain(p.Pos) {
			continue
		}
		p.AddEffect(entity.Effect{ID: effect, Duration: dur, Ambient: true})
	}
}

// updateTarget keeps, drops or picks the hostile mob the conduit attacks and
// damages it once per check.
func (c *Conduit) updateTarget(lv Level) {
	prev := c.target
	center := c.pos.Center()
	const r = scan.ConduitDestroyRadius

	switch {
	case len(c.frame) < scan.ConduitHuntingFrame:
		c.target = ""
	case c.target == "":
		var candidates []*entity.Mob
		for _, m := range lv.MobsIn(geom.BlockBox(c.pos).Inflate(r)) {
			if m.Hostile && m.Alive() && lv.InWaterOrRain(m.Pos) {
				candidates = append(candidates, m)
			}
		}
		if len(candidates) > 0 {
			c.target = candidates[lv.Rand().Intn(len(candidates))].ID
		}
	default:
		m, ok := lv.MobByID(c.target)
		if !ok || !m.Alive() || m.Pos.Block().Center().DistSq(center) >= r*r {
			c.target = ""
		}
	}

	if c.target != "" {
		if m, ok := lv.MobByID(c.target); ok {
			lv.PlaySound(c.pos, "CONDUIT_ATTACK_TARGET")
			m.Hurt(conduitDamage)
			lv.BroadcastEvent(c.pos, "CONDUIT_ATTACK", map[string]any{"target": m.ID, "health": m.Health})
		}
	}
	if prev != c.target {
		lv.BroadcastEvent(c.pos, "CONDUIT_TARGET", map[string]any{"target": c.target})
	}
}

func (c *Conduit) Save() tag.Compound {
	t := tag.Compound{}
	c.saveBase(t)
	if c.target != "" {
		t.PutString("Target", c.target)
	}
	return t
}

func (c *Conduit) Load(t tag.Compound) {
	c.loadBase(t)
	c.target = t.StringOr("Target", "")
}
