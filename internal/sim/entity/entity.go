// Package entity holds the non-block actors the engine touches: players,
// mobs and loose item stacks.
package entity

import (
	"sort"

	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
)

// Effect is a timed status effect.
type Effect struct {
	ID        string `json:"id"`
	Amplifier int    `json:"amplifier"`
	Duration  int    `json:"duration"`
	Ambient   bool   `json:"ambient,omitempty"`
}

// OpenRef names the container a player's open menu targets.
type OpenRef struct {
	Pos      geom.Pos `json:"pos"`
	DeviceID string   `json:"device_id"`
}

type Player struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Pos     geom.Vec          `json:"pos"`
	Open    *OpenRef          `json:"open,omitempty"`
	Effects map[string]Effect `json:"effects,omitempty"`
}

// AddEffect applies e unless a stronger instance is already active. An equal
// amplifier is refreshed when e lasts longer.
func (p *Player) AddEffect(e Effect) bool {
	if p.Effects == nil {
		p.Effects = map[string]Effect{}
	}
	cur, ok := p.Effects[e.ID]
	if ok && (cur.Amplifier > e.Amplifier || (cur.Amplifier == e.Amplifier && cur.Duration >= e.Duration)) {
		return false
	}
	p.Effects[e.ID] = e
	return true
}

// TickEffects counts every effect down by one tick and drops expired ones.
func (p *Player) TickEffects() {
	for id, e := range p.Effects {
		e.Duration--
		if e.Duration <= 0 {
			delete(p.Effects, id)
			continue
		}
		p.Effects[id] = e
	}
}

// EffectIDs returns the active effect ids in sorted order.
func (p *Player) EffectIDs() []string {
	ids := make([]string, 0, len(p.Effects))
	for id := range p.Effects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Player) Viewing(pos geom.Pos, deviceID string) bool {
	return p.Open != nil && p.Open.Pos == pos && p.Open.DeviceID == deviceID
}

// KindBee is the mob kind beehives accept.
const KindBee = "BEE"

// Mob is any non-player creature.
type Mob struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Pos     geom.Vec `json:"pos"`
	Hostile bool     `json:"hostile,omitempty"`
	Health  float64  `json:"health"`
	Nectar  bool     `json:"nectar,omitempty"`
}

func (m *Mob) Alive() bool { return m.Health > 0 }

func (m *Mob) Hurt(amount float64) {
	m.Health -= amount
	if m.Health < 0 {
		m.Health = 0
	}
}

// Item is a stack lying in the world. It satisfies transfer.Entity.
type Item struct {
	ID        string     `json:"id"`
	Pos       geom.Vec   `json:"pos"`
	Item      item.Stack `json:"item"`
	Age       int        `json:"age"`
	Discarded bool       `json:"-"`
}

func (e *Item) Stack() item.Stack     { return e.Item }
func (e *Item) SetStack(s item.Stack) { e.Item = item.Normalize(s) }
func (e *Item) Discard()              { e.Discarded = true }
