package world

import (
	"errors"
	"fmt"
	"sort"

	"tickcraft.ai/internal/sim/device"
	"tickcraft.ai/internal/sim/entity"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
)

var (
	ErrNoPlayer = errors.New("no such player")
	ErrNoMob    = errors.New("no such mob")
)

// JoinPlayer adds a player at pos and returns its id.
func (w *World) JoinPlayer(name string, pos geom.Vec) *entity.Player {
	p := &entity.Player{ID: w.newID(), Name: name, Pos: pos}
	w.players[p.ID] = p
	w.emit(pos.Block(), "PLAYER_JOIN", map[string]any{"id": p.ID, "name": name}, true)
	return p
}

func (w *World) Player(id string) (*entity.Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

// PlayerByName resolves a name or an id.
func (w *World) PlayerByName(name string) (*entity.Player, bool) {
	if p, ok := w.players[name]; ok {
		return p, true
	}
	for _, id := range w.playerIDs() {
		if p := w.players[id]; p.Name == name {
			return p, true
		}
	}
	return nil, false
}

func (w *World) playerIDs() []string {
	ids := make([]string, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Players returns every player sorted by id.
func (w *World) Players() []*entity.Player {
	out := make([]*entity.Player, 0, len(w.players))
	for _, id := range w.playerIDs() {
		out = append(out, w.players[id])
	}
	return out
}

func (w *World) MovePlayer(id string, pos geom.Vec) error {
	p, ok := w.players[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPlayer, id)
	}
	p.Pos = pos
	return nil
}

// OpenContainer points the player's menu at the device at pos and counts
// them as an opener. Any menu already open is closed first.
func (w *World) OpenContainer(playerID string, pos geom.Pos) error {
	p, ok := w.players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPlayer, playerID)
	}
	o, err := deviceOf[device.Openable](w, pos)
	if err != nil {
		return err
	}
	if p.Open != nil {
		w.closeMenu(p)
	}
	d, _ := w.DeviceAt(pos)
	p.Open = &entity.OpenRef{Pos: pos, DeviceID: d.ID()}
	o.StartOpen(w, p.ID)
	return nil
}

func (w *World) CloseContainer(playerID string) error {
	p, ok := w.players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPlayer, playerID)
	}
	if p.Open == nil {
		return fmt.Errorf("%s has nothing open", p.Name)
	}
	w.closeMenu(p)
	return nil
}

func (w *World) closeMenu(p *entity.Player) {
	ref := p.Open
	p.Open = nil
	d, ok := w.DeviceAt(ref.Pos)
	if !ok || d.ID() != ref.DeviceID {
		return
	}
	if o, ok := d.(device.Openable); ok {
		o.StopOpen(w, p.ID)
	}
}

// Disconnect drops the player without closing its menu. Open counters
// catch up on their next recheck.
func (w *World) Disconnect(playerID string) error {
	p, ok := w.players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPlayer, playerID)
	}
	delete(w.players, playerID)
	w.emit(p.Pos.Block(), "PLAYER_LEAVE", map[string]any{"id": p.ID}, true)
	return nil
}

func (w *World) PlayersIn(box geom.Box) []*entity.Player {
	var out []*entity.Player
	for _, id := range w.playerIDs() {
		if p := w.players[id]; box.Contains(p.Pos) {
			out = append(out, p)
		}
	}
	return out
}

func (w *World) mobIDs() []string {
	ids := make([]string, 0, len(w.mobs))
	for id := range w.mobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *World) Mobs() []*entity.Mob {
	out := make([]*entity.Mob, 0, len(w.mobs))
	for _, id := range w.mobIDs() {
		out = append(out, w.mobs[id])
	}
	return out
}

func (w *World) MobsIn(box geom.Box) []*entity.Mob {
	var out []*entity.Mob
	for _, id := range w.mobIDs() {
		if m := w.mobs[id]; m.Alive() && box.Contains(m.Pos) {
			out = append(out, m)
		}
	}
	return out
}

func (w *World) MobByID(id string) (*entity.Mob, bool) {
	m, ok := w.mobs[id]
	if !ok || !m.Alive() {
		return nil, false
	}
	return m, true
}

func (w *World) SpawnMob(m *entity.Mob) {
	if m.ID == "" {
		m.ID = w.newID()
	}
	w.mobs[m.ID] = m
	w.emit(m.Pos.Block(), "MOB_SPAWN", map[string]any{"id": m.ID, "kind": m.Kind}, false)
}

func (w *World) RemoveMob(id string) { delete(w.mobs, id) }

// BeeEnter moves the bee mob into the hive at pos.
func (w *World) BeeEnter(pos geom.Pos, mobID string) error {
	h, err := deviceOf[*device.Beehive](w, pos)
	if err != nil {
		return err
	}
	m, ok := w.MobByID(mobID)
	if !ok || m.Kind != entity.KindBee {
		return fmt.Errorf("%w: bee %s", ErrNoMob, mobID)
	}
	if h.Full() {
		return fmt.Errorf("hive at %s is full", pos)
	}
	h.AddOccupant(w, m)
	return nil
}

func (w *World) newItemEntityID() string {
	w.nextItem++
	return fmt.Sprintf("IT%06d", w.nextItem)
}

func (w *World) SpawnItem(at geom.Vec, s item.Stack) {
	if s.IsEmpty() {
		return
	}
	e := &entity.Item{ID: w.newItemEntityID(), Pos: at, Item: s}
	w.items = append(w.items, e)
	w.emit(at.Block(), "ITEM_SPAWN", map[string]any{"id": e.ID, "item": s.Item, "count": s.Count}, false)
}

func (w *World) ItemEntitiesIn(box geom.Box) []*entity.Item {
	var out []*entity.Item
	for _, e := range w.items {
		if !e.Discarded && box.Contains(e.Pos) {
			out = append(out, e)
		}
	}
	return out
}

// ItemEntities returns the live item entities in spawn order.
func (w *World) ItemEntities() []*entity.Item {
	out := make([]*entity.Item, 0, len(w.items))
	for _, e := range w.items {
		if !e.Discarded {
			out = append(out, e)
		}
	}
	return out
}

// tickEntities ages item entities, expires them after the configured
// lifetime, drops discarded ones and counts player effects down.
func (w *World) tickEntities() {
	ttl := w.cfg.Tuning.ItemEntityLifetimeTicks
	n := 0
	for _, e := range w.items {
		if e.Discarded || e.Item.IsEmpty() {
			continue
		}
		e.Age++
		if e.Age >= ttl {
			w.emit(e.Pos.Block(), "ITEM_EXPIRE", map[string]any{"id": e.ID}, false)
			continue
		}
		w.items[n] = e
		n++
	}
	for i := n; i < len(w.items); i++ {
		w.items[i] = nil
	}
	w.items = w.items[:n]

	for _, id := range w.playerIDs() {
		w.players[id].TickEffects()
	}
	for _, id := range w.mobIDs() {
		if !w.mobs[id].Alive() {
			delete(w.mobs, id)
		}
	}
}
