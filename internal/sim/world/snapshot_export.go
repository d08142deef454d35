package world

import (
	"tickcraft.ai/internal/persistence/snapshot"
	"tickcraft.ai/internal/sim/entity"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
)

// ExportSnapshot captures the world after nowTick has been simulated.
// Snapshot must be called from the world loop goroutine.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		Seed:          w.cfg.Seed,
		TickRate:      w.cfg.Tuning.TickRateHz,
		DayTicks:      w.cfg.Tuning.DayTicks,
		MinY:          w.cfg.MinY,
		Height:        w.cfg.Tuning.WorldHeight,
		ItemTTL:       w.cfg.Tuning.ItemEntityLifetimeTicks,
		SnapshotEvery: w.cfg.Tuning.SnapshotEveryTicks,
		Raining:       w.raining,
		Counters: snapshot.CountersV1{
			NextSeq:  w.nextSeq,
			NextItem: w.nextItem,
		},
	}

	for _, p := range sortedPositions(w.blocks) {
		s.Blocks = append(s.Blocks, snapshot.BlockV1{Pos: posArr(p), ID: w.blocks[p], State: w.BlockState(p)})
	}
	for _, p := range sortedPositions(w.powered) {
		s.Powered = append(s.Powered, posArr(p))
	}
	for _, d := range w.devices {
		if d.Removed() {
			continue
		}
		s.Devices = append(s.Devices, snapshot.DeviceV1{Kind: d.Kind(), Pos: posArr(d.Pos()), Data: d.Save()})
	}
	for _, st := range w.sortedSchedule() {
		s.Scheduled = append(s.Scheduled, snapshot.ScheduledV1{
			Due:      st.Due,
			Seq:      st.Seq,
			Pos:      posArr(st.Pos),
			DeviceID: st.DeviceID,
			Kind:     st.Kind,
		})
	}
	for _, p := range w.Players() {
		s.Players = append(s.Players, exportPlayer(p))
	}
	for _, m := range w.Mobs() {
		s.Mobs = append(s.Mobs, snapshot.MobV1{
			ID:      m.ID,
			Kind:    m.Kind,
			Pos:     vecArr(m.Pos),
			Hostile: m.Hostile,
			Health:  m.Health,
			Nectar:  m.Nectar,
		})
	}
	for _, e := range w.ItemEntities() {
		s.Items = append(s.Items, snapshot.ItemEntityV1{ID: e.ID, Pos: vecArr(e.Pos), Stack: stackV1(e.Item), Age: e.Age})
	}
	return s
}

func exportPlayer(p *entity.Player) snapshot.PlayerV1 {
	out := snapshot.PlayerV1{ID: p.ID, Name: p.Name, Pos: vecArr(p.Pos)}
	if p.Open != nil {
		pos := posArr(p.Open.Pos)
		out.OpenPos = &pos
		out.OpenID = p.Open.DeviceID
	}
	for _, id := range p.EffectIDs() {
		e := p.Effects[id]
		out.Effects = append(out.Effects, snapshot.EffectV1{ID: e.ID, Amplifier: e.Amplifier, Duration: e.Duration, Ambient: e.Ambient})
	}
	return out
}

func posArr(p geom.Pos) [3]int     { return [3]int{p.X, p.Y, p.Z} }
func vecArr(v geom.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }
func arrPos(a [3]int) geom.Pos     { return geom.P(a[0], a[1], a[2]) }
func arrVec(a [3]float64) geom.Vec { return geom.Vec{X: a[0], Y: a[1], Z: a[2]} }

func stackV1(s item.Stack) snapshot.StackV1 {
	return snapshot.StackV1{Item: s.Item, Count: s.Count, Damage: s.Damage, Potion: s.Potion, Name: s.Name}
}

func stackFromV1(s snapshot.StackV1) item.Stack {
	return item.Normalize(item.Stack{Item: s.Item, Count: s.Count, Damage: s.Damage, Potion: s.Potion, Name: s.Name})
}
