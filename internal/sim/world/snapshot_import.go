package world

import (
	"container/heap"
	"fmt"

	"go.uber.org/zap"

	"tickcraft.ai/internal/persistence/snapshot"
	"tickcraft.ai/internal/sim/device"
	"tickcraft.ai/internal/sim/entity"
	"tickcraft.ai/internal/sim/geom"
)

// ImportSnapshot replaces the current in-memory world state with the snapshot.
// It sets the world's tick to snapshotTick+1 (the next tick to simulate).
//
// Devices are restored silent-and-safe: unknown kinds, devices without
// their block and unreadable fields are logged and skipped.
//
// This must be called only when the world is stopped or from the world loop goroutine.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}

	// Basic parameter consistency checks.
	if w.cfg.Seed != s.Seed {
		return fmt.Errorf("snapshot seed mismatch: cfg=%d snap=%d", w.cfg.Seed, s.Seed)
	}
	if w.cfg.MinY != s.MinY || w.cfg.Tuning.WorldHeight != s.Height {
		return fmt.Errorf("snapshot bounds mismatch: cfg=%d+%d snap=%d+%d", w.cfg.MinY, w.cfg.Tuning.WorldHeight, s.MinY, s.Height)
	}
	if w.cfg.Tuning.DayTicks != s.DayTicks {
		return fmt.Errorf("snapshot day_ticks mismatch: cfg=%d snap=%d", w.cfg.Tuning.DayTicks, s.DayTicks)
	}

	// Operational parameters: snapshot is authoritative when present.
	if s.ItemTTL > 0 {
		w.cfg.Tuning.ItemEntityLifetimeTicks = s.ItemTTL
	}
	if s.SnapshotEvery > 0 {
		w.cfg.Tuning.SnapshotEveryTicks = s.SnapshotEvery
	}

	w.blocks = map[geom.Pos]string{}
	w.states = map[geom.Pos]map[string]string{}
	w.surface = map[[2]int]int{}
	w.devices = nil
	w.deviceAt = map[geom.Pos]device.Device{}
	w.players = map[string]*entity.Player{}
	w.mobs = map[string]*entity.Mob{}
	w.items = nil
	w.powered = map[geom.Pos]bool{}
	w.scheduled = nil
	w.events = nil
	w.lastEvents = nil
	w.raining = s.Raining

	for _, b := range s.Blocks {
		p := arrPos(b.Pos)
		if !w.catalogs.Blocks.Known(b.ID) {
			w.log.Warn("snapshot block unknown, skipped", zap.String("block", b.ID), zap.Stringer("pos", p))
			continue
		}
		w.putBlock(p, b.ID)
		if len(b.State) > 0 {
			st := make(map[string]string, len(b.State))
			for k, v := range b.State {
				st[k] = v
			}
			w.states[p] = st
		}
	}
	for _, p := range s.Powered {
		w.powered[arrPos(p)] = true
	}

	deps := w.deviceDeps()
	for _, ds := range s.Devices {
		p := arrPos(ds.Pos)
		if w.catalogs.Blocks.DeviceKind(w.BlockAt(p)) != ds.Kind {
			w.log.Warn("snapshot device without its block, skipped", zap.String("kind", ds.Kind), zap.Stringer("pos", p))
			continue
		}
		d, err := device.New(ds.Kind, p, geom.NoFace, deps)
		if err != nil {
			w.log.Warn("snapshot device skipped", zap.Stringer("pos", p), zap.Error(err))
			continue
		}
		d.Load(ds.Data)
		w.devices = append(w.devices, d)
		w.deviceAt[p] = d
	}

	for _, st := range s.Scheduled {
		w.scheduled = append(w.scheduled, scheduledTick{
			Due:      st.Due,
			Seq:      st.Seq,
			Pos:      arrPos(st.Pos),
			DeviceID: st.DeviceID,
			Kind:     st.Kind,
		})
	}
	heap.Init(&w.scheduled)

	for _, ps := range s.Players {
		p := &entity.Player{ID: ps.ID, Name: ps.Name, Pos: arrVec(ps.Pos)}
		if ps.OpenPos != nil {
			p.Open = &entity.OpenRef{Pos: arrPos(*ps.OpenPos), DeviceID: ps.OpenID}
		}
		for _, e := range ps.Effects {
			p.AddEffect(entity.Effect{ID: e.ID, Amplifier: e.Amplifier, Duration: e.Duration, Ambient: e.Ambient})
		}
		w.players[p.ID] = p
	}
	for _, ms := range s.Mobs {
		w.mobs[ms.ID] = &entity.Mob{
			ID:      ms.ID,
			Kind:    ms.Kind,
			Pos:     arrVec(ms.Pos),
			Hostile: ms.Hostile,
			Health:  ms.Health,
			Nectar:  ms.Nectar,
		}
	}
	for _, is := range s.Items {
		st := stackFromV1(is.Stack)
		if st.IsEmpty() {
			continue
		}
		w.items = append(w.items, &entity.Item{ID: is.ID, Pos: arrVec(is.Pos), Item: st, Age: is.Age})
	}

	w.nextSeq = s.Counters.NextSeq
	w.nextItem = s.Counters.NextItem
	w.tick.Store(s.Header.Tick + 1)
	return nil
}
