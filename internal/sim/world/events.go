package world

import (
	"encoding/json"

	"go.uber.org/zap"

	"tickcraft.ai/internal/observerproto"
	"tickcraft.ai/internal/sim/geom"
)

// Event is something a device or command did during the current tick.
// Audited events are also written to the audit log.
type Event struct {
	Tick    uint64
	Kind    string
	Pos     geom.Pos
	Data    map[string]any
	Audited bool
}

func (w *World) emit(p geom.Pos, kind string, data map[string]any, audited bool) {
	w.events = append(w.events, Event{Tick: w.tick.Load(), Kind: kind, Pos: p, Data: data, Audited: audited})
}

func (w *World) PlaySound(p geom.Pos, sound string) {
	w.emit(p, "SOUND", map[string]any{"sound": sound}, false)
}

func (w *World) SpawnParticle(p geom.Pos, particle string) {
	w.emit(p, "PARTICLE", map[string]any{"particle": particle}, false)
}

func (w *World) BroadcastEvent(p geom.Pos, kind string, data map[string]any) {
	w.emit(p, kind, data, true)
}

// Events returns what the last completed tick emitted.
func (w *World) Events() []Event {
	return append([]Event(nil), w.lastEvents...)
}

// flushEvents writes audited events to the audit log and keeps the batch
// for observers and Events.
func (w *World) flushEvents() {
	if w.auditLogger != nil {
		for _, e := range w.events {
			if !e.Audited {
				continue
			}
			err := w.auditLogger.WriteAudit(AuditEntry{
				Tick: e.Tick,
				Kind: e.Kind,
				Pos:  [3]int{e.Pos.X, e.Pos.Y, e.Pos.Z},
				Data: e.Data,
			})
			if err != nil {
				w.log.Warn("audit write failed", zap.Error(err))
				break
			}
		}
	}
	w.lastEvents = append(w.lastEvents[:0], w.events...)
	w.events = w.events[:0]
}

// ObserverJoinRequest registers a read-only observer session that receives
// one TICK message per tick on TickOut.
//
// All observer state is maintained by the world loop goroutine.
type ObserverJoinRequest struct {
	SessionID string
	TickOut   chan []byte

	Kinds  []string
	Center *geom.Pos
	Radius int
}

type observerClient struct {
	id      string
	tickOut chan []byte

	kinds  map[string]bool
	center *geom.Pos
	radius int
}

func (w *World) ObserverJoin() chan<- ObserverJoinRequest { return w.observerJoin }
func (w *World) ObserverLeave() chan<- string             { return w.observerLeave }

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.TickOut == nil {
		return
	}
	// Replace existing session id if any.
	if old := w.observers[req.SessionID]; old != nil {
		close(old.tickOut)
	}
	c := &observerClient{id: req.SessionID, tickOut: req.TickOut, center: req.Center, radius: req.Radius}
	if len(req.Kinds) > 0 {
		c.kinds = map[string]bool{}
		for _, k := range req.Kinds {
			c.kinds[k] = true
		}
	}
	w.observers[req.SessionID] = c
}

func (w *World) handleObserverLeave(id string) {
	c := w.observers[id]
	if c == nil {
		return
	}
	delete(w.observers, id)
	close(c.tickOut)
}

func (c *observerClient) wants(e Event) bool {
	if c.kinds != nil && !c.kinds[e.Kind] {
		return false
	}
	if c.center != nil {
		dx, dy, dz := e.Pos.X-c.center.X, e.Pos.Y-c.center.Y, e.Pos.Z-c.center.Z
		if dx*dx+dy*dy+dz*dz > c.radius*c.radius {
			return false
		}
	}
	return true
}

func (w *World) stepObservers(nowTick uint64, digest string) {
	if len(w.observers) == 0 {
		return
	}
	players := make([]observerproto.PlayerState, 0, len(w.players))
	for _, p := range w.Players() {
		ps := observerproto.PlayerState{
			ID:      p.ID,
			Name:    p.Name,
			Pos:     [3]float64{p.Pos.X, p.Pos.Y, p.Pos.Z},
			Effects: p.EffectIDs(),
		}
		if p.Open != nil {
			ps.Open = &[3]int{p.Open.Pos.X, p.Open.Pos.Y, p.Open.Pos.Z}
		}
		players = append(players, ps)
	}
	for _, c := range w.observers {
		msg := observerproto.TickMsg{
			Type:            "TICK",
			ProtocolVersion: observerproto.Version,
			Tick:            nowTick,
			Digest:          digest,
			TimeOfDay:       w.timeOfDay(nowTick),
			Raining:         w.raining,
			Devices:         len(w.devices),
			Players:         players,
		}
		for _, e := range w.lastEvents {
			if !c.wants(e) {
				continue
			}
			msg.Events = append(msg.Events, observerproto.Event{
				Kind: e.Kind,
				Pos:  [3]int{e.Pos.X, e.Pos.Y, e.Pos.Z},
				Data: e.Data,
			})
		}
		b, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		sendLatest(c.tickOut, b)
	}
}

func (w *World) timeOfDay(tick uint64) float64 {
	day := uint64(w.cfg.Tuning.DayTicks)
	return float64(tick%day) / float64(day)
}
