package world

import (
	"time"

	"go.uber.org/zap"
)

// stepInternal simulates one tick:
// commands at the boundary, due scheduled ticks, every device in list
// order, entity upkeep, then events, logs, snapshots and metrics.
func (w *World) stepInternal(reqs []CommandRequest) (uint64, string) {
	stepStart := time.Now()
	nowTick := w.tick.Load()
	w.reseed(nowTick)

	applied := w.applyCommands(nowTick, reqs)

	w.runScheduled(nowTick)
	for i := 0; i < len(w.devices); i++ {
		d := w.devices[i]
		if d.Removed() {
			continue
		}
		d.ServerTick(w, nowTick)
	}
	w.compactDevices()
	w.tickEntities()

	w.flushEvents()
	digest := w.stateDigest(nowTick)
	w.stepObservers(nowTick, digest)

	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(TickLogEntry{Tick: nowTick, Commands: applied, Digest: digest}); err != nil {
			w.log.Warn("tick log write failed", zap.Uint64("tick", nowTick), zap.Error(err))
		}
	}

	// Snapshot every N ticks, starting after tick 0.
	if w.snapshotSink != nil && nowTick != 0 && w.cfg.Tuning.SnapshotEveryTicks > 0 {
		every := uint64(w.cfg.Tuning.SnapshotEveryTicks)
		if nowTick%every == 0 {
			w.enqueueSnapshot(nowTick)
		}
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	nextTick := w.tick.Add(1)
	w.storeMetrics(nextTick, stepMS, len(applied))
	return nowTick, digest
}

// applyCommands runs each command in arrival order. Only the ones that
// succeeded are returned for the tick log.
func (w *World) applyCommands(nowTick uint64, reqs []CommandRequest) []string {
	var applied []string
	for _, r := range reqs {
		if r.Cmd == nil {
			continue
		}
		out, err := r.Cmd.Apply(w)
		if err == nil {
			applied = append(applied, r.Cmd.Text())
		} else {
			w.log.Debug("command rejected", zap.String("cmd", r.Cmd.Text()), zap.Error(err))
		}
		if r.Resp == nil {
			continue
		}
		select {
		case r.Resp <- CommandResult{Tick: nowTick, Out: out, Err: err}:
		default:
			// Client timed out; don't block the sim loop.
		}
	}
	return applied
}

func (w *World) enqueueSnapshot(nowTick uint64) bool {
	snap := w.ExportSnapshot(nowTick)
	select {
	case w.snapshotSink <- snap:
		return true
	default:
		// Drop snapshot if sink is backed up.
		w.log.Warn("snapshot sink full, dropped", zap.Uint64("tick", nowTick))
		return false
	}
}
