package world

import (
	"context"
	"errors"
	"time"
)

var ErrWorldBusy = errors.New("world busy")

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.Tuning.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []CommandRequest

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case req := <-w.cmds:
			pending = append(pending, req)
		case <-ticker.C:
			w.stepInternal(pending)
			pending = pending[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// Commands is the channel Run drains at tick boundaries.
func (w *World) Commands() chan<- CommandRequest { return w.cmds }

// Exec queues cmd for the next tick boundary and waits for its result.
// It is safe to call from other goroutines (e.g. HTTP handlers).
func (w *World) Exec(ctx context.Context, cmd Command) (CommandResult, error) {
	resp := make(chan CommandResult, 1)
	select {
	case w.cmds <- CommandRequest{Cmd: cmd, Resp: resp}:
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	default:
		return CommandResult{}, ErrWorldBusy
	}
	select {
	case r := <-resp:
		return r, nil
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
}

// StepOnce advances the world by a single tick using the same ordering semantics as the server.
// It is primarily intended for deterministic replays/tests.
func (w *World) StepOnce(cmds ...Command) (tick uint64, digest string) {
	reqs := make([]CommandRequest, 0, len(cmds))
	for _, c := range cmds {
		reqs = append(reqs, CommandRequest{Cmd: c})
	}
	return w.stepInternal(reqs)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
