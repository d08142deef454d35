// Package replay re-simulates a world from its tick log and checks that
// every tick reaches the digest that was recorded.
package replay

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	plog "tickcraft.ai/internal/persistence/log"
	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/command"
	world "tickcraft.ai/internal/sim/world"
)

// ErrDigestMismatch reports a tick whose re-simulated state differs from
// the log.
var ErrDigestMismatch = errors.New("digest mismatch")

type Options struct {
	// FromTick is the first tick whose digest is verified; earlier ticks
	// are stepped but not compared.
	FromTick uint64
	// ToTick stops the replay after this tick when non-zero.
	ToTick uint64
}

type Result struct {
	Stepped  uint64
	Checked  uint64
	LastTick uint64
	Digest   string
}

// Run steps w through the tick log under worldDir. w must already hold the
// state the log starts from: a fresh world for tick 0 or an imported
// snapshot.
func Run(w *world.World, cats *catalogs.Catalogs, worldDir string, opts Options, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	start := w.CurrentTick()
	var res Result
	err := plog.EachTick(worldDir, func(e world.TickLogEntry) error {
		if e.Tick < start {
			return nil
		}
		if opts.ToTick != 0 && e.Tick > opts.ToTick {
			return plog.ErrStop
		}
		if e.Tick != w.CurrentTick() {
			return fmt.Errorf("tick gap: want=%d got=%d", w.CurrentTick(), e.Tick)
		}
		cmds, err := command.ParseAll(cats, e.Commands)
		if err != nil {
			return fmt.Errorf("tick %d: %w", e.Tick, err)
		}
		tick, digest := w.StepOnce(cmds...)
		res.Stepped++
		res.LastTick = tick
		res.Digest = digest
		if tick < opts.FromTick {
			return nil
		}
		res.Checked++
		if digest != e.Digest {
			log.Error("replay diverged", zap.Uint64("tick", tick), zap.String("got", digest), zap.String("want", e.Digest))
			return fmt.Errorf("%w at tick %d: got=%s want=%s", ErrDigestMismatch, tick, digest, e.Digest)
		}
		return nil
	})
	return res, err
}
