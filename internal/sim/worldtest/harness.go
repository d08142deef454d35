package worldtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/command"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
	world "tickcraft.ai/internal/sim/world"
)

// Harness drives a world through exported APIs only:
// - Do() parses one command line and applies it in its own tick
// - Step() advances ticks with no commands
// - Slot/Count read container contents for assertions
//
// It never touches world internals so tests can live outside the world package.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	LastDigest string
}

func LoadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	require.NoError(t, err, "load catalogs")
	return cats
}

func NewHarness(t *testing.T, cfg world.WorldConfig) *Harness {
	t.Helper()
	cats := LoadCatalogs(t)
	w, err := world.New(cfg, cats)
	require.NoError(t, err, "world.New")
	return &Harness{T: t, Cats: cats, W: w}
}

// recorder keeps the outcome of a command applied inside StepOnce.
type recorder struct {
	world.Command
	out string
	err error
}

func (r *recorder) Apply(w *world.World) (string, error) {
	r.out, r.err = r.Command.Apply(w)
	return r.out, r.err
}

// Do applies the command at the start of the next tick and returns its output.
func (h *Harness) Do(line string) (string, error) {
	h.T.Helper()
	c, err := command.Parse(h.Cats, line)
	if err != nil {
		return "", err
	}
	r := &recorder{Command: c}
	_, h.LastDigest = h.W.StepOnce(r)
	return r.out, r.err
}

func (h *Harness) MustDo(line string) string {
	h.T.Helper()
	out, err := h.Do(line)
	require.NoError(h.T, err, line)
	return out
}

// DoAll applies every line in the same tick, in order.
func (h *Harness) DoAll(lines ...string) {
	h.T.Helper()
	cmds, err := command.ParseAll(h.Cats, lines)
	require.NoError(h.T, err)
	_, h.LastDigest = h.W.StepOnce(cmds...)
}

// Step advances n ticks with no commands.
func (h *Harness) Step(n int) {
	for i := 0; i < n; i++ {
		_, h.LastDigest = h.W.StepOnce()
	}
}

func (h *Harness) Slot(x, y, z, slot int) item.Stack {
	h.T.Helper()
	slots, err := h.W.Contents(geom.P(x, y, z))
	require.NoError(h.T, err)
	require.Less(h.T, slot, len(slots))
	return slots[slot]
}

// Count sums id over every slot of the container at (x, y, z).
func (h *Harness) Count(x, y, z int, id string) int {
	h.T.Helper()
	slots, err := h.W.Contents(geom.P(x, y, z))
	require.NoError(h.T, err)
	n := 0
	for _, s := range slots {
		if s.Is(id) {
			n += s.Count
		}
	}
	return n
}

// LooseCount sums id over all item entities in the world.
func (h *Harness) LooseCount(id string) int {
	n := 0
	for _, e := range h.W.ItemEntities() {
		if e.Item.Is(id) {
			n += e.Item.Count
		}
	}
	return n
}

// EventKinds lists the kinds of the events emitted by the last tick.
func (h *Harness) EventKinds() []string {
	var out []string
	for _, e := range h.W.Events() {
		out = append(out, e.Kind)
	}
	return out
}
