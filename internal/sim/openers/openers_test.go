package openers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeHost struct {
	viewers   int
	removed   bool
	opens     int
	closes    int
	changes   [][2]int
	scheduled []int
	radius    float64
}

func (h *fakeHost) Viewers(r float64) int {
	h.radius = r
	return h.viewers
}

func (h *fakeHost) ScheduleRecheck(d int)         { h.scheduled = append(h.scheduled, d) }
func (h *fakeHost) Valid() bool                   { return !h.removed }
func (h *fakeHost) OnOpen(string)                 { h.opens++ }
func (h *fakeHost) OnClose(string)                { h.closes++ }
func (h *fakeHost) OnCountChanged(prev, next int) { h.changes = append(h.changes, [2]int{prev, next}) }

func TestIncrementDecrement_TransitionsOnly(t *testing.T) {
	var c Counter
	h := &fakeHost{}

	c.Increment("p1", h)
	c.Increment("p2", h)
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, 1, h.opens)
	assert.Equal(t, []int{DefaultRecheckDelay}, h.scheduled)

	c.Decrement("p1", h)
	assert.Equal(t, 0, h.closes)
	c.Decrement("p2", h)
	assert.Equal(t, 1, h.closes)
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}, {2, 1}, {1, 0}}, h.changes)

	c.Decrement("p2", h)
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, 1, h.closes)
	assert.Len(t, h.changes, 4)
}

func TestRecheck_RepairsMissedDecrement(t *testing.T) {
	c := Counter{Delay: 7}
	h := &fakeHost{}
	c.Increment("p1", h)
	h.scheduled = nil

	h.viewers = 0
	c.Recheck(h)
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, 1, h.closes)
	assert.Empty(t, h.scheduled)
	assert.Equal(t, DefaultRadius, h.radius)
}

func TestRecheck_Idempotent(t *testing.T) {
	var c Counter
	h := &fakeHost{viewers: 3}

	c.Recheck(h)
	assert.Equal(t, 3, c.Count())
	assert.Equal(t, 1, h.opens)
	changes := len(h.changes)

	c.Recheck(h)
	assert.Equal(t, 1, h.opens)
	assert.Equal(t, 0, h.closes)
	assert.Len(t, h.changes, changes)
	assert.Equal(t, []int{DefaultRecheckDelay, DefaultRecheckDelay}, h.scheduled, "keeps polling while open")
}

func TestRecheck_RemovedIsNoop(t *testing.T) {
	var c Counter
	h := &fakeHost{viewers: 2, removed: true}
	c.Recheck(h)
	assert.Equal(t, 0, c.Count())
	assert.Zero(t, h.opens)
	assert.Empty(t, h.scheduled)
}
