// Package openers counts the actors viewing a container and fires open and
// close effects on the 0 <-> non-zero transitions only.
package openers

const (
	DefaultRecheckDelay = 5
	DefaultRadius       = 5.0
)

// Host is the container side of a Counter.
type Host interface {
	// Viewers counts actors within radius whose open menu targets this
	// exact container.
	Viewers(radius float64) int
	// ScheduleRecheck arranges for Recheck to run delay ticks from now.
	ScheduleRecheck(delay int)
	// Valid reports whether the owning device is still in the world.
	Valid() bool

	OnOpen(actor string)
	OnClose(actor string)
	OnCountChanged(prev, next int)
}

// Counter is never negative. The zero value uses the default delay and radius.
type Counter struct {
	count  int
	Delay  int
	Radius float64
}

func (c *Counter) Count() int { return c.count }

// Set restores a persisted count without firing effects.
func (c *Counter) Set(n int) {
	if n < 0 {
		n = 0
	}
	c.count = n
}

func (c *Counter) delay() int {
	if c.Delay > 0 {
		return c.Delay
	}
	return DefaultRecheckDelay
}

func (c *Counter) radius() float64 {
	if c.Radius > 0 {
		return c.Radius
	}
	return DefaultRadius
}

func (c *Counter) Increment(actor string, h Host) {
	prev := c.count
	c.count++
	if prev == 0 {
		h.OnOpen(actor)
		h.ScheduleRecheck(c.delay())
	}
	h.OnCountChanged(prev, c.count)
}

// Decrement clamps at zero; a decrement of a closed container does nothing.
func (c *Counter) Decrement(actor string, h Host) {
	if c.count == 0 {
		return
	}
	prev := c.count
	c.count--
	if c.count == 0 {
		h.OnClose(actor)
	}
	h.OnCountChanged(prev, c.count)
}

// Recheck replaces the count with an area recount, repairing missed
// decrements. It reschedules itself while anyone is still viewing.
func (c *Counter) Recheck(h Host) {
	if !h.Valid() {
		return
	}
	next := h.Viewers(c.radius())
	prev := c.count
	if next != prev {
		switch {
		case next != 0 && prev == 0:
			h.OnOpen("")
		case next == 0:
			h.OnClose("")
		}
		c.count = next
		h.OnCountChanged(prev, next)
	}
	if next > 0 {
		h.ScheduleRecheck(c.delay())
	}
}
