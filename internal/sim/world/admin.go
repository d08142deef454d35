package world

import (
	"encoding/json"
	"errors"
	"fmt"

	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/device"
	"tickcraft.ai/internal/sim/entity"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
	"tickcraft.ai/internal/sim/transfer"
)

// Admin mutations. Each one validates its arguments before touching any
// state, so a returned error always means nothing changed.

var (
	ErrNoContainer = errors.New("no container")
	ErrBadSlot     = errors.New("bad slot")
)

// inventoryAt is the container an administrator may fill at p: the device
// container itself or, for beacons, the payment slot.
func (w *World) inventoryAt(p geom.Pos) (container.Container, error) {
	d, ok := w.DeviceAt(p)
	if !ok {
		return nil, fmt.Errorf("%w at %s", ErrNoDevice, p)
	}
	switch v := d.(type) {
	case *device.Beacon:
		return v.Payment, nil
	case container.Container:
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s at %s", ErrNoContainer, d.Kind(), p)
}

// Give inserts s into the container at p. With slot < 0 the stack is
// spread with the transfer rules (no face); otherwise it goes into that
// one slot. It returns how many units did not fit.
func (w *World) Give(p geom.Pos, slot int, s item.Stack) (int, error) {
	if err := w.catalogs.Items.Check(s.Item); err != nil {
		return 0, err
	}
	if s.Count <= 0 {
		return 0, fmt.Errorf("count must be positive")
	}
	c, err := w.inventoryAt(p)
	if err != nil {
		return 0, err
	}
	if slot < 0 {
		rest := transfer.Policy{}.AddItem(nil, c, s, geom.NoFace)
		return rest.Count, nil
	}
	if slot >= c.Size() {
		return 0, fmt.Errorf("%w: %d of %d", ErrBadSlot, slot, c.Size())
	}
	if !c.CanPlaceItem(slot, s) {
		return 0, fmt.Errorf("%w: %s not allowed in slot %d", ErrBadSlot, s.Item, slot)
	}
	cur := c.Item(slot)
	if !cur.IsEmpty() && !item.SameItemAndData(cur, s) {
		return 0, fmt.Errorf("slot %d holds %s", slot, cur.Item)
	}
	room := c.MaxStackFor(s) - cur.Count
	n := s.Count
	if n > room {
		n = room
	}
	if n > 0 {
		c.SetItem(slot, s.WithCount(cur.Count+n))
	}
	return s.Count - n, nil
}

// Take removes up to n units from one slot and returns them.
func (w *World) Take(p geom.Pos, slot, n int) (item.Stack, error) {
	c, err := w.inventoryAt(p)
	if err != nil {
		return item.Empty, err
	}
	if slot < 0 || slot >= c.Size() {
		return item.Empty, fmt.Errorf("%w: %d of %d", ErrBadSlot, slot, c.Size())
	}
	if n <= 0 {
		return item.Empty, fmt.Errorf("count must be positive")
	}
	if c.Item(slot).IsEmpty() {
		return item.Empty, fmt.Errorf("slot %d is empty", slot)
	}
	return c.RemoveItem(slot, n), nil
}

// Contents lists the slots of the container at p.
func (w *World) Contents(p geom.Pos) ([]item.Stack, error) {
	c, err := w.inventoryAt(p)
	if err != nil {
		return nil, err
	}
	out := make([]item.Stack, c.Size())
	for i := range out {
		out[i] = c.Item(i)
	}
	return out, nil
}

func (w *World) DropItem(at geom.Vec, s item.Stack) error {
	if err := w.catalogs.Items.Check(s.Item); err != nil {
		return err
	}
	if s.Count <= 0 {
		return fmt.Errorf("count must be positive")
	}
	w.SpawnItem(at, s)
	return nil
}

func (w *World) SetBeaconEffects(p geom.Pos, primary, secondary string) error {
	b, err := deviceOf[*device.Beacon](w, p)
	if err != nil {
		return err
	}
	return b.SetEffects(primary, secondary)
}

func (w *World) LightCampfire(p geom.Pos, lit bool) error {
	c, err := deviceOf[*device.Campfire](w, p)
	if err != nil {
		return err
	}
	c.SetLit(w, lit)
	return nil
}

// PlaceFood puts one unit of id on the campfire at p.
func (w *World) PlaceFood(p geom.Pos, id string) error {
	if err := w.catalogs.Items.Check(id); err != nil {
		return err
	}
	c, err := deviceOf[*device.Campfire](w, p)
	if err != nil {
		return err
	}
	if !w.catalogs.Items.HasTag(id, catalogs.TagCampfireFood) {
		return fmt.Errorf("%s cannot be cooked on a campfire", id)
	}
	food := item.Of(id, 1)
	if !c.PlaceFood(w, &food) {
		return fmt.Errorf("campfire at %s has no free slot", p)
	}
	return nil
}

func (w *World) Harvest(p geom.Pos) error {
	h, err := deviceOf[*device.Beehive](w, p)
	if err != nil {
		return err
	}
	if !h.Harvest(w) {
		return fmt.Errorf("hive at %s is not full (honey %d)", p, h.Honey())
	}
	return nil
}

func (w *World) SpawnMobAt(kind string, at geom.Vec, hostile, nectar bool, health float64) *entity.Mob {
	if health <= 0 {
		health = 10
	}
	m := &entity.Mob{ID: w.newID(), Kind: kind, Pos: at, Hostile: hostile, Health: health, Nectar: nectar}
	w.SpawnMob(m)
	return m
}

// Inspection is a read-only view of one block.
type Inspection struct {
	Pos    [3]int            `json:"pos"`
	Block  string            `json:"block"`
	State  map[string]string `json:"state,omitempty"`
	Device string            `json:"device,omitempty"`
	Data   json.RawMessage   `json:"data,omitempty"`
	Power  bool              `json:"powered,omitempty"`
}

func (w *World) Inspect(p geom.Pos) (Inspection, error) {
	if err := w.CheckPos(p); err != nil {
		return Inspection{}, err
	}
	in := Inspection{Pos: posArr(p), Block: w.BlockAt(p), State: w.BlockState(p), Power: w.Powered(p)}
	if d, ok := w.DeviceAt(p); ok {
		in.Device = d.Kind()
		b, err := d.Save().MarshalJSON()
		if err != nil {
			return Inspection{}, err
		}
		in.Data = b
	}
	return in, nil
}

// SaveSnapshot hands a snapshot of the current state to the snapshot sink.
func (w *World) SaveSnapshot() error {
	if w.snapshotSink == nil {
		return errors.New("snapshots are not enabled")
	}
	if !w.enqueueSnapshot(w.tick.Load()) {
		return errors.New("snapshot sink busy")
	}
	return nil
}
