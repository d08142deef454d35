package world

import (
	"errors"
	"fmt"

	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/device"
	"tickcraft.ai/internal/sim/geom"
)

var ErrNoDevice = errors.New("no device")

func (w *World) addDevice(d device.Device) {
	w.devices = append(w.devices, d)
	w.deviceAt[d.Pos()] = d
	w.emit(d.Pos(), "DEVICE_PLACED", map[string]any{"kind": d.Kind(), "id": d.ID()}, true)
}

// removeDevice detaches the device at p. Its contents drop as item
// entities; pending continuations become no-ops because the device is
// marked removed.
func (w *World) removeDevice(p geom.Pos) {
	d, ok := w.deviceAt[p]
	if !ok {
		return
	}
	if h, ok := d.(*device.Beehive); ok {
		h.EmptyAll(w)
	}
	if c, ok := d.(device.Contents); ok {
		for _, s := range c.Drain() {
			w.SpawnItem(p.Center(), s)
		}
	}
	d.SetRemoved()
	delete(w.deviceAt, p)
	for _, pl := range w.players {
		if pl.Viewing(p, d.ID()) {
			pl.Open = nil
		}
	}
	w.emit(p, "DEVICE_REMOVED", map[string]any{"kind": d.Kind(), "id": d.ID()}, true)
}

func (w *World) compactDevices() {
	n := 0
	for _, d := range w.devices {
		if !d.Removed() {
			w.devices[n] = d
			n++
		}
	}
	for i := n; i < len(w.devices); i++ {
		w.devices[i] = nil
	}
	w.devices = w.devices[:n]
}

func (w *World) DeviceAt(p geom.Pos) (device.Device, bool) {
	d, ok := w.deviceAt[p]
	if !ok || d.Removed() {
		return nil, false
	}
	return d, true
}

func (w *World) ContainerAt(p geom.Pos) (container.Container, bool) {
	d, ok := w.DeviceAt(p)
	if !ok {
		return nil, false
	}
	c, ok := d.(container.Container)
	return c, ok
}

// Devices returns the live devices in tick order.
func (w *World) Devices() []device.Device {
	out := make([]device.Device, 0, len(w.devices))
	for _, d := range w.devices {
		if !d.Removed() {
			out = append(out, d)
		}
	}
	return out
}

// deviceOf returns the device at p as T or a user-facing error.
func deviceOf[T any](w *World, p geom.Pos) (T, error) {
	var zero T
	d, ok := w.DeviceAt(p)
	if !ok {
		return zero, fmt.Errorf("%w at %s", ErrNoDevice, p)
	}
	t, ok := d.(T)
	if !ok {
		return zero, fmt.Errorf("%s at %s does not support this", d.Kind(), p)
	}
	return t, nil
}
