// Package device implements the tickable block devices. Each device is a
// plain struct of data plus the strategies it was built with: a process
// algorithm, the transfer policy, an openers counter.
package device

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/container"
	"tickcraft.ai/internal/sim/entity"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
	"tickcraft.ai/internal/sim/tag"
	"tickcraft.ai/internal/sim/tuning"
)

// Device kinds. They match the "device" field of blocks.json.
const (
	KindHopper       = "HOPPER"
	KindFurnace      = "FURNACE"
	KindSmoker       = "SMOKER"
	KindBlastFurnace = "BLAST_FURNACE"
	KindBrewingStand = "BREWING_STAND"
	KindDispenser    = "DISPENSER"
	KindDropper      = "DROPPER"
	KindBeacon       = "BEACON"
	KindBeehive      = "BEEHIVE"
	KindCampfire     = "CAMPFIRE"
	KindConduit      = "CONDUIT"
	KindChest        = "CHEST"
	KindBarrel       = "BARREL"
)

var ErrUnknownKind = errors.New("unknown device kind")

// Device is a tickable block entity.
type Device interface {
	ID() string
	Kind() string
	Pos() geom.Pos
	Facing() geom.Face
	ServerTick(lv Level, now uint64)
	// Save returns the device state; Load restores it. Load never fails:
	// unreadable fields are logged and left at their defaults.
	Save() tag.Compound
	Load(t tag.Compound)
	Removed() bool
	SetRemoved()
}

// Scheduled devices receive the continuations they asked Level.Schedule for.
type Scheduled interface {
	OnScheduledTick(lv Level, kind string)
}

// Openable devices track the players viewing them.
type Openable interface {
	StartOpen(lv Level, actor string)
	StopOpen(lv Level, actor string)
}

// Contents is implemented by devices that hold items, including those that
// do not expose a container to transfers. Drain empties the device.
type Contents interface {
	Drain() []item.Stack
}

// Level is the world as seen from inside a device tick. All mutations are
// fire-and-forget.
type Level interface {
	Catalogs() *catalogs.Catalogs
	GameTime() uint64
	MinY() int
	Height() int
	BlockAt(p geom.Pos) string
	// SurfaceHeight is the y of the highest non-air block of the column.
	SurfaceHeight(x, z int) int
	SetBlockState(p geom.Pos, key, value string)
	PlaySound(p geom.Pos, sound string)
	SpawnParticle(p geom.Pos, particle string)
	BroadcastEvent(p geom.Pos, kind string, data map[string]any)

	DeviceAt(p geom.Pos) (Device, bool)
	// ContainerAt returns the container of a live device at p, if any.
	ContainerAt(p geom.Pos) (container.Container, bool)
	ItemEntitiesIn(box geom.Box) []*entity.Item
	SpawnItem(at geom.Vec, s item.Stack)
	PlayersIn(box geom.Box) []*entity.Player
	MobsIn(box geom.Box) []*entity.Mob
	MobByID(id string) (*entity.Mob, bool)
	SpawnMob(m *entity.Mob)
	RemoveMob(id string)
	InWaterOrRain(v geom.Vec) bool

	Powered(p geom.Pos) bool
	Raining() bool
	Night() bool
	// Schedule asks for d.OnScheduledTick(kind) after delay ticks. The
	// continuation is dropped if the device is gone by then.
	Schedule(d Device, delay int, kind string)
	Rand() *rand.Rand
}

// Deps are the collaborators every device is built with.
type Deps struct {
	Cats   *catalogs.Catalogs
	Tuning tuning.Tuning
	Log    *zap.Logger
	// NewID mints device ids. Worlds pass a seeded source so replays agree.
	NewID func() string
}

func (d Deps) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

// id falls back to random ids when no source is wired, as in tests.
func (d Deps) id() string {
	if d.NewID == nil {
		return uuid.NewString()
	}
	return d.NewID()
}

// New builds an empty device of the given kind.
func New(kind string, pos geom.Pos, facing geom.Face, deps Deps) (Device, error) {
	deps.Tuning.ApplyDefaults()
	b := base{id: deps.id(), kind: kind, pos: pos, facing: facing, deps: deps}
	b.log = deps.logger().With(zap.String("device", kind), zap.Stringer("pos", pos))
	switch kind {
	case KindHopper:
		return newHopper(b), nil
	case KindFurnace, KindSmoker, KindBlastFurnace:
		return newFurnace(b), nil
	case KindBrewingStand:
		return newBrewingStand(b), nil
	case KindDispenser, KindDropper:
		return newDispenser(b), nil
	case KindBeacon:
		return newBeacon(b), nil
	case KindBeehive:
		return newBeehive(b), nil
	case KindCampfire:
		return newCampfire(b), nil
	case KindConduit:
		return newConduit(b), nil
	case KindChest, KindBarrel:
		return newChest(b), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// base carries the identity every device shares.
type base struct {
	id      string
	kind    string
	pos     geom.Pos
	facing  geom.Face
	removed bool
	deps    Deps
	log     *zap.Logger
}

func (b *base) ID() string        { return b.id }
func (b *base) Kind() string      { return b.kind }
func (b *base) Pos() geom.Pos     { return b.pos }
func (b *base) Facing() geom.Face { return b.facing }
func (b *base) Removed() bool     { return b.removed }
func (b *base) SetRemoved()       { b.removed = true }

func (b *base) saveBase(t tag.Compound) {
	t.PutString("id", b.id)
	if b.facing.Valid() {
		t.PutString("facing", b.facing.String())
	}
}

func (b *base) loadBase(t tag.Compound) {
	if id, ok := t.GetString("id"); ok && id != "" {
		b.id = id
	}
	if s, ok := t.GetString("facing"); ok {
		f, err := geom.ParseFace(s)
		if err != nil {
			b.log.Warn("bad facing in saved device", zap.String("facing", s))
			return
		}
		b.facing = f
	}
}

func (b *base) saveSlots(t tag.Compound, c *container.Slots) {
	t.PutList("Items", tag.EncodeSlots(c.Stacks()))
}

func (b *base) loadSlots(t tag.Compound, c *container.Slots) {
	list, _ := t.GetList("Items")
	stacks := make([]item.Stack, c.Size())
	if dropped := tag.DecodeSlots(list, stacks); dropped > 0 {
		b.log.Warn("dropped unreadable item stacks", zap.Int("count", dropped))
	}
	c.Load(stacks)
}

// front is the continuous point just outside the face the device looks at.
func (b *base) front() geom.Vec {
	c := b.pos.Center()
	o := b.facing.Offset()
	return geom.Vec{X: c.X + 0.7*float64(o.X), Y: c.Y + 0.7*float64(o.Y), Z: c.Z + 0.7*float64(o.Z)}
}

// spill drops stacks at the device position.
func spill(lv Level, pos geom.Pos, stacks []item.Stack) {
	for _, s := range stacks {
		if !s.IsEmpty() {
			lv.SpawnItem(pos.Center(), s)
		}
	}
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
