package world

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tickcraft.ai/internal/persistence/snapshot"
	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/device"
	"tickcraft.ai/internal/sim/entity"
	"tickcraft.ai/internal/sim/geom"
)

// Command is an administrative mutation applied at a tick boundary. Apply
// must validate everything before it changes anything: an error means the
// world is untouched.
type Command interface {
	Text() string
	Apply(w *World) (string, error)
}

type CommandRequest struct {
	Cmd  Command
	Resp chan CommandResult
}

type CommandResult struct {
	Tick uint64
	Out  string
	Err  error
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// TickLogEntry is enough to replay a tick: the commands applied at its
// boundary and the digest the world reached.
type TickLogEntry struct {
	Tick     uint64   `json:"tick"`
	Commands []string `json:"commands,omitempty"`
	Digest   string   `json:"digest"`
}

type AuditEntry struct {
	Tick uint64         `json:"tick"`
	Kind string         `json:"kind"`
	Pos  [3]int         `json:"pos"`
	Data map[string]any `json:"data,omitempty"`
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	log      *zap.Logger

	tick atomic.Uint64

	src rand.Source
	rng *rand.Rand

	blocks  map[geom.Pos]string
	states  map[geom.Pos]map[string]string
	surface map[[2]int]int

	// devices keeps insertion order; removed entries are compacted after
	// each tick.
	devices  []device.Device
	deviceAt map[geom.Pos]device.Device

	players map[string]*entity.Player
	mobs    map[string]*entity.Mob
	items   []*entity.Item

	powered map[geom.Pos]bool
	raining bool

	scheduled  schedule
	events     []Event
	lastEvents []Event

	nextSeq  uint64
	nextItem uint64

	cmds chan CommandRequest
	stop chan struct{}

	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	observers     map[string]*observerClient

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	metrics atomic.Value
}

func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("world: nil catalogs")
	}
	cfg.applyDefaults()
	w := &World{
		cfg:           cfg,
		catalogs:      cats,
		log:           zap.NewNop(),
		blocks:        map[geom.Pos]string{},
		states:        map[geom.Pos]map[string]string{},
		surface:       map[[2]int]int{},
		deviceAt:      map[geom.Pos]device.Device{},
		players:       map[string]*entity.Player{},
		mobs:          map[string]*entity.Mob{},
		powered:       map[geom.Pos]bool{},
		cmds:          make(chan CommandRequest, 256),
		stop:          make(chan struct{}),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerLeave: make(chan string, 16),
		observers:     map[string]*observerClient{},
	}
	w.src = rand.NewSource(cfg.Seed)
	w.rng = rand.New(w.src)
	w.reseed(0)
	return w, nil
}

func (w *World) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	w.log = l.With(zap.String("world", w.cfg.ID))
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Config() WorldConfig { return w.cfg }

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.Tuning.TickRateHz
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// reseed derives the random source from the seed and the tick so a world
// resumed from a snapshot draws the same numbers as the original run.
func (w *World) reseed(tick uint64) {
	w.src.Seed(w.cfg.Seed ^ int64(tick*0x9E3779B97F4A7C15))
}

// newID mints a uuid from the world's random source.
func (w *World) newID() string {
	return uuid.Must(uuid.NewRandomFromReader(w.rng)).String()
}

func (w *World) deviceDeps() device.Deps {
	return device.Deps{
		Cats:   w.catalogs,
		Tuning: w.cfg.Tuning,
		Log:    w.log,
		NewID:  w.newID,
	}
}
