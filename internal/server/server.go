// Package server assembles the runtime: catalogs, tuning, the world loop,
// persistence sinks and the HTTP surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tickcraft.ai/internal/logging"
	"tickcraft.ai/internal/persistence/archive"
	"tickcraft.ai/internal/persistence/indexdb"
	persistlog "tickcraft.ai/internal/persistence/log"
	"tickcraft.ai/internal/persistence/r2s3"
	"tickcraft.ai/internal/persistence/snapshot"
	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/tuning"
	world "tickcraft.ai/internal/sim/world"
)

type Options struct {
	Addr      string
	WorldID   string
	Seed      int64
	MinY      int
	ConfigDir string
	DataDir   string
	// TuningPath defaults to <ConfigDir>/tuning.yaml.
	TuningPath string

	// SnapshotPath resumes from a specific file; otherwise the newest file
	// under the world's snapshot dir is used when LoadLatest is set.
	SnapshotPath string
	LoadLatest   bool

	DisableIndex  bool
	KeepSnapshots int
	SegmentTicks  uint64

	// AuthToken guards the command socket and the admin exec endpoint.
	AuthToken   string
	EnableAdmin bool
	WatchTuning bool
}

func (o *Options) applyDefaults() {
	if o.Addr == "" {
		o.Addr = ":8080"
	}
	if o.WorldID == "" {
		o.WorldID = "world_1"
	}
	if o.ConfigDir == "" {
		o.ConfigDir = "./configs"
	}
	if o.DataDir == "" {
		o.DataDir = "./data"
	}
	if strings.TrimSpace(o.TuningPath) == "" {
		o.TuningPath = filepath.Join(o.ConfigDir, "tuning.yaml")
	}
	if o.SegmentTicks == 0 {
		o.SegmentTicks = persistlog.DefaultSegmentTicks
	}
}

type Server struct {
	opts     Options
	log      *logging.Logger
	worldDir string

	cats  *catalogs.Catalogs
	tune  tuning.Tuning
	world *world.World

	index    *indexdb.SQLiteIndex
	mirror   *r2s3.Mirror
	tickLog  *persistlog.TickLogger
	auditLog *persistlog.AuditLogger
	snapCh   chan snapshot.SnapshotV1

	httpSrv *http.Server
}

// Open loads configuration and builds a world, fresh or resumed from a
// snapshot. Nothing runs until Run.
func Open(ctx context.Context, opts Options, logger *logging.Logger) (*Server, error) {
	opts.applyDefaults()
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		opts:     opts,
		log:      logger,
		worldDir: filepath.Join(opts.DataDir, "worlds", opts.WorldID),
	}
	if err := os.MkdirAll(s.worldDir, 0o755); err != nil {
		return nil, err
	}

	cats, err := catalogs.Load(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	s.cats = cats

	snapPath := strings.TrimSpace(opts.SnapshotPath)
	if snapPath == "" && opts.LoadLatest {
		ticks, err := archive.ListSnapshots(s.worldDir)
		if err != nil {
			return nil, err
		}
		if len(ticks) > 0 {
			snapPath = archive.SnapshotPath(s.worldDir, ticks[len(ticks)-1])
		}
	}

	tune, err := tuning.Load(opts.TuningPath)
	if err != nil {
		// A resume carries its own world shape; only the device knobs fall
		// back to defaults.
		if !errors.Is(err, os.ErrNotExist) || snapPath == "" {
			return nil, fmt.Errorf("load tuning: %w", err)
		}
		s.log.Warn("tuning not found; using defaults", zap.String("path", opts.TuningPath))
		tune = tuning.Defaults()
	}
	s.tune = tune
	if err := s.log.SetLevel(tune.LogLevel); err != nil {
		s.log.Warn("bad log_level in tuning", zap.Error(err))
	}

	if snapPath != "" {
		s.world, err = s.resume(snapPath)
	} else {
		s.world, err = world.New(world.WorldConfig{ID: opts.WorldID, Seed: opts.Seed, MinY: opts.MinY, Tuning: tune}, cats)
		if err == nil {
			s.log.Info("fresh world", zap.String("world", opts.WorldID), zap.Int64("seed", opts.Seed))
		}
	}
	if err != nil {
		return nil, err
	}
	s.world.SetLogger(s.log.Named("world"))

	if !opts.DisableIndex {
		s.index, err = indexdb.OpenSQLite(filepath.Join(s.worldDir, "index", "world.sqlite"), s.log.Named("index"))
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		if err := s.index.UpsertCatalogs(opts.ConfigDir, cats, tune); err != nil {
			s.log.Warn("index: upsert catalogs", zap.Error(err))
		}
	}

	if cfg, ok := r2s3.ConfigFromEnv(); ok {
		client, err := r2s3.New(ctx, cfg)
		if err != nil {
			s.closeSinks()
			return nil, fmt.Errorf("init mirror: %w", err)
		}
		layout := r2s3.Layout{Prefix: os.Getenv("TICKCRAFT_S3_PREFIX"), WorldID: opts.WorldID}
		s.mirror = r2s3.NewMirror(client, layout, r2s3.Options{Workers: 2, QueueCapacity: 256, EnqueueWait: time.Second}, s.log.Logger)
		s.log.Info("snapshot mirror enabled", zap.String("bucket", cfg.Bucket))
	}

	s.tickLog = persistlog.NewTickLogger(s.worldDir, opts.SegmentTicks)
	s.auditLog = persistlog.NewAuditLogger(s.worldDir, opts.SegmentTicks)
	if s.mirror != nil {
		s.tickLog.OnClose(s.mirror.EnqueueSegment)
		s.auditLog.OnClose(s.mirror.EnqueueSegment)
	}
	s.world.SetTickLogger(multiTickLogger{s.tickLog, s.indexOrNil()})
	s.world.SetAuditLogger(multiAuditLogger{s.auditLog, s.indexOrNil()})

	s.snapCh = make(chan snapshot.SnapshotV1, 2)
	s.world.SetSnapshotSink(s.snapCh)
	return s, nil
}

func (s *Server) resume(path string) (*world.World, error) {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Header.WorldID != "" && snap.Header.WorldID != s.opts.WorldID {
		return nil, fmt.Errorf("snapshot world id mismatch: want=%s snap=%s", s.opts.WorldID, snap.Header.WorldID)
	}
	tune := s.tune
	tune.TickRateHz = snap.TickRate
	tune.DayTicks = snap.DayTicks
	tune.WorldHeight = snap.Height
	if snap.ItemTTL > 0 {
		tune.ItemEntityLifetimeTicks = snap.ItemTTL
	}
	if snap.SnapshotEvery > 0 {
		tune.SnapshotEveryTicks = snap.SnapshotEvery
	}
	w, err := world.New(world.WorldConfig{ID: s.opts.WorldID, Seed: snap.Seed, MinY: snap.MinY, Tuning: tune}, s.cats)
	if err != nil {
		return nil, err
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return nil, fmt.Errorf("import snapshot: %w", err)
	}
	s.log.Info("resumed from snapshot", zap.String("path", filepath.Base(path)), zap.Uint64("tick", w.CurrentTick()))
	return w, nil
}

// indexOrNil keeps a nil *SQLiteIndex from becoming a non-nil interface.
func (s *Server) indexOrNil() indexSink {
	if s.index == nil {
		return nil
	}
	return s.index
}

func (s *Server) World() *world.World { return s.world }
func (s *Server) WorldDir() string     { return s.worldDir }

// Run serves until ctx is done or a component fails, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.world.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		s.snapshotWriter(ctx)
		return nil
	})
	if s.opts.WatchTuning {
		g.Go(func() error { return s.watchTuning(ctx) })
	}

	s.httpSrv = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.closeSinks()
	return err
}

// snapshotWriter persists snapshots queued by the world loop.
func (s *Server) snapshotWriter(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Drain what the last ticks queued.
			for {
				select {
				case snap := <-s.snapCh:
					s.persistSnapshot(snap)
				default:
					return
				}
			}
		case snap := <-s.snapCh:
			s.persistSnapshot(snap)
		}
	}
}

func (s *Server) persistSnapshot(snap snapshot.SnapshotV1) {
	log := s.log.With(zap.Uint64("tick", snap.Header.Tick))
	path := archive.SnapshotPath(s.worldDir, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		log.Error("snapshot write", zap.Error(err))
		return
	}
	log.Info("snapshot written", zap.String("path", path))
	s.mirror.EnqueueSnapshot(path)
	if s.index != nil {
		s.index.RecordSnapshot(path, snap)
	}

	if _, archived, ok, err := archive.ArchiveDaySnapshot(s.worldDir, path, snap); err != nil {
		log.Warn("archive day snapshot", zap.Error(err))
	} else if ok {
		s.mirror.EnqueueArchive(archived)
	}

	if s.opts.KeepSnapshots > 0 {
		removed, err := archive.Prune(s.worldDir, s.opts.KeepSnapshots)
		if err != nil {
			log.Warn("prune snapshots", zap.Error(err))
		} else if len(removed) > 0 {
			log.Debug("pruned snapshots", zap.Int("count", len(removed)))
		}
	}
}

func (s *Server) closeSinks() {
	if s.tickLog != nil {
		_ = s.tickLog.Close()
	}
	if s.auditLog != nil {
		_ = s.auditLog.Close()
	}
	if s.mirror != nil {
		s.mirror.Close()
	}
	if s.index != nil {
		_ = s.index.Close()
	}
}
