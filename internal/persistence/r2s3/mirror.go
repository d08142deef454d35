package r2s3

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Uploader puts one local file under an object key. *Client implements it.
type Uploader interface {
	PutFile(ctx context.Context, objectKey, localPath string) error
}

// Artifact is the kind of file a world produces for the mirror.
type Artifact uint8

const (
	// Snapshot is a rolling <tick>.snap.zst.
	Snapshot Artifact = iota
	// Archive is a day archive directory: its snapshot and meta.json.
	Archive
	// Segment is a closed tick or audit log segment.
	Segment

	artifactCount
)

func (a Artifact) String() string {
	switch a {
	case Snapshot:
		return "snapshot"
	case Archive:
		return "archive"
	case Segment:
		return "segment"
	}
	return fmt.Sprintf("artifact(%d)", uint8(a))
}

// Layout maps world files to object keys:
//
//	<prefix>/<world>/snapshots/<tick>.snap.zst
//	<prefix>/<world>/archives/day_NNNN/{<tick>.snap.zst,meta.json}
//	<prefix>/<world>/logs/{ticks,audit}/<segment>.jsonl.zst
type Layout struct {
	Prefix  string
	WorldID string
}

func (l Layout) Key(a Artifact, localPath string) (string, error) {
	name := filepath.Base(localPath)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("bad local path %q", localPath)
	}
	parent := filepath.Base(filepath.Dir(localPath))
	var rel string
	switch a {
	case Snapshot:
		rel = path.Join("snapshots", name)
	case Archive:
		if !strings.HasPrefix(parent, "day_") {
			return "", fmt.Errorf("%s is not inside a day archive", localPath)
		}
		rel = path.Join("archives", parent, name)
	case Segment:
		rel = path.Join("logs", parent, name)
	default:
		return "", fmt.Errorf("unknown artifact %s", a)
	}
	return normalizeObjectKey(path.Join(l.Prefix, l.WorldID, rel)), nil
}

type Options struct {
	Workers       int
	QueueCapacity int
	// EnqueueWait bounds how long snapshot and archive enqueues wait for
	// room. Segment enqueues run on the world loop and never wait.
	EnqueueWait time.Duration
	Attempts    int
}

func (o *Options) applyDefaults() {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = 256
	}
	if o.EnqueueWait <= 0 {
		o.EnqueueWait = 25 * time.Millisecond
	}
	if o.Attempts <= 0 {
		o.Attempts = 4
	}
}

type job struct {
	kind  Artifact
	files []string
}

type artifactCounters struct {
	uploaded    atomic.Uint64
	failed      atomic.Uint64
	skipped     atomic.Uint64
	lastSuccess atomic.Int64
	lastError   atomic.Int64
}

type ArtifactStats struct {
	Uploaded        uint64 `json:"uploaded"`
	Failed          uint64 `json:"failed"`
	Skipped         uint64 `json:"skipped"`
	LastSuccessUnix int64  `json:"last_success_unix"`
	LastErrorUnix   int64  `json:"last_error_unix"`
}

type Stats struct {
	QueueDepth    int                      `json:"queue_depth"`
	QueueCapacity int                      `json:"queue_capacity"`
	Dropped       uint64                   `json:"dropped"`
	Artifacts     map[string]ArtifactStats `json:"artifacts"`
}

// Mirror copies a world's snapshots, day archives and closed log segments
// to object storage from a bounded queue.
type Mirror struct {
	up     Uploader
	layout Layout
	opts   Options
	log    *zap.Logger

	backoff time.Duration

	jobs    chan job
	workers errgroup.Group

	dropped  atomic.Uint64
	counters [artifactCount]artifactCounters
}

func NewMirror(up Uploader, layout Layout, opts Options, log *zap.Logger) *Mirror {
	opts.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	m := &Mirror{
		up:      up,
		layout:  layout,
		opts:    opts,
		log:     log.With(zap.String("component", "mirror"), zap.String("world", layout.WorldID)),
		backoff: 200 * time.Millisecond,
		jobs:    make(chan job, opts.QueueCapacity),
	}
	for i := 0; i < opts.Workers; i++ {
		m.workers.Go(func() error {
			for j := range m.jobs {
				m.run(j)
			}
			return nil
		})
	}
	return m
}

// EnqueueSnapshot mirrors a rolling snapshot file.
func (m *Mirror) EnqueueSnapshot(path string) { m.enqueue(job{Snapshot, []string{path}}, true) }

// EnqueueArchive mirrors the archived snapshot and the meta.json beside it.
func (m *Mirror) EnqueueArchive(snapPath string) {
	meta := filepath.Join(filepath.Dir(snapPath), "meta.json")
	m.enqueue(job{Archive, []string{snapPath, meta}}, true)
}

// EnqueueSegment mirrors a closed log segment. It matches the log
// writers' OnClose hook.
func (m *Mirror) EnqueueSegment(path string) { m.enqueue(job{Segment, []string{path}}, false) }

func (m *Mirror) enqueue(j job, wait bool) {
	if m == nil || m.up == nil {
		return
	}
	select {
	case m.jobs <- j:
		return
	default:
	}
	if wait {
		timer := time.NewTimer(m.opts.EnqueueWait)
		defer timer.Stop()
		select {
		case m.jobs <- j:
			return
		case <-timer.C:
		}
	}
	n := m.dropped.Add(1)
	m.log.Warn("mirror queue full; dropping", zap.Stringer("artifact", j.kind), zap.Strings("files", j.files), zap.Uint64("dropped", n))
}

// Close uploads what is queued and stops the workers.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	close(m.jobs)
	_ = m.workers.Wait()
}

func (m *Mirror) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	st := Stats{
		QueueDepth:    len(m.jobs),
		QueueCapacity: cap(m.jobs),
		Dropped:       m.dropped.Load(),
		Artifacts:     make(map[string]ArtifactStats, artifactCount),
	}
	for a := Artifact(0); a < artifactCount; a++ {
		c := &m.counters[a]
		st.Artifacts[a.String()] = ArtifactStats{
			Uploaded:        c.uploaded.Load(),
			Failed:          c.failed.Load(),
			Skipped:         c.skipped.Load(),
			LastSuccessUnix: c.lastSuccess.Load(),
			LastErrorUnix:   c.lastError.Load(),
		}
	}
	return st
}

func (m *Mirror) run(j job) {
	c := &m.counters[j.kind]
	for _, p := range j.files {
		key, err := m.layout.Key(j.kind, p)
		if err == nil {
			_, err = os.Stat(p)
		}
		if err != nil {
			c.skipped.Add(1)
			m.log.Warn("mirror skip", zap.Stringer("artifact", j.kind), zap.String("local", p), zap.Error(err))
			continue
		}
		if err := m.put(key, p); err != nil {
			c.failed.Add(1)
			c.lastError.Store(time.Now().Unix())
			m.log.Error("mirror upload failed", zap.String("key", key), zap.Error(err))
			continue
		}
		c.uploaded.Add(1)
		c.lastSuccess.Store(time.Now().Unix())
		m.log.Debug("mirror uploaded", zap.String("key", key))
	}
}

// put retries with quadratic backoff. A missing file is not retried.
func (m *Mirror) put(key, localPath string) error {
	var err error
	for attempt := 1; attempt <= m.opts.Attempts; attempt++ {
		if err = m.up.PutFile(context.Background(), key, localPath); err == nil {
			return nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return err
		}
		if attempt < m.opts.Attempts {
			time.Sleep(time.Duration(attempt*attempt) * m.backoff)
		}
	}
	return err
}
