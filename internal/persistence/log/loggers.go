// Package log persists the tick and audit streams as zstd-compressed JSONL
// files, one file per segment of ticks.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	world "tickcraft.ai/internal/sim/world"
)

// DefaultSegmentTicks is how many ticks share one file.
const DefaultSegmentTicks = 72000

type JSONLZstdWriter struct {
	baseDir      string
	prefix       string
	segmentTicks uint64

	mu     sync.Mutex
	curSeg uint64
	open   bool
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer

	// onClose, when set, receives each segment path after it is closed.
	onClose func(path string)
}

func NewJSONLZstdWriter(baseDir, prefix string, segmentTicks uint64) *JSONLZstdWriter {
	if segmentTicks == 0 {
		segmentTicks = DefaultSegmentTicks
	}
	return &JSONLZstdWriter{
		baseDir:      baseDir,
		prefix:       prefix,
		segmentTicks: segmentTicks,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends v to the file holding tick. Reopening an existing segment
// appends a new zstd frame; readers see one continuous stream.
func (w *JSONLZstdWriter) Write(tick uint64, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	seg := tick / w.segmentTicks
	if !w.open || seg != w.curSeg {
		if err := w.rotateLocked(seg); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(seg uint64) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForSegment(seg)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curSeg = seg
	w.open = true
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	wasOpen := w.f != nil
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.open = false
	if wasOpen && w.onClose != nil {
		w.onClose(w.pathForSegment(w.curSeg))
	}
	return err1
}

// OnClose registers fn to receive every closed segment file.
func (w *JSONLZstdWriter) OnClose(fn func(path string)) {
	w.mu.Lock()
	w.onClose = fn
	w.mu.Unlock()
}

// pathForSegment names files by their first tick so lexical order is tick
// order.
func (w *JSONLZstdWriter) pathForSegment(seg uint64) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%012d.jsonl.zst", w.prefix, seg*w.segmentTicks))
}

// TickLogger writes one JSONL entry per tick (compressed).
type TickLogger struct{ w *JSONLZstdWriter }

func NewTickLogger(worldDir string, segmentTicks uint64) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriter(TicksDir(worldDir), "ticks", segmentTicks)}
}

func (l *TickLogger) WriteTick(v world.TickLogEntry) error { return l.w.Write(v.Tick, v) }
func (l *TickLogger) Close() error                         { return l.w.Close() }
func (l *TickLogger) OnClose(fn func(path string))         { l.w.OnClose(fn) }

// AuditLogger writes audit JSONL entries (compressed).
type AuditLogger struct{ w *JSONLZstdWriter }

func NewAuditLogger(worldDir string, segmentTicks uint64) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(AuditDir(worldDir), "audit", segmentTicks)}
}

func (l *AuditLogger) WriteAudit(v world.AuditEntry) error { return l.w.Write(v.Tick, v) }
func (l *AuditLogger) Close() error                        { return l.w.Close() }
func (l *AuditLogger) OnClose(fn func(path string))        { l.w.OnClose(fn) }

func TicksDir(worldDir string) string { return filepath.Join(worldDir, "ticks") }
func AuditDir(worldDir string) string { return filepath.Join(worldDir, "audit") }
