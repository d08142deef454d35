// Package indexdb keeps a queryable SQLite read model of the tick log, the
// audit stream and written snapshots. The JSONL logs remain the source of
// truth: the index may drop rows when it falls behind.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"tickcraft.ai/internal/persistence/snapshot"
	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/tuning"
	world "tickcraft.ai/internal/sim/world"
)

type SQLiteIndex struct {
	db  *sql.DB
	log *zap.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
	written      atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqSnapshot
	reqFlush
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	audit    world.AuditEntry
	snapshot snapshotRow
	flushed  chan struct{}
}

type snapshotRow struct {
	Tick    uint64
	Path    string
	Seed    int64
	Blocks  int
	Devices int
	Players int
	Items   int
	// Kinds counts devices per kind.
	Kinds map[string]int
}

// Stats is a point-in-time view of the writer queue.
type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	Written           uint64 `json:"written"`
	DropTickTotal     uint64 `json:"drop_tick_total"`
	DropAuditTotal    uint64 `json:"drop_audit_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

func OpenSQLite(path string, log *zap.Logger) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:  db,
		log: log.With(zap.String("component", "indexdb")),
		// Bursty audit writes (a hopper line moving every tick) must not stall the sim.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			commands INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			verb TEXT NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_verb_tick ON commands(verb, tick);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_kind_tick ON audits(kind, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pos_tick ON audits(x, z, y, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			blocks INTEGER NOT NULL,
			devices INTEGER NOT NULL,
			players INTEGER NOT NULL,
			items INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS devices (
			tick INTEGER NOT NULL,
			kind TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (tick, kind)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		Written:           s.written.Load(),
		DropTickTotal:     s.dropTick.Load(),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:    snap.Header.Tick,
		Path:    path,
		Seed:    snap.Seed,
		Blocks:  len(snap.Blocks),
		Devices: len(snap.Devices),
		Players: len(snap.Players),
		Items:   len(snap.Items),
		Kinds:   map[string]int{},
	}
	for _, d := range snap.Devices {
		r.Kinds[d.Kind]++
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// Flush waits until everything queued so far is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s.closed.Load() {
		return errors.New("index closed")
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, flushed: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertCatalogs stores the raw catalog files and the applied tuning so a
// reader can tell which rules produced the indexed ticks.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	digests := cats.Digests()
	names := make([]string, 0, len(digests))
	for name := range digests {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(configDir, name))
		if err != nil {
			s.log.Warn("catalog file unreadable", zap.String("name", name), zap.Error(err))
			continue
		}
		rows = append(rows, kv{name: strings.TrimSuffix(name, ".json"), digest: digests[name], json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.log.Warn("begin failed", zap.Error(err))
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.log.Warn("commit failed", zap.Error(err))
		} else {
			s.written.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func(err error) {
		s.log.Warn("index write failed", zap.Error(err))
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.flushed)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch r.kind {
		case reqTick:
			err = insertTick(tx, r.tick)
			opCount++
		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			err = insertAudit(tx, a, auditSeq)
			auditSeq++
			opCount++
		case reqSnapshot:
			err = insertSnapshot(tx, r.snapshot)
			opCount++
		}
		if err != nil {
			rollback(err)
			continue
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}

func insertTick(tx *sql.Tx, e world.TickLogEntry) error {
	raw, _ := json.Marshal(e)
	if _, err := tx.Exec(`INSERT OR REPLACE INTO ticks(tick,digest,commands,raw_json) VALUES(?,?,?,?)`,
		int64(e.Tick), e.Digest, len(e.Commands), string(raw)); err != nil {
		return err
	}
	for i, text := range e.Commands {
		verb, _, _ := strings.Cut(text, " ")
		if _, err := tx.Exec(`INSERT OR REPLACE INTO commands(tick,seq,verb,text) VALUES(?,?,?,?)`,
			int64(e.Tick), i, verb, text); err != nil {
			return err
		}
	}
	return nil
}

func insertAudit(tx *sql.Tx, a world.AuditEntry, seq int) error {
	raw, _ := json.Marshal(a)
	_, err := tx.Exec(`INSERT OR REPLACE INTO audits(tick,seq,kind,x,y,z,raw_json) VALUES(?,?,?,?,?,?,?)`,
		int64(a.Tick), seq, a.Kind, a.Pos[0], a.Pos[1], a.Pos[2], string(raw))
	return err
}

func insertSnapshot(tx *sql.Tx, sn snapshotRow) error {
	if _, err := tx.Exec(`INSERT OR REPLACE INTO snapshots(tick,path,seed,blocks,devices,players,items) VALUES(?,?,?,?,?,?,?)`,
		int64(sn.Tick), sn.Path, sn.Seed, sn.Blocks, sn.Devices, sn.Players, sn.Items); err != nil {
		return err
	}
	for kind, n := range sn.Kinds {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO devices(tick,kind,count) VALUES(?,?,?)`, int64(sn.Tick), kind, n); err != nil {
			return err
		}
	}
	return nil
}
