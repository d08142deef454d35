package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	world "tickcraft.ai/internal/sim/world"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type SnapshotInfo struct {
	Tick    uint64 `json:"tick"`
	Path    string `json:"path"`
	Seed    int64  `json:"seed"`
	Devices int    `json:"devices"`
}

// AuditFilter narrows Audits. Zero fields match everything.
type AuditFilter struct {
	Kind     string
	FromTick uint64
	ToTick   uint64
	At       *[3]int
	Limit    int
}

// LatestSnapshot returns the most recent indexed snapshot.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (SnapshotInfo, error) {
	var (
		out  SnapshotInfo
		tick int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT tick,path,seed,devices FROM snapshots ORDER BY tick DESC LIMIT 1`).
		Scan(&tick, &out.Path, &out.Seed, &out.Devices)
	if errors.Is(err, sql.ErrNoRows) {
		return out, ErrNotFound
	}
	out.Tick = uint64(tick)
	return out, err
}

// TickDigest returns the recorded digest of one tick.
func (s *SQLiteIndex) TickDigest(ctx context.Context, tick uint64) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM ticks WHERE tick=?`, int64(tick)).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return d, err
}

// DeviceCounts returns device kind counts recorded with the snapshot at tick.
func (s *SQLiteIndex) DeviceCounts(ctx context.Context, tick uint64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind,count FROM devices WHERE tick=?`, int64(tick))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}

// Audits returns matching audit entries in tick order.
func (s *SQLiteIndex) Audits(ctx context.Context, f AuditFilter) ([]world.AuditEntry, error) {
	q := `SELECT raw_json FROM audits WHERE tick >= ?`
	args := []any{int64(f.FromTick)}
	if f.ToTick != 0 {
		q += ` AND tick <= ?`
		args = append(args, int64(f.ToTick))
	}
	if f.Kind != "" {
		q += ` AND kind = ?`
		args = append(args, f.Kind)
	}
	if f.At != nil {
		q += ` AND x = ? AND y = ? AND z = ?`
		args = append(args, f.At[0], f.At[1], f.At[2])
	}
	q += ` ORDER BY tick, seq`
	if f.Limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []world.AuditEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e world.AuditEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("audit row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CatalogDigest returns the stored digest of a catalog row.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return d, err
}
