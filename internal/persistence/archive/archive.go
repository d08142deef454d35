// Package archive keeps the snapshot directory bounded: day-end snapshots
// are copied into a permanent archive and older rolling snapshots are pruned.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"tickcraft.ai/internal/persistence/snapshot"
)

type DayArchiveMeta struct {
	Day       int    `json:"day"`
	EndTick   uint64 `json:"end_tick"`
	Seed      int64  `json:"seed"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
	DayTicks  int    `json:"day_ticks"`
	Devices   int    `json:"devices"`
}

// ArchiveDaySnapshot copies a day-end snapshot into
// worldDir/archives/day_<NNNN>/. A snapshot is day-end when the tick after
// it starts a new day.
func ArchiveDaySnapshot(worldDir, snapshotPath string, snap snapshot.SnapshotV1) (day int, archivedPath string, archived bool, err error) {
	if snap.DayTicks <= 0 {
		return 0, "", false, nil
	}
	dayLen := uint64(snap.DayTicks)
	if (snap.Header.Tick+1)%dayLen != 0 {
		return 0, "", false, nil
	}
	day = int((snap.Header.Tick + 1) / dayLen)

	archiveDir := filepath.Join(worldDir, "archives", fmt.Sprintf("day_%04d", day))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return 0, "", false, err
	}

	meta := DayArchiveMeta{
		Day:       day,
		EndTick:   snap.Header.Tick,
		Seed:      snap.Seed,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		DayTicks:  snap.DayTicks,
		Devices:   len(snap.Devices),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}
	return day, dst, true, nil
}

// SnapshotPath is where the rolling snapshot of tick lives.
func SnapshotPath(worldDir string, tick uint64) string {
	return filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", tick))
}

// ListSnapshots returns the rolling snapshot ticks under worldDir, oldest first.
func ListSnapshots(worldDir string) ([]uint64, error) {
	ents, err := os.ReadDir(filepath.Join(worldDir, "snapshots"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ticks []uint64
	for _, e := range ents {
		name, ok := strings.CutSuffix(e.Name(), ".snap.zst")
		if !ok || e.IsDir() {
			continue
		}
		t, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			continue
		}
		ticks = append(ticks, t)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	return ticks, nil
}

// Prune deletes all but the newest keep rolling snapshots and returns the
// removed paths.
func Prune(worldDir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	ticks, err := ListSnapshots(worldDir)
	if err != nil {
		return nil, err
	}
	if len(ticks) <= keep {
		return nil, nil
	}
	var removed []string
	for _, t := range ticks[:len(ticks)-keep] {
		p := SnapshotPath(worldDir, t)
		if err := os.Remove(p); err != nil {
			return removed, err
		}
		removed = append(removed, p)
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
