package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tickcraft.ai/internal/persistence/indexdb"
)

var (
	dbDataDir string
	dbWorldID string
	dbPath    string
	dbTick    uint64
	dbKind    string
	dbLimit   int
)

var dbCmd = &cobra.Command{
	Use:   "db snapshot|devices|audits|digest",
	Short: "Query a world's sqlite index",
	Long: `Query the read-model index written by serve.

  snapshot   latest indexed snapshot
  devices    device counts of the snapshot at --tick (default latest)
  audits     audit entries, filtered by --kind and --tick (from)
  digest     recorded digest of --tick`,
	Args: cobra.ExactArgs(1),
	RunE: runDB,
}

func init() {
	f := dbCmd.Flags()
	f.StringVar(&dbDataDir, "data", "./data", "runtime data directory")
	f.StringVar(&dbWorldID, "world", "world_1", "world id")
	f.StringVar(&dbPath, "db", "", "sqlite path (default <data>/worlds/<world>/index/world.sqlite)")
	f.Uint64Var(&dbTick, "tick", 0, "tick")
	f.StringVar(&dbKind, "kind", "", "audit kind")
	f.IntVar(&dbLimit, "limit", 20, "result limit")
	rootCmd.AddCommand(dbCmd)
}

func runDB(cmd *cobra.Command, args []string) error {
	path := strings.TrimSpace(dbPath)
	if path == "" {
		path = filepath.Join(dbDataDir, "worlds", dbWorldID, "index", "world.sqlite")
	}
	idx, err := indexdb.OpenSQLite(path, nil)
	if err != nil {
		return err
	}
	defer idx.Close()

	ctx := context.Background()
	var v any
	switch args[0] {
	case "snapshot":
		v, err = idx.LatestSnapshot(ctx)
	case "devices":
		tick := dbTick
		if tick == 0 {
			info, lerr := idx.LatestSnapshot(ctx)
			if lerr != nil {
				return fmt.Errorf("latest snapshot: %w", lerr)
			}
			tick = info.Tick
		}
		v, err = idx.DeviceCounts(ctx, tick)
	case "audits":
		v, err = idx.Audits(ctx, indexdb.AuditFilter{Kind: strings.ToUpper(dbKind), FromTick: dbTick, Limit: dbLimit})
	case "digest":
		v, err = idx.TickDigest(ctx, dbTick)
	default:
		return fmt.Errorf("unknown query %q", args[0])
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
