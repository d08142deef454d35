package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tickcraft.ai/internal/server"
)

var serveOpts server.Options

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the world loop and its HTTP/WebSocket surface",
	Long: `Run one world. The world resumes from the newest snapshot under
<data>/worlds/<world>/snapshots unless --snapshot names one, or starts
fresh from --seed.

Snapshots are mirrored to S3-compatible storage when TICKCRAFT_S3_BUCKET
is set (see TICKCRAFT_S3_ENDPOINT, _REGION, _ACCESS_KEY_ID,
_SECRET_ACCESS_KEY, _PATH_STYLE, _PREFIX).

Examples:
  tickcraft serve --seed 42
  tickcraft serve --addr 127.0.0.1:9090 --keep-snapshots 24`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveOpts.Addr, "addr", ":8080", "http listen address")
	f.StringVar(&serveOpts.WorldID, "world", "world_1", "world id")
	f.Int64Var(&serveOpts.Seed, "seed", 1337, "world seed (fresh worlds only)")
	f.IntVar(&serveOpts.MinY, "min-y", 0, "lowest buildable y (fresh worlds only)")
	f.StringVar(&serveOpts.DataDir, "data", "./data", "runtime data directory")
	f.StringVar(&serveOpts.TuningPath, "tuning", "", "tuning.yaml path (default <configs>/tuning.yaml)")
	f.StringVar(&serveOpts.SnapshotPath, "snapshot", "", "snapshot to resume from")
	f.BoolVar(&serveOpts.LoadLatest, "load-latest", true, "resume from the newest snapshot when --snapshot is empty")
	f.BoolVar(&serveOpts.DisableIndex, "disable-index", false, "disable the sqlite read-model index")
	f.IntVar(&serveOpts.KeepSnapshots, "keep-snapshots", 0, "keep only the newest N snapshots (0 keeps all)")
	f.Uint64Var(&serveOpts.SegmentTicks, "segment-ticks", 0, "ticks per tick/audit log file")
	f.BoolVar(&serveOpts.EnableAdmin, "admin", defaultEnableAdmin(), "enable loopback-only /admin endpoints")
	f.BoolVar(&serveOpts.WatchTuning, "watch-tuning", true, "hot-apply log_level changes in tuning.yaml")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	opts := serveOpts
	opts.ConfigDir = configDir
	opts.AuthToken = strings.TrimSpace(os.Getenv("TICKCRAFT_AUTH_TOKEN"))

	s, err := server.Open(ctx, opts, log)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

func defaultEnableAdmin() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
