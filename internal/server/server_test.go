package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickcraft.ai/internal/logging"
	"tickcraft.ai/internal/persistence/archive"
	"tickcraft.ai/internal/sim/geom"
)

const testTuning = "tick_rate_hz: 100\nsnapshot_every_ticks: 100000\nlog_level: info\n"

type running struct {
	s      *Server
	base   string
	cancel context.CancelFunc
	done   chan error
}

func (r *running) stop(t *testing.T) {
	t.Helper()
	r.cancel()
	select {
	case err := <-r.done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	tp := filepath.Join(dir, "tuning.yaml")
	require.NoError(t, os.WriteFile(tp, []byte(testTuning), 0o644))
	return Options{
		WorldID:     "w_test",
		Seed:        21,
		ConfigDir:   "../../configs",
		DataDir:     filepath.Join(dir, "data"),
		TuningPath:  tp,
		LoadLatest:  true,
		EnableAdmin: true,
	}
}

func start(t *testing.T, opts Options) *running {
	t.Helper()
	s, err := Open(context.Background(), opts, logging.Nop())
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{s: s, base: "http://" + ln.Addr().String(), cancel: cancel, done: make(chan error, 1)}
	go func() { r.done <- s.Serve(ctx, ln) }()
	return r
}

func postExec(t *testing.T, base, body string) []execResult {
	t.Helper()
	resp, err := http.Post(base+"/admin/v1/exec", "text/plain", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out []execResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServer_HealthAndMetrics(t *testing.T) {
	r := start(t, testOptions(t))
	defer r.stop(t)

	resp, err := http.Get(r.base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	postExec(t, r.base, "setblock 0 64 0 hopper\n")
	require.Eventually(t, func() bool {
		resp, err := http.Get(r.base + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return strings.Contains(string(b), `tickcraft_world_devices{world="w_test",kind="HOPPER"} 1`)
	}, 5*time.Second, 20*time.Millisecond)
}

func TestServer_ExecSnapshotAndResume(t *testing.T) {
	opts := testOptions(t)
	r := start(t, opts)

	res := postExec(t, r.base, strings.Join([]string{
		"# build",
		"setblock 0 64 0 chest",
		"give 0 64 0 iron_ingot 7",
		"give 9 64 9 iron_ingot 1",
		"bogus",
	}, "\n"))
	require.Len(t, res, 4)
	assert.Empty(t, res[0].Error)
	assert.Empty(t, res[1].Error)
	assert.Equal(t, "E_INVALID_TARGET", res[2].Code)
	assert.Equal(t, "E_BAD_REQUEST", res[3].Code)

	resp, err := http.Post(r.base+"/admin/v1/snapshot", "", nil)
	require.NoError(t, err)
	var snapRes execResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapRes))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, snapRes.Error)

	worldDir := r.s.WorldDir()
	require.Eventually(t, func() bool {
		if err := r.s.index.Flush(context.Background()); err != nil {
			return false
		}
		_, err := r.s.index.LatestSnapshot(context.Background())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	st, err := http.Get(r.base + "/admin/v1/state")
	require.NoError(t, err)
	var state struct {
		Snapshot *struct {
			Tick uint64 `json:"tick"`
		} `json:"latest_snapshot"`
	}
	require.NoError(t, json.NewDecoder(st.Body).Decode(&state))
	st.Body.Close()
	require.NotNil(t, state.Snapshot)

	audits, err := http.Get(r.base + "/admin/v1/audits?kind=block_change&at=0,64,0")
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.NewDecoder(audits.Body).Decode(&entries))
	audits.Body.Close()
	assert.Len(t, entries, 1)
	r.stop(t)

	ticks, err := archive.ListSnapshots(worldDir)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, ticks[0], state.Snapshot.Tick)

	s2, err := Open(context.Background(), opts, logging.Nop())
	require.NoError(t, err)
	defer s2.closeSinks()
	assert.Equal(t, ticks[0]+1, s2.World().CurrentTick())
	items, err := s2.World().Contents(geom.P(0, 64, 0))
	require.NoError(t, err)
	assert.Equal(t, "IRON_INGOT", items[0].Item)
	assert.Equal(t, 7, items[0].Count)
}

func TestServer_AdminRequiresToken(t *testing.T) {
	opts := testOptions(t)
	opts.AuthToken = "t0k"
	r := start(t, opts)
	defer r.stop(t)

	resp, err := http.Get(r.base + "/admin/v1/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, r.base+"/admin/v1/state", nil)
	req.Header.Set("Authorization", "Bearer t0k")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ReloadTuningAppliesLogLevel(t *testing.T) {
	opts := testOptions(t)
	opts.DisableIndex = true
	s, err := Open(context.Background(), opts, logging.Nop())
	require.NoError(t, err)
	defer s.closeSinks()
	assert.Equal(t, "info", s.log.Level())

	require.NoError(t, os.WriteFile(opts.TuningPath, []byte(strings.Replace(testTuning, "info", "debug", 1)), 0o644))
	s.reloadTuning()
	assert.Equal(t, "debug", s.log.Level())

	require.NoError(t, os.WriteFile(opts.TuningPath, []byte("log_level: [oops"), 0o644))
	s.reloadTuning()
	assert.Equal(t, "debug", s.log.Level())
}

func TestOpen_MissingTuningFailsForFreshWorld(t *testing.T) {
	opts := testOptions(t)
	opts.TuningPath = filepath.Join(t.TempDir(), "nope.yaml")
	_, err := Open(context.Background(), opts, logging.Nop())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_FreshDataDirStartsNewWorld(t *testing.T) {
	opts := testOptions(t)
	_, err := os.Stat(opts.DataDir)
	require.True(t, os.IsNotExist(err))

	s, err := Open(context.Background(), opts, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(s.closeSinks)
	assert.Equal(t, int64(21), s.World().Config().Seed)

	ticks, err := archive.ListSnapshots(s.WorldDir())
	require.NoError(t, err)
	assert.Empty(t, ticks)
}
