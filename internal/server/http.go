package server

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"tickcraft.ai/internal/persistence/indexdb"
	"tickcraft.ai/internal/sim/command"
	world "tickcraft.ai/internal/sim/world"
	"tickcraft.ai/internal/transport/observer"
	"tickcraft.ai/internal/transport/ws"
)

const maxExecBody = 64 * 1024

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/v1/ws", ws.NewServer(s.world, s.opts.AuthToken, s.log.Logger).Handler())

	if s.opts.EnableAdmin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", s.admin(s.handleState))
		mux.HandleFunc("/admin/v1/snapshot", s.admin(s.handleSnapshot))
		mux.HandleFunc("/admin/v1/exec", s.admin(s.handleExec))
		mux.HandleFunc("/admin/v1/audits", s.admin(s.handleAudits))

		obsSrv := observer.NewServer(s.world, s.log.Logger)
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		s.log.Info("admin endpoints disabled")
	}
	return mux
}

// admin restricts h to loopback callers holding the auth token, if any.
func (s *Server) admin(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !observer.IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		if s.opts.AuthToken != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.AuthToken)) != 1 {
				http.Error(rw, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		h(rw, r)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func (s *Server) handleState(rw http.ResponseWriter, r *http.Request) {
	resp := struct {
		WorldID  string                `json:"world_id"`
		Tick     uint64                `json:"tick"`
		Metrics  world.WorldMetrics    `json:"metrics"`
		Snapshot *indexdb.SnapshotInfo `json:"latest_snapshot,omitempty"`
		Index    *indexdb.Stats        `json:"index,omitempty"`
	}{
		WorldID: s.world.ID(),
		Tick:    s.world.CurrentTick(),
		Metrics: s.world.Metrics(),
	}
	if s.index != nil {
		st := s.index.Stats()
		resp.Index = &st
		if info, err := s.index.LatestSnapshot(r.Context()); err == nil {
			resp.Snapshot = &info
		}
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) handleSnapshot(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	res := s.execLine(r.Context(), "snapshot")
	status := http.StatusOK
	if res.Error != "" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(rw, status, res)
}

type execResult struct {
	Command string `json:"command"`
	Tick    uint64 `json:"tick,omitempty"`
	Output  string `json:"output,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleExec runs a body of command lines, one per line, in order. Each
// line waits for its tick; a failing line does not stop the rest.
func (s *Server) handleExec(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sc := bufio.NewScanner(io.LimitReader(r.Body, maxExecBody))
	var out []execResult
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, s.execLine(r.Context(), line))
	}
	if err := sc.Err(); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(rw, http.StatusOK, out)
}

func (s *Server) execLine(ctx context.Context, line string) execResult {
	res := execResult{Command: line}
	cmd, err := command.Parse(s.world.Catalogs(), line)
	if err != nil {
		res.Code, res.Error = ws.ErrorCode(err), err.Error()
		return res
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cr, err := s.world.Exec(ctx, cmd)
	if err == nil {
		err = cr.Err
	}
	res.Tick, res.Output = cr.Tick, cr.Out
	if err != nil {
		res.Code, res.Error = ws.ErrorCode(err), err.Error()
		s.log.Debug("exec rejected", zap.String("command", line), zap.Error(err))
	}
	return res
}

func (s *Server) handleAudits(rw http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		http.Error(rw, "index disabled", http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	f := indexdb.AuditFilter{Kind: strings.ToUpper(q.Get("kind")), Limit: 500}
	var err error
	parse := func(key string, dst *uint64) {
		if v := q.Get(key); v != "" && err == nil {
			*dst, err = strconv.ParseUint(v, 10, 64)
		}
	}
	parse("from", &f.FromTick)
	parse("to", &f.ToTick)
	if v := q.Get("limit"); v != "" && err == nil {
		f.Limit, err = strconv.Atoi(v)
	}
	if v := q.Get("at"); v != "" && err == nil {
		var at [3]int
		_, err = fmt.Sscanf(v, "%d,%d,%d", &at[0], &at[1], &at[2])
		f.At = &at
	}
	if err != nil {
		http.Error(rw, "bad query: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.index.Flush(r.Context()); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("index flush", zap.Error(err))
	}
	audits, err := s.index.Audits(r.Context(), f)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(rw, http.StatusOK, audits)
}

func (s *Server) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	id := s.world.ID()
	m := s.world.Metrics()
	tick := s.world.CurrentTick()
	if m.Tick != 0 {
		tick = m.Tick
	}

	// Minimal Prometheus exposition format.
	gauge := func(name, help string) {
		fmt.Fprintf(rw, "# HELP %s %s\n# TYPE %s gauge\n", name, help, name)
	}
	gauge("tickcraft_world_tick", "Current world tick.")
	fmt.Fprintf(rw, "tickcraft_world_tick{world=%q} %d\n", id, tick)

	gauge("tickcraft_world_entities", "Live entity counts.")
	fmt.Fprintf(rw, "tickcraft_world_entities{world=%q,kind=%q} %d\n", id, "player", m.Players)
	fmt.Fprintf(rw, "tickcraft_world_entities{world=%q,kind=%q} %d\n", id, "mob", m.Mobs)
	fmt.Fprintf(rw, "tickcraft_world_entities{world=%q,kind=%q} %d\n", id, "item", m.ItemEntities)

	gauge("tickcraft_world_devices", "Loaded devices by kind.")
	kinds := make([]string, 0, len(m.DeviceKinds))
	for k := range m.DeviceKinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(rw, "tickcraft_world_devices{world=%q,kind=%q} %d\n", id, k, m.DeviceKinds[k])
	}

	gauge("tickcraft_world_scheduled", "Pending scheduled device ticks.")
	fmt.Fprintf(rw, "tickcraft_world_scheduled{world=%q} %d\n", id, m.Scheduled)

	gauge("tickcraft_world_observers", "Connected observer sessions.")
	fmt.Fprintf(rw, "tickcraft_world_observers{world=%q} %d\n", id, m.Observers)

	gauge("tickcraft_world_queue_depth", "Channel backlog depth.")
	fmt.Fprintf(rw, "tickcraft_world_queue_depth{world=%q,queue=%q} %d\n", id, "commands", m.QueueDepths.Commands)
	fmt.Fprintf(rw, "tickcraft_world_queue_depth{world=%q,queue=%q} %d\n", id, "observer_join", m.QueueDepths.ObserverJoin)
	fmt.Fprintf(rw, "tickcraft_world_queue_depth{world=%q,queue=%q} %d\n", id, "observer_leave", m.QueueDepths.ObserverLeave)

	gauge("tickcraft_world_step_ms", "Last tick step duration in milliseconds.")
	fmt.Fprintf(rw, "tickcraft_world_step_ms{world=%q} %.3f\n", id, m.StepMS)

	gauge("tickcraft_world_commands_applied", "Commands applied in the last tick.")
	fmt.Fprintf(rw, "tickcraft_world_commands_applied{world=%q} %d\n", id, m.CommandsApplied)

	if s.index != nil {
		st := s.index.Stats()
		gauge("tickcraft_index_queue_depth", "Index write queue depth.")
		fmt.Fprintf(rw, "tickcraft_index_queue_depth %d\n", st.QueueDepth)
		fmt.Fprintf(rw, "# HELP tickcraft_index_dropped_total Index writes dropped on a full queue.\n# TYPE tickcraft_index_dropped_total counter\n")
		fmt.Fprintf(rw, "tickcraft_index_dropped_total{stream=%q} %d\n", "tick", st.DropTickTotal)
		fmt.Fprintf(rw, "tickcraft_index_dropped_total{stream=%q} %d\n", "audit", st.DropAuditTotal)
		fmt.Fprintf(rw, "tickcraft_index_dropped_total{stream=%q} %d\n", "snapshot", st.DropSnapshotTotal)
	}
	s.writeMirrorMetrics(rw)
}

func (s *Server) writeMirrorMetrics(rw io.Writer) {
	if s.mirror == nil {
		return
	}
	st := s.mirror.Stats()
	fmt.Fprintf(rw, "# HELP tickcraft_mirror_queue_depth Mirror upload queue depth.\n# TYPE tickcraft_mirror_queue_depth gauge\n")
	fmt.Fprintf(rw, "tickcraft_mirror_queue_depth %d\n", st.QueueDepth)
	fmt.Fprintf(rw, "# HELP tickcraft_mirror_dropped_total Uploads dropped on a full queue.\n# TYPE tickcraft_mirror_dropped_total counter\n")
	fmt.Fprintf(rw, "tickcraft_mirror_dropped_total %d\n", st.Dropped)

	kinds := make([]string, 0, len(st.Artifacts))
	for k := range st.Artifacts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	fmt.Fprintf(rw, "# HELP tickcraft_mirror_files_total Mirrored files by artifact and outcome.\n# TYPE tickcraft_mirror_files_total counter\n")
	for _, k := range kinds {
		a := st.Artifacts[k]
		fmt.Fprintf(rw, "tickcraft_mirror_files_total{artifact=%q,outcome=%q} %d\n", k, "uploaded", a.Uploaded)
		fmt.Fprintf(rw, "tickcraft_mirror_files_total{artifact=%q,outcome=%q} %d\n", k, "failed", a.Failed)
		fmt.Fprintf(rw, "tickcraft_mirror_files_total{artifact=%q,outcome=%q} %d\n", k, "skipped", a.Skipped)
	}
}
