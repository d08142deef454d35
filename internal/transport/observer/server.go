// Package observer streams read-only per-tick state to loopback clients.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tickcraft.ai/internal/observerproto"
	"tickcraft.ai/internal/sim/geom"
	world "tickcraft.ai/internal/sim/world"
)

type Server struct {
	world *world.World
	log   *zap.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(w *world.World, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		world: w,
		log:   logger.Named("observer"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		cfg := s.world.Config()
		cats := s.world.Catalogs()
		blocks := make([]string, 0, len(cats.Blocks.Defs))
		for id := range cats.Blocks.Defs {
			blocks = append(blocks, id)
		}
		sort.Strings(blocks)

		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			WorldID:         cfg.ID,
			Tick:            s.world.CurrentTick(),
			WorldParams: observerproto.WorldParams{
				TickRateHz: cfg.Tuning.TickRateHz,
				DayTicks:   cfg.Tuning.DayTicks,
				MinY:       cfg.MinY,
				Height:     cfg.Tuning.WorldHeight,
				Seed:       cfg.Seed,
			},
			Blocks:         blocks,
			CatalogDigests: cats.Digests(),
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg)
		if !ok {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		log := s.log.With(zap.String("session", sid))
		tickOut := make(chan []byte, 8)
		select {
		case s.world.ObserverJoin() <- joinRequest(sid, tickOut, sub):
		default:
			closeWith(conn, websocket.CloseTryAgainLater, "server busy")
			return
		}
		log.Debug("observer joined", zap.Strings("kinds", sub.Kinds))
		defer func() {
			select {
			case s.world.ObserverLeave() <- sid:
			default:
				// World loop is stopping; nothing else to do.
			}
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// A re-SUBSCRIBE rejoins under the same id; the world closes the
		// previous channel and the writer moves on to the next one.
		next := make(chan chan []byte, 1)

		writeErr := make(chan error, 1)
		go func() {
			cur := tickOut
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b, ok := <-cur:
					if !ok {
						select {
						case cur = <-next:
							continue
						default:
							writeErr <- nil
							return
						}
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := decodeSubscribe(msg)
			if !ok {
				continue
			}
			ch := make(chan []byte, 8)
			select {
			case next <- ch:
			default:
				// An update is still in flight; the client may resend.
				continue
			}
			select {
			case s.world.ObserverJoin() <- joinRequest(sid, ch, sub):
			default:
				<-next
			}
		}

		cancel()
		closeWith(conn, websocket.CloseNormalClosure, "bye")

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func decodeSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	normalizeSubscribe(&sub)
	return sub, true
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	kinds := sub.Kinds[:0]
	for _, k := range sub.Kinds {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			kinds = append(kinds, k)
		}
	}
	sub.Kinds = kinds
	if sub.Center == nil {
		sub.Radius = 0
		return
	}
	if sub.Radius <= 0 {
		sub.Radius = 16
	}
	if sub.Radius > 256 {
		sub.Radius = 256
	}
}

func joinRequest(sid string, out chan []byte, sub observerproto.SubscribeMsg) world.ObserverJoinRequest {
	req := world.ObserverJoinRequest{
		SessionID: sid,
		TickOut:   out,
		Kinds:     sub.Kinds,
		Radius:    sub.Radius,
	}
	if sub.Center != nil {
		c := geom.P(sub.Center[0], sub.Center[1], sub.Center[2])
		req.Center = &c
	}
	return req
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

// IsLoopbackRemote reports whether an http.Request.RemoteAddr is a
// loopback address.
func IsLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
