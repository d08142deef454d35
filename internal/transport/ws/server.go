// Package ws serves the admin command socket: HELLO/WELCOME, then EXEC
// requests answered by RESULT messages in request order.
package ws

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tickcraft.ai/internal/protocol"
	"tickcraft.ai/internal/sim/command"
	world "tickcraft.ai/internal/sim/world"
)

const maxPending = 64

type Server struct {
	world *world.World
	log   *zap.Logger
	token string

	upgrader websocket.Upgrader
}

// NewServer returns a command socket for w. A non-empty token must be
// presented in HELLO.auth.token.
func NewServer(w *world.World, token string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		world: w,
		log:   logger.Named("ws"),
		token: token,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// pending is one EXEC awaiting its tick. Parse failures carry a ready
// result so they stay ordered with the commands around them.
type pending struct {
	reqID string
	resp  chan world.CommandResult
	ready *protocol.ResultMsg
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, ok := s.handshake(conn)
		if !ok {
			return
		}
		log := s.log.With(zap.String("session", sessionID), zap.String("remote", r.RemoteAddr))
		log.Info("session opened")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, maxPending)
		queue := make(chan pending, maxPending)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Results goroutine: waits on each request in order.
		go func() {
			for {
				var p pending
				select {
				case <-ctx.Done():
					return
				case p = <-queue:
				}
				res := p.ready
				if res == nil {
					select {
					case <-ctx.Done():
						return
					case cr := <-p.resp:
						res = resultOf(p.reqID, cr)
					}
				}
				b, err := json.Marshal(res)
				if err != nil {
					log.Error("marshal result", zap.Error(err))
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- b:
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			p := s.submit(msg)
			select {
			case queue <- p:
			default:
				if p.resp != nil {
					// Already queued in the world; the reply is lost but the
					// command still applies.
					log.Warn("result queue full", zap.String("req_id", p.reqID))
				}
				b, _ := json.Marshal(protocol.Rejected(p.reqID, protocol.ErrWorldBusy, "too many pending requests"))
				select {
				case out <- b:
				default:
				}
			}
		}
		log.Info("session closed")
	}
}

// submit parses one client frame and hands the command to the world.
func (s *Server) submit(msg []byte) pending {
	reject := func(reqID, code, text string) pending {
		res := protocol.Rejected(reqID, code, text)
		return pending{reqID: reqID, ready: &res}
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeExec {
		return reject("", protocol.ErrProtoBadRequest, "expected EXEC")
	}
	var exec protocol.ExecMsg
	if err := json.Unmarshal(msg, &exec); err != nil {
		return reject("", protocol.ErrProtoBadRequest, "bad EXEC")
	}
	if exec.ProtocolVersion != protocol.Version {
		return reject(exec.ReqID, protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	if strings.TrimSpace(exec.ReqID) == "" {
		return reject("", protocol.ErrProtoBadRequest, "missing req_id")
	}

	cmd, err := command.Parse(s.world.Catalogs(), exec.Command)
	if err != nil {
		return reject(exec.ReqID, ErrorCode(err), err.Error())
	}
	resp := make(chan world.CommandResult, 1)
	select {
	case s.world.Commands() <- world.CommandRequest{Cmd: cmd, Resp: resp}:
	default:
		return reject(exec.ReqID, protocol.ErrWorldBusy, world.ErrWorldBusy.Error())
	}
	return pending{reqID: exec.ReqID, resp: resp}
}

func resultOf(reqID string, cr world.CommandResult) *protocol.ResultMsg {
	var res protocol.ResultMsg
	if cr.Err != nil {
		res = protocol.Rejected(reqID, ErrorCode(cr.Err), cr.Err.Error())
		res.Tick = cr.Tick
	} else {
		res = protocol.Accepted(reqID, cr.Tick, cr.Out)
	}
	return &res
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return "", false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "bad HELLO")
		return "", false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return "", false
	}
	if s.token != "" {
		got := ""
		if hello.Auth != nil {
			got = strings.TrimSpace(hello.Auth.Token)
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			_ = writeJSON(conn, protocol.Rejected("", protocol.ErrUnauthorized, "bad token"))
			closeWith(conn, websocket.ClosePolicyViolation, "unauthorized")
			return "", false
		}
	}

	sessionID = uuid.NewString()
	cfg := s.world.Config()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		WorldID:         s.world.ID(),
		Tick:            s.world.CurrentTick(),
		WorldParams: protocol.WorldParams{
			TickRateHz: cfg.Tuning.TickRateHz,
			DayTicks:   cfg.Tuning.DayTicks,
			MinY:       cfg.MinY,
			Height:     cfg.Tuning.WorldHeight,
			Seed:       cfg.Seed,
		},
		Catalogs: s.world.Catalogs().Digests(),
		Verbs:    command.Verbs(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", false
	}
	if hello.ClientName != "" {
		s.log.Debug("hello", zap.String("client", hello.ClientName), zap.String("session", sessionID))
	}
	return sessionID, true
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
