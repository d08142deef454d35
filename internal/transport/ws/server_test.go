package ws

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickcraft.ai/internal/protocol"
	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/device"
	world "tickcraft.ai/internal/sim/world"
)

func startServer(t *testing.T, token string) string {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	require.NoError(t, err)
	w, err := world.New(world.WorldConfig{Seed: 9}, cats)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	srv := httptest.NewServer(NewServer(w, token, nil).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, token string) (*websocket.Conn, protocol.WelcomeMsg) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "test"}
	if token != "" {
		hello.Auth = &protocol.HelloAuth{Token: token}
	}
	require.NoError(t, conn.WriteJSON(hello))

	var welcome protocol.WelcomeMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&welcome))
	return conn, welcome
}

func exec(t *testing.T, conn *websocket.Conn, id, line string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(protocol.ExecMsg{
		Type: protocol.TypeExec, ProtocolVersion: protocol.Version, ReqID: id, Command: line,
	}))
}

func read(t *testing.T, conn *websocket.Conn) protocol.ResultMsg {
	t.Helper()
	var res protocol.ResultMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&res))
	require.Equal(t, protocol.TypeResult, res.Type)
	return res
}

func TestServer_WelcomeAndOrderedResults(t *testing.T) {
	url := startServer(t, "")
	conn, welcome := dial(t, url, "")

	assert.Equal(t, protocol.TypeWelcome, welcome.Type)
	assert.NotEmpty(t, welcome.SessionID)
	assert.Equal(t, "world_1", welcome.WorldID)
	assert.Equal(t, int64(9), welcome.WorldParams.Seed)
	assert.Contains(t, welcome.Catalogs, "items.json")
	assert.Contains(t, welcome.Verbs, "give")

	exec(t, conn, "1", "setblock 0 64 0 chest")
	exec(t, conn, "2", "frobnicate")
	exec(t, conn, "3", "give 0 64 0 cobblestone 5")
	exec(t, conn, "4", "contents 4 64 4")
	exec(t, conn, "5", "contents 0 64 0")

	r1 := read(t, conn)
	assert.Equal(t, "1", r1.ReqID)
	assert.True(t, r1.Accepted)

	r2 := read(t, conn)
	assert.Equal(t, "2", r2.ReqID)
	assert.False(t, r2.Accepted)
	assert.Equal(t, protocol.ErrBadRequest, r2.Code)

	r3 := read(t, conn)
	assert.Equal(t, "3", r3.ReqID)
	assert.True(t, r3.Accepted, r3.Message)

	r4 := read(t, conn)
	assert.Equal(t, "4", r4.ReqID)
	assert.Equal(t, protocol.ErrInvalidTarget, r4.Code)

	r5 := read(t, conn)
	assert.Equal(t, "5", r5.ReqID)
	assert.Contains(t, r5.Output, "COBBLESTONE x5")
	assert.GreaterOrEqual(t, r5.Tick, r1.Tick)
}

func TestServer_RejectsBadFrames(t *testing.T) {
	url := startServer(t, "")
	conn, _ := dial(t, url, "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"PING"}`)))
	res := read(t, conn)
	assert.Equal(t, protocol.ErrProtoBadRequest, res.Code)

	require.NoError(t, conn.WriteJSON(protocol.ExecMsg{Type: protocol.TypeExec, ProtocolVersion: "0.1", ReqID: "x", Command: "weather rain"}))
	res = read(t, conn)
	assert.Equal(t, "x", res.ReqID)
	assert.Equal(t, protocol.ErrProtoBadRequest, res.Code)
}

func TestServer_TokenRequired(t *testing.T) {
	url := startServer(t, "s3cret")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "x"}))
	res := read(t, conn)
	assert.Equal(t, protocol.ErrUnauthorized, res.Code)

	ok, welcome := dial(t, url, "s3cret")
	assert.NotEmpty(t, welcome.SessionID)
	exec(t, ok, "w", "weather rain")
	assert.True(t, read(t, ok).Accepted)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, protocol.ErrWorldBusy, ErrorCode(world.ErrWorldBusy))
	assert.Equal(t, protocol.ErrInvalidTarget, ErrorCode(fmt.Errorf("wrap: %w", world.ErrNoDevice)))
	assert.Equal(t, protocol.ErrBadRequest, ErrorCode(world.ErrBadSlot))
	assert.Equal(t, protocol.ErrNoResource, ErrorCode(device.ErrNoPayment))
	assert.Equal(t, protocol.ErrNoPermission, ErrorCode(device.ErrEffectLocked))
	assert.Equal(t, protocol.ErrRejected, ErrorCode(fmt.Errorf("container full")))
}
