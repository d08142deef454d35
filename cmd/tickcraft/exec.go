package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"tickcraft.ai/internal/protocol"
)

var (
	execURL   string
	execToken string
	execFile  string
)

var execCmd = &cobra.Command{
	Use:   "exec [command line]",
	Short: "Send admin commands to a running server",
	Long: `Send commands over the /v1/ws command socket. With no arguments,
lines are read from --file or stdin; blank lines and lines starting with
'#' are skipped. Commands are applied in order.

Examples:
  tickcraft exec setblock 0 64 0 hopper
  tickcraft exec --file build.txt`,
	RunE: runExec,
}

func init() {
	f := execCmd.Flags()
	f.StringVar(&execURL, "url", "ws://127.0.0.1:8080/v1/ws", "command socket url")
	f.StringVar(&execToken, "token", os.Getenv("TICKCRAFT_AUTH_TOKEN"), "auth token")
	f.StringVarP(&execFile, "file", "f", "", "read commands from file ('-' for stdin)")
	rootCmd.AddCommand(execCmd)
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		l := strings.TrimSpace(sc.Text())
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		out = append(out, l)
	}
	return out, sc.Err()
}

func runExec(cmd *cobra.Command, args []string) error {
	var lines []string
	switch {
	case len(args) > 0:
		lines = []string{strings.Join(args, " ")}
	case execFile != "" && execFile != "-":
		f, err := os.Open(execFile)
		if err != nil {
			return err
		}
		defer f.Close()
		if lines, err = readLines(f); err != nil {
			return err
		}
	default:
		var err error
		if lines, err = readLines(cmd.InOrStdin()); err != nil {
			return err
		}
	}
	if len(lines) == 0 {
		return errors.New("no commands")
	}

	conn, _, err := websocket.DefaultDialer.Dial(execURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", execURL, err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "tickcraft-cli"}
	if execToken != "" {
		hello.Auth = &protocol.HelloAuth{Token: execToken}
	}
	if err := conn.WriteJSON(hello); err != nil {
		return err
	}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	if welcome.Type != protocol.TypeWelcome {
		return fmt.Errorf("handshake rejected")
	}

	for i, l := range lines {
		msg := protocol.ExecMsg{Type: protocol.TypeExec, ProtocolVersion: protocol.Version, ReqID: strconv.Itoa(i + 1), Command: l}
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	failed := 0
	for range lines {
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		var res protocol.ResultMsg
		if err := conn.ReadJSON(&res); err != nil {
			return err
		}
		i, _ := strconv.Atoi(res.ReqID)
		line := ""
		if i >= 1 && i <= len(lines) {
			line = lines[i-1]
		}
		if res.Accepted {
			fmt.Fprintf(out, "[%d] %s: %s\n", res.Tick, line, res.Output)
			continue
		}
		failed++
		fmt.Fprintf(out, "[%d] %s: %s %s\n", res.Tick, line, res.Code, res.Message)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d commands rejected", failed, len(lines))
	}
	return nil
}
