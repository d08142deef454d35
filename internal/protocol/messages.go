package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ClientName      string     `json:"client_name"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	SessionID       string            `json:"session_id"`
	WorldID         string            `json:"world_id"`
	Tick            uint64            `json:"tick"`
	WorldParams     WorldParams       `json:"world_params"`
	Catalogs        map[string]string `json:"catalogs"`
	Verbs           []string          `json:"verbs"`
}

type WorldParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	DayTicks   int   `json:"day_ticks"`
	MinY       int   `json:"min_y"`
	Height     int   `json:"height"`
	Seed       int64 `json:"seed"`
}

// EXEC (client -> server): one command line, applied at the next tick.
type ExecMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	Command         string `json:"command"`
}

// RESULT (server -> client). ReqID is empty for handshake or framing errors.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Accepted        bool   `json:"accepted"`
	Tick            uint64 `json:"tick,omitempty"`
	Output          string `json:"output,omitempty"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}

func Accepted(reqID string, tick uint64, out string) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ReqID: reqID, Accepted: true, Tick: tick, Output: out}
}

func Rejected(reqID, code, msg string) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ReqID: reqID, Code: code, Message: msg}
}
