package observerproto

// Version is the observer protocol version (separate from the admin WS protocol).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Optional: only stream events of these kinds (empty = all).
	Kinds []string `json:"kinds,omitempty"`

	// Optional: only stream events within Radius blocks of Center.
	Center *[3]int `json:"center,omitempty"`
	Radius int     `json:"radius,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string            `json:"protocol_version"`
	WorldID         string            `json:"world_id"`
	Tick            uint64            `json:"tick"`
	WorldParams     WorldParams       `json:"world_params"`
	Blocks          []string          `json:"blocks"`
	CatalogDigests  map[string]string `json:"catalog_digests"`
}

type WorldParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	DayTicks   int   `json:"day_ticks"`
	MinY       int   `json:"min_y"`
	Height     int   `json:"height"`
	Seed       int64 `json:"seed"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Digest          string `json:"digest"`

	TimeOfDay float64 `json:"time_of_day"`
	Raining   bool    `json:"raining"`

	Devices int           `json:"devices"`
	Players []PlayerState `json:"players"`
	Events  []Event       `json:"events,omitempty"`
}

type PlayerState struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Pos     [3]float64 `json:"pos"`
	Open    *[3]int    `json:"open,omitempty"`
	Effects []string   `json:"effects,omitempty"`
}

type Event struct {
	Kind string         `json:"kind"`
	Pos  [3]int         `json:"pos"`
	Data map[string]any `json:"data,omitempty"`
}
