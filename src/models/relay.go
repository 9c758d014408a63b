package models

// Relay frame types sent to local websocket consumers.
const (
	RelayInitial = "INITIAL"
	RelayUpdate  = "UPDATE"
	RelayPong    = "PONG"
)

// MRelayMessage is one frame on the relay's /ws endpoint. Every frame carries
// the full merged state, so a consumer can drop any frame older than the
// last Version it saw.
type MRelayMessage struct {
	Type      string          `json:"type"`
	State     *MStoreSnapshot `json:"state,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// MRelayCommand is a frame a relay consumer may send: "ping" or "snapshot".
type MRelayCommand struct {
	Type string `json:"type"`
}

// -----------------------------------------------------------------------------

// MHealthResponse is the body of the relay's GET /api/health.
type MHealthResponse struct {
	Status          string           `json:"status"`
	SessionID       string           `json:"session_id"`
	ConnectionState MConnectionState `json:"connection_state"`
	Version         uint64           `json:"version"`
	Bootstrapped    bool             `json:"bootstrapped"`
	Connections     int              `json:"connections"`
	MarketMIC       string           `json:"market_mic,omitempty"`
	MarketOpen      bool             `json:"market_open"`
	Errors          map[string]int   `json:"errors"`
}
