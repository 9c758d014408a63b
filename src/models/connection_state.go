package models

import "fmt"

// MConnectionState is the lifecycle state of the single push connection.
type MConnectionState int

const (
	// ConnectionIdle is the only pre-start state; no edge leads back to it.
	ConnectionIdle MConnectionState = iota
	ConnectionConnecting
	ConnectionOpen
	ConnectionClosed
	ConnectionReconnecting
)

// -----------------------------------------------------------------------------

func (s MConnectionState) String() string {
	switch s {
	case ConnectionIdle:
		return "IDLE"
	case ConnectionConnecting:
		return "CONNECTING"
	case ConnectionOpen:
		return "OPEN"
	case ConnectionClosed:
		return "CLOSED"
	case ConnectionReconnecting:
		return "RECONNECTING"
	default:
		return "UNKNOWN"
	}
}

// -----------------------------------------------------------------------------

// MarshalText renders the state by name in JSON payloads.
func (s MConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names MarshalText produces.
func (s *MConnectionState) UnmarshalText(text []byte) error {
	for c := ConnectionIdle; c <= ConnectionReconnecting; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown connection state %q", text)
}

// -----------------------------------------------------------------------------

// CanTransitionTo reports whether from -> to is an edge of the connection graph.
// Connecting -> Closed covers a dial attempt that never opened.
func (s MConnectionState) CanTransitionTo(to MConnectionState) bool {
	switch s {
	case ConnectionIdle:
		return to == ConnectionConnecting
	case ConnectionConnecting:
		return to == ConnectionOpen || to == ConnectionClosed
	case ConnectionOpen:
		return to == ConnectionClosed
	case ConnectionClosed:
		return to == ConnectionReconnecting
	case ConnectionReconnecting:
		return to == ConnectionConnecting
	}
	return false
}
