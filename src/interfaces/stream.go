package interfaces

import (
	"context"

	"dashboard-sync/src/models"
)

// -----------------------------------------------------------------------------
// IStreamConnection is one open push connection.
// -----------------------------------------------------------------------------

type IStreamConnection interface {
	// ReadMessage blocks until the next data frame arrives or the connection fails.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one text frame. Only one goroutine writes at a time.
	WriteMessage(data []byte) error

	Close() error
}

// -----------------------------------------------------------------------------
// IDialer opens stream connections.
// -----------------------------------------------------------------------------

type IDialer interface {
	Dial(ctx context.Context, url string) (IStreamConnection, error)
}

// -----------------------------------------------------------------------------
// IStreamManager owns the lifecycle of the single push connection.
// -----------------------------------------------------------------------------

type IStreamManager interface {
	Start(onMessage func([]byte), onStateChange func(from, to models.MConnectionState)) error
	Stop()
	State() models.MConnectionState
}
