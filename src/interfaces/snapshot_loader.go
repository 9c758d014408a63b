package interfaces

import (
	"context"

	"dashboard-sync/src/models"
)

// -----------------------------------------------------------------------------
// ISnapshotLoader fetches the one-time baseline state.
// -----------------------------------------------------------------------------

type ISnapshotLoader interface {

	// LoadSnapshot reads portfolio, positions, symbols, bot status and quotes.
	// Failures are reported as *helpers.SnapshotUnavailableError and never retried.
	LoadSnapshot(ctx context.Context) (*models.MSnapshot, error)

	// -----------------------------------------------------------------------------

	// FetchQuote reads the current quote of one symbol.
	FetchQuote(ctx context.Context, symbol string) (models.MQuote, error)
}
