package interfaces

import (
	"context"

	"dashboard-sync/src/models"
)

// -----------------------------------------------------------------------------
// IDataExchanger serves the synchronized store to local consumers.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes a store snapshot to connected listeners. It never blocks.
	Broadcast(snapshot models.MStoreSnapshot)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}

// -----------------------------------------------------------------------------
// IStateSource is the read side of a running sync session.
// -----------------------------------------------------------------------------

type IStateSource interface {
	Snapshot() models.MStoreSnapshot
	Quote(symbol string) (models.MQuote, bool)
	SessionID() string
	RecentTrades(n int) []models.MJournalTrade
	JournalTrades(limit int) ([]models.MJournalTrade, error)
	RefreshQuote(ctx context.Context, symbol string) (models.MQuote, error)
	ErrorCounts() map[string]int
}

// -----------------------------------------------------------------------------
// IBotControl forwards start/stop to the trading API. Display only.
// -----------------------------------------------------------------------------

type IBotControl interface {
	Start(ctx context.Context) (models.MBotControlResponse, error)
	Stop(ctx context.Context) (models.MBotControlResponse, error)
	Status(ctx context.Context) (models.MBotStatus, error)
}
