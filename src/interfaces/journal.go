package interfaces

import (
	"time"

	"dashboard-sync/src/models"
)

// -----------------------------------------------------------------------------
// IJournal records sync diagnostics. It is write-mostly and never used to
// restore the in-memory store.
// -----------------------------------------------------------------------------

type IJournal interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// RecordTrade stores one trade_executed notification.
	RecordTrade(sessionID string, trade models.MTradeExecution, at time.Time) error

	// -----------------------------------------------------------------------------

	// RecordConnectionState stores one connection state transition.
	RecordConnectionState(sessionID string, from, to models.MConnectionState, at time.Time) error

	// -----------------------------------------------------------------------------

	// RecentTrades returns the latest trades, newest first.
	RecentTrades(limit int) ([]models.MJournalTrade, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
