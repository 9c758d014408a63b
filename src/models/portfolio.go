package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Portfolio summary singleton. Always replaced as a whole, never field by field.
// -----------------------------------------------------------------------------

type MPortfolioSummary struct {
	Capital            decimal.Decimal `json:"capital"`
	AvailableCapital   decimal.Decimal `json:"available_capital"`
	InvestedCapital    decimal.Decimal `json:"invested_capital"`
	TotalValue         decimal.Decimal `json:"total_value"`
	RealizedPnL        decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL      decimal.Decimal `json:"unrealized_pnl"`
	TotalPnL           decimal.Decimal `json:"total_pnl"`
	TotalReturnPercent decimal.Decimal `json:"total_return_percent"`
	OpenPositions      int             `json:"open_positions"`
}

// -----------------------------------------------------------------------------

// MBotStatus mirrors /api/bot/status. Display only.
type MBotStatus struct {
	IsRunning      bool `json:"is_running"`
	SimulationMode bool `json:"simulation_mode"`
}

// -----------------------------------------------------------------------------

// MTradeExecution is the payload of a trade_executed notification.
type MTradeExecution struct {
	Status     string          `json:"status"`
	Action     string          `json:"action"`
	Symbol     string          `json:"symbol"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Cost       decimal.Decimal `json:"cost,omitzero"`
	Proceeds   decimal.Decimal `json:"proceeds,omitzero"`
	PnL        decimal.Decimal `json:"pnl,omitzero"`
	EntryPrice decimal.Decimal `json:"entry_price,omitzero"`
	StopLoss   decimal.Decimal `json:"stop_loss,omitzero"`
	TakeProfit decimal.Decimal `json:"take_profit,omitzero"`
}

// -----------------------------------------------------------------------------

// MJournalTrade is a trade notification as stored by the session journal.
type MJournalTrade struct {
	SessionID  string          `json:"session_id"`
	ReceivedAt time.Time       `json:"received_at"`
	Trade      MTradeExecution `json:"trade"`
}
