package models

import "github.com/shopspring/decimal"

// MPosition is an open position. Symbol is unique within the open-positions set.
type MPosition struct {
	Symbol       string          `json:"symbol"`
	Quantity     int64           `json:"quantity"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	PnL          decimal.Decimal `json:"pnl"`
	PnLPercent   decimal.Decimal `json:"pnl_percent"`
	StopLoss     decimal.Decimal `json:"stop_loss"`
	TakeProfit   decimal.Decimal `json:"take_profit"`
	EntryTime    string          `json:"entry_time,omitempty"`
}
