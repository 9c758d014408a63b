package models

import "github.com/shopspring/decimal"

// MQuote is the latest market quote for one symbol. Symbol is the unique key.
type MQuote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Open          decimal.Decimal `json:"open,omitzero"`
	High          decimal.Decimal `json:"high,omitzero"`
	Low           decimal.Decimal `json:"low,omitzero"`
	Volume        int64           `json:"volume,omitempty"`
}

// MSymbol is one entry of the tracked-symbol list.
type MSymbol struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}
