package models

// MSnapshot is the one-time bootstrap read.
type MSnapshot struct {
	Portfolio MPortfolioSummary `json:"portfolio"`
	Positions []MPosition       `json:"positions"`
	Quotes    []MQuote          `json:"quotes"`
	Symbols   []MSymbol         `json:"symbols"`
	BotStatus MBotStatus        `json:"bot_status"`
}

// -----------------------------------------------------------------------------
// Store read model handed to consumers
// -----------------------------------------------------------------------------

type MStoreSnapshot struct {
	Portfolio       *MPortfolioSummary   `json:"portfolio"`
	Positions       map[string]MPosition `json:"positions"`
	Quotes          map[string]MQuote    `json:"quotes"`
	Symbols         []MSymbol            `json:"symbols"`
	BotStatus       *MBotStatus          `json:"bot_status"`
	ConnectionState MConnectionState     `json:"connection_state"`
	Version         uint64               `json:"version"`
}

// -----------------------------------------------------------------------------

// MPortfolioResponse is the body of GET /api/portfolio.
type MPortfolioResponse struct {
	Portfolio  MPortfolioSummary `json:"portfolio"`
	Positions  []MPosition       `json:"positions"`
	MarketData map[string]MQuote `json:"market_data,omitempty"`
}

// MBotControlResponse is the body of POST /api/bot/start and /api/bot/stop.
type MBotControlResponse struct {
	Status    string `json:"status"`
	IsRunning bool   `json:"is_running"`
}
