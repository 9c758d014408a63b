package models

// -----------------------------------------------------------------------------
// Stream wire format: {"type": "...", "data": {...}}
// -----------------------------------------------------------------------------

const (
	MessageTypePortfolioUpdate = "portfolio_update"
	MessageTypeTradeExecuted   = "trade_executed"
	MessageTypeQuoteUpdate     = "quote_update"
	MessageTypeInitialData     = "initial_data"
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
)

// MMessageKind discriminates MStreamMessage variants.
type MMessageKind int

const (
	KindUnknown MMessageKind = iota
	KindPortfolioUpdate
	KindTradeExecuted
	KindQuoteUpdate
	KindInitialData
	KindPong
)

// -----------------------------------------------------------------------------

func (k MMessageKind) String() string {
	switch k {
	case KindPortfolioUpdate:
		return MessageTypePortfolioUpdate
	case KindTradeExecuted:
		return MessageTypeTradeExecuted
	case KindQuoteUpdate:
		return MessageTypeQuoteUpdate
	case KindInitialData:
		return MessageTypeInitialData
	case KindPong:
		return MessageTypePong
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------

// KindOf maps a wire tag to its kind. Unrecognized tags map to KindUnknown.
func KindOf(tag string) MMessageKind {
	switch tag {
	case MessageTypePortfolioUpdate:
		return KindPortfolioUpdate
	case MessageTypeTradeExecuted:
		return KindTradeExecuted
	case MessageTypeQuoteUpdate:
		return KindQuoteUpdate
	case MessageTypeInitialData:
		return KindInitialData
	case MessageTypePong:
		return KindPong
	default:
		return KindUnknown
	}
}

// -----------------------------------------------------------------------------

// MPortfolioUpdate is the data of a portfolio_update message.
type MPortfolioUpdate struct {
	Portfolio  MPortfolioSummary `json:"portfolio"`
	Positions  []MPosition       `json:"positions"`
	MarketData map[string]MQuote `json:"market_data,omitempty"`
}

// MInitialData is the data of the initial_data message sent on every connect.
type MInitialData struct {
	Portfolio MPortfolioSummary `json:"portfolio"`
	Positions []MPosition       `json:"positions"`
	Symbols   []MSymbol         `json:"symbols"`
	IsRunning bool              `json:"is_running"`
}

// -----------------------------------------------------------------------------

// MStreamMessage is a decoded stream frame. Exactly one payload is set,
// selected by Kind; KindUnknown and KindPong carry none.
type MStreamMessage struct {
	Kind            MMessageKind
	Type            string
	PortfolioUpdate *MPortfolioUpdate
	Trade           *MTradeExecution
	Quote           *MQuote
	InitialData     *MInitialData
}

// MOutboundMessage is a frame the client writes to the stream.
type MOutboundMessage struct {
	Type string `json:"type"`
}
