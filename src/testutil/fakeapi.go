// Package testutil provides an in-process stand-in for the trading API:
// the snapshot REST endpoints, the control endpoints and the /ws push stream.
package testutil

import (
	"encoding/json"
	"net/http"
	"sync"

	"dashboard-sync/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// -----------------------------------------------------------------------------
// FakeTradingAPI
// -----------------------------------------------------------------------------

type FakeTradingAPI struct {
	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu              sync.Mutex
	portfolio       models.MPortfolioSummary
	positions       []models.MPosition
	marketData      map[string]models.MQuote
	quotes          map[string]models.MQuote
	symbols         []models.MSymbol
	bot             models.MBotStatus
	sendInitialData bool
	failures        map[string]int
	bodies          map[string]string
	requests        map[string]int

	clientsMu sync.Mutex
	clients   map[*fakeClient]struct{}
	connects  int
	received  [][]byte
}

type fakeClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// -----------------------------------------------------------------------------

func NewFakeTradingAPI() *FakeTradingAPI {
	f := &FakeTradingAPI{
		engine:     gin.New(),
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		marketData: make(map[string]models.MQuote),
		quotes:     make(map[string]models.MQuote),
		failures:   make(map[string]int),
		bodies:     make(map[string]string),
		requests:   make(map[string]int),
		clients:    make(map[*fakeClient]struct{}),
	}
	f.engine.Use(gin.Recovery(), f.countAndFail)

	f.engine.GET("/api/portfolio", f.getPortfolio)
	f.engine.GET("/api/symbols", f.getSymbols)
	f.engine.GET("/api/market/:symbol", f.getMarket)
	f.engine.GET("/api/bot/status", f.getBotStatus)
	f.engine.POST("/api/bot/start", f.postBot(true))
	f.engine.POST("/api/bot/stop", f.postBot(false))
	f.engine.GET("/ws", f.handleWebSocket)
	return f
}

// NewSeededFakeTradingAPI returns a fake with a small NSE book: one INFY
// position, three tracked symbols and a quote for each.
func NewSeededFakeTradingAPI() *FakeTradingAPI {
	f := NewFakeTradingAPI()
	f.SetPortfolio(models.MPortfolioSummary{
		Capital:          decimal.NewFromInt(100000),
		AvailableCapital: decimal.NewFromInt(85000),
		InvestedCapital:  decimal.NewFromInt(15000),
		TotalValue:       decimal.NewFromInt(100000),
		TotalPnL:         decimal.Zero,
		OpenPositions:    1,
	}, []models.MPosition{{
		Symbol:       "INFY",
		Quantity:     10,
		EntryPrice:   decimal.NewFromInt(1500),
		CurrentPrice: decimal.NewFromInt(1500),
	}})
	f.SetSymbols([]models.MSymbol{
		{Symbol: "INFY", Name: "Infosys"},
		{Symbol: "TCS", Name: "Tata Consultancy Services"},
		{Symbol: "RELIANCE", Name: "Reliance Industries"},
	})
	f.SetQuote(models.MQuote{Symbol: "INFY", Name: "Infosys", Price: decimal.NewFromInt(1500)})
	f.SetQuote(models.MQuote{Symbol: "TCS", Name: "Tata Consultancy Services", Price: decimal.NewFromInt(3500)})
	f.SetQuote(models.MQuote{Symbol: "RELIANCE", Name: "Reliance Industries", Price: decimal.NewFromInt(2450)})
	f.SetBotStatus(models.MBotStatus{SimulationMode: true})
	return f
}

// -----------------------------------------------------------------------------

func (f *FakeTradingAPI) Handler() http.Handler {
	return f.engine
}

// -----------------------------------------------------------------------------
// Seeding
// -----------------------------------------------------------------------------

func (f *FakeTradingAPI) SetPortfolio(summary models.MPortfolioSummary, positions []models.MPosition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.portfolio = summary
	f.positions = append([]models.MPosition(nil), positions...)
}

// SetMarketData sets the quotes embedded in the /api/portfolio response.
func (f *FakeTradingAPI) SetMarketData(quotes map[string]models.MQuote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marketData = make(map[string]models.MQuote, len(quotes))
	for k, v := range quotes {
		f.marketData[k] = v
	}
}

func (f *FakeTradingAPI) SetQuote(q models.MQuote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[q.Symbol] = q
}

func (f *FakeTradingAPI) SetSymbols(symbols []models.MSymbol) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbols = append([]models.MSymbol(nil), symbols...)
}

func (f *FakeTradingAPI) SetBotStatus(status models.MBotStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bot = status
}

// SendInitialData makes /ws greet each new client with an initial_data frame.
func (f *FakeTradingAPI) SendInitialData(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendInitialData = enabled
}

// Fail makes path answer with status until cleared with status 0.
func (f *FakeTradingAPI) Fail(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.failures, path)
		return
	}
	f.failures[path] = status
}

// Respond makes path answer 200 with body verbatim until cleared with "".
func (f *FakeTradingAPI) Respond(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if body == "" {
		delete(f.bodies, path)
		return
	}
	f.bodies[path] = body
}

// Requests returns how many times path was requested.
func (f *FakeTradingAPI) Requests(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

// -----------------------------------------------------------------------------
// Stream control
// -----------------------------------------------------------------------------

// Push sends {"type": msgType, "data": data} to every connected client.
func (f *FakeTradingAPI) Push(msgType string, data interface{}) error {
	frame, err := json.Marshal(gin.H{"type": msgType, "data": data})
	if err != nil {
		return err
	}
	f.PushRaw(frame)
	return nil
}

// PushRaw sends frame verbatim to every connected client.
func (f *FakeTradingAPI) PushRaw(frame []byte) {
	for _, c := range f.snapshotClients() {
		c.write(frame)
	}
}

// DropClients closes every stream connection without a close handshake.
func (f *FakeTradingAPI) DropClients() {
	f.clientsMu.Lock()
	clients := f.clients
	f.clients = make(map[*fakeClient]struct{})
	f.clientsMu.Unlock()

	for c := range clients {
		c.conn.Close()
	}
}

func (f *FakeTradingAPI) Clients() int {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()
	return len(f.clients)
}

// Connects counts every /ws upgrade since creation.
func (f *FakeTradingAPI) Connects() int {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()
	return f.connects
}

// Received returns the client frames other than pings.
func (f *FakeTradingAPI) Received() [][]byte {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()
	return append([][]byte(nil), f.received...)
}

func (f *FakeTradingAPI) snapshotClients() []*fakeClient {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()
	out := make([]*fakeClient, 0, len(f.clients))
	for c := range f.clients {
		out = append(out, c)
	}
	return out
}

func (c *fakeClient) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (f *FakeTradingAPI) countAndFail(c *gin.Context) {
	path := c.Request.URL.Path
	f.mu.Lock()
	f.requests[path]++
	status := f.failures[path]
	body, canned := f.bodies[path]
	f.mu.Unlock()

	if status != 0 {
		c.AbortWithStatusJSON(status, gin.H{"detail": "injected failure"})
		return
	}
	if canned {
		c.Data(http.StatusOK, "application/json", []byte(body))
		c.Abort()
		return
	}
	c.Next()
}

func (f *FakeTradingAPI) getPortfolio(c *gin.Context) {
	f.mu.Lock()
	resp := models.MPortfolioResponse{Portfolio: f.portfolio, Positions: f.positionsLocked()}
	if len(f.marketData) > 0 {
		resp.MarketData = f.marketData
	}
	body, err := json.Marshal(resp)
	f.mu.Unlock()
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func (f *FakeTradingAPI) getSymbols(c *gin.Context) {
	f.mu.Lock()
	symbols := append([]models.MSymbol{}, f.symbols...)
	f.mu.Unlock()
	c.JSON(http.StatusOK, symbols)
}

func (f *FakeTradingAPI) getMarket(c *gin.Context) {
	f.mu.Lock()
	q, ok := f.quotes[c.Param("symbol")]
	f.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "unknown symbol"})
		return
	}
	c.JSON(http.StatusOK, q)
}

func (f *FakeTradingAPI) getBotStatus(c *gin.Context) {
	f.mu.Lock()
	bot := f.bot
	f.mu.Unlock()
	c.JSON(http.StatusOK, bot)
}

func (f *FakeTradingAPI) postBot(running bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		f.mu.Lock()
		f.bot.IsRunning = running
		f.mu.Unlock()

		status := "stopped"
		if running {
			status = "started"
		}
		c.JSON(http.StatusOK, models.MBotControlResponse{Status: status, IsRunning: running})
	}
}

func (f *FakeTradingAPI) positionsLocked() []models.MPosition {
	return append([]models.MPosition{}, f.positions...)
}

// -----------------------------------------------------------------------------

func (f *FakeTradingAPI) handleWebSocket(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	client := &fakeClient{conn: conn}

	f.mu.Lock()
	greet := f.sendInitialData
	initial := models.MInitialData{
		Portfolio: f.portfolio,
		Positions: f.positionsLocked(),
		Symbols:   append([]models.MSymbol{}, f.symbols...),
		IsRunning: f.bot.IsRunning,
	}
	f.mu.Unlock()

	if greet {
		frame, _ := json.Marshal(gin.H{"type": models.MessageTypeInitialData, "data": initial})
		client.write(frame)
	}

	f.clientsMu.Lock()
	f.clients[client] = struct{}{}
	f.connects++
	f.clientsMu.Unlock()

	defer func() {
		f.clientsMu.Lock()
		delete(f.clients, client)
		f.clientsMu.Unlock()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if gjson.GetBytes(msg, "type").String() == models.MessageTypePing {
			client.write([]byte(`{"type":"pong"}`))
			continue
		}
		f.clientsMu.Lock()
		f.received = append(f.received, msg)
		f.clientsMu.Unlock()
	}
}
