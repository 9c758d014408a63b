package synchronizer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"dashboard-sync/src/helpers"
	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"
	"dashboard-sync/src/network"
	"dashboard-sync/src/snapshot"
	"dashboard-sync/src/stream"
	"dashboard-sync/src/testutil"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 3 * time.Second
const tick = 10 * time.Millisecond

type memJournal struct {
	mu          sync.Mutex
	trades      []models.MJournalTrade
	transitions [][2]models.MConnectionState
}

func (j *memJournal) Initialize() error { return nil }
func (j *memJournal) Close() error      { return nil }

func (j *memJournal) RecordTrade(sessionID string, trade models.MTradeExecution, at time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, models.MJournalTrade{SessionID: sessionID, ReceivedAt: at, Trade: trade})
	return nil
}

func (j *memJournal) RecordConnectionState(sessionID string, from, to models.MConnectionState, at time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.transitions = append(j.transitions, [2]models.MConnectionState{from, to})
	return nil
}

func (j *memJournal) RecentTrades(limit int) ([]models.MJournalTrade, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]models.MJournalTrade, 0, limit)
	for i := len(j.trades) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, j.trades[i])
	}
	return out, nil
}

func (j *memJournal) transitionCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.transitions)
}

// -----------------------------------------------------------------------------

type harness struct {
	api     *testutil.FakeTradingAPI
	server  *httptest.Server
	sync    *Synchronizer
	journal *memJournal
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	api := testutil.NewSeededFakeTradingAPI()
	srv := httptest.NewServer(api.Handler())

	cfg := &models.MConfig{
		Name:          "sync-test",
		TradeFeedSize: 10,
		API:           models.MAPIConfig{BaseURL: srv.URL, StreamPath: "/ws", RequestTimeout: 5, ConcurrentRequests: 2},
		Stream:        models.MStreamConfig{ReconnectDelayMs: 50, HandshakeTimeoutSeconds: 2},
	}
	log := logger.NewLogger(nil, "SyncTest")

	nm := network.NewAsyncNetworkManager(cfg, log)
	url, err := stream.StreamURL(cfg.API.BaseURL, cfg.API.StreamPath)
	require.NoError(t, err)
	manager := stream.NewManager(url, stream.NewWebsocketDialer(2*time.Second, "", false), cfg.Stream, log)
	journal := &memJournal{}

	h := &harness{
		api:     api,
		server:  srv,
		sync:    New(cfg, snapshot.NewLoader(cfg, nm, log), manager, journal, log),
		journal: journal,
	}
	t.Cleanup(func() {
		h.sync.Stop()
		api.DropClients()
		srv.Close()
	})
	return h
}

func (h *harness) waitOpen(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.sync.Store().ConnectionState() == models.ConnectionOpen && h.api.Clients() == 1
	}, waitFor, tick)
}

// -----------------------------------------------------------------------------

func TestSynchronizer_BootstrapThenMerge(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sync.Start(context.Background()))
	h.waitOpen(t)

	store := h.sync.Store()
	p, ok := store.Portfolio()
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(100000).Equal(p.TotalValue))
	assert.Len(t, store.Quotes(), 3)

	require.NoError(t, h.api.Push(models.MessageTypePortfolioUpdate, models.MPortfolioUpdate{
		Portfolio: models.MPortfolioSummary{TotalValue: decimal.NewFromInt(101000), TotalPnL: decimal.NewFromInt(1000)},
		Positions: []models.MPosition{{
			Symbol: "INFY", Quantity: 10, EntryPrice: decimal.NewFromInt(1500), CurrentPrice: decimal.NewFromInt(1600),
		}},
	}))

	require.Eventually(t, func() bool {
		p, _ := store.Portfolio()
		return p.TotalPnL.Equal(decimal.NewFromInt(1000))
	}, waitFor, tick)
	positions := store.Positions()
	require.Len(t, positions, 1)
	assert.True(t, decimal.NewFromInt(1600).Equal(positions[0].CurrentPrice))
}

func TestSynchronizer_TradesAndMalformedFrames(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sync.Start(context.Background()))
	h.waitOpen(t)
	version := h.sync.Store().Version()

	h.api.PushRaw([]byte(`{"type":`))
	h.api.PushRaw([]byte(`{"type":"brand_new_kind","data":{}}`))
	require.NoError(t, h.api.Push(models.MessageTypeTradeExecuted, models.MTradeExecution{
		Status: "executed", Action: "BUY", Symbol: "TCS", Quantity: 2, Price: decimal.NewFromInt(3500),
	}))

	require.Eventually(t, func() bool { return len(h.sync.RecentTrades(5)) == 1 }, waitFor, tick)
	assert.Equal(t, "TCS", h.sync.RecentTrades(5)[0].Trade.Symbol)
	assert.Equal(t, h.sync.SessionID(), h.sync.RecentTrades(5)[0].SessionID)
	assert.Equal(t, 1, h.sync.ErrorCounts()["malformed_message"])
	assert.Equal(t, version, h.sync.Store().Version(), "no frame above changes the store")

	h.journal.mu.Lock()
	assert.Len(t, h.journal.trades, 1)
	h.journal.mu.Unlock()
}

func TestSynchronizer_ReconnectKeepsState(t *testing.T) {
	h := newHarness(t)
	h.api.SendInitialData(true)
	require.NoError(t, h.sync.Start(context.Background()))
	h.waitOpen(t)

	require.NoError(t, h.api.Push(models.MessageTypeQuoteUpdate, models.MQuote{Symbol: "TCS", Price: decimal.NewFromInt(3600)}))
	require.Eventually(t, func() bool {
		q, _ := h.sync.Store().Quote("TCS")
		return q.Price.Equal(decimal.NewFromInt(3600))
	}, waitFor, tick)

	h.api.SetBotStatus(models.MBotStatus{IsRunning: true, SimulationMode: true})
	h.api.DropClients()

	require.Eventually(t, func() bool { return h.api.Connects() == 2 }, waitFor, tick)
	h.waitOpen(t)

	q, _ := h.sync.Store().Quote("TCS")
	assert.True(t, decimal.NewFromInt(3600).Equal(q.Price), "quotes survive the reconnect")
	require.Eventually(t, func() bool {
		bot := h.sync.Store().Snapshot().BotStatus
		return bot != nil && bot.IsRunning
	}, waitFor, tick)

	// IDLE->CONNECTING->OPEN->CLOSED->RECONNECTING->CONNECTING->OPEN
	assert.GreaterOrEqual(t, h.journal.transitionCount(), 6)
}

func TestSynchronizer_SnapshotFailureKeepsStreamIdle(t *testing.T) {
	h := newHarness(t)
	h.api.Fail("/api/portfolio", http.StatusBadGateway)

	err := h.sync.Start(context.Background())
	var snapErr *helpers.SnapshotUnavailableError
	require.ErrorAs(t, err, &snapErr)
	assert.False(t, h.sync.Store().Bootstrapped())
	assert.Equal(t, 0, h.api.Connects())

	// the caller may retry once the API recovers
	h.api.Fail("/api/portfolio", 0)
	require.NoError(t, h.sync.Start(context.Background()))
	h.waitOpen(t)
}

func TestSynchronizer_StopHaltsMerges(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sync.Start(context.Background()))
	h.waitOpen(t)

	h.sync.Stop()
	h.sync.Stop()
	version := h.sync.Store().Version()

	require.NoError(t, h.api.Push(models.MessageTypeQuoteUpdate, models.MQuote{Symbol: "TCS", Price: decimal.NewFromInt(1)}))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, version, h.sync.Store().Version())
	assert.ErrorIs(t, h.sync.Start(context.Background()), ErrStopped)
}

func TestSynchronizer_RefreshQuote(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sync.Start(context.Background()))
	h.waitOpen(t)

	h.api.SetQuote(models.MQuote{Symbol: "RELIANCE", Price: decimal.NewFromInt(2500)})
	q, err := h.sync.RefreshQuote(context.Background(), "RELIANCE")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2500).Equal(q.Price))

	stored, _ := h.sync.Store().Quote("RELIANCE")
	assert.True(t, decimal.NewFromInt(2500).Equal(stored.Price))
}

func TestSynchronizer_RefreshQuoteRejectsUntrackedSymbol(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sync.Start(context.Background()))
	h.waitOpen(t)

	// the API answers with a zero, symbol-less quote for unknown tickers
	h.api.SetQuote(models.MQuote{Symbol: "INFYY"})
	version := h.sync.Store().Version()

	_, err := h.sync.RefreshQuote(context.Background(), "INFYY")
	require.ErrorIs(t, err, helpers.ErrUntrackedSymbol)

	_, ok := h.sync.Store().Quote("INFYY")
	assert.False(t, ok)
	assert.Equal(t, version, h.sync.Store().Version())
	assert.Equal(t, 0, h.api.Requests("/api/market/INFYY"))
}

func TestSynchronizer_JournalTrades(t *testing.T) {
	h := newHarness(t)
	h.journal.trades = []models.MJournalTrade{
		{SessionID: "earlier-session", Trade: models.MTradeExecution{Symbol: "INFY"}},
	}
	require.NoError(t, h.sync.Start(context.Background()))
	h.waitOpen(t)

	require.NoError(t, h.api.Push(models.MessageTypeTradeExecuted, models.MTradeExecution{
		Status: "executed", Action: "SELL", Symbol: "TCS", Quantity: 1, Price: decimal.NewFromInt(3600),
	}))
	require.Eventually(t, func() bool { return len(h.sync.RecentTrades(5)) == 1 }, waitFor, tick)

	trades, err := h.sync.JournalTrades(5)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "TCS", trades[0].Trade.Symbol)
	assert.Equal(t, h.sync.SessionID(), trades[0].SessionID)
	assert.Equal(t, "earlier-session", trades[1].SessionID)

	// the session feed only knows this session
	assert.Len(t, h.sync.RecentTrades(5), 1)
}

func TestSynchronizer_JournalTradesWithoutJournal(t *testing.T) {
	cfg := &models.MConfig{TradeFeedSize: 5}
	s := New(cfg, nil, nil, nil, logger.NewLogger(nil, "SyncTest"))

	_, err := s.JournalTrades(5)
	assert.ErrorIs(t, err, helpers.ErrJournalDisabled)
}
