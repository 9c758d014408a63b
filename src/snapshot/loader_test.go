package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"dashboard-sync/src/helpers"
	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"
	"dashboard-sync/src/network"
	"dashboard-sync/src/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T, api *testutil.FakeTradingAPI) (*Loader, *BotController) {
	t.Helper()
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	cfg := &models.MConfig{API: models.MAPIConfig{BaseURL: srv.URL, RequestTimeout: 5, ConcurrentRequests: 2}}
	log := logger.NewLogger(nil, "SnapshotTest")
	nm := network.NewAsyncNetworkManager(cfg, log)
	return NewLoader(cfg, nm, log), NewBotController(cfg, nm, log)
}

// -----------------------------------------------------------------------------

func TestLoadSnapshot(t *testing.T) {
	api := testutil.NewSeededFakeTradingAPI()
	api.SetMarketData(map[string]models.MQuote{
		"INFY": {Name: "Infosys", Price: decimal.RequireFromString("1510.5")},
	})
	loader, _ := newTestLoader(t, api)

	snap, err := loader.LoadSnapshot(context.Background())
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(100000).Equal(snap.Portfolio.TotalValue))
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, "INFY", snap.Positions[0].Symbol)
	assert.Len(t, snap.Symbols, 3)
	assert.True(t, snap.BotStatus.SimulationMode)

	require.Len(t, snap.Quotes, 3)
	assert.Equal(t, []string{"INFY", "RELIANCE", "TCS"}, []string{snap.Quotes[0].Symbol, snap.Quotes[1].Symbol, snap.Quotes[2].Symbol})
	assert.True(t, decimal.RequireFromString("1510.5").Equal(snap.Quotes[0].Price), "embedded market data wins")

	assert.Equal(t, 0, api.Requests("/api/market/INFY"))
	assert.Equal(t, 1, api.Requests("/api/market/TCS"))
	assert.Equal(t, 1, api.Requests("/api/market/RELIANCE"))
}

func TestLoadSnapshot_HeldSymbolOutsideTrackedList(t *testing.T) {
	api := testutil.NewSeededFakeTradingAPI()
	api.SetSymbols([]models.MSymbol{{Symbol: "TCS"}})
	loader, _ := newTestLoader(t, api)

	snap, err := loader.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Quotes, 2)
	assert.Equal(t, 1, api.Requests("/api/market/INFY"))
}

func TestLoadSnapshot_Failures(t *testing.T) {
	cases := map[string]string{
		"portfolio": "/api/portfolio",
		"symbols":   "/api/symbols",
		"bot":       "/api/bot/status",
		"quote":     "/api/market/TCS",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			api := testutil.NewSeededFakeTradingAPI()
			api.Fail(path, http.StatusServiceUnavailable)
			loader, _ := newTestLoader(t, api)

			_, err := loader.LoadSnapshot(context.Background())
			var snapErr *helpers.SnapshotUnavailableError
			require.ErrorAs(t, err, &snapErr)
			assert.Equal(t, path, snapErr.Endpoint)
			assert.Equal(t, 1, api.Requests(path), "the loader never retries")
		})
	}
}

func TestLoadSnapshot_WrongShapeBodies(t *testing.T) {
	cases := []struct {
		name, path, body string
	}{
		{"portfolio empty object", "/api/portfolio", `{}`},
		{"portfolio error detail", "/api/portfolio", `{"detail":"oops"}`},
		{"portfolio without positions", "/api/portfolio", `{"portfolio":{"total_value":1}}`},
		{"portfolio positions not a list", "/api/portfolio", `{"portfolio":{},"positions":{}}`},
		{"portfolio position without symbol", "/api/portfolio", `{"portfolio":{},"positions":[{"quantity":1}]}`},
		{"symbols object", "/api/symbols", `{"symbols":[]}`},
		{"symbols entry without symbol", "/api/symbols", `[{"name":"Infosys"}]`},
		{"bot status empty", "/api/bot/status", `{}`},
		{"bot status array", "/api/bot/status", `[]`},
		{"quote without price", "/api/market/TCS", `{"symbol":"TCS"}`},
		{"quote array", "/api/market/TCS", `[]`},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			api := testutil.NewSeededFakeTradingAPI()
			api.Respond(tt.path, tt.body)
			loader, _ := newTestLoader(t, api)

			snap, err := loader.LoadSnapshot(context.Background())
			assert.Nil(t, snap)
			var snapErr *helpers.SnapshotUnavailableError
			require.ErrorAs(t, err, &snapErr)
			assert.Equal(t, tt.path, snapErr.Endpoint)
		})
	}
}

func TestLoadSnapshot_DuplicatePositions(t *testing.T) {
	api := testutil.NewSeededFakeTradingAPI()
	api.SetPortfolio(models.MPortfolioSummary{}, []models.MPosition{{Symbol: "INFY"}, {Symbol: "INFY"}})
	loader, _ := newTestLoader(t, api)

	_, err := loader.LoadSnapshot(context.Background())
	var snapErr *helpers.SnapshotUnavailableError
	require.ErrorAs(t, err, &snapErr)
	assert.Contains(t, err.Error(), "duplicate symbol")
}

func TestLoadSnapshot_ContextCancelled(t *testing.T) {
	loader, _ := newTestLoader(t, testutil.NewSeededFakeTradingAPI())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.LoadSnapshot(ctx)
	var snapErr *helpers.SnapshotUnavailableError
	assert.ErrorAs(t, err, &snapErr)
}

func TestFetchQuote(t *testing.T) {
	loader, _ := newTestLoader(t, testutil.NewSeededFakeTradingAPI())

	q, err := loader.FetchQuote(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, "TCS", q.Symbol)
	assert.True(t, decimal.NewFromInt(3500).Equal(q.Price))

	_, err = loader.FetchQuote(context.Background(), "NOPE")
	var snapErr *helpers.SnapshotUnavailableError
	assert.ErrorAs(t, err, &snapErr)
}

// -----------------------------------------------------------------------------

func TestBotController(t *testing.T) {
	api := testutil.NewSeededFakeTradingAPI()
	_, bot := newTestLoader(t, api)
	ctx := context.Background()

	resp, err := bot.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.MBotControlResponse{Status: "started", IsRunning: true}, resp)

	status, err := bot.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsRunning)

	resp, err = bot.Stop(ctx)
	require.NoError(t, err)
	assert.False(t, resp.IsRunning)
}
