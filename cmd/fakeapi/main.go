// Command fakeapi serves a seeded stand-in for the trading API on one port:
// the snapshot and control endpoints plus a /ws stream that random-walks
// quotes and republishes the portfolio. It is meant for local runs of
// "dashboard-sync run" without a real bot.
package main

import (
	"context"
	"errors"
	"flag"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"
	"dashboard-sync/src/testutil"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var prices = map[string]decimal.Decimal{
	"INFY":     decimal.NewFromInt(1500),
	"TCS":      decimal.NewFromInt(3500),
	"RELIANCE": decimal.NewFromInt(2450),
}

func main() {
	addr := flag.String("addr", "127.0.0.1:8000", "listen address")
	interval := flag.Duration("interval", 2*time.Second, "delay between pushed updates")
	flag.Parse()

	appLogger := logger.NewLogger(nil, "FakeAPI")
	gin.SetMode(gin.ReleaseMode)

	api := testutil.NewSeededFakeTradingAPI()
	api.SendInitialData(true)

	srv := &http.Server{Addr: *addr, Handler: api.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		appLogger.Info("Serving fake trading API on http://%s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Critical("Server failed: %v", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runPushLoop(ctx, api, *interval, appLogger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	api.DropClients()
	srv.Shutdown(shutdownCtx)
	appLogger.Info("Shutdown complete.")
}

// -----------------------------------------------------------------------------

// runPushLoop moves every price by up to ±0.5% per tick and pushes one
// quote_update per symbol followed by a portfolio_update for the INFY position.
func runPushLoop(ctx context.Context, api *testutil.FakeTradingAPI, interval time.Duration, appLogger *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for sym, price := range prices {
			step := decimal.NewFromFloat((rand.Float64() - 0.5) / 100)
			next := price.Add(price.Mul(step)).Round(2)
			prices[sym] = next
			q := models.MQuote{
				Symbol:        sym,
				Price:         next,
				Change:        next.Sub(price),
				ChangePercent: next.Sub(price).Div(price).Mul(decimal.NewFromInt(100)).Round(2),
			}
			api.SetQuote(q)
			if err := api.Push(models.MessageTypeQuoteUpdate, q); err != nil {
				appLogger.Warning("Push %s failed: %v", sym, err)
			}
		}

		entry := decimal.NewFromInt(1500)
		current := prices["INFY"]
		pnl := current.Sub(entry).Mul(decimal.NewFromInt(10))
		summary := models.MPortfolioSummary{
			Capital:          decimal.NewFromInt(100000),
			AvailableCapital: decimal.NewFromInt(85000),
			InvestedCapital:  decimal.NewFromInt(15000),
			TotalValue:       decimal.NewFromInt(100000).Add(pnl),
			UnrealizedPnL:    pnl,
			TotalPnL:         pnl,
			OpenPositions:    1,
		}
		positions := []models.MPosition{{
			Symbol:       "INFY",
			Quantity:     10,
			EntryPrice:   entry,
			CurrentPrice: current,
			PnL:          pnl,
		}}
		api.SetPortfolio(summary, positions)
		if err := api.Push(models.MessageTypePortfolioUpdate, models.MPortfolioUpdate{Portfolio: summary, Positions: positions}); err != nil {
			appLogger.Warning("Push portfolio failed: %v", err)
		}
		appLogger.Debug("Pushed tick to %d clients", api.Clients())
	}
}
