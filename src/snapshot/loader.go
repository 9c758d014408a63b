// Package snapshot performs the one-time baseline read that bootstraps the
// state store before the push stream is allowed to merge.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"dashboard-sync/src/helpers"
	"dashboard-sync/src/interfaces"
	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/errgroup"
)

// REST endpoints of the trading API.
const (
	PathPortfolio = "/api/portfolio"
	PathSymbols   = "/api/symbols"
	PathBotStatus = "/api/bot/status"
	PathMarket    = "/api/market/"
	PathBotStart  = "/api/bot/start"
	PathBotStop   = "/api/bot/stop"
)

// -----------------------------------------------------------------------------
// Loader
// -----------------------------------------------------------------------------

// Loader reads the snapshot endpoints. It never retries; the caller decides.
type Loader struct {
	Logger      *logger.Logger
	Network     interfaces.INetworkManager
	BaseURL     string
	Concurrency int
}

// -----------------------------------------------------------------------------

func NewLoader(cfg *models.MConfig, nm interfaces.INetworkManager, log *logger.Logger) *Loader {
	concurrency := cfg.API.ConcurrentRequests
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Loader{
		Logger:      log,
		Network:     nm,
		BaseURL:     strings.TrimRight(cfg.API.BaseURL, "/"),
		Concurrency: concurrency,
	}
}

// -----------------------------------------------------------------------------

// LoadSnapshot reads portfolio, positions, tracked symbols and bot status in
// parallel, then fetches a quote for every tracked or held symbol the
// portfolio call did not include.
func (l *Loader) LoadSnapshot(ctx context.Context) (*models.MSnapshot, error) {
	var (
		portfolio models.MPortfolioResponse
		symbols   []models.MSymbol
		bot       models.MBotStatus
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.getJSON(gctx, PathPortfolio, portfolioSchema, &portfolio) })
	g.Go(func() error { return l.getJSON(gctx, PathSymbols, symbolsSchema, &symbols) })
	g.Go(func() error { return l.getJSON(gctx, PathBotStatus, botStatusSchema, &bot) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := checkUnique(portfolio.Positions, func(p models.MPosition) string { return p.Symbol }); err != nil {
		return nil, helpers.NewSnapshotUnavailable(PathPortfolio, err)
	}
	if err := checkUnique(symbols, func(s models.MSymbol) string { return s.Symbol }); err != nil {
		return nil, helpers.NewSnapshotUnavailable(PathSymbols, err)
	}

	quotes := make(map[string]models.MQuote, len(symbols))
	for key, q := range portfolio.MarketData {
		if q.Symbol == "" {
			q.Symbol = key
		}
		if q.Symbol != key {
			return nil, helpers.NewSnapshotUnavailable(PathPortfolio, fmt.Errorf("market data key %q carries quote for %q", key, q.Symbol))
		}
		quotes[key] = q
	}

	missing := missingSymbols(symbols, portfolio.Positions, quotes)
	fetched, err := l.fetchQuotes(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, q := range fetched {
		quotes[q.Symbol] = q
	}

	snap := &models.MSnapshot{
		Portfolio: portfolio.Portfolio,
		Positions: portfolio.Positions,
		Quotes:    make([]models.MQuote, 0, len(quotes)),
		Symbols:   symbols,
		BotStatus: bot,
	}
	for _, q := range quotes {
		snap.Quotes = append(snap.Quotes, q)
	}
	sort.Slice(snap.Quotes, func(i, j int) bool { return snap.Quotes[i].Symbol < snap.Quotes[j].Symbol })

	l.Logger.Info("Snapshot loaded: %d positions, %d symbols, %d quotes (%d fetched individually)",
		len(snap.Positions), len(snap.Symbols), len(snap.Quotes), len(fetched))
	return snap, nil
}

// -----------------------------------------------------------------------------

// FetchQuote reads the current quote of one symbol.
func (l *Loader) FetchQuote(ctx context.Context, symbol string) (models.MQuote, error) {
	endpoint := PathMarket + url.PathEscape(symbol)
	var q *models.MQuote
	if err := l.getJSON(ctx, endpoint, quoteSchema, &q); err != nil {
		return models.MQuote{}, err
	}
	if q == nil {
		return models.MQuote{}, helpers.NewSnapshotUnavailable(endpoint, errors.New("no quote returned"))
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	if q.Symbol != symbol {
		return models.MQuote{}, helpers.NewSnapshotUnavailable(endpoint, fmt.Errorf("asked for %q, got %q", symbol, q.Symbol))
	}
	return *q, nil
}

// -----------------------------------------------------------------------------

func (l *Loader) fetchQuotes(ctx context.Context, symbols []string) ([]models.MQuote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	out := make([]models.MQuote, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.Concurrency)
	for i, sym := range symbols {
		g.Go(func() error {
			q, err := l.FetchQuote(gctx, sym)
			if err != nil {
				return err
			}
			out[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// getJSON fetches endpoint, checks the body against sch and decodes it into out.
func (l *Loader) getJSON(ctx context.Context, endpoint string, sch *jsonschema.Schema, out interface{}) error {
	body, err := l.Network.Get(ctx, l.BaseURL+endpoint, nil)
	if err != nil {
		return helpers.NewSnapshotUnavailable(endpoint, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return helpers.NewSnapshotUnavailable(endpoint, errors.New("empty response body"))
	}
	if err := validateBody(sch, body); err != nil {
		return helpers.NewSnapshotUnavailable(endpoint, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return helpers.NewSnapshotUnavailable(endpoint, fmt.Errorf("decode: %w", err))
	}
	return nil
}

// -----------------------------------------------------------------------------

// missingSymbols lists tracked and held symbols without a quote, in first-seen order.
func missingSymbols(symbols []models.MSymbol, positions []models.MPosition, have map[string]models.MQuote) []string {
	seen := make(map[string]struct{}, len(symbols)+len(positions))
	var out []string
	add := func(sym string) {
		if sym == "" {
			return
		}
		if _, ok := have[sym]; ok {
			return
		}
		if _, ok := seen[sym]; ok {
			return
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	for _, s := range symbols {
		add(s.Symbol)
	}
	for _, p := range positions {
		add(p.Symbol)
	}
	return out
}

// -----------------------------------------------------------------------------

func checkUnique[T any](items []T, key func(T) string) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		k := key(it)
		if k == "" {
			return errors.New("entry without symbol")
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("duplicate symbol %q", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}
