package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"dashboard-sync/src/helpers"
	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"

	"github.com/tidwall/gjson"
)

// -----------------------------------------------------------------------------
// Merger
// -----------------------------------------------------------------------------

// Merger decodes stream frames and applies them to a Store. Every rule
// overwrites by key, so applying a message twice equals applying it once.
type Merger struct {
	Logger *logger.Logger

	// OnTrade receives trade_executed notifications. They never touch the store.
	OnTrade func(models.MTradeExecution)

	schemas *payloadSchemas
}

// -----------------------------------------------------------------------------

func NewMerger(log *logger.Logger) *Merger {
	schemas, err := compilePayloadSchemas()
	if err != nil {
		// the schemas are compiled from constants
		panic(err)
	}
	return &Merger{Logger: log, schemas: schemas}
}

// -----------------------------------------------------------------------------

// Decode turns one text frame into a message variant. Unrecognized tags
// decode to KindUnknown without error.
func (m *Merger) Decode(raw []byte) (models.MStreamMessage, error) {
	if !gjson.ValidBytes(raw) {
		return models.MStreamMessage{}, helpers.NewMalformedMessage("", errors.New("invalid JSON"))
	}
	root := gjson.ParseBytes(raw)
	tag := root.Get("type")
	if tag.Type != gjson.String || tag.Str == "" {
		return models.MStreamMessage{}, helpers.NewMalformedMessage("", errors.New("missing type discriminant"))
	}

	msg := models.MStreamMessage{Type: tag.Str, Kind: models.KindOf(tag.Str)}
	if msg.Kind == models.KindUnknown || msg.Kind == models.KindPong {
		return msg, nil
	}

	data := root.Get("data")
	if !data.Exists() || !data.IsObject() {
		return msg, helpers.NewMalformedMessage(msg.Type, errors.New("missing data object"))
	}
	payload := []byte(data.Raw)
	if err := m.schemas.validate(msg.Kind, payload); err != nil {
		return msg, helpers.NewMalformedMessage(msg.Type, err)
	}

	var err error
	switch msg.Kind {
	case models.KindPortfolioUpdate:
		msg.PortfolioUpdate = &models.MPortfolioUpdate{}
		err = json.Unmarshal(payload, msg.PortfolioUpdate)
	case models.KindTradeExecuted:
		msg.Trade = &models.MTradeExecution{}
		err = json.Unmarshal(payload, msg.Trade)
	case models.KindQuoteUpdate:
		msg.Quote = &models.MQuote{}
		err = json.Unmarshal(payload, msg.Quote)
	case models.KindInitialData:
		msg.InitialData = &models.MInitialData{}
		err = json.Unmarshal(payload, msg.InitialData)
	}
	if err != nil {
		return msg, helpers.NewMalformedMessage(msg.Type, err)
	}
	return msg, nil
}

// -----------------------------------------------------------------------------

// Apply merges msg into store atomically. Trade notifications, pongs and
// unknown kinds leave the store untouched.
func (m *Merger) Apply(store *Store, msg models.MStreamMessage) error {
	switch msg.Kind {
	case models.KindPortfolioUpdate:
		if msg.PortfolioUpdate == nil {
			return helpers.NewMalformedMessage(msg.Type, errors.New("empty payload"))
		}
		return m.applyPortfolioUpdate(store, msg.PortfolioUpdate)

	case models.KindQuoteUpdate:
		if msg.Quote == nil {
			return helpers.NewMalformedMessage(msg.Type, errors.New("empty payload"))
		}
		return m.applyQuote(store, *msg.Quote)

	case models.KindInitialData:
		if msg.InitialData == nil {
			return helpers.NewMalformedMessage(msg.Type, errors.New("empty payload"))
		}
		return m.applyInitialData(store, msg.InitialData)

	case models.KindTradeExecuted:
		if msg.Trade == nil {
			return helpers.NewMalformedMessage(msg.Type, errors.New("empty payload"))
		}
		m.Logger.Info("Trade executed: %s %d %s @ %s", msg.Trade.Action, msg.Trade.Quantity, msg.Trade.Symbol, msg.Trade.Price)
		if m.OnTrade != nil {
			m.OnTrade(*msg.Trade)
		}
		return nil

	case models.KindPong:
		return nil

	default:
		m.Logger.Debug("Dropping message with unrecognized type %q", msg.Type)
		return nil
	}
}

// -----------------------------------------------------------------------------

// ApplyRaw decodes and applies one frame.
func (m *Merger) ApplyRaw(store *Store, raw []byte) error {
	msg, err := m.Decode(raw)
	if err != nil {
		return err
	}
	return m.Apply(store, msg)
}

// -----------------------------------------------------------------------------

func (m *Merger) applyPortfolioUpdate(store *Store, upd *models.MPortfolioUpdate) error {
	positions, err := indexPositions(upd.Positions)
	if err != nil {
		return err
	}
	quotes, err := normalizeMarketData(upd.MarketData)
	if err != nil {
		return err
	}
	summary := upd.Portfolio

	changed, err := store.commit(func(d *storeData) error {
		d.portfolio = &summary
		d.positions = positions
		for sym, q := range quotes {
			d.quotes[sym] = q
		}
		return nil
	})
	if err != nil {
		return err
	}
	if changed {
		m.Logger.Debug("Merged portfolio update: %d positions, %d quotes", len(positions), len(quotes))
	}
	return nil
}

// -----------------------------------------------------------------------------

func (m *Merger) applyQuote(store *Store, q models.MQuote) error {
	if q.Symbol == "" {
		return helpers.NewMutationInvariantViolation("", "quote without symbol")
	}
	_, err := store.commit(func(d *storeData) error {
		d.quotes[q.Symbol] = q
		return nil
	})
	return err
}

// -----------------------------------------------------------------------------

func (m *Merger) applyInitialData(store *Store, init *models.MInitialData) error {
	positions, err := indexPositions(init.Positions)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(init.Symbols))
	for _, s := range init.Symbols {
		if _, dup := seen[s.Symbol]; dup {
			return helpers.NewMutationInvariantViolation(s.Symbol, "duplicate tracked symbol")
		}
		seen[s.Symbol] = struct{}{}
	}
	summary := init.Portfolio

	_, err = store.commit(func(d *storeData) error {
		d.portfolio = &summary
		d.positions = positions
		if init.Symbols != nil {
			d.symbols = append([]models.MSymbol(nil), init.Symbols...)
		}
		bot := models.MBotStatus{IsRunning: init.IsRunning}
		if d.botStatus != nil {
			bot.SimulationMode = d.botStatus.SimulationMode
		}
		d.botStatus = &bot
		return nil
	})
	return err
}

// -----------------------------------------------------------------------------

// normalizeMarketData fills missing entry symbols from their map key and
// rejects entries whose symbol disagrees with the key.
func normalizeMarketData(in map[string]models.MQuote) (map[string]models.MQuote, error) {
	out := make(map[string]models.MQuote, len(in))
	for key, q := range in {
		if key == "" {
			return nil, helpers.NewMutationInvariantViolation(key, "market data entry without symbol")
		}
		if q.Symbol == "" {
			q.Symbol = key
		}
		if q.Symbol != key {
			return nil, helpers.NewMutationInvariantViolation(key, fmt.Sprintf("market data key carries quote for %q", q.Symbol))
		}
		out[key] = q
	}
	return out, nil
}
