package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Response shapes of the snapshot endpoints. A body that decodes but lacks
// these members would bootstrap a zero state that looks present.
var (
	portfolioSchema = jsonschema.MustCompileString("https://dashboard-sync.local/schemas/portfolio.json", `{
		"type": "object",
		"required": ["portfolio", "positions"],
		"properties": {
			"portfolio": {"type": "object"},
			"positions": {"type": "array", "items": {
				"type": "object",
				"required": ["symbol", "quantity"],
				"properties": {
					"symbol": {"type": "string", "minLength": 1},
					"quantity": {"type": "integer"}
				}
			}},
			"market_data": {"type": ["object", "null"]}
		}
	}`)

	symbolsSchema = jsonschema.MustCompileString("https://dashboard-sync.local/schemas/symbols.json", `{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["symbol"],
			"properties": {"symbol": {"type": "string", "minLength": 1}}
		}
	}`)

	botStatusSchema = jsonschema.MustCompileString("https://dashboard-sync.local/schemas/bot_status.json", `{
		"type": "object",
		"required": ["is_running"],
		"properties": {
			"is_running": {"type": "boolean"},
			"simulation_mode": {"type": "boolean"}
		}
	}`)

	quoteSchema = jsonschema.MustCompileString("https://dashboard-sync.local/schemas/quote.json", `{
		"type": ["object", "null"],
		"required": ["price"],
		"properties": {
			"symbol": {"type": "string"},
			"price": {"type": ["number", "string"]}
		}
	}`)
)

// -----------------------------------------------------------------------------

func validateBody(sch *jsonschema.Schema, body []byte) error {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("unexpected response shape: %w", err)
	}
	return nil
}
