package state

import (
	"encoding/json"
	"fmt"
	"strings"

	"dashboard-sync/src/models"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaBaseURL = "https://dashboard-sync.local/schemas/"

// Payload schemas for the "data" member of each known message kind.
// Money fields accept numbers or numeric strings, as decimal.Decimal does.
var payloadSchemaSources = map[models.MMessageKind]string{
	models.KindPortfolioUpdate: `{
		"$defs": {
			"num": {"type": ["number", "string"]},
			"position": {
				"type": "object",
				"required": ["symbol", "quantity"],
				"properties": {
					"symbol": {"type": "string", "minLength": 1},
					"quantity": {"type": "integer"},
					"entry_price": {"$ref": "#/$defs/num"},
					"current_price": {"$ref": "#/$defs/num"}
				}
			},
			"quote": {
				"type": "object",
				"properties": {
					"symbol": {"type": "string"},
					"price": {"$ref": "#/$defs/num"}
				}
			}
		},
		"type": "object",
		"required": ["portfolio", "positions"],
		"properties": {
			"portfolio": {"type": "object"},
			"positions": {"type": "array", "items": {"$ref": "#/$defs/position"}},
			"market_data": {"type": "object", "additionalProperties": {"$ref": "#/$defs/quote"}}
		}
	}`,
	models.KindQuoteUpdate: `{
		"type": "object",
		"required": ["symbol", "price"],
		"properties": {
			"symbol": {"type": "string", "minLength": 1},
			"price": {"type": ["number", "string"]}
		}
	}`,
	models.KindTradeExecuted: `{
		"type": "object",
		"required": ["symbol"],
		"properties": {
			"symbol": {"type": "string", "minLength": 1},
			"action": {"type": "string"}
		}
	}`,
	models.KindInitialData: `{
		"type": "object",
		"required": ["portfolio", "positions"],
		"properties": {
			"portfolio": {"type": "object"},
			"positions": {"type": "array", "items": {
				"type": "object",
				"required": ["symbol"],
				"properties": {"symbol": {"type": "string", "minLength": 1}}
			}},
			"symbols": {"type": "array", "items": {
				"type": "object",
				"required": ["symbol"],
				"properties": {"symbol": {"type": "string", "minLength": 1}}
			}},
			"is_running": {"type": "boolean"}
		}
	}`,
}

// -----------------------------------------------------------------------------

type payloadSchemas struct {
	byKind map[models.MMessageKind]*jsonschema.Schema
}

// -----------------------------------------------------------------------------

func compilePayloadSchemas() (*payloadSchemas, error) {
	compiler := jsonschema.NewCompiler()
	urls := make(map[models.MMessageKind]string, len(payloadSchemaSources))
	for kind, src := range payloadSchemaSources {
		url := schemaBaseURL + kind.String() + ".json"
		if err := compiler.AddResource(url, strings.NewReader(src)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", kind, err)
		}
		urls[kind] = url
	}

	out := &payloadSchemas{byKind: make(map[models.MMessageKind]*jsonschema.Schema, len(urls))}
	for kind, url := range urls {
		sch, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", kind, err)
		}
		out.byKind[kind] = sch
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// validate checks raw against the schema of kind. Kinds without a schema pass.
func (p *payloadSchemas) validate(kind models.MMessageKind, raw []byte) error {
	sch, ok := p.byKind[kind]
	if !ok {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return sch.Validate(v)
}
