package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/Aayush8356/Vendora/internal/repository"
)

const cartSchemaURL = "https://vendora.local/schemas/cart.schema.json"

// cartSchema describes the persisted cart document. Unknown top-level fields
// are allowed so a version marker can be added later.
const cartSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["items"],
	"properties": {
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "productId", "unitPrice", "quantity"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"productId": {"type": "string", "minLength": 1},
					"name": {"type": "string"},
					"variantSelection": {
						"type": ["object", "null"],
						"additionalProperties": {"type": "string"}
					},
					"unitPrice": {"type": "number", "minimum": 0},
					"quantity": {"type": "integer", "minimum": 1},
					"addedAt": {"type": "string"}
				}
			}
		},
		"subtotal": {"type": "number"},
		"tax": {"type": "number"},
		"shipping": {"type": "number"},
		"total": {"type": "number"}
	}
}`

// CartPersistence stores cart snapshots. It never fails a cart mutation:
// Load degrades to nil and Save only logs.
type CartPersistence struct {
	store  repository.CartStore
	schema *jsonschema.Schema
	rules  entity.PricingRules
	ttl    time.Duration
}

// NewCartPersistence compiles the snapshot schema and wraps a CartStore.
func NewCartPersistence(store repository.CartStore, rules entity.PricingRules, ttl time.Duration) (*CartPersistence, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(cartSchemaURL, strings.NewReader(cartSchema)); err != nil {
		return nil, fmt.Errorf("failed to load cart schema: %w", err)
	}
	schema, err := c.Compile(cartSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile cart schema: %w", err)
	}
	return &CartPersistence{store: store, schema: schema, rules: rules, ttl: ttl}, nil
}

// Load returns the stored cart, or nil when it is missing, unreadable or malformed.
// A returned cart is normalized and priced under the current rules.
func (p *CartPersistence) Load(ctx context.Context, sessionID string) *entity.Cart {
	data, err := p.store.Load(ctx, sessionID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		slog.Warn("Failed to read stored cart", "session_id", sessionID, "err", err)
		return nil
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		slog.Warn("Stored cart is not valid JSON", "session_id", sessionID, "err", err)
		return nil
	}
	if err := p.schema.Validate(doc); err != nil {
		slog.Warn("Stored cart failed schema validation", "session_id", sessionID, "err", err)
		return nil
	}

	var cart entity.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		slog.Warn("Failed to decode stored cart", "session_id", sessionID, "err", err)
		return nil
	}

	normalized := entity.NormalizeCart(cart, p.rules)
	return &normalized
}

// Save writes the snapshot. Errors are logged and swallowed.
func (p *CartPersistence) Save(ctx context.Context, sessionID string, cart entity.Cart) {
	data, err := json.Marshal(cart)
	if err != nil {
		slog.Error("Failed to encode cart", "session_id", sessionID, "err", err)
		return
	}
	if err := p.store.Save(ctx, sessionID, data, p.ttl); err != nil {
		slog.Error("Failed to save cart", "session_id", sessionID, "err", err)
	}
}

// Delete removes the snapshot. Errors are logged and swallowed.
func (p *CartPersistence) Delete(ctx context.Context, sessionID string) {
	if err := p.store.Delete(ctx, sessionID); err != nil {
		slog.Error("Failed to delete cart", "session_id", sessionID, "err", err)
	}
}
