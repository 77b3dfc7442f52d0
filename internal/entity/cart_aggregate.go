package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// CartCommand is the closed set of cart mutations: AddItem, RemoveItem,
// UpdateQuantity and ClearCart. Commands double as journal events.
type CartCommand interface {
	Event
	cartCommand()
}

// AddItem adds quantity of a product under a variant selection.
// The unit price and line id are resolved before dispatch so that replaying
// the command always produces the same cart.
type AddItem struct {
	LineID    string           `json:"line_id"`
	ProductID string           `json:"product_id"`
	Name      string           `json:"name"`
	Variants  VariantSelection `json:"variants"`
	UnitPrice float64          `json:"unit_price"`
	Quantity  int              `json:"quantity"`
	At        time.Time        `json:"at"`
}

// RemoveItem drops a line item. Unknown ids are a no-op.
type RemoveItem struct {
	LineID string `json:"line_id"`
}

// UpdateQuantity replaces the quantity of a line item; zero or less removes it.
type UpdateQuantity struct {
	LineID   string `json:"line_id"`
	Quantity int    `json:"quantity"`
}

// ClearCart resets the cart to empty.
type ClearCart struct {
	At time.Time `json:"at"`
}

func (AddItem) EventType() string        { return "AddItem" }
func (RemoveItem) EventType() string     { return "RemoveItem" }
func (UpdateQuantity) EventType() string { return "UpdateQuantity" }
func (ClearCart) EventType() string      { return "ClearCart" }

func (AddItem) cartCommand()        {}
func (RemoveItem) cartCommand()     {}
func (UpdateQuantity) cartCommand() {}
func (ClearCart) cartCommand()      {}

// NewAddItem validates the input and snapshots the unit price.
func NewAddItem(p Product, quantity int, selection VariantSelection, lineID string, at time.Time) (AddItem, error) {
	if quantity <= 0 {
		return AddItem{}, invalidQuantityf("quantity must be positive, got %d", quantity)
	}
	price, err := UnitPrice(p, selection)
	if err != nil {
		return AddItem{}, err
	}
	if selection == nil {
		selection = VariantSelection{}
	}
	return AddItem{
		LineID:    lineID,
		ProductID: strings.TrimSpace(p.ID),
		Name:      p.Name,
		Variants:  selection,
		UnitPrice: price,
		Quantity:  quantity,
		At:        at,
	}, nil
}

// Reduce is the cart's single transition function. It never mutates its input
// and always returns a cart whose totals are recomputed from the items.
func Reduce(c Cart, cmd CartCommand, rules PricingRules) (Cart, error) {
	switch cmd := cmd.(type) {
	case AddItem:
		return addItem(c, cmd, rules)
	case RemoveItem:
		return removeItem(c, cmd.LineID, rules), nil
	case UpdateQuantity:
		if cmd.Quantity <= 0 {
			return removeItem(c, cmd.LineID, rules), nil
		}
		i := c.indexOfLine(cmd.LineID)
		if i < 0 {
			return c, nil
		}
		items := c.cloneItems()
		items[i].Quantity = cmd.Quantity
		return rules.Recalculate(Cart{Items: items}), nil
	case ClearCart:
		return NewCart(rules), nil
	default:
		return c, fmt.Errorf("unknown cart command: %T", cmd)
	}
}

func addItem(c Cart, cmd AddItem, rules PricingRules) (Cart, error) {
	if cmd.Quantity <= 0 {
		return c, invalidQuantityf("quantity must be positive, got %d", cmd.Quantity)
	}
	if strings.TrimSpace(cmd.ProductID) == "" {
		return c, invalidProductf("product id is required")
	}
	if math.IsNaN(cmd.UnitPrice) || math.IsInf(cmd.UnitPrice, 0) || cmd.UnitPrice < 0 {
		return c, invalidProductf("product %s has a negative price", cmd.ProductID)
	}

	items := c.cloneItems()
	key := lineKey{productID: cmd.ProductID, variants: cmd.Variants.Key()}

	// A matching line keeps its position and its snapshotted price.
	if i := c.indexOfKey(key); i >= 0 {
		items[i].Quantity += cmd.Quantity
		return rules.Recalculate(Cart{Items: items}), nil
	}

	if cmd.LineID == "" {
		return c, fmt.Errorf("line id is required for a new line item")
	}
	if c.indexOfLine(cmd.LineID) >= 0 {
		return c, fmt.Errorf("line id %s is already in the cart", cmd.LineID)
	}

	variants := cmd.Variants
	if variants == nil {
		variants = VariantSelection{}
	}
	items = append(items, CartLineItem{
		ID:        cmd.LineID,
		ProductID: cmd.ProductID,
		Name:      cmd.Name,
		Variants:  variants,
		UnitPrice: cmd.UnitPrice,
		Quantity:  cmd.Quantity,
		AddedAt:   cmd.At,
	})
	return rules.Recalculate(Cart{Items: items}), nil
}

func removeItem(c Cart, lineID string, rules PricingRules) Cart {
	i := c.indexOfLine(lineID)
	if i < 0 {
		return c
	}
	items := c.cloneItems()
	items = append(items[:i], items[i+1:]...)
	return rules.Recalculate(Cart{Items: items})
}

// NormalizeCart repairs a rehydrated cart: lines without ids, with non-positive
// quantities or invalid prices are dropped, duplicate identity keys are merged into
// the first occurrence, and totals are recomputed.
func NormalizeCart(c Cart, rules PricingRules) Cart {
	items := make([]CartLineItem, 0, len(c.Items))
	byKey := make(map[lineKey]int, len(c.Items))
	ids := make(map[string]bool, len(c.Items))

	for _, item := range c.Items {
		if item.ID == "" || strings.TrimSpace(item.ProductID) == "" || item.Quantity <= 0 {
			continue
		}
		if math.IsNaN(item.UnitPrice) || math.IsInf(item.UnitPrice, 0) || item.UnitPrice < 0 {
			continue
		}
		if item.Variants == nil {
			item.Variants = VariantSelection{}
		}
		k := item.key()
		if i, ok := byKey[k]; ok {
			items[i].Quantity += item.Quantity
			continue
		}
		if ids[item.ID] {
			continue
		}
		ids[item.ID] = true
		byKey[k] = len(items)
		items = append(items, item)
	}

	return rules.Recalculate(Cart{Items: items})
}

// CartAggregate rebuilds a cart by replaying its journaled commands.
type CartAggregate struct {
	AggregateBase
	Cart  Cart
	rules PricingRules
}

// NewCartAggregate creates an empty CartAggregate for a session.
func NewCartAggregate(sessionID string, rules PricingRules) *CartAggregate {
	return &CartAggregate{
		AggregateBase: AggregateBase{ID: sessionID, Version: 0},
		Cart:          NewCart(rules),
		rules:         rules,
	}
}

// ApplyCommand runs a command through Reduce and advances the version.
func (a *CartAggregate) ApplyCommand(cmd CartCommand) error {
	next, err := Reduce(a.Cart, cmd, a.rules)
	if err != nil {
		return err
	}
	a.Cart = next
	a.Version++
	return nil
}

// Rehydrate rebuilds the aggregate from a list of records.
func (a *CartAggregate) Rehydrate(records []EventStoreRecord) error {
	for _, rec := range records {
		cmd, err := DecodeCartCommand(rec.EventType, rec.Payload)
		if err != nil {
			return err
		}
		if err := a.ApplyCommand(cmd); err != nil {
			return fmt.Errorf("failed to apply cart command from stream: %w", err)
		}
	}
	return nil
}

// DecodeCartCommand turns a journal record back into a command.
func DecodeCartCommand(eventType string, payload []byte) (CartCommand, error) {
	var (
		cmd CartCommand
		err error
	)
	switch eventType {
	case "AddItem":
		var c AddItem
		err = json.Unmarshal(payload, &c)
		cmd = c
	case "RemoveItem":
		var c RemoveItem
		err = json.Unmarshal(payload, &c)
		cmd = c
	case "UpdateQuantity":
		var c UpdateQuantity
		err = json.Unmarshal(payload, &c)
		cmd = c
	case "ClearCart":
		var c ClearCart
		err = json.Unmarshal(payload, &c)
		cmd = c
	default:
		return nil, fmt.Errorf("unknown event type in cart stream: %s", eventType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", eventType, err)
	}
	return cmd, nil
}
