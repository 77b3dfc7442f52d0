package entity

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func floatPtr(v float64) *float64 { return &v }

func mustAdd(t *testing.T, c Cart, p Product, qty int, sel VariantSelection, lineID string) Cart {
	t.Helper()
	cmd, err := NewAddItem(p, qty, sel, lineID, testTime)
	require.NoError(t, err)
	next, err := Reduce(c, cmd, DefaultPricingRules())
	require.NoError(t, err)
	return next
}

func TestCart_ConcreteScenario(t *testing.T) {
	rules := DefaultPricingRules()
	p1 := Product{ID: "p1", Price: 20}

	c := NewCart(rules)
	c = mustAdd(t, c, p1, 2, nil, "line-1")
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 40.0, c.Subtotal)
	assert.Equal(t, 3.2, c.Tax)
	assert.Equal(t, 9.99, c.Shipping)
	assert.Equal(t, 53.19, c.Total)

	c = mustAdd(t, c, p1, 1, nil, "line-2")
	require.Len(t, c.Items, 1)
	assert.Equal(t, "line-1", c.Items[0].ID)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 60.0, c.Subtotal)
	assert.Equal(t, 0.0, c.Shipping)
	assert.Equal(t, 64.8, c.Total)

	c, err := Reduce(c, UpdateQuantity{LineID: "line-1", Quantity: 0}, rules)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0.0, c.Subtotal)
	assert.Equal(t, 0.0, c.Tax)
	assert.Equal(t, 9.99, c.Shipping)
	assert.Equal(t, 9.99, c.Total)
	assert.Equal(t, NewCart(rules), c)
}

func TestNewAddItem_Validation(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		qty     int
		wantErr error
	}{
		{"zero quantity", Product{ID: "p1", Price: 10}, 0, ErrInvalidQuantity},
		{"negative quantity", Product{ID: "p1", Price: 10}, -3, ErrInvalidQuantity},
		{"missing id", Product{Price: 10}, 1, ErrInvalidProduct},
		{"blank id", Product{ID: "   ", Price: 10}, 1, ErrInvalidProduct},
		{"negative price", Product{ID: "p1", Price: -1}, 1, ErrInvalidProduct},
		{"sale price not below price", Product{ID: "p1", Price: 10, SalePrice: floatPtr(10)}, 1, ErrInvalidProduct},
		{"zero price is allowed", Product{ID: "p1", Price: 0}, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAddItem(tt.product, tt.qty, nil, "line-1", testTime)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReduce_RejectsInvalidAddWithoutChangingCart(t *testing.T) {
	rules := DefaultPricingRules()
	c := mustAdd(t, NewCart(rules), Product{ID: "p1", Price: 5}, 1, nil, "line-1")

	next, err := Reduce(c, AddItem{LineID: "line-2", ProductID: "p2", UnitPrice: 3, Quantity: 0}, rules)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, c, next)

	next, err = Reduce(c, AddItem{LineID: "line-2", ProductID: "p2", UnitPrice: -3, Quantity: 1}, rules)
	assert.ErrorIs(t, err, ErrInvalidProduct)
	assert.Equal(t, c, next)

	_, err = Reduce(c, AddItem{LineID: "line-1", ProductID: "p2", UnitPrice: 3, Quantity: 1}, rules)
	assert.Error(t, err, "line ids must stay unique")
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	rules := DefaultPricingRules()
	c := mustAdd(t, NewCart(rules), Product{ID: "p1", Price: 5}, 1, nil, "line-1")
	before := c.Items[0].Quantity

	_, err := Reduce(c, UpdateQuantity{LineID: "line-1", Quantity: 7}, rules)
	require.NoError(t, err)
	_, err = Reduce(c, RemoveItem{LineID: "line-1"}, rules)
	require.NoError(t, err)

	assert.Equal(t, before, c.Items[0].Quantity)
	assert.Len(t, c.Items, 1)
}

func TestReduce_UnknownLineIsNoOp(t *testing.T) {
	rules := DefaultPricingRules()
	c := mustAdd(t, NewCart(rules), Product{ID: "p1", Price: 5}, 2, nil, "line-1")

	next, err := Reduce(c, RemoveItem{LineID: "missing"}, rules)
	require.NoError(t, err)
	assert.Equal(t, c, next)

	next, err = Reduce(c, UpdateQuantity{LineID: "missing", Quantity: 4}, rules)
	require.NoError(t, err)
	assert.Equal(t, c, next)
}

func TestReduce_UpdateQuantityKeepsPosition(t *testing.T) {
	rules := DefaultPricingRules()
	c := NewCart(rules)
	c = mustAdd(t, c, Product{ID: "a", Price: 1}, 1, nil, "line-a")
	c = mustAdd(t, c, Product{ID: "b", Price: 2}, 1, nil, "line-b")

	c, err := Reduce(c, UpdateQuantity{LineID: "line-a", Quantity: 5}, rules)
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "line-a", c.Items[0].ID)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, 7.0, c.Subtotal)
}

func TestReduce_SnapshotPriceIsKeptOnMerge(t *testing.T) {
	rules := DefaultPricingRules()
	c := mustAdd(t, NewCart(rules), Product{ID: "p1", Price: 20}, 1, nil, "line-1")
	c = mustAdd(t, c, Product{ID: "p1", Price: 35}, 1, nil, "line-2")

	require.Len(t, c.Items, 1)
	assert.Equal(t, 20.0, c.Items[0].UnitPrice)
	assert.Equal(t, 40.0, c.Subtotal)
}

func TestReduce_DifferentVariantsAreDifferentLines(t *testing.T) {
	rules := DefaultPricingRules()
	shirt := Product{
		ID:    "shirt",
		Price: 20,
		Variants: []Variant{
			{Name: "size", Value: "M"},
			{Name: "size", Value: "L", PriceDelta: floatPtr(2.5)},
		},
	}
	m, err := NewVariantSelection(map[string]string{"size": "M"})
	require.NoError(t, err)
	l, err := NewVariantSelection(map[string]string{"size": "L"})
	require.NoError(t, err)

	c := mustAdd(t, NewCart(rules), shirt, 1, m, "line-m")
	c = mustAdd(t, c, shirt, 1, l, "line-l")

	require.Len(t, c.Items, 2)
	assert.Equal(t, 20.0, c.Items[0].UnitPrice)
	assert.Equal(t, 22.5, c.Items[1].UnitPrice)
	assert.Equal(t, 2, c.ItemCount())
	assert.True(t, c.IsInCart("shirt"))
	assert.False(t, c.IsInCart("socks"))
}

func TestReduce_ClearReturnsFreshCart(t *testing.T) {
	rules := DefaultPricingRules()
	c := mustAdd(t, NewCart(rules), Product{ID: "p1", Price: 80}, 1, nil, "line-1")

	c, err := Reduce(c, ClearCart{At: testTime}, rules)
	require.NoError(t, err)
	assert.Equal(t, NewCart(rules), c)
	assert.Equal(t, 0, c.ItemCount())
}

func TestVariantSelection_OrderIndependentIdentity(t *testing.T) {
	var a, b VariantSelection
	require.NoError(t, json.Unmarshal([]byte(`{"size":"M","color":"red"}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"color":"red","size":"M"}`), &b))

	assert.True(t, a.Equal(b))
	assert.Equal(t, `"color":"red","size":"M"`, a.Key())
	assert.Equal(t, "color", a[0].Name)

	empty, err := NewVariantSelection(nil)
	require.NoError(t, err)
	assert.Equal(t, "", empty.Key())
	assert.True(t, empty.Equal(nil))
}

func TestVariantSelection_KeyDoesNotCollideOnSeparators(t *testing.T) {
	tests := []struct {
		name string
		a, b map[string]string
	}{
		{"comma in value", map[string]string{"a": "x,b=y"}, map[string]string{"a": "x", "b": "y"}},
		{"colon in name", map[string]string{"a:b": "c"}, map[string]string{"a": "b:c"}},
		{"quote in value", map[string]string{"a": `x","b":"y`}, map[string]string{"a": "x", "b": "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewVariantSelection(tt.a)
			require.NoError(t, err)
			b, err := NewVariantSelection(tt.b)
			require.NoError(t, err)

			assert.NotEqual(t, a.Key(), b.Key())
			assert.False(t, a.Equal(b))
		})
	}
}

func TestVariantSelection_RejectsBlankValues(t *testing.T) {
	_, err := NewVariantSelection(map[string]string{"size": " "})
	assert.ErrorIs(t, err, ErrInvalidProduct)

	var sel VariantSelection
	err = json.Unmarshal([]byte(`{"":"M"}`), &sel)
	assert.True(t, errors.Is(err, ErrInvalidProduct))
}

func TestUnitPrice(t *testing.T) {
	p := Product{
		ID:        "jacket",
		Price:     100,
		SalePrice: floatPtr(80),
		Variants: []Variant{
			{Name: "size", Value: "XL", PriceDelta: floatPtr(10)},
			{Name: "color", Value: "black"},
		},
	}

	price, err := UnitPrice(p, nil)
	require.NoError(t, err)
	assert.Equal(t, 80.0, price)

	sel, _ := NewVariantSelection(map[string]string{"size": "XL", "color": "black"})
	price, err = UnitPrice(p, sel)
	require.NoError(t, err)
	assert.Equal(t, 90.0, price)

	sel, _ = NewVariantSelection(map[string]string{"size": "S"})
	_, err = UnitPrice(p, sel)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	discount := Product{ID: "d", Price: 5, Variants: []Variant{{Name: "kind", Value: "promo", PriceDelta: floatPtr(-10)}}}
	sel, _ = NewVariantSelection(map[string]string{"kind": "promo"})
	_, err = UnitPrice(discount, sel)
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity(3)
	require.NoError(t, err)
	assert.Equal(t, 3, q)

	q, err = ParseQuantity(-2)
	require.NoError(t, err)
	assert.Equal(t, -2, q)

	_, err = ParseQuantity(1.5)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = ParseQuantity(1e12)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestNormalizeCart(t *testing.T) {
	rules := DefaultPricingRules()
	raw := Cart{
		Items: []CartLineItem{
			{ID: "a", ProductID: "p1", UnitPrice: 10, Quantity: 1},
			{ID: "", ProductID: "p2", UnitPrice: 10, Quantity: 1},
			{ID: "b", ProductID: "p3", UnitPrice: 10, Quantity: 0},
			{ID: "c", ProductID: "p1", UnitPrice: 12, Quantity: 2},
			{ID: "d", ProductID: "p4", UnitPrice: -1, Quantity: 1},
			{ID: "a", ProductID: "p5", UnitPrice: 4, Quantity: 1},
			{ID: "e", ProductID: "p6", UnitPrice: 5, Quantity: 1},
		},
		Subtotal: 999,
		Total:    999,
	}

	c := NormalizeCart(raw, rules)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "a", c.Items[0].ID)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 10.0, c.Items[0].UnitPrice)
	assert.Equal(t, "e", c.Items[1].ID)
	assert.Equal(t, 35.0, c.Subtotal)
	assert.NotNil(t, c.Items[1].Variants)
}

func TestCartAggregate_Rehydrate(t *testing.T) {
	rules := DefaultPricingRules()
	add, err := NewAddItem(Product{ID: "p1", Name: "Mug", Price: 12.5}, 2, nil, "line-1", testTime)
	require.NoError(t, err)

	var records []EventStoreRecord
	for i, cmd := range []CartCommand{add, UpdateQuantity{LineID: "line-1", Quantity: 4}, RemoveItem{LineID: "nope"}} {
		payload, err := json.Marshal(cmd)
		require.NoError(t, err)
		records = append(records, EventStoreRecord{
			StreamID:  CartStreamID("s1"),
			Version:   i + 1,
			EventType: cmd.EventType(),
			Payload:   payload,
		})
	}

	agg := NewCartAggregate("s1", rules)
	require.NoError(t, agg.Rehydrate(records))

	assert.Equal(t, 3, agg.GetVersion())
	assert.Equal(t, "s1", agg.GetAggregateID())
	require.Len(t, agg.Cart.Items, 1)
	assert.Equal(t, 4, agg.Cart.Items[0].Quantity)
	assert.Equal(t, "Mug", agg.Cart.Items[0].Name)
	assert.Equal(t, 50.0, agg.Cart.Subtotal)
}

func TestDecodeCartCommand_UnknownType(t *testing.T) {
	_, err := DecodeCartCommand("Checkout", []byte(`{}`))
	assert.Error(t, err)

	_, err = DecodeCartCommand("AddItem", []byte(`not json`))
	assert.Error(t, err)
}
