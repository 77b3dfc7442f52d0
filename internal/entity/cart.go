package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidProduct  = errors.New("invalid product")
)

func invalidProductf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidProduct, fmt.Sprintf(format, args...))
}

func invalidQuantityf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuantity, fmt.Sprintf(format, args...))
}

// ValidateProduct checks the fields the cart relies on.
func ValidateProduct(p Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return invalidProductf("product id is required")
	}
	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price < 0 {
		return invalidProductf("product %s has a negative price", p.ID)
	}
	if p.SalePrice != nil {
		sale := *p.SalePrice
		if math.IsNaN(sale) || sale < 0 || sale >= p.Price {
			return invalidProductf("product %s sale price must be below %.2f", p.ID, p.Price)
		}
	}
	return nil
}

// ParseQuantity converts a decoded JSON number to a quantity.
// Fractional, infinite and out-of-range values are rejected; the sign is left to the caller.
func ParseQuantity(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, invalidQuantityf("%v is not an integer", v)
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, invalidQuantityf("%v is out of range", v)
	}
	return int(v), nil
}

// VariantOption is one chosen (axis, value) pair.
type VariantOption struct {
	Name  string
	Value string
}

// VariantSelection is a key-sorted set of chosen variant options.
// It travels as a JSON object and compares by content, never by order.
type VariantSelection []VariantOption

// NewVariantSelection validates and sorts a raw axis -> value mapping.
func NewVariantSelection(raw map[string]string) (VariantSelection, error) {
	sel := make(VariantSelection, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for name, value := range raw {
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			return nil, invalidProductf("variant axis and value must be non-empty")
		}
		if seen[name] {
			return nil, invalidProductf("variant axis %q selected twice", name)
		}
		seen[name] = true
		sel = append(sel, VariantOption{Name: name, Value: value})
	}
	sort.Slice(sel, func(i, j int) bool { return sel[i].Name < sel[j].Name })
	return sel, nil
}

// Map returns the selection as an axis -> value mapping.
func (s VariantSelection) Map() map[string]string {
	m := make(map[string]string, len(s))
	for _, opt := range s {
		m[opt.Name] = opt.Value
	}
	return m
}

// Key is a collision-free identity string for the selection: quoted name/value
// pairs in axis order.
func (s VariantSelection) Key() string {
	var b strings.Builder
	for i, opt := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(opt.Name))
		b.WriteByte(':')
		b.WriteString(strconv.Quote(opt.Value))
	}
	return b.String()
}

// Equal reports structural equality, independent of option order.
func (s VariantSelection) Equal(other VariantSelection) bool {
	return s.Key() == other.Key()
}

func (s VariantSelection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

func (s *VariantSelection) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode variant selection: %w", err)
	}
	sel, err := NewVariantSelection(raw)
	if err != nil {
		return err
	}
	*s = sel
	return nil
}

type lineKey struct {
	productID string
	variants  string
}

// CartLineItem is one distinct (product, variant selection) entry in a cart.
type CartLineItem struct {
	ID        string           `json:"id"`
	ProductID string           `json:"productId"`
	Name      string           `json:"name,omitempty"`
	Variants  VariantSelection `json:"variantSelection"`
	UnitPrice float64          `json:"unitPrice"`
	Quantity  int              `json:"quantity"`
	AddedAt   time.Time        `json:"addedAt"`
}

func (l CartLineItem) key() lineKey {
	return lineKey{productID: l.ProductID, variants: l.Variants.Key()}
}

// LineTotal is the unrounded unit price times quantity.
func (l CartLineItem) LineTotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Cart is an ordered list of line items plus totals derived from them.
type Cart struct {
	Items    []CartLineItem `json:"items"`
	Subtotal float64        `json:"subtotal"`
	Tax      float64        `json:"tax"`
	Shipping float64        `json:"shipping"`
	Total    float64        `json:"total"`
}

// NewCart returns the empty cart priced under the given rules.
func NewCart(rules PricingRules) Cart {
	return rules.Recalculate(Cart{Items: []CartLineItem{}})
}

// IsEmpty reports whether the cart holds no line items.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount is the sum of all quantities, not the number of lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// GrandTotal returns the total of the current snapshot.
func (c Cart) GrandTotal() float64 {
	return c.Total
}

// IsInCart is a coarse check on product id, ignoring variants.
func (c Cart) IsInCart(productID string) bool {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// FindLine returns the line item with the given id.
func (c Cart) FindLine(lineID string) (CartLineItem, bool) {
	if i := c.indexOfLine(lineID); i >= 0 {
		return c.Items[i], true
	}
	return CartLineItem{}, false
}

func (c Cart) indexOfLine(lineID string) int {
	for i := range c.Items {
		if c.Items[i].ID == lineID {
			return i
		}
	}
	return -1
}

func (c Cart) indexOfKey(k lineKey) int {
	for i := range c.Items {
		if c.Items[i].key() == k {
			return i
		}
	}
	return -1
}

// cloneItems copies the item slice so transitions never alias their input.
func (c Cart) cloneItems() []CartLineItem {
	items := make([]CartLineItem, len(c.Items))
	copy(items, c.Items)
	return items
}
