package entity

import (
	"errors"
	"math"
	"strings"
	"time"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuery      = errors.New("invalid product query")
)

// Product statuses.
const (
	ProductDraft     = "draft"
	ProductPublished = "published"
	ProductArchived  = "archived"
)

// Variant is one selectable option of a product, e.g. size=M.
type Variant struct {
	Name       string   `json:"name" yaml:"name"`
	Value      string   `json:"value" yaml:"value"`
	PriceDelta *float64 `json:"price,omitempty" yaml:"price,omitempty"`
	SKU        string   `json:"sku,omitempty" yaml:"sku,omitempty"`
	Stock      *int     `json:"stock,omitempty" yaml:"stock,omitempty"`
}

// Product represents a product in the store.
type Product struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Price       float64   `json:"price" yaml:"price"`
	SalePrice   *float64  `json:"salePrice,omitempty" yaml:"salePrice,omitempty"`
	SKU         string    `json:"sku" yaml:"sku"`
	CategoryID  string    `json:"category" yaml:"category"`
	Brand       string    `json:"brand,omitempty" yaml:"brand,omitempty"`
	Images      []string  `json:"images" yaml:"images"`
	Tags        []string  `json:"tags" yaml:"tags"`
	Variants    []Variant `json:"variants" yaml:"variants"`
	Stock       int       `json:"stock" yaml:"stock"`
	Slug        string    `json:"slug" yaml:"slug"`
	Status      string    `json:"status" yaml:"status"`
	Featured    bool      `json:"featured" yaml:"featured"`
	Rating      float64   `json:"rating" yaml:"rating"`
	RatingCount int       `json:"ratingCount" yaml:"ratingCount"`
	CreatedAt   time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"-"`
}

// InStock reports whether the product can currently be sold.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// EffectivePrice is the sale price when one is set, else the base price.
func (p Product) EffectivePrice() float64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// FindVariant returns the variant offered under the given axis and value.
func (p Product) FindVariant(name, value string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.Name == name && v.Value == value {
			return v, true
		}
	}
	return Variant{}, false
}

// Category groups products.
type Category struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Slug        string    `json:"slug" yaml:"slug"`
	ParentID    string    `json:"parent,omitempty" yaml:"parent,omitempty"`
	Image       string    `json:"image,omitempty" yaml:"image,omitempty"`
	IsActive    bool      `json:"isActive" yaml:"isActive"`
	SortOrder   int       `json:"sortOrder" yaml:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"-"`
}

// Sort keys accepted by the product query.
const (
	SortByPrice  = "price"
	SortByName   = "name"
	SortByRating = "rating"
	SortByNewest = "newest"
	SortByOldest = "oldest"
)

const (
	DefaultPageLimit     = 12
	MaxPageLimit         = 100
	DefaultFeaturedLimit = 8
)

// ProductQuery holds the filter, sort and pagination inputs of a catalog listing.
type ProductQuery struct {
	Search   string
	Category string // category id or slug
	MinPrice *float64
	MaxPrice *float64
	Featured bool
	SortBy   string
	Desc     bool
	Page     int
	Limit    int
}

// Normalize applies defaults and rejects inconsistent inputs.
func (q ProductQuery) Normalize() (ProductQuery, error) {
	q.Search = strings.TrimSpace(q.Search)
	q.Category = strings.TrimSpace(q.Category)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	switch q.SortBy {
	case "", SortByPrice, SortByName, SortByRating, SortByNewest, SortByOldest:
	default:
		return q, ErrInvalidQuery
	}
	for _, bound := range []*float64{q.MinPrice, q.MaxPrice} {
		if bound != nil && (math.IsNaN(*bound) || math.IsInf(*bound, 0) || *bound < 0) {
			return q, ErrInvalidQuery
		}
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return q, ErrInvalidQuery
	}
	return q, nil
}

// Offset is the number of rows skipped before the requested page.
func (q ProductQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Current int  `json:"current"`
	Pages   int  `json:"pages"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

// NewPagination computes pagination metadata for a page of a result set.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		Current: page,
		Pages:   pages,
		Total:   total,
		Limit:   limit,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// OrderItem is a line item within an order.
type OrderItem struct {
	ProductID string           `json:"productId"`
	Name      string           `json:"name"`
	Variants  VariantSelection `json:"variantSelection"`
	Price     float64          `json:"price"`
	Quantity  int              `json:"quantity"`
}

// OrderPricing is the price breakdown captured from the cart at checkout.
type OrderPricing struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// Order statuses.
const (
	OrderPlacedStatus    = "placed"
	OrderConfirmedStatus = "confirmed"
)

// Order represents a customer order.
type Order struct {
	ID        string       `json:"id"`
	SessionID string       `json:"sessionId"`
	Items     []OrderItem  `json:"items"`
	Pricing   OrderPricing `json:"pricing"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// --- Commands ---

// PlaceOrder is a command to create a new order.
type PlaceOrder struct {
	OrderID   string       `json:"order_id"`
	SessionID string       `json:"session_id"`
	Items     []OrderItem  `json:"items"`
	Pricing   OrderPricing `json:"pricing"`
}

// --- Events ---

// OrderPlaced is emitted when an order is successfully placed.
type OrderPlaced struct {
	OrderID   string       `json:"order_id"`
	SessionID string       `json:"session_id"`
	Items     []OrderItem  `json:"items"`
	Pricing   OrderPricing `json:"pricing"`
	PlacedAt  time.Time    `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }

// OrderConfirmed is emitted when an order is confirmed.
type OrderConfirmed struct {
	OrderID     string    `json:"order_id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

func (e OrderConfirmed) EventType() string { return "OrderConfirmed" }

// CartUpdated is published after every applied cart mutation.
type CartUpdated struct {
	SessionID string    `json:"session_id"`
	Command   string    `json:"command"`
	ItemCount int       `json:"item_count"`
	Lines     int       `json:"lines"`
	Total     float64   `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e CartUpdated) EventType() string { return "CartUpdated" }
