package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Aayush8356/Vendora/internal/entity"
)

// parseProductQuery reads the listing query parameters.
func parseProductQuery(v url.Values) (entity.ProductQuery, error) {
	q := entity.ProductQuery{
		Search:   v.Get("search"),
		Category: v.Get("category"),
		SortBy:   v.Get("sortBy"),
	}

	var err error
	if q.Page, err = intParam(v, "page"); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(v, "limit"); err != nil {
		return q, err
	}
	if q.MinPrice, err = floatParam(v, "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = floatParam(v, "maxPrice"); err != nil {
		return q, err
	}

	if s := v.Get("featured"); s != "" {
		if q.Featured, err = strconv.ParseBool(s); err != nil {
			return q, fmt.Errorf("%w: featured must be a boolean", entity.ErrInvalidQuery)
		}
	}

	switch v.Get("sortOrder") {
	case "", "asc":
	case "desc":
		q.Desc = true
	default:
		return q, fmt.Errorf("%w: sortOrder must be asc or desc", entity.ErrInvalidQuery)
	}
	return q, nil
}

func intParam(v url.Values, name string) (int, error) {
	s := v.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", entity.ErrInvalidQuery, name)
	}
	return n, nil
}

func floatParam(v url.Values, name string) (*float64, error) {
	s := v.Get(name)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", entity.ErrInvalidQuery, name)
	}
	return &f, nil
}

func (h *Handler) handleGetProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseProductQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.catalog.QueryProducts(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", page)
}

func (h *Handler) handleGetFeatured(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	products, err := h.catalog.FeaturedProducts(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", products)
}

type categoryProducts struct {
	Category   *entity.Category  `json:"category"`
	Products   []entity.Product  `json:"products"`
	Pagination entity.Pagination `json:"pagination"`
}

func (h *Handler) handleGetProductsByCategory(w http.ResponseWriter, r *http.Request) {
	q, err := parseProductQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	category, page, err := h.catalog.ProductsByCategory(r.Context(), r.PathValue("slug"), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", categoryProducts{
		Category:   category,
		Products:   page.Products,
		Pagination: page.Pagination,
	})
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", product)
}

func (h *Handler) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", categories)
}

func (h *Handler) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.catalog.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", category)
}
