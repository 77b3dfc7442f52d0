package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aayush8356/Vendora/internal/entity"
)

func TestLoad(t *testing.T) {
	seed, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, seed.Categories)
	assert.NotEmpty(t, seed.Products)

	var hoodie *entity.Product
	for i := range seed.Products {
		if seed.Products[i].Slug == "zip-hoodie" {
			hoodie = &seed.Products[i]
		}
	}
	require.NotNil(t, hoodie)
	require.NotNil(t, hoodie.SalePrice)
	assert.Equal(t, 49.0, *hoodie.SalePrice)

	xxl, ok := hoodie.FindVariant("size", "XXL")
	require.True(t, ok)
	require.NotNil(t, xxl.PriceDelta)
	assert.Equal(t, 4.0, *xxl.PriceDelta)
}

func TestParse_RejectsUnknownCategory(t *testing.T) {
	_, err := Parse([]byte(`
categories:
  - {id: c1, name: One, slug: one}
products:
  - {id: p1, name: P, price: 10, sku: P1, category: c2, slug: p1}
`))
	assert.ErrorContains(t, err, "unknown category")
}

func TestParse_RejectsInvalidSalePrice(t *testing.T) {
	_, err := Parse([]byte(`
categories:
  - {id: c1, name: One, slug: one}
products:
  - {id: p1, name: P, price: 10, salePrice: 12, sku: P1, category: c1, slug: p1}
`))
	assert.ErrorIs(t, err, entity.ErrInvalidProduct)
}
