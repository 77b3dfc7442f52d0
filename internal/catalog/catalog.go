package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Aayush8356/Vendora/internal/entity"
)

//go:embed seed.yaml
var seedYAML []byte

// Seed is the initial catalog loaded into an empty store.
type Seed struct {
	Categories []entity.Category `yaml:"categories"`
	Products   []entity.Product  `yaml:"products"`
}

// Load parses the embedded seed catalog.
func Load() (*Seed, error) {
	return Parse(seedYAML)
}

// Parse decodes a seed document and checks that every product is sellable
// and points at a known category.
func Parse(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed catalog: %w", err)
	}

	categories := make(map[string]bool, len(seed.Categories))
	for _, c := range seed.Categories {
		if c.ID == "" || c.Slug == "" {
			return nil, fmt.Errorf("seed category %q needs an id and a slug", c.Name)
		}
		categories[c.ID] = true
	}
	for i := range seed.Categories {
		if p := seed.Categories[i].ParentID; p != "" && !categories[p] {
			return nil, fmt.Errorf("seed category %s has unknown parent %s", seed.Categories[i].ID, p)
		}
	}

	for i, p := range seed.Products {
		if err := entity.ValidateProduct(p); err != nil {
			return nil, fmt.Errorf("invalid seed product at index %d: %w", i, err)
		}
		if !categories[p.CategoryID] {
			return nil, fmt.Errorf("seed product %s has unknown category %s", p.ID, p.CategoryID)
		}
		if p.Status == "" {
			seed.Products[i].Status = entity.ProductDraft
		}
		if p.Variants == nil {
			seed.Products[i].Variants = []entity.Variant{}
		}
	}
	return &seed, nil
}
