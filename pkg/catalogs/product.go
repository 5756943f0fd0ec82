// Package catalogs defines the canonical knowledge base records: products,
// their evidence bundles and risk profiles, crosswalk mappings, evidence
// snippets and search aliases.
//
// The types here carry data only. Identity, merging and classification live
// in their own packages and operate on these records.
package catalogs

import (
	"strings"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/identity"
)

// Product is one canonical product entry.
type Product struct {
	// Core identity
	ID       uuid.UUID `json:"id" yaml:"id"`                                 // Stable canonical identifier
	Brand    string    `json:"brand" yaml:"brand"`                           // Display brand ("Unknown" until a source names it)
	Name     string    `json:"name" yaml:"name"`                             // Display product name
	Category string    `json:"category,omitempty" yaml:"category,omitempty"` // Product category (defaults to "Treatment")

	// Formula
	Ingredients    []string `json:"ingredients,omitempty" yaml:"ingredients,omitempty"`         // Ordered ingredient tokens
	IngredientText string   `json:"ingredient_text,omitempty" yaml:"ingredient_text,omitempty"` // Raw ingredient text as sourced

	// Commerce
	Regions          []string `json:"regions,omitempty" yaml:"regions,omitempty"` // Ordered set of region codes
	PriceUSD         float64  `json:"price_usd" yaml:"price_usd"`
	PriceCNY         float64  `json:"price_cny" yaml:"price_cny"`
	PriceIsEstimated bool     `json:"price_is_estimated" yaml:"price_is_estimated"` // True while prices are placeholders
	URL              string   `json:"url,omitempty" yaml:"url,omitempty"`

	// Derived knowledge
	Evidence   Bundle      `json:"evidence" yaml:"evidence"`
	Risk       RiskProfile `json:"risk" yaml:"risk"`
	Annotation *Annotation `json:"annotation,omitempty" yaml:"annotation,omitempty"` // Advisory annotation, if one was obtained

	// Timestamps for record keeping and auditing
	CreatedAt utc.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt utc.Time `json:"updated_at" yaml:"updated_at"`
}

// NewProduct creates a product with a fresh ID and the catalog defaults:
// estimated prices, the global region and the default category.
func NewProduct(brand, name string) *Product {
	now := utc.Now()
	brand = strings.TrimSpace(brand)
	if brand == "" {
		brand = constants.UnknownBrand
	}
	return &Product{
		ID:               uuid.New(),
		Brand:            brand,
		Name:             strings.TrimSpace(name),
		Category:         constants.DefaultCategory,
		Regions:          []string{constants.GlobalRegion},
		PriceUSD:         constants.EstimatedPriceUSD,
		PriceCNY:         constants.EstimatedPriceCNY,
		PriceIsEstimated: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// IdentityKey returns the identity key of the product. It is recomputed
// from brand and name on every call.
func (p *Product) IdentityKey() string {
	return identity.Key(p.Brand, p.Name)
}

// FullName returns "brand name".
func (p *Product) FullName() string {
	return strings.TrimSpace(p.Brand + " " + p.Name)
}

// HasUnknownBrand reports whether the brand is still the placeholder.
func (p *Product) HasUnknownBrand() bool {
	b := strings.TrimSpace(p.Brand)
	return b == "" || strings.EqualFold(b, constants.UnknownBrand)
}

// Copy returns a deep copy of the product.
func (p *Product) Copy() *Product {
	if p == nil {
		return nil
	}
	out := *p
	out.Ingredients = append([]string(nil), p.Ingredients...)
	out.Regions = append([]string(nil), p.Regions...)
	out.Risk.Flags = append([]Flag(nil), p.Risk.Flags...)
	if p.Annotation != nil {
		out.Annotation = p.Annotation.Copy()
	}
	return &out
}
