// Package records reads input rows from spreadsheets exports, JSON and YAML
// into Records, the uniform shape the ingestion pipeline consumes.
package records

import (
	"sort"
	"strings"

	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/identity"
	"github.com/agentstation/skinmap/pkg/normalize"
)

// Review and parse statuses that carry meaning for row selection.
const (
	StatusOK          = "OK"
	StatusApproved    = "APPROVED"
	StatusNeedsSource = "NEEDS_SOURCE"
)

// Ref is an external reference carried by a record.
type Ref struct {
	System string `json:"system" yaml:"system"`
	Type   string `json:"type" yaml:"type"`
	Value  string `json:"value" yaml:"value"`
}

// Record is one input row.
type Record struct {
	Source   string `json:"source" yaml:"source"`       // Source label, usually the sheet or file name
	RowIndex int    `json:"row_index" yaml:"row_index"` // Zero-based row within the source

	Brand    string `json:"brand" yaml:"brand"`
	Name     string `json:"name" yaml:"name"`
	FullName string `json:"full_name,omitempty" yaml:"full_name,omitempty"` // "brand name" as a single cell, split when brand or name is missing
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	IngredientText string   `json:"ingredient_text,omitempty" yaml:"ingredient_text,omitempty"` // Raw ingredient text
	INCI           string   `json:"inci,omitempty" yaml:"inci,omitempty"`                       // Structured INCI list, if the source has one
	Ingredients    []string `json:"ingredients,omitempty" yaml:"ingredients,omitempty"`         // Parsed by Prepare

	PriceUSD float64  `json:"price_usd,omitempty" yaml:"price_usd,omitempty"` // Zero when unknown
	PriceCNY float64  `json:"price_cny,omitempty" yaml:"price_cny,omitempty"` // Zero when unknown
	Regions  []string `json:"regions,omitempty" yaml:"regions,omitempty"`
	URL      string   `json:"url,omitempty" yaml:"url,omitempty"`

	Refs     []Ref             `json:"refs,omitempty" yaml:"refs,omitempty"`
	Evidence map[string]string `json:"evidence,omitempty" yaml:"evidence,omitempty"` // Column label to text
	Hints    []string          `json:"hints,omitempty" yaml:"hints,omitempty"`       // Suggested risk flags from the source

	ReviewStatus string `json:"review_status,omitempty" yaml:"review_status,omitempty"`
	ParseStatus  string `json:"parse_status,omitempty" yaml:"parse_status,omitempty"`
}

// Prepare trims every field, splits a full product name into brand and
// name, upper-cases statuses and parses the ingredient list. Readers call
// it on every record they return.
func (r *Record) Prepare(keyer *identity.Keyer) {
	if keyer == nil {
		keyer = identity.Default()
	}

	r.Brand = strings.TrimSpace(r.Brand)
	r.Name = strings.TrimSpace(r.Name)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Category = strings.TrimSpace(r.Category)
	r.URL = strings.TrimSpace(r.URL)
	r.ReviewStatus = strings.ToUpper(strings.TrimSpace(r.ReviewStatus))
	r.ParseStatus = strings.ToUpper(strings.TrimSpace(r.ParseStatus))

	if r.Name == "" && r.FullName != "" {
		r.Name = r.FullName
	}
	// Many exports put the brand inside the name cell.
	switch {
	case r.Name == "":
	case r.Brand == "":
		if brand, name := keyer.SplitBrandName(r.Name); brand != constants.UnknownBrand && name != r.Name {
			r.Brand, r.Name = brand, name
		}
	case len(r.Name) > len(r.Brand) && strings.EqualFold(r.Name[:len(r.Brand)], r.Brand):
		if rest := strings.TrimLeft(r.Name[len(r.Brand):], " -–—:"); rest != "" {
			r.Name = rest
		}
	}

	r.Ingredients = normalize.ParseIngredients(r.INCI, r.IngredientText)
	if r.IngredientText == "" && r.INCI != "" {
		r.IngredientText = strings.Join(r.Ingredients, ", ")
	}
	r.Regions = splitValues(r.Regions)
}

// IdentityKey returns the identity key of the record.
func (r *Record) IdentityKey() string {
	return identity.Key(r.Brand, r.Name)
}

// HasPrice reports whether the record carries a real price.
func (r *Record) HasPrice() bool {
	return r.PriceUSD > 0 || r.PriceCNY > 0
}

// Reviewed reports whether a reviewer approved the record.
func (r *Record) Reviewed() bool {
	return r.ReviewStatus == StatusOK || r.ReviewStatus == StatusApproved
}

// EvidenceLabels returns the evidence labels in sorted order.
func (r *Record) EvidenceLabels() []string {
	labels := make([]string, 0, len(r.Evidence))
	for label := range r.Evidence {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Validate checks the fields every record must supply.
func (r *Record) Validate() error {
	switch {
	case r.Brand == "":
		return errors.NewRowValidationError(r.RowIndex, "brand", "brand is required")
	case r.Name == "":
		return errors.NewRowValidationError(r.RowIndex, "name", "name is required")
	case strings.TrimSpace(r.IngredientText) == "" && strings.TrimSpace(r.INCI) == "":
		return errors.NewRowValidationError(r.RowIndex, "ingredients", "ingredient text is required")
	}
	return nil
}

// Copy returns a deep copy of the record.
func (r *Record) Copy() *Record {
	out := *r
	out.Ingredients = append([]string(nil), r.Ingredients...)
	out.Regions = append([]string(nil), r.Regions...)
	out.Refs = append([]Ref(nil), r.Refs...)
	out.Hints = append([]string(nil), r.Hints...)
	if r.Evidence != nil {
		out.Evidence = make(map[string]string, len(r.Evidence))
		for k, v := range r.Evidence {
			out.Evidence[k] = v
		}
	}
	return &out
}

// splitValues flattens comma separated entries and drops blanks.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
