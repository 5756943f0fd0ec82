package catalogs

import (
	"maps"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
)

// Snippet metadata keys.
const (
	MetaCanonicalKey       = "canonical_key"
	MetaCanonicalKeySource = "canonical_key_source"
	MetaBrand              = "brand"
	MetaName               = "name"
)

// SnippetKey identifies a snippet slot.
type SnippetKey struct {
	ProductID   uuid.UUID
	SourceLabel string
	FieldLabel  string
}

// Snippet is one sourced evidence cell attached to a product.
type Snippet struct {
	ProductID   uuid.UUID      `json:"product_id" yaml:"product_id"`
	SourceLabel string         `json:"source_label" yaml:"source_label"`             // Sheet or file the cell came from
	FieldLabel  string         `json:"field_label" yaml:"field_label"`               // Canonicalized column label
	Content     string         `json:"content" yaml:"content"`                       // Cell text
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"` // canonical_key and friends
	UpdatedAt   utc.Time       `json:"updated_at" yaml:"updated_at"`
}

// Key returns the snippet slot.
func (s Snippet) Key() SnippetKey {
	return SnippetKey{ProductID: s.ProductID, SourceLabel: s.SourceLabel, FieldLabel: s.FieldLabel}
}

// CanonicalKey returns the ontology key recorded in metadata, if any.
func (s Snippet) CanonicalKey() string {
	key, _ := s.Metadata[MetaCanonicalKey].(string)
	return key
}

// Copy returns a copy with its own metadata map.
func (s Snippet) Copy() Snippet {
	s.Metadata = maps.Clone(s.Metadata)
	return s
}

// Alias is a searchable name for a product.
type Alias struct {
	ProductID       uuid.UUID `json:"product_id" yaml:"product_id"`
	Alias           string    `json:"alias" yaml:"alias"`                       // Display text
	NormalizedAlias string    `json:"normalized_alias" yaml:"normalized_alias"` // Lookup key
	Kind            string    `json:"kind" yaml:"kind"`                         // brand, name, full_name, brand_alias or nickname
	Weight          int       `json:"weight" yaml:"weight"`
}
