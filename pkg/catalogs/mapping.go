package catalogs

import (
	"fmt"
	"maps"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
)

// MappingKey identifies a crosswalk slot. At most one product owns a key.
type MappingKey struct {
	SourceSystem  string `json:"source_system" yaml:"source_system"`
	SourceType    string `json:"source_type" yaml:"source_type"`
	NormalizedRef string `json:"normalized_ref" yaml:"normalized_ref"`
}

// String returns "system/type/ref".
func (k MappingKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.SourceSystem, k.SourceType, k.NormalizedRef)
}

// Mapping links an external reference to a canonical product.
type Mapping struct {
	SourceSystem  string         `json:"source_system" yaml:"source_system"`           // External system, e.g. "merchant"
	SourceType    string         `json:"source_type" yaml:"source_type"`               // Reference kind, e.g. "canonical_url"
	ExternalRef   string         `json:"external_ref" yaml:"external_ref"`             // Raw reference as sourced
	NormalizedRef string         `json:"normalized_ref" yaml:"normalized_ref"`         // Comparison key of the reference
	ProductID     uuid.UUID      `json:"product_id" yaml:"product_id"`                 // Owning product
	Confidence    int            `json:"confidence" yaml:"confidence"`                 // 0-100
	Metadata      map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"` // Source and row of the claim
	UpdatedAt     utc.Time       `json:"updated_at" yaml:"updated_at"`
}

// Key returns the crosswalk slot of the mapping.
func (m Mapping) Key() MappingKey {
	return MappingKey{SourceSystem: m.SourceSystem, SourceType: m.SourceType, NormalizedRef: m.NormalizedRef}
}

// Copy returns a copy with its own metadata map.
func (m Mapping) Copy() Mapping {
	m.Metadata = maps.Clone(m.Metadata)
	return m
}
