// Package provenance provides field-level tracking of which source set each
// product field, and why.
package provenance

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/skinmap/pkg/authority"
	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/errors"
)

// Decision describes what the merger did with an incoming value.
type Decision string

// Merge decisions.
const (
	Set         Decision = "set"         // Value written on a new product
	Replaced    Decision = "replaced"    // Rule permitted replacing the value
	Joined      Decision = "joined"      // Value merged into the existing one
	Refused     Decision = "refused"     // Rule refused a differing value
	Overwritten Decision = "overwritten" // Refused value written because overwrite was allowed
)

// Provenance tracks the origin and history of a field value.
type Provenance struct {
	Source        string         `yaml:"source"`                   // Source label that provided the value
	Field         string         `yaml:"field"`                    // Field path
	Value         any            `yaml:"value"`                    // The incoming value
	Timestamp     time.Time      `yaml:"timestamp"`                // When the value was seen
	Rule          authority.Rule `yaml:"rule"`                     // Rule that decided
	Decision      Decision       `yaml:"decision"`                 // What happened
	Reason        string         `yaml:"reason,omitempty"`         // Free-form detail
	PreviousValue any            `yaml:"previous_value,omitempty"` // Previous value if updated
}

// Map tracks provenance for multiple products.
type Map map[string][]Provenance // key is "productID:fieldPath"

// Tracker manages provenance tracking during merges.
type Tracker interface {
	// Track records provenance for a field
	Track(productID string, field string, history Provenance)

	// FindByField retrieves provenance for a specific field
	FindByField(productID string, field string) []Provenance

	// FindByProduct retrieves all provenance for a product
	FindByProduct(productID string) map[string][]Provenance

	// Map returns the complete provenance map
	Map() Map

	// Clear removes all provenance data
	Clear()
}

// tracker is the default implementation.
type tracker struct {
	provenance Map
	enabled    bool
}

// NewTracker creates a new provenance tracker.
func NewTracker(enabled bool) Tracker {
	return &tracker{
		provenance: make(Map),
		enabled:    enabled,
	}
}

// Track records provenance for a field.
func (p *tracker) Track(productID string, field string, history Provenance) {
	if !p.enabled {
		return
	}

	if history.Timestamp.IsZero() {
		history.Timestamp = time.Now().UTC()
	}
	if history.Field == "" {
		history.Field = field
	}

	key := makeKey(productID, field)
	p.provenance[key] = append(p.provenance[key], history)
}

// FindByField retrieves provenance for a specific field.
func (p *tracker) FindByField(productID string, field string) []Provenance {
	if !p.enabled {
		return nil
	}
	return p.provenance[makeKey(productID, field)]
}

// FindByProduct retrieves all provenance for a product.
func (p *tracker) FindByProduct(productID string) map[string][]Provenance {
	if !p.enabled {
		return nil
	}

	result := make(map[string][]Provenance)
	prefix := productID + ":"

	for key, info := range p.provenance {
		if field, found := strings.CutPrefix(key, prefix); found {
			result[field] = info
		}
	}

	return result
}

// Map returns the complete provenance map.
func (p *tracker) Map() Map {
	if !p.enabled {
		return nil
	}

	// Return a copy to prevent external modification
	result := make(Map)
	for k, v := range p.provenance {
		result[k] = append([]Provenance{}, v...)
	}
	return result
}

// Clear removes all provenance data.
func (p *tracker) Clear() {
	p.provenance = make(Map)
}

func makeKey(productID string, field string) string {
	return fmt.Sprintf("%s:%s", productID, field)
}

// Report is a human-readable provenance report.
type Report struct {
	Products map[string]ProductProvenance // key is the product ID
}

// ProductProvenance contains provenance for a single product.
type ProductProvenance struct {
	ID     string
	Fields map[string]Field
}

// Field contains provenance history for a single field.
type Field struct {
	Current Provenance   // Latest decision
	History []Provenance // All decisions, newest first
	Refused int          // Number of refused values
}

// GenerateReport creates a provenance report from a Map.
func GenerateReport(provenance Map) *Report {
	report := &Report{
		Products: make(map[string]ProductProvenance),
	}

	for key, infos := range provenance {
		productID, field, ok := strings.Cut(key, ":")
		if !ok {
			continue
		}

		product, exists := report.Products[productID]
		if !exists {
			product = ProductProvenance{
				ID:     productID,
				Fields: make(map[string]Field),
			}
		}

		history := append([]Provenance(nil), infos...)
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].Timestamp.After(history[j].Timestamp)
		})

		fieldProv := Field{History: history}
		if len(history) > 0 {
			fieldProv.Current = history[0]
		}
		for _, info := range history {
			if info.Decision == Refused {
				fieldProv.Refused++
			}
		}

		product.Fields[field] = fieldProv
		report.Products[productID] = product
	}

	return report
}

// String generates a string representation of the provenance report.
func (r *Report) String() string {
	var sb strings.Builder

	sb.WriteString("Provenance Report\n")
	sb.WriteString("=================\n\n")

	// Sort products for consistent output
	ids := make([]string, 0, len(r.Products))
	for id := range r.Products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		product := r.Products[id]
		sb.WriteString(fmt.Sprintf("product: %s\n", product.ID))
		sb.WriteString(strings.Repeat("-", 40))
		sb.WriteString("\n")

		var fieldKeys []string
		for field := range product.Fields {
			fieldKeys = append(fieldKeys, field)
		}
		sort.Strings(fieldKeys)

		for _, field := range fieldKeys {
			fieldProv := product.Fields[field]
			sb.WriteString(fmt.Sprintf("  %s:\n", field))
			sb.WriteString(fmt.Sprintf("    Current: %v (%s by %s from %s)\n",
				fieldProv.Current.Value, fieldProv.Current.Decision, fieldProv.Current.Rule, fieldProv.Current.Source))
			if fieldProv.Refused > 0 {
				sb.WriteString(fmt.Sprintf("    Refused: %d\n", fieldProv.Refused))
			}

			if len(fieldProv.History) > 1 {
				sb.WriteString("    History:\n")
				for i, info := range fieldProv.History {
					if i > 3 { // Limit history display
						sb.WriteString(fmt.Sprintf("      ... and %d more\n", len(fieldProv.History)-i))
						break
					}
					sb.WriteString(fmt.Sprintf("      - %s %v from %s\n", info.Decision, info.Value, info.Source))
				}
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// File represents a provenance file stored on disk.
type File struct {
	Provenance Map `yaml:"provenance"`
}

// Save writes a provenance map as YAML.
func Save(path string, m Map) error {
	data, err := yaml.Marshal(File{Provenance: m})
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Load reads provenance data from a YAML file.
// Returns nil, nil if the file doesn't exist (not an error).
func Load(path string) (*File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var pf File
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}

	return &pf, nil
}
