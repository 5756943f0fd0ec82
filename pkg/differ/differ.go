package differ

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/agentstation/skinmap/pkg/catalogs"
)

// Differ handles change detection between catalog records.
type Differ interface {
	// Product compares two versions of one product and returns an update if they differ
	Product(existing, updated *catalogs.Product) *ProductUpdate

	// Products compares two sets of products and returns changes
	Products(existing, updated []*catalogs.Product) *ProductChangeset

	// Mappings compares two sets of crosswalk mappings and returns changes
	Mappings(existing, updated []catalogs.Mapping) *MappingChangeset
}

// differ is the default implementation of Differ.
type differ struct {
	// Options for controlling diff behavior
	ignoreFields   map[string]bool
	deepComparison bool
	source         string
}

// New creates a Differ with default settings.
func New(opts ...Option) Differ {
	d := &differ{
		ignoreFields:   make(map[string]bool),
		deepComparison: true,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Products compares two sets of products and returns changes.
// Products are never removed from the catalog, so only additions and
// updates are reported.
func (diff *differ) Products(existing, updated []*catalogs.Product) *ProductChangeset {
	changeset := &ProductChangeset{
		Added:   []*catalogs.Product{},
		Updated: []ProductUpdate{},
	}

	// Create a map for efficient lookup
	existingMap := make(map[string]*catalogs.Product, len(existing))
	for _, product := range existing {
		existingMap[product.ID.String()] = product
	}

	for _, newProduct := range updated {
		if existingProduct, exists := existingMap[newProduct.ID.String()]; exists {
			if update := diff.Product(existingProduct, newProduct); update != nil {
				changeset.Updated = append(changeset.Updated, *update)
			}
		} else {
			changeset.Added = append(changeset.Added, newProduct)
		}
	}

	// Sort for consistent output
	sort.Slice(changeset.Added, func(i, j int) bool {
		return changeset.Added[i].IdentityKey() < changeset.Added[j].IdentityKey()
	})
	sort.Slice(changeset.Updated, func(i, j int) bool {
		return changeset.Updated[i].ID < changeset.Updated[j].ID
	})

	return changeset
}

// Mappings compares two sets of crosswalk mappings keyed by their
// (system, type, normalized ref) triple.
func (diff *differ) Mappings(existing, updated []catalogs.Mapping) *MappingChangeset {
	changeset := &MappingChangeset{
		Added:   []catalogs.Mapping{},
		Updated: []MappingUpdate{},
		Removed: []catalogs.Mapping{},
	}

	existingMap := make(map[catalogs.MappingKey]catalogs.Mapping, len(existing))
	for _, m := range existing {
		existingMap[m.Key()] = m
	}
	newMap := make(map[catalogs.MappingKey]catalogs.Mapping, len(updated))
	for _, m := range updated {
		newMap[m.Key()] = m
	}

	for _, newMapping := range updated {
		existingMapping, exists := existingMap[newMapping.Key()]
		if !exists {
			changeset.Added = append(changeset.Added, newMapping)
			continue
		}
		if update := diff.mapping(existingMapping, newMapping); update != nil {
			changeset.Updated = append(changeset.Updated, *update)
		}
	}

	for _, existingMapping := range existing {
		if _, exists := newMap[existingMapping.Key()]; !exists {
			changeset.Removed = append(changeset.Removed, existingMapping)
		}
	}

	sortMappings(changeset.Added)
	sortMappings(changeset.Removed)
	sort.Slice(changeset.Updated, func(i, j int) bool {
		return changeset.Updated[i].Key.String() < changeset.Updated[j].Key.String()
	})

	return changeset
}

// Product compares two products and returns an update if they differ.
func (diff *differ) Product(existing, updated *catalogs.Product) *ProductUpdate {
	changes := []FieldChange{}
	add := func(path, oldValue, newValue string) {
		if oldValue != newValue && !diff.ignoreFields[path] {
			changes = append(changes, FieldChange{
				Path:     path,
				OldValue: oldValue,
				NewValue: newValue,
				Type:     ChangeTypeUpdate,
				Source:   diff.source,
			})
		}
	}

	// Compare identity and commerce fields
	add("brand", existing.Brand, updated.Brand)
	add("name", existing.Name, updated.Name)
	add("category", existing.Category, updated.Category)
	add("ingredients", strings.Join(existing.Ingredients, ", "), strings.Join(updated.Ingredients, ", "))
	add("ingredient_text", truncateString(existing.IngredientText, 50), truncateString(updated.IngredientText, 50))
	add("regions", strings.Join(existing.Regions, ","), strings.Join(updated.Regions, ","))
	add("price_usd", formatPrice(existing.PriceUSD), formatPrice(updated.PriceUSD))
	add("price_cny", formatPrice(existing.PriceCNY), formatPrice(updated.PriceCNY))
	add("price_is_estimated", fmt.Sprintf("%v", existing.PriceIsEstimated), fmt.Sprintf("%v", updated.PriceIsEstimated))
	add("url", existing.URL, updated.URL)

	// Compare evidence and derived knowledge
	if diff.deepComparison {
		for _, bucket := range catalogs.Buckets {
			add("evidence."+bucket.String(), truncateString(existing.Evidence.Get(bucket), 50), truncateString(updated.Evidence.Get(bucket), 50))
		}
		changes = append(changes, diff.risk(existing.Risk, updated.Risk)...)
		changes = append(changes, diff.annotation(existing.Annotation, updated.Annotation)...)
	}

	// If no changes, return nil
	if len(changes) == 0 {
		return nil
	}

	return &ProductUpdate{
		ID:       existing.ID.String(),
		Existing: existing,
		New:      updated,
		Changes:  changes,
	}
}

// risk compares risk profiles. The engine version that derived a profile
// is not a change on its own.
func (diff *differ) risk(existing, updated catalogs.RiskProfile) []FieldChange {
	changes := []FieldChange{}

	if !slices.Equal(existing.Flags, updated.Flags) && !diff.ignoreFields["risk.flags"] {
		changes = append(changes, FieldChange{
			Path:     "risk.flags",
			OldValue: strings.Join(existing.Strings(), ","),
			NewValue: strings.Join(updated.Strings(), ","),
			Type:     ChangeTypeUpdate,
			Source:   diff.source,
		})
	}

	if formatRate(existing.BurnRate) != formatRate(updated.BurnRate) && !diff.ignoreFields["risk.burn_rate"] {
		changes = append(changes, FieldChange{
			Path:     "risk.burn_rate",
			OldValue: formatRate(existing.BurnRate),
			NewValue: formatRate(updated.BurnRate),
			Type:     ChangeTypeUpdate,
			Source:   diff.source,
		})
	}

	return changes
}

// annotation compares advisory annotations.
func (diff *differ) annotation(existing, updated *catalogs.Annotation) []FieldChange {
	changes := []FieldChange{}

	if existing == nil && updated == nil || diff.ignoreFields["annotation"] {
		return changes
	}

	if existing == nil || updated == nil {
		changes = append(changes, FieldChange{
			Path:     "annotation",
			OldValue: fmt.Sprintf("%v", existing != nil),
			NewValue: fmt.Sprintf("%v", updated != nil),
			Type:     ChangeTypeUpdate,
			Source:   diff.source,
		})
		return changes
	}

	if existing.Mechanism != updated.Mechanism {
		changes = append(changes, FieldChange{
			Path:     "annotation.mechanism",
			OldValue: fmt.Sprintf("%+v", existing.Mechanism),
			NewValue: fmt.Sprintf("%+v", updated.Mechanism),
			Type:     ChangeTypeUpdate,
			Source:   diff.source,
		})
	}

	if existing.Texture != updated.Texture || existing.Finish != updated.Finish {
		changes = append(changes, FieldChange{
			Path:     "annotation.experience",
			OldValue: existing.Texture + "/" + existing.Finish,
			NewValue: updated.Texture + "/" + updated.Finish,
			Type:     ChangeTypeUpdate,
			Source:   diff.source,
		})
	}

	return changes
}

// mapping compares two mappings with the same key.
func (diff *differ) mapping(existing, updated catalogs.Mapping) *MappingUpdate {
	changes := []FieldChange{}

	if existing.ProductID != updated.ProductID {
		changes = append(changes, FieldChange{
			Path:     "product_id",
			OldValue: existing.ProductID.String(),
			NewValue: updated.ProductID.String(),
			Type:     ChangeTypeUpdate,
			Source:   diff.source,
		})
	}

	if existing.Confidence != updated.Confidence && !diff.ignoreFields["confidence"] {
		changes = append(changes, FieldChange{
			Path:     "confidence",
			OldValue: fmt.Sprintf("%d", existing.Confidence),
			NewValue: fmt.Sprintf("%d", updated.Confidence),
			Type:     ChangeTypeUpdate,
			Source:   diff.source,
		})
	}

	if existing.ExternalRef != updated.ExternalRef && !diff.ignoreFields["external_ref"] {
		changes = append(changes, FieldChange{
			Path:     "external_ref",
			OldValue: existing.ExternalRef,
			NewValue: updated.ExternalRef,
			Type:     ChangeTypeUpdate,
			Source:   diff.source,
		})
	}

	if len(changes) == 0 {
		return nil
	}

	return &MappingUpdate{
		Key:      existing.Key(),
		Existing: existing,
		New:      updated,
		Changes:  changes,
	}
}

func sortMappings(mappings []catalogs.Mapping) {
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].Key().String() < mappings[j].Key().String()
	})
}

// formatPrice formats a price for display.
func formatPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}

// formatRate formats a burn rate for display.
func formatRate(rate float64) string {
	return fmt.Sprintf("%.3f", rate)
}

// truncateString truncates a string to maxLen runes.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
