// Package differ provides functionality for comparing catalog records and detecting changes.
package differ

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentstation/skinmap/pkg/catalogs"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates an item was added.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates an item was updated.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates an item was removed.
	ChangeTypeRemove ChangeType = "remove"
)

// FieldChange represents a change to a specific field.
type FieldChange struct {
	Path     string     // Field path (e.g., "evidence.sensitivity")
	OldValue string     // Previous value (string representation)
	NewValue string     // New value (string representation)
	Type     ChangeType // Type of change
	Source   string     // Source label that caused the change (for provenance)
}

// ProductUpdate represents an update to an existing product.
type ProductUpdate struct {
	ID       string            // ID of the product being updated
	Existing *catalogs.Product // Current product
	New      *catalogs.Product // New product
	Changes  []FieldChange     // Detailed list of field changes
}

// Paths returns the changed field paths.
func (u *ProductUpdate) Paths() []string {
	paths := make([]string, len(u.Changes))
	for i, change := range u.Changes {
		paths[i] = change.Path
	}
	return paths
}

// MappingUpdate represents a crosswalk slot that changed owner or details.
type MappingUpdate struct {
	Key      catalogs.MappingKey // Slot being updated
	Existing catalogs.Mapping    // Current mapping
	New      catalogs.Mapping    // New mapping
	Changes  []FieldChange       // Detailed list of field changes
}

// ProductChangeset represents changes to products.
type ProductChangeset struct {
	Added   []*catalogs.Product // New products
	Updated []ProductUpdate     // Updated products
}

// MappingChangeset represents changes to crosswalk mappings.
type MappingChangeset struct {
	Added   []catalogs.Mapping // New mappings
	Updated []MappingUpdate    // Mappings whose owner or details changed
	Removed []catalogs.Mapping // Deleted mappings
}

// Changeset represents all changes between two catalog states.
type Changeset struct {
	Products *ProductChangeset // Product changes
	Mappings *MappingChangeset // Mapping changes
	Summary  ChangesetSummary  // Summary statistics
}

// ChangesetSummary provides summary statistics for a changeset.
type ChangesetSummary struct {
	ProductsAdded   int
	ProductsUpdated int
	MappingsAdded   int
	MappingsUpdated int
	MappingsRemoved int
	TotalChanges    int
}

// NewChangeset combines product and mapping changes. Either may be nil.
func NewChangeset(products *ProductChangeset, mappings *MappingChangeset) *Changeset {
	if products == nil {
		products = &ProductChangeset{}
	}
	if mappings == nil {
		mappings = &MappingChangeset{}
	}
	return &Changeset{
		Products: products,
		Mappings: mappings,
		Summary:  calculateSummary(products, mappings),
	}
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return c.Summary.TotalChanges > 0
}

// calculateSummary computes the summary for a changeset.
func calculateSummary(products *ProductChangeset, mappings *MappingChangeset) ChangesetSummary {
	s := ChangesetSummary{
		ProductsAdded:   len(products.Added),
		ProductsUpdated: len(products.Updated),
		MappingsAdded:   len(mappings.Added),
		MappingsUpdated: len(mappings.Updated),
		MappingsRemoved: len(mappings.Removed),
	}
	s.TotalChanges = s.ProductsAdded + s.ProductsUpdated + s.MappingsAdded + s.MappingsUpdated + s.MappingsRemoved
	return s
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return c.Summary.TotalChanges == 0
}

// HasChanges returns true if the product changeset contains any changes.
func (p *ProductChangeset) HasChanges() bool {
	return len(p.Added) > 0 || len(p.Updated) > 0
}

// HasChanges returns true if the mapping changeset contains any changes.
func (m *MappingChangeset) HasChanges() bool {
	return len(m.Added) > 0 || len(m.Updated) > 0 || len(m.Removed) > 0
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}

	var parts []string

	if c.Products.HasChanges() {
		productParts := []string{}
		if len(c.Products.Added) > 0 {
			productParts = append(productParts, fmt.Sprintf("%d added", len(c.Products.Added)))
		}
		if len(c.Products.Updated) > 0 {
			productParts = append(productParts, fmt.Sprintf("%d updated", len(c.Products.Updated)))
		}
		parts = append(parts, fmt.Sprintf("Products: %s", strings.Join(productParts, ", ")))
	}

	if c.Mappings.HasChanges() {
		mappingParts := []string{}
		if len(c.Mappings.Added) > 0 {
			mappingParts = append(mappingParts, fmt.Sprintf("%d added", len(c.Mappings.Added)))
		}
		if len(c.Mappings.Updated) > 0 {
			mappingParts = append(mappingParts, fmt.Sprintf("%d updated", len(c.Mappings.Updated)))
		}
		if len(c.Mappings.Removed) > 0 {
			mappingParts = append(mappingParts, fmt.Sprintf("%d removed", len(c.Mappings.Removed)))
		}
		parts = append(parts, fmt.Sprintf("Mappings: %s", strings.Join(mappingParts, ", ")))
	}

	return fmt.Sprintf("Changeset: %s (Total: %d changes)", strings.Join(parts, "; "), c.Summary.TotalChanges)
}

// Print writes a detailed, human-readable view of the changeset.
func (c *Changeset) Print(w io.Writer) {
	fmt.Fprintln(w, c.String())
	fmt.Fprintln(w, strings.Repeat("─", 80))

	if c.Products.HasChanges() {
		c.Products.Print(w)
	}

	if c.Mappings.HasChanges() {
		c.Mappings.Print(w)
	}
}

// Print writes product changes in a human-readable format.
func (p *ProductChangeset) Print(w io.Writer) {
	if len(p.Added) > 0 {
		fmt.Fprintf(w, "\n➕ Added Products (%d):\n", len(p.Added))
		for _, product := range p.Added {
			fmt.Fprintf(w, "  • %s", product.FullName())
			if len(product.Ingredients) > 0 {
				fmt.Fprintf(w, " - %d ingredients", len(product.Ingredients))
			}
			if len(product.Risk.Flags) > 0 {
				fmt.Fprintf(w, " [%s]", strings.Join(product.Risk.Strings(), ", "))
			}
			fmt.Fprintln(w)
		}
	}

	if len(p.Updated) > 0 {
		fmt.Fprintf(w, "\n🔄 Updated Products (%d):\n", len(p.Updated))
		for _, update := range p.Updated {
			fmt.Fprintf(w, "  • %s (%s):\n", update.New.FullName(), update.ID)
			printChanges(w, update.Changes)
		}
	}
}

// Print writes mapping changes in a human-readable format.
func (m *MappingChangeset) Print(w io.Writer) {
	if len(m.Added) > 0 {
		fmt.Fprintf(w, "\n➕ Added Mappings (%d):\n", len(m.Added))
		for _, mapping := range m.Added {
			fmt.Fprintf(w, "  • %s → %s\n", mapping.Key(), mapping.ProductID)
		}
	}

	if len(m.Updated) > 0 {
		fmt.Fprintf(w, "\n🔄 Updated Mappings (%d):\n", len(m.Updated))
		for _, update := range m.Updated {
			fmt.Fprintf(w, "  • %s:\n", update.Key)
			printChanges(w, update.Changes)
		}
	}

	if len(m.Removed) > 0 {
		fmt.Fprintf(w, "\n⚠️  Removed Mappings (%d):\n", len(m.Removed))
		for _, mapping := range m.Removed {
			fmt.Fprintf(w, "  • %s (was %s)\n", mapping.Key(), mapping.ProductID)
		}
	}
}

func printChanges(w io.Writer, changes []FieldChange) {
	for _, change := range changes {
		fmt.Fprintf(w, "    - %s: %s → %s\n", change.Path, change.OldValue, change.NewValue)
	}
}

// ApplyStrategy represents how to apply changes.
type ApplyStrategy string

const (
	// ApplyAll applies all changes including removals.
	ApplyAll ApplyStrategy = "all"

	// ApplyAdditive only applies additions and updates, never removes.
	ApplyAdditive ApplyStrategy = "additive"

	// ApplyUpdatesOnly only applies updates to existing items.
	ApplyUpdatesOnly ApplyStrategy = "updates-only"

	// ApplyAdditionsOnly only applies new additions.
	ApplyAdditionsOnly ApplyStrategy = "additions-only"
)

// Filter filters the changeset based on the apply strategy.
func (c *Changeset) Filter(strategy ApplyStrategy) *Changeset {
	products := &ProductChangeset{}
	mappings := &MappingChangeset{}

	switch strategy {
	case ApplyAll:
		return c

	case ApplyAdditive:
		products.Added = c.Products.Added
		products.Updated = c.Products.Updated
		mappings.Added = c.Mappings.Added
		mappings.Updated = c.Mappings.Updated

	case ApplyUpdatesOnly:
		products.Updated = c.Products.Updated
		mappings.Updated = c.Mappings.Updated

	case ApplyAdditionsOnly:
		products.Added = c.Products.Added
		mappings.Added = c.Mappings.Added
	}

	return NewChangeset(products, mappings)
}
