// Package store defines the canonical repository the ingestion pipeline
// writes to, an in-memory implementation, and the identity index used for
// matching during a run.
//
// Every mutation goes through a Tx. A Tx covers all writes of one incoming
// record: the product with its ingredient list, snippets, aliases and
// crosswalk mappings. Reads through a Tx observe its own pending writes.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/agentstation/skinmap/pkg/catalogs"
)

// Relations every repository must provide before a mutating run.
var Relations = []string{
	"products",
	"product_ingredients",
	"crosswalk_mappings",
	"knowledge_snippets",
	"product_aliases",
}

// Identity is the matching view of a canonical product.
type Identity struct {
	ID    uuid.UUID
	Brand string
	Name  string
}

// Repository is the canonical store.
type Repository interface {
	// Begin starts a transaction.
	Begin(ctx context.Context) (Tx, error)

	// Identities returns every product identity in creation order.
	Identities(ctx context.Context) ([]Identity, error)

	// Products returns every product in creation order.
	Products(ctx context.Context) ([]*catalogs.Product, error)

	// Mappings returns every crosswalk mapping.
	Mappings(ctx context.Context) ([]catalogs.Mapping, error)

	// DeleteMappings removes the given crosswalk slots and reports how many
	// existed.
	DeleteMappings(ctx context.Context, keys []catalogs.MappingKey) (int, error)

	// Check verifies the expected relations exist.
	Check(ctx context.Context) error

	// Close releases the repository.
	Close() error
}

// Tx is one unit of work.
type Tx interface {
	// Product returns a product with its ingredient list, or ErrNotFound.
	Product(ctx context.Context, id uuid.UUID) (*catalogs.Product, error)
	// SaveProduct inserts or replaces a product and its ingredient list.
	SaveProduct(ctx context.Context, p *catalogs.Product) error

	// Snippet returns one snippet slot, or ErrNotFound.
	Snippet(ctx context.Context, key catalogs.SnippetKey) (catalogs.Snippet, error)
	// SaveSnippet inserts or replaces a snippet slot.
	SaveSnippet(ctx context.Context, s catalogs.Snippet) error

	// Aliases returns the aliases of a product ordered by weight, heaviest first.
	Aliases(ctx context.Context, productID uuid.UUID) ([]catalogs.Alias, error)
	// SaveAlias inserts or replaces an alias keyed by (product, normalized alias).
	SaveAlias(ctx context.Context, a catalogs.Alias) error

	// Mapping returns the mapping of a crosswalk slot, or ErrNotFound.
	Mapping(ctx context.Context, key catalogs.MappingKey) (catalogs.Mapping, error)
	// SaveMapping inserts or replaces the mapping of a crosswalk slot.
	SaveMapping(ctx context.Context, m catalogs.Mapping) error

	Commit() error
	Rollback() error
}
