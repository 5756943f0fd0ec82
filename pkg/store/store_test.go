package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skinmap/internal/matcher"
	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/logging"
	"github.com/agentstation/skinmap/pkg/store"
)

func save(t *testing.T, repo store.Repository, products ...*catalogs.Product) {
	t.Helper()
	ctx := context.Background()
	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	for _, p := range products {
		require.NoError(t, tx.SaveProduct(ctx, p))
	}
	require.NoError(t, tx.Commit())
}

func TestMemoryCommit(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	require.NoError(t, repo.Check(ctx))

	p := catalogs.NewProduct("CeraVe", "PM Lotion")
	p.Ingredients = []string{"Water", "Niacinamide"}

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SaveProduct(ctx, p))

	// Pending writes are visible inside the transaction only.
	got, err := tx.Product(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Ingredients, got.Ingredients)
	ids, err := repo.Identities(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, tx.Commit())
	assert.ErrorIs(t, tx.Commit(), store.ErrTxDone)

	ids, err = repo.Identities(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, store.Identity{ID: p.ID, Brand: "CeraVe", Name: "PM Lotion"}, ids[0])

	// Stored products are copies.
	p.Ingredients[0] = "Aqua"
	products, err := repo.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Water", products[0].Ingredients[0])
}

func TestMemoryRollback(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	id := uuid.New()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SaveMapping(ctx, catalogs.Mapping{SourceSystem: "merchant", SourceType: "canonical_url",
		NormalizedRef: "brand.com/p/1", ProductID: id, Confidence: 90}))
	require.NoError(t, tx.Rollback())

	_, err = tx.Mapping(ctx, catalogs.MappingKey{SourceSystem: "merchant", SourceType: "canonical_url", NormalizedRef: "brand.com/p/1"})
	assert.ErrorIs(t, err, store.ErrTxDone)

	mappings, err := repo.Mappings(ctx)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	tx, err := store.NewMemory().Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Product(ctx, uuid.New())
	assert.True(t, errors.IsNotFound(err))
	_, err = tx.Snippet(ctx, catalogs.SnippetKey{ProductID: uuid.New(), SourceLabel: "a", FieldLabel: "b"})
	assert.True(t, errors.IsNotFound(err))
	_, err = tx.Mapping(ctx, catalogs.MappingKey{SourceSystem: "x", SourceType: "y", NormalizedRef: "z"})
	assert.True(t, errors.IsNotFound(err))
}

func TestMemorySnippetsAndAliases(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	p := catalogs.NewProduct("COSRX", "Advanced Snail 96 Mucin Power Essence")
	save(t, repo, p)

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SaveSnippet(ctx, catalogs.Snippet{ProductID: p.ID, SourceLabel: "Sheet1", FieldLabel: "notes", Content: "first"}))
	require.NoError(t, tx.SaveSnippet(ctx, catalogs.Snippet{ProductID: p.ID, SourceLabel: "Sheet1", FieldLabel: "notes", Content: "second"}))
	require.NoError(t, tx.SaveAlias(ctx, catalogs.Alias{ProductID: p.ID, Alias: "COSRX", NormalizedAlias: "cosrx", Kind: "brand", Weight: 10}))
	require.NoError(t, tx.SaveAlias(ctx, catalogs.Alias{ProductID: p.ID, Alias: "Snail Mucin", NormalizedAlias: "snail mucin", Kind: "nickname", Weight: 50}))
	require.NoError(t, tx.Commit())

	snippets := repo.Snippets(p.ID)
	require.Len(t, snippets, 1)
	assert.Equal(t, "second", snippets[0].Content)

	tx, err = repo.Begin(ctx)
	require.NoError(t, err)
	aliases, err := tx.Aliases(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	require.Len(t, aliases, 2)
	assert.Equal(t, "snail mucin", aliases[0].NormalizedAlias)
}

func TestMemoryDeleteMappings(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	keep := catalogs.Mapping{SourceSystem: "merchant", SourceType: "canonical_url", NormalizedRef: "a.com/1", ProductID: uuid.New()}
	drop := catalogs.Mapping{SourceSystem: "merchant", SourceType: "canonical_url", NormalizedRef: "a.com/2", ProductID: uuid.New()}

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SaveMapping(ctx, keep))
	require.NoError(t, tx.SaveMapping(ctx, drop))
	require.NoError(t, tx.Commit())

	n, err := repo.DeleteMappings(ctx, []catalogs.MappingKey{drop.Key(), {SourceSystem: "x", SourceType: "y", NormalizedRef: "z"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mappings, err := repo.Mappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "a.com/1", mappings[0].NormalizedRef)
}

func TestMemoryClosed(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	require.NoError(t, repo.Close())
	_, err := repo.Begin(ctx)
	assert.Error(t, err)
	assert.Error(t, repo.Check(ctx))
}

func TestIndexLoadsOnceAndRefreshes(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	repo := store.NewMemory()
	lrp := catalogs.NewProduct("La Roche-Posay", "Cicaplast Baume B5")
	save(t, repo, lrp)

	idx := store.NewIndex(repo, matcher.New())
	require.NoError(t, idx.Load(ctx))
	require.NoError(t, idx.Load(ctx))
	assert.Equal(t, 1, idx.Loads())
	assert.Equal(t, 1, idx.Len())
	tl.AssertContains(t, "Identity index loaded")

	id, res, ok := idx.Resolve("la roche posay", "Cicaplast Baume B5")
	require.True(t, ok)
	assert.Equal(t, lrp.ID, id)
	assert.Equal(t, matcher.Exact, res.Reason)

	// A product committed after the load is invisible until Refresh.
	cerave := catalogs.NewProduct("CeraVe", "Hydrating Cleanser")
	save(t, repo, cerave)
	assert.False(t, idx.Contains("CeraVe", "Hydrating Cleanser"))

	require.NoError(t, idx.Refresh(ctx))
	assert.True(t, idx.Contains("CeraVe", "Hydrating Cleanser"))
	assert.Equal(t, 2, idx.Loads())
}

func TestIndexNoMatch(t *testing.T) {
	ctx := context.Background()
	idx := store.NewIndex(store.NewMemory(), nil)
	require.NoError(t, idx.Load(ctx))

	_, res, ok := idx.Resolve("CeraVe", "PM Lotion")
	assert.False(t, ok)
	assert.Equal(t, matcher.NoBrandMatch, res.Reason)
}
