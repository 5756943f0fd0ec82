package skinmap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skinmap/internal/matcher"
	"github.com/agentstation/skinmap/pkg/annotation"
	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/crosswalk"
	"github.com/agentstation/skinmap/pkg/differ"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/ingest"
	"github.com/agentstation/skinmap/pkg/records"
	"github.com/agentstation/skinmap/pkg/store"
)

func testRecord(row int, brand, name, ingredients string, refs ...records.Ref) *records.Record {
	r := &records.Record{Source: "Ingredients_Collected", RowIndex: row, Brand: brand, Name: name, IngredientText: ingredients, Refs: refs}
	r.Prepare(nil)
	return r
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := New(context.Background(), WithCapabilities(Capabilities{Annotation: true}))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCredentialsMissing)
	assert.True(t, errors.IsFatal(err))
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	_, err := New(context.Background(), WithStore(nil))
	assert.True(t, errors.IsValidationError(err))

	_, err = New(context.Background(), WithDatabase(""))
	assert.True(t, errors.IsValidationError(err))
}

func TestCapabilities(t *testing.T) {
	caps := DefaultCapabilities()
	assert.False(t, caps.Annotation)
	assert.False(t, caps.SocialStats)
	assert.True(t, caps.KeyActives)
	assert.True(t, caps.Crosswalk)

	sm, err := New(context.Background(), WithAnnotationService(&annotation.Fake{}))
	require.NoError(t, err)
	assert.True(t, sm.Capabilities().Annotation)
}

func TestIngestAndMatch(t *testing.T) {
	ctx := context.Background()
	fake := &annotation.Fake{Default: &annotation.Estimate{Texture: "fluid"}}
	sm, err := New(ctx,
		WithDatabase(filepath.Join(t.TempDir(), "kb.db")),
		WithAnnotationService(fake),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sm.Close() })

	var added []catalogs.Product
	var updated []differ.ProductUpdate
	sm.OnProductAdded(func(p catalogs.Product) { added = append(added, p) })
	sm.OnProductUpdated(func(u differ.ProductUpdate) { updated = append(updated, u) })

	recs := []*records.Record{
		testRecord(0, "La Roche-Posay", "Cicaplast Baume B5", "Aqua, Panthenol, Shea Butter, Glycerin, Madecassoside"),
		testRecord(1, "Paula's Choice", "Skin Perfecting 2% BHA Liquid Exfoliant", "Water, Methylpropanediol, Butylene Glycol, Salicylic Acid"),
	}
	summary, err := sm.Ingest(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count(ingest.Inserted))
	assert.Len(t, added, 2)
	assert.Empty(t, updated)
	assert.Equal(t, 2, fake.Calls())

	products, err := sm.Store().Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, Version, products[1].Risk.Version)

	res, err := sm.Match(ctx, "LA ROCHE POSAY", "Cicaplast Baume B5")
	require.NoError(t, err)
	require.True(t, res.Matched())
	assert.Equal(t, matcher.Exact, res.Reason)
	assert.Equal(t, products[0].ID.String(), res.Candidate.ID)

	res, err = sm.Match(ctx, "CeraVe", "Hydrating Cleanser")
	require.NoError(t, err)
	assert.False(t, res.Matched())
	assert.Equal(t, matcher.NoBrandMatch, res.Reason)

	review := testRecord(2, "La Roche-Posay", "Cicaplast Baume B5", "Aqua, Panthenol, Shea Butter, Glycerin, Madecassoside")
	review.Source = "review"
	review.Evidence = map[string]string{"Chemist Notes": "Occlusive balm"}
	summary, err = sm.Ingest(ctx, []*records.Record{review})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count(ingest.Merged))
	require.Len(t, updated, 1)
	assert.Equal(t, 2, fake.Calls(), "unchanged ingredients are not re-annotated")
}

func TestDryRunFiresNoHooks(t *testing.T) {
	ctx := context.Background()
	sm, err := New(ctx)
	require.NoError(t, err)

	fired := 0
	sm.OnProductAdded(func(catalogs.Product) { fired++ })
	summary, err := sm.Ingest(ctx, []*records.Record{testRecord(0, "COSRX", "Snail Mucin 96 Essence", "Snail Secretion Filtrate, Betaine")}, ingest.WithDryRun(true))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count(ingest.Inserted))
	assert.Zero(t, fired)
}

func TestClassify(t *testing.T) {
	sm, err := New(context.Background(), WithStore(store.NewMemory()))
	require.NoError(t, err)

	c := sm.Classify("Gentle Foaming Cleanser", "Water, Glycolic Acid, Sodium Laureth Sulfate, Parfum")
	assert.Equal(t, Version, c.Risk.Version)
	assert.True(t, c.Risk.Has(catalogs.FlagStrongAcid))
	assert.True(t, c.Risk.Has(catalogs.FlagFragrance))
	assert.NotEmpty(t, c.KeyActives)

	sm, err = New(context.Background(), WithCapabilities(Capabilities{}))
	require.NoError(t, err)
	assert.Empty(t, sm.Classify("Serum", "Water, Niacinamide").KeyActives)
}

func TestConflictsAndCleanup(t *testing.T) {
	ctx := context.Background()
	sm, err := New(ctx)
	require.NoError(t, err)

	shared := records.Ref{System: "merchant", Type: "source_ref_url", Value: "https://shop.example.com/p/9"}
	_, err = sm.Ingest(ctx, []*records.Record{
		testRecord(0, "CeraVe", "PM Facial Moisturizing Lotion", "Aqua, Glycerin, Niacinamide", shared),
	})
	require.NoError(t, err)

	var hooked []crosswalk.ConflictRecord
	sm.OnConflict(func(c crosswalk.ConflictRecord) { hooked = append(hooked, c) })

	incoming := []*records.Record{testRecord(1, "CeraVe", "Hydrating Facial Cleanser", "Aqua, Glycerin, Ceramide NP", shared)}
	report, err := sm.Conflicts(ctx, incoming)
	require.NoError(t, err)
	require.Equal(t, 1, report.Len())
	assert.Empty(t, hooked, "a dry run fires no hooks")

	products, err := sm.Store().Products(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1, "conflict detection writes nothing")

	n, err := sm.Cleanup(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	summary, err := sm.Ingest(ctx, incoming)
	require.NoError(t, err)
	assert.Zero(t, summary.Conflicts.Len())
	assert.Equal(t, 1, summary.Count(ingest.Inserted))
	assert.Equal(t, 2, summary.Crosswalk[crosswalk.Inserted])
}

func TestWithoutRefType(t *testing.T) {
	ctx := context.Background()
	sm, err := New(ctx, WithoutRefType("merchant", "source_ref_url"))
	require.NoError(t, err)

	ref := records.Ref{System: "merchant", Type: "source_ref_url", Value: "https://shop.example.com/p/9"}
	summary, err := sm.Ingest(ctx, []*records.Record{
		testRecord(0, "CeraVe", "PM Facial Moisturizing Lotion", "Aqua, Glycerin, Niacinamide", ref),
		testRecord(1, "CeraVe", "Hydrating Facial Cleanser", "Aqua, Glycerin, Ceramide NP", ref),
	})
	require.NoError(t, err)
	assert.Zero(t, summary.Conflicts.Len())

	mappings, err := sm.Store().Mappings(ctx)
	require.NoError(t, err)
	assert.Len(t, mappings, 2, "only the catalog self-mappings")
}
