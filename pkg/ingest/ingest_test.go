package ingest_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skinmap/pkg/annotation"
	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/ingest"
	"github.com/agentstation/skinmap/pkg/records"
	"github.com/agentstation/skinmap/pkg/store"
)

const (
	niacinamideText = "Aqua, Niacinamide, Pentylene Glycol, Zinc PCA, Dimethyl Isosorbide"
	bhaText         = "Water, Methylpropanediol, Butylene Glycol, Salicylic Acid, Polysorbate 20"
)

func record(source string, row int, brand, name, ingredients string) *records.Record {
	r := &records.Record{Source: source, RowIndex: row, Brand: brand, Name: name, IngredientText: ingredients}
	r.Prepare(nil)
	return r
}

func batch() []*records.Record {
	return []*records.Record{
		record(constants.SourceOfTruth, 0, "The Ordinary", "Niacinamide 10% + Zinc 1%", niacinamideText),
		record(constants.SourceOfTruth, 1, "Paula's Choice", "Skin Perfecting 2% BHA Liquid Exfoliant", bhaText),
	}
}

func run(t *testing.T, repo store.Repository, recs []*records.Record, opts ...ingest.Option) *ingest.Summary {
	t.Helper()
	orch, err := ingest.New(repo, nil, opts...)
	require.NoError(t, err)
	summary, err := orch.Run(context.Background(), recs)
	require.NoError(t, err)
	return summary
}

func productNamed(t *testing.T, repo store.Repository, name string) *catalogs.Product {
	t.Helper()
	products, err := repo.Products(context.Background())
	require.NoError(t, err)
	for _, p := range products {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("product %q not found", name)
	return nil
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	fake := &annotation.Fake{Default: &annotation.Estimate{Texture: "gel", Mechanism: catalogs.Mechanism{OilControl: 80}}}
	opts := []ingest.Option{ingest.WithAnnotation(fake), ingest.WithVersion("test")}
	withEvidence := func() []*records.Record {
		recs := batch()
		recs[0].Evidence = map[string]string{"Sensitivity Notes": "Fragrance-free|Can pill|fragrance free"}
		recs[1].Evidence = map[string]string{"Chemist Notes": "Leave-on exfoliant |  pH 3.2"}
		return recs
	}

	first := run(t, repo, withEvidence(), opts...)
	assert.Equal(t, 2, first.Count(ingest.Inserted))
	assert.Equal(t, 2, fake.Calls())
	assert.NotEmpty(t, first.RunID)
	assert.GreaterOrEqual(t, first.Duration, time.Duration(0))
	assert.Equal(t, first.FinishedAt.Sub(first.StartedAt), first.Duration)
	assert.True(t, first.Changeset().HasChanges())

	mappings, err := repo.Mappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 2, "one catalog self-mapping per product")

	bha := productNamed(t, repo, "Skin Perfecting 2% BHA Liquid Exfoliant")
	assert.True(t, bha.Risk.Has(catalogs.FlagStrongAcid))
	assert.True(t, bha.Risk.Has(catalogs.FlagHighIrritation))
	assert.Equal(t, "test", bha.Risk.Version)
	require.NotNil(t, bha.Annotation)
	assert.Equal(t, "gel", bha.Annotation.Texture)
	assert.Equal(t, 80, bha.Annotation.Mechanism.OilControl)
	nia := productNamed(t, repo, "Niacinamide 10% + Zinc 1%")
	assert.Equal(t, "Fragrance-free | Can pill", nia.Evidence.Sensitivity)

	second := run(t, repo, withEvidence(), opts...)
	assert.Equal(t, 2, second.Count(ingest.SkippedUnchanged))
	assert.Zero(t, second.Count(ingest.Merged))
	assert.Zero(t, second.Count(ingest.Inserted))
	assert.Equal(t, 2, fake.Calls(), "unchanged ingredients are not re-annotated")
	assert.True(t, second.Changeset().IsEmpty())
	assert.Equal(t, 2, second.Crosswalk["unchanged"])

	after, err := repo.Mappings(ctx)
	require.NoError(t, err)
	assert.Equal(t, mappings, after)
	products, err := repo.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	third := run(t, repo, withEvidence(), opts...)
	assert.Equal(t, 2, third.Count(ingest.SkippedUnchanged))
}

func TestRunMergesEvidence(t *testing.T) {
	repo := store.NewMemory()
	run(t, repo, batch()[:1])

	review := record("review", 4, "THE ORDINARY", "Niacinamide 10% + Zinc 1%", niacinamideText)
	review.Evidence = map[string]string{"Sensitivity Notes": "Fragrance-free | Can pill"}
	review.Regions = []string{"cn"}
	summary := run(t, repo, []*records.Record{review})
	require.Equal(t, 1, summary.Count(ingest.Merged))

	out := summary.Outcomes[0]
	require.NotNil(t, out.Update)
	assert.Contains(t, out.Update.Paths(), "evidence.sensitivity")

	p := productNamed(t, repo, "Niacinamide 10% + Zinc 1%")
	assert.Equal(t, "Fragrance-free | Can pill", p.Evidence.Sensitivity)
	assert.Equal(t, []string{"Global", "CN"}, p.Regions)

	var found bool
	for _, s := range repo.Snippets(p.ID) {
		if s.SourceLabel == "review" {
			found = true
			assert.Equal(t, "sensitivity_notes", s.FieldLabel)
			assert.Equal(t, "sensitivity", s.CanonicalKey())
		}
	}
	assert.True(t, found, "evidence snippet is stored under its source label")
}

func TestRunContentConflict(t *testing.T) {
	repo := store.NewMemory()
	fake := &annotation.Fake{}
	run(t, repo, batch()[:1], ingest.WithAnnotation(fake))

	retailer := record("retailer", 9, "The Ordinary", "Niacinamide 10% + Zinc 1%", "Aqua, Alcohol Denat., Parfum, Niacinamide")
	summary := run(t, repo, []*records.Record{retailer}, ingest.WithAnnotation(fake))
	require.Equal(t, 1, summary.Count(ingest.Conflict))
	require.Len(t, summary.ContentConflicts, 1)
	assert.Contains(t, summary.ContentConflicts[0].Fields, "Ingredients")
	assert.True(t, errors.IsContentConflict(summary.Outcomes[0].Err))

	p := productNamed(t, repo, "Niacinamide 10% + Zinc 1%")
	assert.Contains(t, p.IngredientText, "Pentylene Glycol", "a conflict writes nothing")
	assert.Equal(t, 1, fake.Calls())

	summary = run(t, repo, []*records.Record{retailer}, ingest.WithAnnotation(fake), ingest.WithAllowOverwrite(true))
	require.Equal(t, 1, summary.Count(ingest.OverwrittenExplicit))
	p = productNamed(t, repo, "Niacinamide 10% + Zinc 1%")
	assert.Contains(t, p.IngredientText, "Alcohol Denat.")
	assert.True(t, p.Risk.Has(catalogs.FlagAlcoholHigh))
	assert.True(t, p.Risk.Has(catalogs.FlagFragrance))
	assert.Equal(t, 2, fake.Calls(), "new ingredients are re-annotated")
}

func TestRunDryRunCommitsNothing(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()

	summary := run(t, repo, batch(), ingest.WithDryRun(true))
	assert.True(t, summary.DryRun)
	assert.Equal(t, 2, summary.Count(ingest.Inserted))
	assert.Contains(t, summary.Summary(), "(dry run)")

	products, err := repo.Products(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
	mappings, err := repo.Mappings(ctx)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestRunDegradesOnAnnotationFailure(t *testing.T) {
	repo := store.NewMemory()
	fake := &annotation.Fake{Err: errors.NewAnnotationServiceError("fake", 503, "unavailable")}
	svc := annotation.WithRetry(fake, &annotation.RetryOptions{Attempts: 2})

	summary := run(t, repo, batch()[1:], ingest.WithAnnotation(svc))
	require.Equal(t, 1, summary.Count(ingest.Inserted))
	assert.Equal(t, 1, summary.Degraded)
	assert.True(t, summary.Outcomes[0].Degraded)
	assert.Equal(t, 2, fake.Calls())

	p := productNamed(t, repo, "Skin Perfecting 2% BHA Liquid Exfoliant")
	assert.Nil(t, p.Annotation)
	assert.True(t, p.Risk.Has(catalogs.FlagStrongAcid), "deterministic flags do not depend on annotation")
	assert.InDelta(t, 0.15, p.Risk.BurnRate, 1e-9)
}

func TestRunPreflight(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	recs := append(batch(), record("review", 7, "COSRX", "Snail Mucin", ""))

	orch, err := ingest.New(repo, nil)
	require.NoError(t, err)
	_, err = orch.Run(ctx, recs)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.True(t, errors.IsFatal(err))
	products, err := repo.Products(ctx)
	require.NoError(t, err)
	assert.Empty(t, products, "a pre-flight failure aborts before any write")

	summary := run(t, repo, recs, ingest.WithLenient(true))
	assert.Equal(t, 2, summary.Count(ingest.Inserted))
	assert.Equal(t, 1, summary.Count(ingest.Invalid))
	assert.Equal(t, 1, summary.Seed.SkippedEmptyIngredients)
}

func TestRunPreflightSkipsExcludedRows(t *testing.T) {
	pending := record("review", 3, "COSRX", "Snail Mucin", "")
	pending.ParseStatus = records.StatusNeedsSource

	summary := run(t, store.NewMemory(), append(batch(), pending))
	assert.Equal(t, 2, summary.Count(ingest.Inserted))
	assert.Equal(t, 1, summary.Count(ingest.Invalid))
	assert.Equal(t, 1, summary.Seed.SkippedNeedsSource)
}

func TestRunRequiresStore(t *testing.T) {
	repo := store.NewMemory()
	require.NoError(t, repo.Close())

	orch, err := ingest.New(repo, nil)
	require.NoError(t, err)
	_, err = orch.Run(context.Background(), batch())
	assert.Error(t, err)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch, err := ingest.New(store.NewMemory(), nil)
	require.NoError(t, err)
	summary, err := orch.Run(ctx, batch())
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
	assert.True(t, summary.Canceled)
	assert.Zero(t, summary.Processed())
}

func TestRunCrosswalkConflict(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	ref := records.Ref{System: "merchant", Type: "source_ref_url", Value: "https://shop.example.com/p/1?utm=x"}

	first := record(constants.SourceOfTruth, 0, "CeraVe", "PM Facial Moisturizing Lotion", "Aqua, Glycerin, Niacinamide, Ceramide NP")
	first.Refs = []records.Ref{ref}
	second := record(constants.SourceOfTruth, 1, "CeraVe", "Hydrating Facial Cleanser", "Aqua, Glycerin, Ceramide NP, Hyaluronic Acid")
	second.Refs = []records.Ref{ref}

	summary := run(t, repo, []*records.Record{first, second})
	assert.Equal(t, 2, summary.Count(ingest.Inserted))
	require.Equal(t, 1, summary.Conflicts.Len())
	assert.Equal(t, 1, summary.Crosswalk["conflict"])

	conflict := summary.Conflicts.Conflicts[0]
	assert.Equal(t, summary.Outcomes[0].ProductID, conflict.ExistingProductID)
	assert.Equal(t, summary.Outcomes[1].ProductID, conflict.IncomingProductID)
	assert.Equal(t, "shop.example.com/p/1", conflict.NormalizedRef)

	mappings, err := repo.Mappings(ctx)
	require.NoError(t, err)
	owners := map[string]uuid.UUID{}
	for _, m := range mappings {
		owners[m.Key().String()] = m.ProductID
	}
	assert.Equal(t, summary.Outcomes[0].ProductID, owners["merchant/source_ref_url/shop.example.com/p/1"])
}

func TestRunDerivedSnippetsAndAliases(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	run(t, repo, batch()[1:])
	p := productNamed(t, repo, "Skin Perfecting 2% BHA Liquid Exfoliant")

	derived := map[string]string{}
	for _, s := range repo.Snippets(p.ID) {
		if s.SourceLabel == constants.DerivedSourceLabel {
			derived[s.FieldLabel] = s.Content
		}
	}
	assert.Contains(t, derived[ingest.FieldKeyActives], "BHA (Salicylic Acid)")
	assert.Contains(t, derived[ingest.FieldSensitivityFlags], "strong_acid")

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()
	aliases, err := tx.Aliases(ctx, p.ID)
	require.NoError(t, err)
	require.NotEmpty(t, aliases)
	kinds := map[string]bool{}
	for _, a := range aliases {
		kinds[a.Kind] = true
	}
	assert.True(t, kinds["full_name"])
	assert.True(t, kinds["brand"])
}

func TestRunWithoutCapabilities(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	run(t, repo, batch()[1:], ingest.WithCapabilities(false, false, false, false))

	p := productNamed(t, repo, "Skin Perfecting 2% BHA Liquid Exfoliant")
	assert.Empty(t, repo.Snippets(p.ID))
	mappings, err := repo.Mappings(ctx)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestRunLog(t *testing.T) {
	var buf bytes.Buffer
	summary := run(t, store.NewMemory(), batch(), ingest.WithRunLog(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ingest.RunLogColumns, rows[0])
	assert.Equal(t, "products", rows[1][0])
	assert.Equal(t, summary.Outcomes[0].ProductID.String(), rows[1][1])
	assert.Equal(t, "inserted", rows[1][2])
	assert.Empty(t, rows[1][3])
}

func TestSummaryString(t *testing.T) {
	summary := run(t, store.NewMemory(), batch())
	s := summary.Summary()
	assert.Contains(t, s, summary.RunID)
	assert.Contains(t, s, "2 inserted")
	assert.Contains(t, s, "crosswalk 2 inserted")
}
