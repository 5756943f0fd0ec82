package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skinmap"
	"github.com/agentstation/skinmap/internal/matcher"
	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/ingest"
	"github.com/agentstation/skinmap/pkg/records"
)

const sheet = `brand,name,ingredients,category,source_ref,Sensitivity Notes
The Ordinary,Niacinamide 10% + Zinc 1%,"Aqua, Niacinamide, Pentylene Glycol, Zinc PCA",Serum,https://theordinary.com/p/niacinamide,Generally well tolerated
Paula's Choice,Skin Perfecting 2% BHA Liquid Exfoliant,"Water, Methylpropanediol, Butylene Glycol, Salicylic Acid",Exfoliant,https://paulaschoice.com/p/bha,Start every other day
CeraVe,Hydrating Facial Cleanser,"Aqua, Glycerin, Ceramide NP, Parfum",Cleanser,https://cerave.com/p/cleanser,
`

const review = `brand,name,ingredients,source_ref
the ordinary,Niacinamide 10% + Zinc 1% (30ml),"Aqua, Niacinamide, Pentylene Glycol, Zinc PCA",https://theordinary.com/p/niacinamide?utm_source=review
COSRX,Advanced Snail 96 Mucin Power Essence,"Snail Secretion Filtrate, Betaine",https://paulaschoice.com/p/bha
`

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func open(t *testing.T, db string) skinmap.Client {
	t.Helper()
	sm, err := skinmap.New(context.Background(), skinmap.WithDatabase(db))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sm.Close() })
	return sm
}

func TestSQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db := filepath.Join(dir, "kb.db")
	sheetPath := write(t, dir, "sheet.csv", sheet)
	reviewPath := write(t, dir, "review.csv", review)

	first := open(t, db)
	summary, err := first.IngestFile(ctx, sheetPath)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count(ingest.Inserted))
	require.NoError(t, first.Close())

	// A second process sees the committed products and changes nothing.
	second := open(t, db)
	summary, err = second.IngestFile(ctx, sheetPath)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count(ingest.SkippedUnchanged))
	assert.True(t, summary.Changeset().IsEmpty())

	res, err := second.Match(ctx, "THE ORDINARY", "Niacinamide 10% + Zinc 1%")
	require.NoError(t, err)
	assert.Equal(t, matcher.Exact, res.Reason)

	products, err := second.Store().Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	for _, p := range products {
		switch p.Brand {
		case "Paula's Choice":
			assert.True(t, p.Risk.Has(catalogs.FlagStrongAcid))
		case "CeraVe":
			assert.True(t, p.Risk.Has(catalogs.FlagFragrance))
		}
		assert.Equal(t, skinmap.Version, p.Risk.Version)
	}

	// The review resolves the size variant onto the existing product and
	// raises one crosswalk conflict for the shared listing URL.
	recs, err := records.ReadFile(reviewPath)
	require.NoError(t, err)
	report, err := second.Conflicts(ctx, recs)
	require.NoError(t, err)
	require.Equal(t, 1, report.Len())
	assert.Equal(t, "paulaschoice.com/p/bha", report.Conflicts[0].NormalizedRef)
	assert.Equal(t, "COSRX", report.Conflicts[0].IncomingBrand)

	n, err := second.Cleanup(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	summary, err = second.Ingest(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count(ingest.Inserted))
	assert.Zero(t, summary.Conflicts.Len())

	ids, err := second.Store().Identities(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 4)
}
