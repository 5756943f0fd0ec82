package records

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skinmap/pkg/errors"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffBrand,Product_Name,Ingredients,INCI_List,Price,availability,Sensitivity Notes,ref:merchant:source_ref_url,candidate_id,review_status\n" +
		"CeraVe,CeraVe Foaming Cleanser,\"Water, Niacinamide\",,$15.99,\"US, CN\",Fragrance-free,https://cerave.com/p/1,c-1,ok\n" +
		",La Roche-Posay Cicaplast Baume B5,,Water; Panthenol; Madecassoside,nan,,,,,\n"

	recs, err := ReadCSV(strings.NewReader(input), "Sheet1")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	first := recs[0]
	assert.Equal(t, "Sheet1", first.Source)
	assert.Equal(t, 0, first.RowIndex)
	assert.Equal(t, "CeraVe", first.Brand)
	assert.Equal(t, "Foaming Cleanser", first.Name, "brand prefix is stripped from the name")
	assert.Equal(t, []string{"Water", "Niacinamide"}, first.Ingredients)
	assert.InDelta(t, 15.99, first.PriceUSD, 1e-9)
	assert.Equal(t, []string{"US", "CN"}, first.Regions)
	assert.Equal(t, map[string]string{"Sensitivity Notes": "Fragrance-free"}, first.Evidence)
	assert.Equal(t, []Ref{
		{System: "merchant", Type: "source_ref_url", Value: "https://cerave.com/p/1"},
		{System: "harvester", Type: "candidate_id", Value: "c-1"},
	}, first.Refs)
	assert.Equal(t, "OK", first.ReviewStatus)
	assert.True(t, first.Reviewed())
	assert.True(t, first.HasPrice())

	second := recs[1]
	assert.Equal(t, "La Roche-Posay", second.Brand, "brand is split from the full name")
	assert.Equal(t, "Cicaplast Baume B5", second.Name)
	assert.Equal(t, []string{"Water", "Panthenol", "Madecassoside"}, second.Ingredients)
	assert.Equal(t, "Water, Panthenol, Madecassoside", second.IngredientText)
	assert.False(t, second.HasPrice(), "nan cells are empty")
	assert.NoError(t, second.Validate())
}

func TestReadCSVEmpty(t *testing.T) {
	recs, err := ReadCSV(strings.NewReader(""), "empty")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"array", `[{"brand":"CeraVe","name":"PM Lotion","ingredients_text":"Water, Niacinamide"}]`},
		{"items object", `{"items":[{"brand":"CeraVe","name":"PM Lotion","ingredients_text":"Water, Niacinamide"}]}`},
		{"json lines", "{\"brand\":\"CeraVe\",\"name\":\"PM Lotion\",\"ingredients_text\":\"Water, Niacinamide\"}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := ReadJSON(strings.NewReader(tt.input), "pack")
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, "CeraVe", recs[0].Brand)
			assert.Equal(t, "PM Lotion", recs[0].Name)
			assert.Equal(t, []string{"Water", "Niacinamide"}, recs[0].Ingredients)
		})
	}
}

func TestReadJSONNested(t *testing.T) {
	input := `{"items":[{
		"brand":"Paula's Choice","name":"2% BHA Liquid Exfoliant","ingredients":"Water, Salicylic Acid",
		"price_usd": 35, "availability":["US","CN"],
		"expert_knowledge":{"key_actives":"Salicylic Acid"},
		"kb_snippets":[{"field":"notes","content":"Start slowly"},{"content":"Use at night"}],
		"refs":[{"system":"pivota","type":"product_id","value":"p-9"}],
		"risk_flags":["acid","Fragrance"]
	}]}`

	recs, err := ReadJSON(strings.NewReader(input), "pack")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.InDelta(t, 35.0, rec.PriceUSD, 1e-9)
	assert.Equal(t, []string{"US", "CN"}, rec.Regions)
	assert.Equal(t, "Salicylic Acid", rec.Evidence["key_actives"])
	assert.Equal(t, "Start slowly | Use at night", rec.Evidence["notes"])
	assert.Equal(t, []Ref{{System: "pivota", Type: "product_id", Value: "p-9"}}, rec.Refs)
	assert.Equal(t, []string{"acid", "Fragrance"}, rec.Hints)
}

func TestReadJSONMalformed(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`[{"brand":`), "bad")
	var pe *errors.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestReadYAML(t *testing.T) {
	input := `
items:
  - brand: Avène
    name: Cicalfate+ Restorative Protective Cream
    ingredients_text: Avene Thermal Spring Water, Caprylic/Capric Triglyceride
    regions: [EU, CN]
    review_status: approved
`
	recs, err := ReadYAML(strings.NewReader(input), "avene")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Avène", recs[0].Brand)
	assert.Equal(t, []string{"EU", "CN"}, recs[0].Regions)
	assert.True(t, recs[0].Reviewed())
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Ingredients_Collected.csv")
	require.NoError(t, os.WriteFile(path, []byte("brand,name,ingredients\nCeraVe,PM Lotion,\"Water, Niacinamide\"\n"), 0o644))

	recs, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Ingredients_Collected", recs[0].Source)

	_, err = ReadFile(filepath.Join(dir, "input.xlsx"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("items: [\n"), 0o644))
	_, err = ReadFile(bad)
	var pe *errors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, bad, pe.File)
}

func TestColumnFor(t *testing.T) {
	col, _ := ColumnFor(" Brand_EN ")
	assert.Equal(t, ColumnBrand, col)

	col, ref := ColumnFor("ref:pivota:external_seed_id")
	assert.Equal(t, ColumnRef, col)
	assert.Equal(t, Ref{System: "pivota", Type: "external_seed_id"}, ref)

	col, _ = ColumnFor("ref:broken")
	assert.Equal(t, ColumnEvidence, col)

	col, _ = ColumnFor("核心成分")
	assert.Equal(t, ColumnEvidence, col)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		rec   Record
		field string
	}{
		{"missing brand", Record{Name: "Lotion", IngredientText: "Water"}, "brand"},
		{"missing name", Record{Brand: "CeraVe", IngredientText: "Water"}, "name"},
		{"missing ingredients", Record{Brand: "CeraVe", Name: "Lotion"}, "ingredients"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))

			var ve *errors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestRecordCopy(t *testing.T) {
	rec := &Record{Evidence: map[string]string{"notes": "a"}, Regions: []string{"US"}}
	cp := rec.Copy()
	cp.Evidence["notes"] = "b"
	cp.Regions[0] = "CN"
	assert.Equal(t, "a", rec.Evidence["notes"])
	assert.Equal(t, "US", rec.Regions[0])
}
