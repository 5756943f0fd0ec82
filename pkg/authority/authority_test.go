package authority

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	a := New()

	tests := []struct {
		name      string
		field     string
		source    string
		wantRule  Rule
		exclusive bool
	}{
		{"source of truth owns ingredients", "Ingredients", "Ingredients_Collected", SourceOfTruth, true},
		{"raw text follows ingredients", "IngredientText", "Ingredients_Collected", SourceOfTruth, true},
		{"other sources only fill ingredients", "Ingredients", "Sheet2", FillPlaceholder, true},
		{"category from other source", "Category", "Sheet2", FillPlaceholder, true},
		{"brand", "Brand", "anything", FillPlaceholder, false},
		{"name is kept", "Name", "Ingredients_Collected", Keep, false},
		{"price", "PriceUSD", "merchant", FillEstimate, false},
		{"regions", "Regions", "merchant", Union, false},
		{"evidence", "Evidence.KeyActives", "Sheet2", DedupeJoin, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := a.Find(tt.field, tt.source)
			require.NotNil(t, f)
			assert.Equal(t, tt.wantRule, f.Rule)
			assert.Equal(t, tt.exclusive, f.Exclusive)
		})
	}

	assert.Nil(t, a.Find("Unmapped", "Sheet2"))
}

func TestWithSourceOfTruth(t *testing.T) {
	a := New(WithSourceOfTruth("INCI_*"))
	assert.Equal(t, SourceOfTruth, a.Find("Ingredients", "INCI_2024").Rule)
	assert.Equal(t, FillPlaceholder, a.Find("Ingredients", "Ingredients_Collected").Rule)
}

func TestWithFields(t *testing.T) {
	a := New(WithFields(Field{Path: "Name", Source: "catalog", Rule: SourceOfTruth, Priority: 200}))
	assert.Equal(t, SourceOfTruth, a.Find("Name", "catalog").Rule)
	assert.Equal(t, Keep, a.Find("Name", "Sheet2").Rule)
	assert.Len(t, a.List(), len(New().List())+1)
}

func TestPermits(t *testing.T) {
	assert.True(t, (&Field{Rule: SourceOfTruth}).Permits(false))
	assert.True(t, (&Field{Rule: FillPlaceholder}).Permits(true))
	assert.False(t, (&Field{Rule: FillPlaceholder}).Permits(false))
	assert.True(t, (&Field{Rule: FillEstimate}).Permits(true))
	assert.False(t, (&Field{Rule: Keep}).Permits(true))
	assert.False(t, (*Field)(nil).Permits(true))
}

func TestMatchesPattern(t *testing.T) {
	assert.True(t, MatchesPattern("Evidence.Sensitivity", "Evidence.*"))
	assert.True(t, MatchesPattern("PriceCNY", "Price*"))
	assert.True(t, MatchesPattern("Brand", "Brand"))
	assert.True(t, MatchesPattern("Sheet_2", "Sheet_?"))
	assert.False(t, MatchesPattern("Brand", "Name"))
	assert.False(t, MatchesPattern("x", "["))
}

func TestByFieldPrefersSpecificPattern(t *testing.T) {
	fields := []Field{
		{Path: "Evidence.*", Rule: DedupeJoin, Priority: 50},
		{Path: "Evidence.KeyActives", Rule: Keep, Priority: 50},
	}
	assert.Equal(t, Keep, ByField("Evidence.KeyActives", fields).Rule)
	assert.Equal(t, DedupeJoin, ByField("Evidence.Sensitivity", fields).Rule)
}
