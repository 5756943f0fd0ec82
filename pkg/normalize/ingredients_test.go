package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/skinmap/pkg/normalize"
)

func TestCleanIngredientText(t *testing.T) {
	raw := "Ingredients: Water, Glycerin, Niacinamide https://shop.example/x read more etc."
	assert.Equal(t, "Water, Glycerin, Niacinamide", normalize.CleanIngredientText(raw))
	assert.Equal(t, "水, 甘油", normalize.CleanIngredientText("全成分：水, 甘油"))
}

func TestParseIngredients(t *testing.T) {
	t.Run("structured list prefers semicolons", func(t *testing.T) {
		got := normalize.ParseIngredients("Water; Glycerin, Caprylyl Glycol; Niacinamide", "ignored")
		assert.Equal(t, []string{"Water", "Glycerin, Caprylyl Glycol", "Niacinamide"}, got)
	})

	t.Run("structured list falls back to commas", func(t *testing.T) {
		got := normalize.ParseIngredients("Water, Glycerin，Niacinamide、Panthenol", "")
		assert.Equal(t, []string{"Water", "Glycerin", "Niacinamide", "Panthenol"}, got)
	})

	t.Run("raw text is cleaned and deduplicated", func(t *testing.T) {
		got := normalize.ParseIngredients("", "Ingredients: Water, WATER, Glycerin., x, Niacinamide")
		assert.Equal(t, []string{"Water", "Glycerin", "Niacinamide"}, got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, normalize.ParseIngredients("", ""))
	})
}

func TestSplitList(t *testing.T) {
	got := normalize.SplitList("Water, Alcohol Denat.; Niacinamide | Glycerin")
	assert.Equal(t, []string{"water", "alcohol denat.", "niacinamide", "glycerin"}, got)
}

func TestSignature(t *testing.T) {
	assert.Equal(t, normalize.Signature([]string{"Water", "Glycérin"}), normalize.Signature([]string{"WATER", "glycerin"}))
	assert.NotEqual(t, normalize.Signature([]string{"Water", "Glycerin"}), normalize.Signature([]string{"Glycerin", "Water"}))
}
