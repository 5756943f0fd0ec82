package matcher

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog(m *Matcher) []Candidate {
	return []Candidate{
		m.Prepare("p1", "La Roche-Posay", "Cicaplast Baume B5"),
		m.Prepare("p2", "La Roche-Posay", "Lipikar Baume AP+M"),
		m.Prepare("p3", "CeraVe", "Moisturizing Cream"),
		m.Prepare("p4", "La Roche-Posay", "Toleriane Double Repair Face Moisturizer"),
	}
}

func TestMatch(t *testing.T) {
	m := New()
	candidates := catalog(m)

	tests := []struct {
		name      string
		brand     string
		product   string
		wantID    string
		wantWhy   Reason
		wantScore float64
	}{
		{
			name:      "exact after variant normalization",
			brand:     "LRP",
			product:   "Cicaplast Baume B5+ (New Version)",
			wantID:    "p1",
			wantWhy:   Exact,
			wantScore: 1.0,
		},
		{
			name:      "exact through the ap+m expansion",
			brand:     "la roche posay",
			product:   "Lipikar AP+M Triple Repair Moisturizing Cream",
			wantID:    "p2",
			wantWhy:   Exact,
			wantScore: 1.0,
		},
		{
			name:      "fuzzy with substring bonus",
			brand:     "CeraVe",
			product:   "Moisturizing Cream Dry Skin",
			wantID:    "p3",
			wantWhy:   Fuzzy,
			wantScore: 0.65,
		},
		{
			name:      "low confidence",
			brand:     "CeraVe",
			product:   "Cream Cleanser",
			wantWhy:   LowConfidence,
			wantScore: 1.0 / 3.0,
		},
		{
			name:    "no name overlap",
			brand:   "CeraVe",
			product: "Hydrating Facial Cleanser",
			wantWhy: NoNameMatch,
		},
		{
			name:    "unknown brand",
			brand:   "Bioderma",
			product: "Sensibio H2O",
			wantWhy: NoBrandMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(tt.brand, tt.product, candidates)
			assert.Equal(t, tt.wantWhy, got.Reason)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			if tt.wantID == "" {
				assert.Nil(t, got.Candidate)
				assert.False(t, got.Matched())
				return
			}
			require.NotNil(t, got.Candidate)
			assert.Equal(t, tt.wantID, got.Candidate.ID)
			assert.True(t, got.Matched())
		})
	}
}

func TestMatchTieKeepsFirstCandidate(t *testing.T) {
	m := New(&Options{Threshold: 0.3, SubstringBonus: 0.15})
	candidates := []Candidate{
		m.Prepare("first", "Brand", "Alpha Beta"),
		m.Prepare("second", "Brand", "Beta Alpha Extra"),
		m.Prepare("third", "Brand", "Alpha Gamma"),
	}

	got := m.Match("Brand", "Alpha Delta", candidates)
	require.NotNil(t, got.Candidate)
	assert.Equal(t, "first", got.Candidate.ID)
	assert.Equal(t, Fuzzy, got.Reason)
	assert.InDelta(t, 1.0/3.0, got.Score, 1e-9)
}

func TestMatchAcceptanceBoundary(t *testing.T) {
	shared := "Amber Birch Cedar Daisy Elm Fern Grove Hazel Iris Jade Kelp"
	// 11 shared tokens out of a union of 20 scores exactly 0.55.
	atThreshold := shared + " Pine Quartz Reed Sage Thyme"
	// Dropping one shared token leaves 10 of 20.
	belowThreshold := strings.TrimSuffix(shared, " Kelp") + " Pine Quartz Reed Sage Thyme"

	tests := []struct {
		name      string
		threshold float64
		product   string
		wantWhy   Reason
		wantScore float64
	}{
		{"score equal to threshold is accepted", 0.55, atThreshold, Fuzzy, 0.55},
		{"score below threshold is rejected", 0.55, belowThreshold, LowConfidence, 0.5},
		{"threshold a hair above the score", math.Nextafter(0.55, 1), atThreshold, LowConfidence, 0.55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(&Options{Threshold: tt.threshold, SubstringBonus: 0.15})
			candidates := []Candidate{m.Prepare("p1", "Brand", shared+" Lotus Moss Nectar Oak")}

			got := m.Match("Brand", tt.product, candidates)
			assert.Equal(t, tt.wantWhy, got.Reason)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.Equal(t, tt.wantWhy == Fuzzy, got.Matched())
		})
	}

	got := New().Match("Brand", atThreshold, []Candidate{New().Prepare("p1", "Brand", shared+" Lotus Moss Nectar Oak")})
	assert.Equal(t, Fuzzy, got.Reason, "default threshold accepts a score of exactly 0.55")
}

func TestMatchUnpreparedCandidate(t *testing.T) {
	m := New()
	raw := []Candidate{{ID: "raw", Brand: "CeraVe", Name: "Moisturizing Cream", BrandKey: "cerave", NameKey: "moisturizing"}}

	got := m.Match("CeraVe", "Moisturizing Cream Dry Skin", raw)
	require.True(t, got.Matched())
	assert.Equal(t, "raw", got.Candidate.ID)
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard(nil, nil))
	assert.Equal(t, 0.0, Jaccard([]string{"a"}, nil))
	assert.Equal(t, 0.0, Jaccard(nil, []string{"a"}))
	assert.InDelta(t, 0.5, Jaccard([]string{"aa", "bb", "bb"}, []string{"aa", "cc"}), 1e-9)
	assert.Equal(t, 1.0, Jaccard([]string{"aa", "bb"}, []string{"bb", "aa"}))
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "no_brand_match", NoBrandMatch.String())
}
