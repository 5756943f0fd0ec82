package safety_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/safety"
)

func flags(fs ...catalogs.Flag) []catalogs.Flag { return fs }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []catalogs.Flag
	}{
		{
			name: "alcohol in top five",
			text: "Water, Alcohol Denat., Glycerin",
			want: flags(catalogs.FlagAlcoholHigh),
		},
		{
			name: "alcohol outside top five",
			text: "Water, Glycerin, Butylene Glycol, Niacinamide, Squalane, Alcohol Denat.",
			want: flags(),
		},
		{
			name: "strong acid suppresses mild acid",
			text: "Water, Salicylic Acid, Azelaic Acid, Parfum",
			want: flags(catalogs.FlagStrongAcid, catalogs.FlagHighIrritation, catalogs.FlagFragrance),
		},
		{
			name: "mild acid alone",
			text: "Water, Azelaic Acid",
			want: flags(catalogs.FlagMildAcid),
		},
		{
			name: "retinoid with cooling agent and polysorbate",
			text: "Water; Retinol; Menthol; Polysorbate 20",
			want: flags(catalogs.FlagRetinolHigh, catalogs.FlagHighIrritation, catalogs.FlagMint, catalogs.FlagFungalAcne),
		},
		{
			name: "strong acid beyond the wide window",
			text: "a1, a2, a3, a4, a5, a6, a7, a8, a9, a10, Glycolic Acid",
			want: flags(),
		},
		{
			name: "benzoyl peroxide",
			text: "Benzoyl Peroxide 5%, Water",
			want: flags(catalogs.FlagBenzoylPeroxide, catalogs.FlagHighIrritation),
		},
		{
			name: "fragrance allergen",
			text: "Water, Glycerin, Linalool",
			want: flags(catalogs.FlagFragrance),
		},
		{
			name: "full width separators",
			text: "Water，Alcohol Denat．",
			want: flags(catalogs.FlagAlcoholHigh),
		},
		{
			name: "empty",
			text: "",
			want: flags(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, safety.Classify(tt.text))
		})
	}
}

func TestClassifyInvariants(t *testing.T) {
	texts := []string{
		"Water, Glycolic Acid, Mandelic Acid",
		"Water, Mandelic Acid, Retinal",
		"Water, Gluconolactone",
		"Aqua, Benzoyl Peroxide",
		"Aqua, Fragrance, Limonene",
	}
	strong := []catalogs.Flag{catalogs.FlagRetinolHigh, catalogs.FlagStrongAcid, catalogs.FlagBenzoylPeroxide}

	for _, text := range texts {
		got := safety.Classify(text)
		assert.False(t, slices.Contains(got, catalogs.FlagMildAcid) && slices.Contains(got, catalogs.FlagStrongAcid), text)

		hasStrong := slices.ContainsFunc(got, func(f catalogs.Flag) bool { return slices.Contains(strong, f) })
		assert.Equal(t, hasStrong, slices.Contains(got, catalogs.FlagHighIrritation), text)
		assert.Equal(t, catalogs.OrderFlags(got), got, "canonical order")
	}
}

func TestNormalizeHint(t *testing.T) {
	assert.Equal(t, "high_irritation", safety.NormalizeHint(" High-Irritation "))
	assert.Equal(t, "strong_acid", safety.NormalizeHint("Strong  Acid!"))
	assert.Equal(t, "", safety.NormalizeHint("!!"))
}

func TestReconcileIsEvidenceGated(t *testing.T) {
	det := flags(catalogs.FlagFragrance)
	got := safety.Reconcile(det, []string{"Alcohol", "High-Irritation", "fragrance", "acid", "sparkles"})
	assert.Equal(t, det, got, "hints without deterministic evidence are dropped")

	det = flags(catalogs.FlagStrongAcid, catalogs.FlagHighIrritation)
	assert.Equal(t, det, safety.Reconcile(det, []string{"BHA", "retinoid"}))

	assert.Empty(t, safety.Reconcile(nil, []string{"alcohol_high", "mint"}))
}

func TestDefaultBurnRate(t *testing.T) {
	assert.Equal(t, 0.15, safety.DefaultBurnRate(flags(catalogs.FlagStrongAcid, catalogs.FlagFragrance)))
	assert.Equal(t, 0.08, safety.DefaultBurnRate(flags(catalogs.FlagMildAcid)))
	assert.Equal(t, 0.08, safety.DefaultBurnRate(flags(catalogs.FlagFragrance)))
	assert.Equal(t, 0.03, safety.DefaultBurnRate(nil))
}

func TestCalibrate(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		flags   []catalogs.Flag
		product string
		want    float64
	}{
		{"gentle cleanser", 0.5, nil, "Gentle Foaming Cleanser", 0.08},
		{"fragranced face wash", 0.5, flags(catalogs.FlagFragrance), "Daily Face Wash", 0.10},
		{"strong floor", 0.05, flags(catalogs.FlagRetinolHigh, catalogs.FlagHighIrritation), "Retinol Serum", 0.12},
		{"strong cleanser keeps its rate", 0.5, flags(catalogs.FlagStrongAcid), "BHA Cleanser", 0.5},
		{"medium cap", 0.5, flags(catalogs.FlagMint), "Cooling Toner", 0.25},
		{"mild acid uses default cap", 0.5, flags(catalogs.FlagMildAcid), "Azelaic Serum", 0.15},
		{"negative clamps to zero", -1, nil, "Serum", 0},
		{"above one clamps", 2, flags(catalogs.FlagStrongAcid), "Peel", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, safety.Calibrate(tt.rate, tt.flags, tt.product), 1e-9)
		})
	}
}

func TestProfile(t *testing.T) {
	text := "Water, Glycolic Acid, Parfum"
	want := flags(catalogs.FlagStrongAcid, catalogs.FlagHighIrritation, catalogs.FlagFragrance)

	p := safety.Profile("Glycolic Toner", text, []string{"aha"}, nil)
	assert.Equal(t, want, p.Flags)
	assert.InDelta(t, 0.15, p.BurnRate, 1e-9)

	suggested := 0.4
	assert.InDelta(t, 0.4, safety.Profile("Glycolic Toner", text, nil, &suggested).BurnRate, 1e-9)

	zero := 0.0
	assert.InDelta(t, 0.15, safety.Profile("Glycolic Toner", text, nil, &zero).BurnRate, 1e-9)
}

func TestKeyActives(t *testing.T) {
	got := safety.KeyActives("Water, Niacinamide, Sodium Hyaluronate, Panthenol", "Niacinamide | Zinc PCA / n/a")
	assert.Equal(t, []string{"Niacinamide", "Zinc PCA", "Panthenol (B5)", "Hyaluronic Acid"}, got)

	assert.Equal(t, []string{"Niacinamide"}, safety.KeyActives("水, 烟酰胺", "none"))

	var many []string
	for i := 0; i < 20; i++ {
		many = append(many, "active"+strings.Repeat("x", i))
	}
	assert.Len(t, safety.KeyActives("", strings.Join(many, ",")), 16)
}

func TestParsePolicy(t *testing.T) {
	p, err := safety.ParsePolicy([]byte("top_window: 3\nmint_terms: [cooling]\nsynonyms:\n  minty: mint\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, p.TopWindow)
	assert.Equal(t, 10, p.WideWindow, "unset keys keep defaults")
	assert.Equal(t, []string{"cooling"}, p.MintTerms)
	assert.Equal(t, catalogs.FlagMint, p.Synonyms["minty"])

	det := p.Classify("Water, Cooling Agent")
	assert.Equal(t, flags(catalogs.FlagMint), det)
	assert.Equal(t, det, p.Reconcile(det, []string{"minty"}))
	assert.Empty(t, p.Classify("Water, Menthol"), "mint terms were replaced")
}

func TestParsePolicyErrors(t *testing.T) {
	_, err := safety.ParsePolicy([]byte("top_window: 0\n"))
	assert.True(t, errors.IsValidationError(err))

	_, err = safety.ParsePolicy([]byte("synonyms:\n  x: sparkly\n"))
	assert.True(t, errors.IsValidationError(err))

	_, err = safety.ParsePolicy([]byte("top_window: [\n"))
	var pe *errors.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wash_off_terms: [rinse]\n"), 0o644))

	p, err := safety.LoadPolicy(path)
	require.NoError(t, err)
	assert.True(t, p.IsWashOff("Rinse-off Mask"))
	assert.False(t, p.IsWashOff("Foaming Cleanser"))

	_, err = safety.LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestDefaultPolicyRoundTrip(t *testing.T) {
	data, err := safety.DefaultPolicy().Marshal()
	require.NoError(t, err)

	p, err := safety.ParsePolicy(data)
	require.NoError(t, err)
	assert.Equal(t, safety.DefaultPolicy(), p)
}
