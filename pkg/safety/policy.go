package safety

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/errors"
)

// Policy is the tunable rule table behind the classifier. Every list is
// matched as lower-case substrings against lower-cased ingredient items.
type Policy struct {
	// Windows
	TopWindow  int `yaml:"top_window"`  // Items checked for alcohol
	WideWindow int `yaml:"wide_window"` // Items checked for strong acids

	// Ingredient terms
	AlcoholTerms         []string `yaml:"alcohol_terms"`
	RetinoidTerms        []string `yaml:"retinoid_terms"`
	StrongAcidTerms      []string `yaml:"strong_acid_terms"`
	MildAcidTerms        []string `yaml:"mild_acid_terms"`
	BenzoylPeroxideTerms []string `yaml:"benzoyl_peroxide_terms"`
	PolysorbateTerms     []string `yaml:"polysorbate_terms"`
	FragranceTerms       []string `yaml:"fragrance_terms"`
	AllergenTerms        []string `yaml:"allergen_terms"`
	MintTerms            []string `yaml:"mint_terms"`

	// Hint reconciliation
	Synonyms  map[string]catalogs.Flag `yaml:"synonyms"`   // Generic hint -> strict flag
	AllowList []catalogs.Flag          `yaml:"allow_list"` // Flags a hint may name at all

	// Burn rate
	WashOffTerms []string       `yaml:"wash_off_terms"` // Product name terms marking rinse-off products
	BurnRate     BurnRatePolicy `yaml:"burn_rate"`

	// Key actives
	Actives []ActiveRule `yaml:"actives"`
}

// BurnRatePolicy holds the burn-rate tiers, caps and floors.
type BurnRatePolicy struct {
	StrongFlags []catalogs.Flag `yaml:"strong_flags"`
	MediumFlags []catalogs.Flag `yaml:"medium_flags"`
	// Flags that only lift the default estimate into the medium tier.
	MediumDefaultFlags []catalogs.Flag `yaml:"medium_default_flags"`

	StrongDefault float64 `yaml:"strong_default"`
	MediumDefault float64 `yaml:"medium_default"`
	LowDefault    float64 `yaml:"low_default"`

	WashOffMediumCap float64 `yaml:"wash_off_medium_cap"`
	WashOffCap       float64 `yaml:"wash_off_cap"`
	StrongFloor      float64 `yaml:"strong_floor"`
	MediumCap        float64 `yaml:"medium_cap"`
	DefaultCap       float64 `yaml:"default_cap"`
}

// ActiveRule labels an active ingredient found by any of its terms.
type ActiveRule struct {
	Label string   `yaml:"label"`
	Terms []string `yaml:"terms"`
}

// DefaultPolicy returns the built-in rule table.
func DefaultPolicy() *Policy {
	return &Policy{
		TopWindow:  5,
		WideWindow: 10,

		AlcoholTerms: []string{"alcohol denat", "alcohol denat.", "denatured alcohol", "sd alcohol", "ethyl alcohol"},
		RetinoidTerms: []string{
			"retinol", "retinal", "retinaldehyde", "tretinoin", "adapalene",
			"tazarotene", "retinoate", "hydroxypinacolone retinoate",
		},
		StrongAcidTerms:      []string{"salicylic acid", "capryloyl salicylic acid", "betaine salicylate", "glycolic acid", "lactic acid"},
		MildAcidTerms:        []string{"azelaic acid", "mandelic acid", "gluconolactone", "lactobionic acid", "pha"},
		BenzoylPeroxideTerms: []string{"benzoyl peroxide"},
		PolysorbateTerms:     []string{"polysorbate"},
		FragranceTerms:       []string{"fragrance", "parfum", "perfume"},
		AllergenTerms: []string{
			"limonene", "linalool", "citral", "geraniol", "eugenol",
			"coumarin", "farnesol", "benzyl benzoate", "benzyl salicylate",
		},
		MintTerms: []string{"menthol", "peppermint", "mentha", "camphor", "eucalyptus"},

		Synonyms: map[string]catalogs.Flag{
			"alcohol":      catalogs.FlagAlcoholHigh,
			"high_alcohol": catalogs.FlagAlcoholHigh,
			"acid":         catalogs.FlagStrongAcid,
			"aha":          catalogs.FlagStrongAcid,
			"bha":          catalogs.FlagStrongAcid,
			"retinol":      catalogs.FlagRetinolHigh,
			"retinoid":     catalogs.FlagRetinolHigh,
		},
		AllowList: append([]catalogs.Flag(nil), catalogs.Vocabulary...),

		WashOffTerms: []string{
			"cleanser", "cleansing", "face wash", "facial wash", "wash",
			"soap", "foaming", "foam", "gel cleanser", "body wash",
		},
		BurnRate: BurnRatePolicy{
			StrongFlags:        []catalogs.Flag{catalogs.FlagStrongAcid, catalogs.FlagRetinolHigh, catalogs.FlagBenzoylPeroxide, catalogs.FlagHighIrritation},
			MediumFlags:        []catalogs.Flag{catalogs.FlagAlcoholHigh, catalogs.FlagFragrance, catalogs.FlagMint},
			MediumDefaultFlags: []catalogs.Flag{catalogs.FlagMildAcid},
			StrongDefault:      0.15,
			MediumDefault:      0.08,
			LowDefault:         0.03,
			WashOffMediumCap:   0.10,
			WashOffCap:         0.08,
			StrongFloor:        0.12,
			MediumCap:          0.25,
			DefaultCap:         0.15,
		},

		Actives: defaultActives(),
	}
}

func defaultActives() []ActiveRule {
	return []ActiveRule{
		{Label: "Niacinamide", Terms: []string{"niacinamide", "烟酰胺"}},
		{Label: "Tranexamic Acid", Terms: []string{"tranexamic acid", "传明酸"}},
		{Label: "Arbutin", Terms: []string{"alpha-arbutin", "arbutin", "熊果苷"}},
		{Label: "Kojic Acid", Terms: []string{"kojic", "曲酸"}},
		{Label: "Azelaic Acid", Terms: []string{"azelaic", "壬二酸"}},
		{Label: "Vitamin C (Ascorbate family)", Terms: []string{"ascorbic acid", "l-ascorbic", "ascorbyl", "ascorbate", "维c", "维生素c"}},
		{Label: "Retinoid", Terms: []string{"retinol", "retinal", "retinaldehyde", "tretinoin", "adapalene", "retinoate", "a醇", "维a", "视黄"}},
		{Label: "BHA (Salicylic Acid)", Terms: []string{"salicylic acid", "betaine salicylate", "capryloyl salicylic", "水杨酸"}},
		{Label: "AHA (Glycolic/Lactic)", Terms: []string{"glycolic acid", "lactic acid", "乙醇酸", "乳酸"}},
		{Label: "Mandelic Acid", Terms: []string{"mandelic acid", "杏仁酸"}},
		{Label: "PHA", Terms: []string{"gluconolactone", "lactobionic", "pha", "葡糖酸内酯"}},
		{Label: "Peptides", Terms: []string{"peptide", "tripeptide", "hexapeptide", "palmitoyl", "ghk", "copper tripeptide", "多肽", "蓝铜"}},
		{Label: "Panthenol (B5)", Terms: []string{"panthenol", "d-panthenol", "泛醇"}},
		{Label: "Ceramides", Terms: []string{"ceramide", "神经酰胺"}},
		{Label: "Cholesterol", Terms: []string{"cholesterol", "胆固醇"}},
		{Label: "Centella (Madecassoside family)", Terms: []string{"centella", "madecassoside", "asiaticoside", "积雪草"}},
		{Label: "Allantoin", Terms: []string{"allantoin", "尿囊素"}},
		{Label: "Hyaluronic Acid", Terms: []string{"hyaluronic", "sodium hyaluronate", "透明质酸", "玻尿酸"}},
		{Label: "Benzoyl Peroxide", Terms: []string{"benzoyl peroxide", "过氧化苯甲酰"}},
		{Label: "Adapalene", Terms: []string{"adapalene", "阿达帕林"}},
	}
}

// LoadPolicy reads a YAML policy file over the defaults. Keys absent from
// the file keep their default values; a key that is present replaces the
// default list or map as a whole.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.File = path
		}
		return nil, err
	}
	return p, nil
}

// ParsePolicy parses YAML policy overrides over the defaults.
func ParsePolicy(data []byte) (*Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.NewParseError("yaml", "", "invalid safety policy", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that windows are positive, every flag named by the
// policy is in the vocabulary and every rate is within [0,1].
func (p *Policy) Validate() error {
	if p.TopWindow <= 0 {
		return errors.NewValidationError("top_window", p.TopWindow, "must be positive")
	}
	if p.WideWindow <= 0 {
		return errors.NewValidationError("wide_window", p.WideWindow, "must be positive")
	}
	for hint, flag := range p.Synonyms {
		if !flag.IsKnown() {
			return errors.NewValidationError("synonyms."+hint, flag, "unknown risk flag")
		}
	}
	named := map[string][]catalogs.Flag{
		"allow_list":                     p.AllowList,
		"burn_rate.strong_flags":         p.BurnRate.StrongFlags,
		"burn_rate.medium_flags":         p.BurnRate.MediumFlags,
		"burn_rate.medium_default_flags": p.BurnRate.MediumDefaultFlags,
	}
	for field, flags := range named {
		for _, flag := range flags {
			if !flag.IsKnown() {
				return errors.NewValidationError(field, flag, "unknown risk flag")
			}
		}
	}
	rates := map[string]float64{
		"strong_default":      p.BurnRate.StrongDefault,
		"medium_default":      p.BurnRate.MediumDefault,
		"low_default":         p.BurnRate.LowDefault,
		"wash_off_medium_cap": p.BurnRate.WashOffMediumCap,
		"wash_off_cap":        p.BurnRate.WashOffCap,
		"strong_floor":        p.BurnRate.StrongFloor,
		"medium_cap":          p.BurnRate.MediumCap,
		"default_cap":         p.BurnRate.DefaultCap,
	}
	for field, rate := range rates {
		if rate < 0 || rate > 1 {
			return errors.NewValidationError("burn_rate."+field, rate, fmt.Sprintf("%v is outside [0,1]", rate))
		}
	}
	return nil
}

// Marshal renders the policy as YAML.
func (p *Policy) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}
