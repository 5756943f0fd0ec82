package catalogs

import (
	"slices"
)

// Flag is a safety risk flag from the controlled vocabulary.
type Flag string

// String returns the string representation of a Flag.
func (f Flag) String() string {
	return string(f)
}

// Risk flags, declared in canonical order.
const (
	FlagAlcoholHigh     Flag = "alcohol_high"     // Denatured alcohol in the top five ingredients
	FlagStrongAcid      Flag = "strong_acid"      // BHA or strong AHA in the top ten
	FlagMildAcid        Flag = "mild_acid"        // Azelaic, mandelic or PHA without a strong acid
	FlagRetinolHigh     Flag = "retinol_high"     // Any retinoid
	FlagBenzoylPeroxide Flag = "benzoyl_peroxide" // Benzoyl peroxide
	FlagHighIrritation  Flag = "high_irritation"  // Derived from the strong actives above
	FlagFragrance       Flag = "fragrance"        // Fragrance or a common fragrance allergen
	FlagMint            Flag = "mint"             // Menthol and other cooling agents
	FlagFungalAcne      Flag = "fungal_acne"      // Polysorbates
)

// Vocabulary is the controlled vocabulary in canonical order.
var Vocabulary = []Flag{
	FlagAlcoholHigh,
	FlagStrongAcid,
	FlagMildAcid,
	FlagRetinolHigh,
	FlagBenzoylPeroxide,
	FlagHighIrritation,
	FlagFragrance,
	FlagMint,
	FlagFungalAcne,
}

// Rank returns the canonical position of a flag, or -1 when the flag is not
// in the vocabulary.
func Rank(f Flag) int {
	return slices.Index(Vocabulary, f)
}

// IsKnown reports whether f is in the controlled vocabulary.
func (f Flag) IsKnown() bool {
	return Rank(f) >= 0
}

// OrderFlags returns the distinct vocabulary flags of set in canonical order.
// Unknown flags are dropped.
func OrderFlags(set []Flag) []Flag {
	out := make([]Flag, 0, len(set))
	for _, f := range Vocabulary {
		if slices.Contains(set, f) {
			out = append(out, f)
		}
	}
	return out
}

// RiskProfile is the safety classification of a product.
type RiskProfile struct {
	Flags    []Flag  `json:"flags" yaml:"flags"`                         // Canonically ordered risk flags
	BurnRate float64 `json:"burn_rate" yaml:"burn_rate"`                 // Calibrated irritation likelihood in [0,1]
	Version  string  `json:"version,omitempty" yaml:"version,omitempty"` // Engine version that derived the profile
}

// Has reports whether the profile carries flag f.
func (r RiskProfile) Has(f Flag) bool {
	return slices.Contains(r.Flags, f)
}

// Strings returns the flags as plain strings.
func (r RiskProfile) Strings() []string {
	out := make([]string, len(r.Flags))
	for i, f := range r.Flags {
		out[i] = string(f)
	}
	return out
}

// Equal reports whether two profiles carry the same flags and burn rate.
// The version is not compared.
func (r RiskProfile) Equal(other RiskProfile) bool {
	return slices.Equal(r.Flags, other.Flags) && r.BurnRate == other.BurnRate
}
