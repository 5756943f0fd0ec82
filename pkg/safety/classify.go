// Package safety derives a conservative, explainable risk classification
// from raw ingredient text.
//
// Flags come from deterministic substring rules over the ingredient list.
// Advisory hints from the annotation service can only confirm flags the
// rules already found: a hint is never sufficient evidence on its own.
package safety

import (
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/normalize"
)

var (
	hintSeparators = regexp.MustCompile(`[\s\-]+`)
	hintNoise      = regexp.MustCompile(`[^a-z0-9_]+`)
	expertSplit    = regexp.MustCompile(`[|,，;/]+`)
)

var defaultPolicy = DefaultPolicy()

// Classify runs the deterministic pass with the default policy.
func Classify(ingredientText string) []catalogs.Flag {
	return defaultPolicy.Classify(ingredientText)
}

// Reconcile merges hints into a deterministic flag set with the default policy.
func Reconcile(deterministic []catalogs.Flag, hints []string) []catalogs.Flag {
	return defaultPolicy.Reconcile(deterministic, hints)
}

// DefaultBurnRate estimates a burn rate from flags with the default policy.
func DefaultBurnRate(flags []catalogs.Flag) float64 {
	return defaultPolicy.DefaultBurnRate(flags)
}

// Calibrate bounds a burn rate with the default policy.
func Calibrate(rate float64, flags []catalogs.Flag, productName string) float64 {
	return defaultPolicy.Calibrate(rate, flags, productName)
}

// Profile derives a risk profile with the default policy.
func Profile(productName, ingredientText string, hints []string, suggested *float64) catalogs.RiskProfile {
	return defaultPolicy.Profile(productName, ingredientText, hints, suggested)
}

// KeyActives infers key actives with the default policy.
func KeyActives(ingredientText, expert string) []string {
	return defaultPolicy.KeyActives(ingredientText, expert)
}

// Classify returns the deterministic risk flags of an ingredient text in
// canonical order. The text is NFKC-normalized, lower-cased and split into
// items; alcohol is only checked in the top window and strong acids in the
// wide window. A mild acid is only reported without a strong acid, and
// high_irritation is set exactly when a retinoid, strong acid or benzoyl
// peroxide was found.
func (p *Policy) Classify(ingredientText string) []catalogs.Flag {
	items := normalize.SplitList(ingredientText)
	top := window(items, p.TopWindow)
	wide := window(items, p.WideWindow)

	hasStrongAcid := containsAny(wide, p.StrongAcidTerms)
	hasRetinoid := containsAny(items, p.RetinoidTerms)
	hasBP := containsAny(items, p.BenzoylPeroxideTerms)

	found := map[catalogs.Flag]bool{
		catalogs.FlagAlcoholHigh:     containsAny(top, p.AlcoholTerms),
		catalogs.FlagStrongAcid:      hasStrongAcid,
		catalogs.FlagMildAcid:        !hasStrongAcid && containsAny(items, p.MildAcidTerms),
		catalogs.FlagRetinolHigh:     hasRetinoid,
		catalogs.FlagBenzoylPeroxide: hasBP,
		catalogs.FlagHighIrritation:  hasRetinoid || hasStrongAcid || hasBP,
		catalogs.FlagFragrance:       containsAny(items, p.FragranceTerms) || containsAny(items, p.AllergenTerms),
		catalogs.FlagMint:            containsAny(items, p.MintTerms),
		catalogs.FlagFungalAcne:      containsAny(items, p.PolysorbateTerms),
	}

	flags := make([]catalogs.Flag, 0, len(found))
	for _, f := range catalogs.Vocabulary {
		if found[f] {
			flags = append(flags, f)
		}
	}
	return flags
}

// NormalizeHint canonicalizes a free-form hint: NFKC, lower case, runs of
// whitespace or hyphens become "_" and anything outside [a-z0-9_] is removed.
func NormalizeHint(hint string) string {
	s := strings.ToLower(strings.TrimSpace(norm.NFKC.String(hint)))
	s = hintSeparators.ReplaceAllString(s, "_")
	return hintNoise.ReplaceAllString(s, "")
}

// Reconcile merges advisory hints into the deterministic flags. A hint is
// normalized, mapped through the synonym table, and kept only when it is on
// the allow-list and already present in the deterministic set. The result is
// the union in canonical order.
func (p *Policy) Reconcile(deterministic []catalogs.Flag, hints []string) []catalogs.Flag {
	merged := slices.Clone(deterministic)
	for _, hint := range hints {
		h := NormalizeHint(hint)
		if h == "" {
			continue
		}
		flag := catalogs.Flag(h)
		if mapped, ok := p.Synonyms[h]; ok {
			flag = mapped
		}
		if !slices.Contains(p.AllowList, flag) || !slices.Contains(deterministic, flag) {
			continue
		}
		merged = append(merged, flag)
	}
	return catalogs.OrderFlags(merged)
}

// DefaultBurnRate returns the tiered burn-rate estimate used when no
// suggestion is available.
func (p *Policy) DefaultBurnRate(flags []catalogs.Flag) float64 {
	br := p.BurnRate
	switch {
	case hasAny(flags, br.StrongFlags):
		return br.StrongDefault
	case hasAny(flags, br.MediumFlags), hasAny(flags, br.MediumDefaultFlags):
		return br.MediumDefault
	default:
		return br.LowDefault
	}
}

// Calibrate makes a burn rate consistent with the flags. Rinse-off products
// without strong actives are capped low, strong actives get a floor, and
// everything else is capped by its tier.
func (p *Policy) Calibrate(rate float64, flags []catalogs.Flag, productName string) float64 {
	br := p.BurnRate
	rate = min(max(rate, 0), 1)

	strong := hasAny(flags, br.StrongFlags)
	medium := hasAny(flags, br.MediumFlags)

	switch {
	case p.IsWashOff(productName) && !strong:
		if medium {
			return min(rate, br.WashOffMediumCap)
		}
		return min(rate, br.WashOffCap)
	case strong:
		return max(rate, br.StrongFloor)
	case medium:
		return min(rate, br.MediumCap)
	default:
		return min(rate, br.DefaultCap)
	}
}

// IsWashOff reports whether the product name marks a rinse-off product.
func (p *Policy) IsWashOff(productName string) bool {
	name := strings.ToLower(productName)
	for _, term := range p.WashOffTerms {
		if strings.Contains(name, term) {
			return true
		}
	}
	return false
}

// Profile classifies an ingredient text, reconciles hints and calibrates the
// burn rate. A positive suggested rate is used in place of the default
// estimate before calibration.
func (p *Policy) Profile(productName, ingredientText string, hints []string, suggested *float64) catalogs.RiskProfile {
	flags := p.Reconcile(p.Classify(ingredientText), hints)

	rate := p.DefaultBurnRate(flags)
	if suggested != nil && *suggested > 0 {
		rate = *suggested
	}
	return catalogs.RiskProfile{
		Flags:    flags,
		BurnRate: p.Calibrate(rate, flags, productName),
	}
}

// KeyActives returns up to constants.MaxKeyActives active labels. Curated
// expert text comes first, split on list separators with placeholders such
// as "n/a" dropped; then the active rules are checked against the
// ingredient text in order. Labels are deduplicated case-insensitively.
func (p *Policy) KeyActives(ingredientText, expert string) []string {
	lower := strings.ToLower(norm.NFKC.String(ingredientText))

	var out []string
	seen := make(map[string]struct{})
	add := func(label string) {
		key := strings.ToLower(label)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, label)
	}

	for _, part := range expertSplit.Split(expert, -1) {
		cleaned := strings.TrimSpace(part)
		if len([]rune(cleaned)) < 2 {
			continue
		}
		switch strings.ToLower(cleaned) {
		case "n/a", "na", "none", "unknown":
			continue
		}
		add(cleaned)
	}

	for _, rule := range p.Actives {
		for _, term := range rule.Terms {
			if strings.Contains(lower, strings.ToLower(term)) {
				add(rule.Label)
				break
			}
		}
	}

	if len(out) > constants.MaxKeyActives {
		out = out[:constants.MaxKeyActives]
	}
	return out
}

func window(items []string, n int) []string {
	if n < len(items) {
		return items[:n]
	}
	return items
}

func containsAny(items, terms []string) bool {
	for _, item := range items {
		for _, term := range terms {
			if strings.Contains(item, term) {
				return true
			}
		}
	}
	return false
}

func hasAny(flags, wanted []catalogs.Flag) bool {
	for _, f := range wanted {
		if slices.Contains(flags, f) {
			return true
		}
	}
	return false
}
