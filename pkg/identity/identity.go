// Package identity derives the keys that decide whether two records describe
// the same real product.
//
// Two families of keys exist. Key is the strict identity used for exact
// grouping. BrandKey and NameKey are the looser matching keys consumed by the
// fuzzy matcher. Both are pure functions of their input; the tables that
// drive them live on a Keyer and can be replaced through options.
package identity

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/normalize"
)

// Separator joins the brand and name parts of an identity key. It is a
// control character, and normalize.Key turns control characters into
// whitespace, so it never appears inside either part.
const Separator = "\x1f"

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	aliasNoise    = regexp.MustCompile(`[^0-9a-z\x{4e00}-\x{9fff}]+`)
)

// VariantRule expands a product name into alternative spellings.
// The rule fires when the accent-stripped, lower-cased name contains Trigger.
// Pattern, when set, is replaced with Replace to produce one variant; every
// entry in Add is appended as a further variant.
type VariantRule struct {
	Trigger string
	Pattern *regexp.Regexp
	Replace string
	Add     []string
}

// Keyer computes identity and matching keys.
type Keyer struct {
	brandAliases map[string]string
	stopwords    map[string]struct{}
	variants     []VariantRule
	knownBrands  []string
	synonyms     map[string][]string
	nicknames    map[string][]string
}

// Option configures a Keyer.
type Option func(*Keyer)

// WithBrandAliases replaces the brand override table. Keys are the joined
// brand tokens, values the canonical brand key.
func WithBrandAliases(aliases map[string]string) Option {
	return func(k *Keyer) {
		k.brandAliases = aliases
	}
}

// WithStopwords replaces the name stop-word list.
func WithStopwords(words ...string) Option {
	return func(k *Keyer) {
		k.stopwords = toSet(words)
	}
}

// WithVariantRules replaces the name variant rules.
func WithVariantRules(rules ...VariantRule) Option {
	return func(k *Keyer) {
		k.variants = rules
	}
}

// WithKnownBrands replaces the multi-word brand list used by SplitBrandName.
func WithKnownBrands(brands ...string) Option {
	return func(k *Keyer) {
		k.knownBrands = sortedByLength(brands)
	}
}

// WithBrandSynonyms replaces the brand alias table used by DefaultAliases.
// Keys are AliasKey values of the canonical brand.
func WithBrandSynonyms(synonyms map[string][]string) Option {
	return func(k *Keyer) {
		k.synonyms = synonyms
	}
}

// WithNicknames replaces the product nickname table used by DefaultAliases.
// Keys are AliasKey values of "brand name".
func WithNicknames(nicknames map[string][]string) Option {
	return func(k *Keyer) {
		k.nicknames = nicknames
	}
}

// New returns a Keyer with the default tables, overridden by opts.
func New(opts ...Option) *Keyer {
	k := &Keyer{
		brandAliases: BrandAliases,
		stopwords:    toSet(NameStopwords),
		variants:     DefaultVariantRules(),
		knownBrands:  sortedByLength(KnownBrands),
		synonyms:     BrandSynonyms,
		nicknames:    ProductNicknames,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

var defaultKeyer = New()

// Default returns the shared Keyer built from the package tables.
func Default() *Keyer {
	return defaultKeyer
}

// Key returns the strict identity key of a (brand, name) pair.
func Key(brand, name string) string {
	return normalize.Key(brand) + Separator + normalize.Key(name)
}

// SplitKey splits an identity key back into its normalized brand and name.
func SplitKey(key string) (brand, name string) {
	brand, name, _ = strings.Cut(key, Separator)
	return brand, name
}

// BrandKey returns the matching key for a brand.
func (k *Keyer) BrandKey(brand string) string {
	raw := strings.Join(normalize.Tokens(brand), "")
	if canonical, ok := k.brandAliases[raw]; ok {
		return canonical
	}
	return raw
}

// NameKey returns the matching key for a product name: parenthetical
// qualifiers and stop words removed, tokens joined by single spaces.
func (k *Keyer) NameKey(name string) string {
	stripped := parenthetical.ReplaceAllString(name, " ")
	var kept []string
	for _, tok := range normalize.Tokens(stripped) {
		if _, stop := k.stopwords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// NameVariants returns the raw name followed by its alternative spellings,
// deduplicated by NameKey and capped at constants.MaxNameVariants.
func (k *Keyer) NameVariants(name string) []string {
	raw := strings.TrimSpace(name)
	if raw == "" {
		return nil
	}

	candidates := []string{raw}
	if noParens := strings.TrimSpace(parenthetical.ReplaceAllString(raw, " ")); noParens != "" && noParens != raw {
		candidates = append(candidates, noParens)
	}

	folded := strings.ToLower(normalize.StripAccents(raw))
	for _, rule := range k.variants {
		if !strings.Contains(folded, rule.Trigger) {
			continue
		}
		if rule.Pattern != nil {
			variant := strings.Join(strings.Fields(rule.Pattern.ReplaceAllString(raw, rule.Replace)), " ")
			if variant != "" {
				candidates = append(candidates, variant)
			}
		}
		candidates = append(candidates, rule.Add...)
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		key := k.NameKey(c)
		if key == "" {
			key = strings.ToLower(c)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
		if len(out) == constants.MaxNameVariants {
			break
		}
	}
	return out
}

// SplitBrandName splits a single "brand + product" string. The longest known
// brand whose words lead the string wins; otherwise the first word is the
// brand. Brands match whole words only, so "La Mercedes" is not "La Mer".
// The name falls back to the full string when nothing remains after the
// brand.
func (k *Keyer) SplitBrandName(full string) (brand, name string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return constants.UnknownBrand, ""
	}

	spans := fieldSpans(full)
	for _, known := range k.knownBrands {
		if end, ok := brandPrefix(full, spans, strings.Fields(known)); ok {
			return known, remainder(full, end)
		}
	}
	return full[spans[0][0]:spans[0][1]], remainder(full, spans[0][1])
}

// fieldSpans returns the byte ranges of the whitespace separated fields of s.
func fieldSpans(s string) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range s {
		switch {
		case unicode.IsSpace(r) && start >= 0:
			spans = append(spans, [2]int{start, i})
			start = -1
		case !unicode.IsSpace(r) && start < 0:
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(s)})
	}
	return spans
}

// brandPrefix reports whether words lead full, compared case-insensitively
// field by field, and returns the byte offset in full where they end. The
// last field may carry trailing separator punctuation.
func brandPrefix(full string, spans [][2]int, words []string) (int, bool) {
	if len(words) == 0 || len(words) > len(spans) {
		return 0, false
	}
	end := 0
	for i, w := range words {
		field := full[spans[i][0]:spans[i][1]]
		if i == len(words)-1 {
			field = strings.TrimRight(field, brandTrail)
		}
		if !strings.EqualFold(field, w) {
			return 0, false
		}
		end = spans[i][0] + len(field)
	}
	return end, true
}

const brandTrail = "-–—:,"

func remainder(full string, offset int) string {
	rest := strings.TrimSpace(full[offset:])
	rest = strings.TrimSpace(strings.TrimLeft(rest, brandTrail))
	if rest == "" {
		return full
	}
	return rest
}

// AliasKey normalizes user-typed alias text: NFKC, lower case, and only
// ASCII alphanumerics and CJK ideographs kept.
func AliasKey(text string) string {
	return aliasNoise.ReplaceAllString(strings.ToLower(norm.NFKC.String(text)), "")
}

// BrandKey returns the matching key for a brand using the default tables.
func BrandKey(brand string) string { return defaultKeyer.BrandKey(brand) }

// NameKey returns the matching key for a name using the default tables.
func NameKey(name string) string { return defaultKeyer.NameKey(name) }

// NameVariants returns name variants using the default tables.
func NameVariants(name string) []string { return defaultKeyer.NameVariants(name) }

// SplitBrandName splits a full product string using the default brand list.
func SplitBrandName(full string) (brand, name string) { return defaultKeyer.SplitBrandName(full) }

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func sortedByLength(brands []string) []string {
	out := append([]string(nil), brands...)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i]) > len(out[j])
	})
	return out
}
