// Package matcher finds the canonical product an incoming (brand, name) pair
// refers to. Candidates are filtered by brand key, then matched on name keys
// across the name variants, then scored by token overlap.
//
// Matching is greedy: the first candidate with the best score wins and no
// global assignment is attempted.
package matcher

import (
	"regexp"
	"strings"

	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/identity"
	"github.com/agentstation/skinmap/pkg/normalize"
)

// Reason explains a match decision.
type Reason string

const (
	// Exact means a name variant has the candidate's name key.
	Exact Reason = "exact"
	// Fuzzy means the token overlap cleared the threshold.
	Fuzzy Reason = "fuzzy"
	// LowConfidence means the best overlap fell below the threshold.
	LowConfidence Reason = "low_confidence"
	// NoBrandMatch means no candidate shares the brand key.
	NoBrandMatch Reason = "no_brand_match"
	// NoNameMatch means the brand matched but no name overlapped at all.
	NoNameMatch Reason = "no_name_match"
)

// String returns the reason code.
func (r Reason) String() string {
	return string(r)
}

var parenthetical = regexp.MustCompile(`\([^)]*\)`)

// Candidate is a canonical product prepared for matching.
type Candidate struct {
	ID       string
	Brand    string
	Name     string
	BrandKey string
	NameKey  string

	tokens []string
	folded string
}

// Result is the outcome of a match.
type Result struct {
	// Candidate is set only for Exact and Fuzzy results.
	Candidate *Candidate
	Score     float64
	Reason    Reason
}

// Matched reports whether the result identifies a canonical product.
func (r Result) Matched() bool {
	return r.Candidate != nil && (r.Reason == Exact || r.Reason == Fuzzy)
}

// Options configures the matcher behavior.
type Options struct {
	// Threshold is the minimum score accepted as a fuzzy match.
	Threshold float64
	// SubstringBonus is added when one name contains the other.
	SubstringBonus float64
	// Keyer computes brand and name keys.
	Keyer *identity.Keyer
}

// DefaultOptions returns the default options.
func DefaultOptions() *Options {
	return &Options{
		Threshold:      constants.AcceptanceThreshold,
		SubstringBonus: constants.SubstringBonus,
		Keyer:          identity.Default(),
	}
}

// Matcher scores incoming names against prepared candidates.
type Matcher struct {
	opts Options
}

// New creates a Matcher. Nil or missing options fall back to the defaults.
func New(opts ...*Options) *Matcher {
	options := DefaultOptions()
	if len(opts) > 0 && opts[0] != nil {
		options = opts[0]
		if options.Keyer == nil {
			options.Keyer = identity.Default()
		}
	}
	return &Matcher{opts: *options}
}

// Prepare computes the keys of a canonical product once so that repeated
// matches do not re-normalize it.
func (m *Matcher) Prepare(id, brand, name string) Candidate {
	return Candidate{
		ID:       id,
		Brand:    brand,
		Name:     name,
		BrandKey: m.opts.Keyer.BrandKey(brand),
		NameKey:  m.opts.Keyer.NameKey(name),
		tokens:   nameTokens(name),
		folded:   fold(name),
	}
}

// Match returns the best candidate for (brand, name).
func (m *Matcher) Match(brand, name string, candidates []Candidate) Result {
	brandKey := m.opts.Keyer.BrandKey(brand)
	pool := make([]*Candidate, 0, len(candidates))
	for i := range candidates {
		if candidates[i].BrandKey == brandKey {
			pool = append(pool, &candidates[i])
		}
	}
	if len(pool) == 0 {
		return Result{Reason: NoBrandMatch}
	}

	for _, variant := range m.opts.Keyer.NameVariants(name) {
		key := m.opts.Keyer.NameKey(variant)
		if key == "" {
			continue
		}
		for _, c := range pool {
			if c.NameKey != "" && c.NameKey == key {
				return Result{Candidate: c, Score: 1.0, Reason: Exact}
			}
		}
	}

	want := nameTokens(name)
	wantFolded := fold(name)
	var best *Candidate
	bestScore := 0.0
	for _, c := range pool {
		tokens, folded := c.tokens, c.folded
		if tokens == nil && folded == "" {
			tokens, folded = nameTokens(c.Name), fold(c.Name)
		}
		score := Jaccard(want, tokens)
		if wantFolded != "" && folded != "" &&
			(strings.Contains(folded, wantFolded) || strings.Contains(wantFolded, folded)) {
			score = min(1.0, score+m.opts.SubstringBonus)
		}
		if best == nil || score > bestScore {
			best, bestScore = c, score
		}
	}

	switch {
	case bestScore == 0:
		return Result{Reason: NoNameMatch}
	case bestScore < m.opts.Threshold:
		return Result{Score: bestScore, Reason: LowConfidence}
	default:
		return Result{Candidate: best, Score: bestScore, Reason: Fuzzy}
	}
}

// Jaccard returns the Jaccard similarity of two token sets. Two empty sets
// are identical; one empty set shares nothing.
func Jaccard(a, b []string) float64 {
	sa, sb := toSet(a), toSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1.0
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0.0
	}
	inter := 0
	for tok := range sa {
		if _, ok := sb[tok]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(max(1, union))
}

func nameTokens(name string) []string {
	tokens := normalize.Tokens(parenthetical.ReplaceAllString(name, " "))
	if tokens == nil {
		return []string{}
	}
	return tokens
}

func fold(name string) string {
	return strings.ToLower(normalize.StripAccents(strings.TrimSpace(name)))
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
