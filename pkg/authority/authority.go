// Package authority decides which source may set each product field.
//
// Every field path resolves to a Field authority. The authority names the
// merge Rule for the field, the source label it applies to and a priority;
// the highest-priority match for a (field, source) pair wins.
package authority

import (
	"path/filepath"

	"github.com/agentstation/skinmap/pkg/constants"
)

// AnySource matches every source label.
const AnySource = "*"

// Rule is the merge rule of a field.
type Rule string

// Merge rules.
const (
	// Keep never replaces the existing value.
	Keep Rule = "keep"
	// FillPlaceholder replaces the value only while it is empty or a placeholder.
	FillPlaceholder Rule = "fill_placeholder"
	// SourceOfTruth always replaces the value.
	SourceOfTruth Rule = "source_of_truth"
	// FillEstimate replaces an estimated value with a real one.
	FillEstimate Rule = "fill_estimate"
	// Union merges set values.
	Union Rule = "union"
	// DedupeJoin appends unseen text fragments.
	DedupeJoin Rule = "dedupe_join"
)

// Authority determines which source is authoritative for each field
type Authority interface {
	// Find returns the authority for a field when set by source
	Find(fieldPath, source string) *Field

	// List returns all field authorities
	List() []Field
}

// Field defines the merge rule and source priority for a field
type Field struct {
	Path      string `json:"path" yaml:"path"`           // e.g., "Ingredients", "Evidence.*"
	Source    string `json:"source" yaml:"source"`       // Source label pattern, "*" for any
	Rule      Rule   `json:"rule" yaml:"rule"`           // How an incoming value is merged
	Priority  int    `json:"priority" yaml:"priority"`   // Priority (higher = more authoritative)
	Exclusive bool   `json:"exclusive" yaml:"exclusive"` // A refused difference is a content conflict
}

// Permits reports whether the rule lets an incoming value replace the
// current one. placeholder is true when the current value is empty, a
// default, or an estimate.
func (f *Field) Permits(placeholder bool) bool {
	if f == nil {
		return false
	}
	switch f.Rule {
	case SourceOfTruth:
		return true
	case FillPlaceholder, FillEstimate:
		return placeholder
	default:
		return false
	}
}

// Option configures the default authorities.
type Option func(*options)

type options struct {
	sourceOfTruth string
	extra         []Field
}

// WithSourceOfTruth sets the source label that owns ingredients and category.
func WithSourceOfTruth(label string) Option {
	return func(o *options) {
		if label != "" {
			o.sourceOfTruth = label
		}
	}
}

// WithFields adds authorities on top of the defaults.
func WithFields(fields ...Field) Option {
	return func(o *options) {
		o.extra = append(o.extra, fields...)
	}
}

// authorities provides standard field authorities
type authorities struct {
	fields []Field
}

// New creates the product field authorities.
func New(opts ...Option) Authority {
	o := &options{sourceOfTruth: constants.SourceOfTruth}
	for _, opt := range opts {
		opt(o)
	}
	return &authorities{
		fields: append(defaultProductAuthorities(o.sourceOfTruth), o.extra...),
	}
}

// Find returns the authority configuration for a field set by source
func (a *authorities) Find(fieldPath, source string) *Field {
	return ByField(fieldPath, FilterBySource(a.fields, source))
}

// List returns all authorities
func (a *authorities) List() []Field {
	return append([]Field(nil), a.fields...)
}

// ByField returns the highest priority authority for a given field path
func ByField(fieldPath string, authorities []Field) *Field {
	var bestMatch *Field
	var bestPriority int
	var bestMatchLength int

	for i, auth := range authorities {
		if MatchesPattern(fieldPath, auth.Path) {
			// Prioritize by: 1) priority, 2) pattern specificity (length), 3) order
			patternLength := len(auth.Path)
			if bestMatch == nil || auth.Priority > bestPriority ||
				(auth.Priority == bestPriority && patternLength > bestMatchLength) {
				bestMatch = &authorities[i]
				bestPriority = auth.Priority
				bestMatchLength = patternLength
			}
		}
	}

	return bestMatch
}

// MatchesPattern checks if a field path matches a pattern (supports * wildcards)
func MatchesPattern(fieldPath, pattern string) bool {
	// Handle exact matches
	if fieldPath == pattern {
		return true
	}

	// Handle simple wildcard at the end
	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(fieldPath) >= len(prefix) && fieldPath[:len(prefix)] == prefix
	}

	// Handle filepath.Match patterns
	matched, err := filepath.Match(pattern, fieldPath)
	if err != nil {
		return false
	}
	return matched
}

// FilterBySource returns the authorities whose source pattern matches source
func FilterBySource(authorities []Field, source string) []Field {
	var filtered []Field
	for _, auth := range authorities {
		if auth.Source == AnySource || MatchesPattern(source, auth.Source) {
			filtered = append(filtered, auth)
		}
	}
	return filtered
}

// defaultProductAuthorities returns the default field authorities for products
func defaultProductAuthorities(sourceOfTruth string) []Field {
	return []Field{
		// Identity - brand fills the "Unknown" placeholder, names are never rewritten
		{Path: "Brand", Source: AnySource, Rule: FillPlaceholder, Priority: 50},
		{Path: "Name", Source: AnySource, Rule: Keep, Priority: 50},

		// Formula - the collected ingredient sheet is the source of truth
		{Path: "Ingredient*", Source: AnySource, Rule: FillPlaceholder, Priority: 50, Exclusive: true},
		{Path: "Ingredient*", Source: sourceOfTruth, Rule: SourceOfTruth, Priority: 100, Exclusive: true},
		{Path: "Category", Source: AnySource, Rule: FillPlaceholder, Priority: 50, Exclusive: true},
		{Path: "Category", Source: sourceOfTruth, Rule: SourceOfTruth, Priority: 100, Exclusive: true},

		// Commerce
		{Path: "Regions", Source: AnySource, Rule: Union, Priority: 50},
		{Path: "Price*", Source: AnySource, Rule: FillEstimate, Priority: 50},
		{Path: "URL", Source: AnySource, Rule: FillPlaceholder, Priority: 50},

		// Evidence buckets accumulate
		{Path: "Evidence.*", Source: AnySource, Rule: DedupeJoin, Priority: 50},
	}
}
