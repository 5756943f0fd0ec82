package evidence

import (
	"slices"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/skinmap/pkg/authority"
	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/normalize"
	"github.com/agentstation/skinmap/pkg/provenance"
	"github.com/agentstation/skinmap/pkg/records"
)

// Field paths resolved through the field authorities.
const (
	FieldBrand          = "Brand"
	FieldName           = "Name"
	FieldCategory       = "Category"
	FieldIngredients    = "Ingredients"
	FieldIngredientText = "IngredientText"
	FieldRegions        = "Regions"
	FieldPrice          = "Price"
	FieldURL            = "URL"
	evidencePrefix      = "Evidence."
)

// EvidenceField returns the field path of an evidence bucket.
func EvidenceField(b catalogs.Bucket) string {
	return evidencePrefix + b.String()
}

// Change is one applied field change.
type Change struct {
	Field    string
	Rule     authority.Rule
	Decision provenance.Decision
	Old      any
	New      any
}

// Result is the outcome of merging one incoming product.
type Result struct {
	Product   *catalogs.Product // Merged copy; the existing product is never modified
	Changes   []Change          // Changes applied to Product
	Conflicts []string          // Exclusive fields whose differing values the authorities refused
	Created   bool              // Product was created by this merge
}

// Changed reports whether the merge changed anything.
func (r *Result) Changed() bool {
	return len(r.Changes) > 0
}

// Conflicted reports whether an exclusive field was refused.
func (r *Result) Conflicted() bool {
	return len(r.Conflicts) > 0
}

// ConflictError describes the refused fields, or returns nil.
func (r *Result) ConflictError() error {
	if !r.Conflicted() {
		return nil
	}
	return &errors.ContentConflictError{
		ProductID: r.Product.ID.String(),
		Fields:    append([]string(nil), r.Conflicts...),
	}
}

// IngredientsChanged reports whether the ingredient list was set or replaced.
func (r *Result) IngredientsChanged() bool {
	return slices.ContainsFunc(r.Changes, func(c Change) bool {
		return c.Field == FieldIngredients
	})
}

// Merger merges incoming products into canonical ones.
type Merger struct {
	authority      authority.Authority
	tracker        provenance.Tracker
	allowOverwrite bool
}

// Option configures a Merger.
type Option func(*Merger)

// WithAuthority replaces the default field authorities.
func WithAuthority(a authority.Authority) Option {
	return func(m *Merger) {
		if a != nil {
			m.authority = a
		}
	}
}

// WithTracker records every field decision.
func WithTracker(t provenance.Tracker) Option {
	return func(m *Merger) {
		m.tracker = t
	}
}

// WithAllowOverwrite lets incoming exclusive fields replace existing ones
// even when the authorities refuse them.
func WithAllowOverwrite(allow bool) Option {
	return func(m *Merger) {
		m.allowOverwrite = allow
	}
}

// NewMerger creates a Merger with the default field authorities.
func NewMerger(opts ...Option) *Merger {
	m := &Merger{authority: authority.New()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Incoming converts a record into the product shape Merge consumes. Fields
// the record does not supply stay empty, and the price is marked estimated
// unless the record carries one.
func Incoming(rec *records.Record) *catalogs.Product {
	return &catalogs.Product{
		Brand:            rec.Brand,
		Name:             rec.Name,
		Category:         rec.Category,
		Ingredients:      append([]string(nil), rec.Ingredients...),
		IngredientText:   strings.TrimSpace(rec.IngredientText),
		Regions:          append([]string(nil), rec.Regions...),
		PriceUSD:         rec.PriceUSD,
		PriceCNY:         rec.PriceCNY,
		PriceIsEstimated: !rec.HasPrice(),
		URL:              rec.URL,
		Evidence:         BundleFrom(rec.Evidence),
	}
}

// Create builds a new canonical product from an incoming one. Every field
// starts at its placeholder, so all incoming values are taken.
func (m *Merger) Create(incoming *catalogs.Product, source string) *Result {
	p := catalogs.NewProduct(incoming.Brand, incoming.Name)
	p.Regions = nil
	res := m.merge(p, incoming, source, true)
	if len(res.Product.Regions) == 0 {
		res.Product.Regions = []string{constants.GlobalRegion}
	}
	return res
}

// Merge merges incoming into a copy of existing. source is the label of the
// incoming source and selects the field authorities.
func (m *Merger) Merge(existing, incoming *catalogs.Product, source string) *Result {
	return m.merge(existing.Copy(), incoming, source, false)
}

func (m *Merger) merge(out, in *catalogs.Product, source string, created bool) *Result {
	res := &Result{Product: out, Created: created}

	if b := strings.TrimSpace(in.Brand); b != "" && !strings.EqualFold(b, constants.UnknownBrand) &&
		normalize.Key(b) != normalize.Key(out.Brand) {
		m.decide(res, source, FieldBrand, out.HasUnknownBrand(), out.Brand, b, func() { out.Brand = b })
	}

	if n := strings.TrimSpace(in.Name); n != "" && normalize.Key(n) != normalize.Key(out.Name) {
		m.decide(res, source, FieldName, out.Name == "", out.Name, n, func() { out.Name = n })
	}

	if c := strings.TrimSpace(in.Category); c != "" && !strings.EqualFold(c, constants.DefaultCategory) &&
		normalize.Key(c) != normalize.Key(out.Category) {
		placeholder := out.Category == "" || strings.EqualFold(out.Category, constants.DefaultCategory)
		m.decide(res, source, FieldCategory, placeholder, out.Category, c, func() { out.Category = c })
	}

	if len(in.Ingredients) > 0 {
		switch {
		case normalize.Signature(in.Ingredients) != normalize.Signature(out.Ingredients):
			list, text := append([]string(nil), in.Ingredients...), in.IngredientText
			m.decide(res, source, FieldIngredients, len(out.Ingredients) == 0, out.Ingredients, list, func() {
				out.Ingredients, out.IngredientText = list, text
			})
		case out.IngredientText == "" && in.IngredientText != "":
			text := in.IngredientText
			m.decide(res, source, FieldIngredientText, true, out.IngredientText, text, func() { out.IngredientText = text })
		}
	}

	if len(in.Regions) > 0 {
		union := UnionRegions(out.Regions, in.Regions)
		if !slices.Equal(union, out.Regions) {
			placeholder := len(out.Regions) == 0 || slices.Equal(out.Regions, []string{constants.GlobalRegion})
			m.decide(res, source, FieldRegions, placeholder, out.Regions, union, func() { out.Regions = union })
		}
	}

	if !in.PriceIsEstimated && (in.PriceUSD > 0 || in.PriceCNY > 0) &&
		(out.PriceIsEstimated || out.PriceUSD != in.PriceUSD || out.PriceCNY != in.PriceCNY) {
		old := [2]float64{out.PriceUSD, out.PriceCNY}
		m.decide(res, source, FieldPrice, out.PriceIsEstimated, old, [2]float64{in.PriceUSD, in.PriceCNY}, func() {
			out.PriceUSD, out.PriceCNY, out.PriceIsEstimated = in.PriceUSD, in.PriceCNY, false
		})
	}

	if u := strings.TrimSpace(in.URL); u != "" && !sameURL(u, out.URL) {
		m.decide(res, source, FieldURL, out.URL == "", out.URL, u, func() { out.URL = u })
	}

	for _, bucket := range catalogs.Buckets {
		current := out.Evidence.Get(bucket)
		joined := DedupeJoin(current, in.Evidence.Get(bucket))
		if joined != current {
			b := bucket
			m.decide(res, source, EvidenceField(b), current == "", current, joined, func() { out.Evidence.Set(b, joined) })
		}
	}

	if res.Changed() && !created {
		out.UpdatedAt = utc.Now()
	}
	return res
}

// decide applies or refuses one differing field. Union and dedupe-join
// rules always apply since their new value already contains the old one.
func (m *Merger) decide(res *Result, source, field string, placeholder bool, old, val any, apply func()) {
	auth := m.authority.Find(field, source)
	rule := authority.Keep
	exclusive := false
	if auth != nil {
		rule, exclusive = auth.Rule, auth.Exclusive
	}

	var decision provenance.Decision
	switch {
	case rule == authority.Union || rule == authority.DedupeJoin:
		decision = provenance.Joined
	case auth.Permits(placeholder):
		decision = provenance.Replaced
	case exclusive:
		res.Conflicts = append(res.Conflicts, field)
		decision = provenance.Refused
		if m.allowOverwrite {
			decision = provenance.Overwritten
		}
	default:
		decision = provenance.Refused
	}
	if res.Created && decision == provenance.Replaced {
		decision = provenance.Set
	}

	if decision != provenance.Refused {
		apply()
		res.Changes = append(res.Changes, Change{Field: field, Rule: rule, Decision: decision, Old: old, New: val})
	}

	if m.tracker != nil {
		m.tracker.Track(res.Product.ID.String(), field, provenance.Provenance{
			Source:        source,
			Field:         field,
			Value:         val,
			Rule:          rule,
			Decision:      decision,
			PreviousValue: old,
		})
	}
}

func sameURL(a, b string) bool {
	if a == b {
		return true
	}
	ca, cb := normalize.URL(a), normalize.URL(b)
	return ca != "" && ca == cb
}
