package evidence

import (
	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/normalize"
	"github.com/agentstation/skinmap/pkg/records"
)

// Completeness scores how much a row can be trusted as the seed of a new
// product: reviewed rows, cleanly parsed rows and structured INCI lists
// score higher, plus one point per ingredient up to a bound.
func Completeness(rec *records.Record) int {
	score := 0
	if rec.Reviewed() {
		score += 100
	}
	if rec.ParseStatus == records.StatusOK {
		score += 50
	}
	if rec.INCI != "" {
		score += 25
	}
	return score + min(len(rec.Ingredients), constants.MaxIngredientPoints)
}

// SeedStats counts what the seeder did with its input.
type SeedStats struct {
	InputRows               int `json:"input_rows" yaml:"input_rows"`
	SkippedMissingIdentity  int `json:"skipped_missing_brand_or_name" yaml:"skipped_missing_brand_or_name"`
	SkippedNotReviewed      int `json:"skipped_not_review_ok" yaml:"skipped_not_review_ok"`
	SkippedNeedsSource      int `json:"skipped_needs_source" yaml:"skipped_needs_source"`
	SkippedEmptyIngredients int `json:"skipped_empty_ingredients" yaml:"skipped_empty_ingredients"`
	DedupReplaced           int `json:"dedup_replaced" yaml:"dedup_replaced"`
	DedupIgnored            int `json:"dedup_ignored" yaml:"dedup_ignored"`
	DuplicateConflicts      int `json:"duplicate_conflicts" yaml:"duplicate_conflicts"`
	RowsReady               int `json:"rows_ready" yaml:"rows_ready"`
}

// Rejection is a row the seeder refused.
type Rejection struct {
	Record *records.Record
	Err    error
}

// Selection is the seeder output.
type Selection struct {
	Records     []*records.Record               // Rows to ingest, in input order of their first appearance
	Rejected    []Rejection                     // Rows skipped before ingestion
	Ambiguities []*errors.IdentityAmbiguityError // Identity keys whose rows disagree on ingredients
	Stats       SeedStats
}

// Seeder collapses rows that share an identity key into one seed row.
type Seeder struct {
	exists func(brand, name string) bool
}

// SeederOption configures a Seeder.
type SeederOption func(*Seeder)

// WithExisting reports rows that already resolve to a canonical product.
// Such rows are not collapsed; each one is merged on its own.
func WithExisting(fn func(brand, name string) bool) SeederOption {
	return func(s *Seeder) {
		s.exists = fn
	}
}

// NewSeeder creates a Seeder.
func NewSeeder(opts ...SeederOption) *Seeder {
	s := &Seeder{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select filters rows and keeps the most complete row per identity key.
// Ties go to the row seen first. The evidence, regions and references of
// the rows that lose are folded into the winner, so nothing a source said
// is dropped.
func (s *Seeder) Select(recs []*records.Record) *Selection {
	sel := &Selection{Stats: SeedStats{InputRows: len(recs)}}

	type group struct {
		seed  *records.Record
		score int
	}
	var (
		order      []any // *group or a pass-through *records.Record
		groups     = make(map[string]*group)
		signatures = make(map[string]string)
		lastRow    = make(map[string]int)
		ambiguous  = make(map[string]*errors.IdentityAmbiguityError)
	)

	for _, rec := range recs {
		if err := s.check(rec, &sel.Stats); err != nil {
			sel.Rejected = append(sel.Rejected, Rejection{Record: rec, Err: err})
			continue
		}

		if s.exists != nil && s.exists(rec.Brand, rec.Name) {
			order = append(order, rec)
			continue
		}

		key := rec.IdentityKey()
		sig := normalize.Signature(rec.Ingredients)
		if prev, seen := signatures[key]; seen && prev != sig {
			sel.Stats.DuplicateConflicts++
			amb := ambiguous[key]
			if amb == nil {
				amb = &errors.IdentityAmbiguityError{Key: key, Rows: []int{lastRow[key]}}
				ambiguous[key] = amb
				sel.Ambiguities = append(sel.Ambiguities, amb)
			}
			amb.Rows = append(amb.Rows, rec.RowIndex)
		}
		signatures[key] = sig
		lastRow[key] = rec.RowIndex

		score := Completeness(rec)
		g, ok := groups[key]
		if !ok {
			g = &group{seed: rec.Copy(), score: score}
			groups[key] = g
			order = append(order, g)
			continue
		}

		if score > g.score {
			winner := rec.Copy()
			fold(winner, g.seed)
			g.seed, g.score = winner, score
			sel.Stats.DedupReplaced++
		} else {
			fold(g.seed, rec)
			sel.Stats.DedupIgnored++
		}
	}

	for _, item := range order {
		switch v := item.(type) {
		case *group:
			sel.Records = append(sel.Records, v.seed)
		case *records.Record:
			sel.Records = append(sel.Records, v)
		}
	}
	sel.Stats.RowsReady = len(sel.Records)
	return sel
}

// check applies the row filters and counts skips.
func (s *Seeder) check(rec *records.Record, stats *SeedStats) error {
	switch {
	case rec.Brand == "" || rec.Name == "":
		stats.SkippedMissingIdentity++
		field := "brand"
		if rec.Brand != "" {
			field = "name"
		}
		return errors.NewRowValidationError(rec.RowIndex, field, "brand and name are required")
	case rec.ReviewStatus != "" && !rec.Reviewed():
		stats.SkippedNotReviewed++
		return errors.NewRowValidationError(rec.RowIndex, "review_status", "row is not approved: "+rec.ReviewStatus)
	case rec.ParseStatus == records.StatusNeedsSource:
		stats.SkippedNeedsSource++
		return errors.NewRowValidationError(rec.RowIndex, "parse_status", "row needs an ingredient source")
	case len(rec.Ingredients) == 0:
		stats.SkippedEmptyIngredients++
		return errors.NewRowValidationError(rec.RowIndex, "ingredients", "no ingredients could be parsed")
	}
	return nil
}

// fold merges the evidence, regions and references of loser into seed.
func fold(seed, loser *records.Record) {
	for _, label := range loser.EvidenceLabels() {
		if seed.Evidence == nil {
			seed.Evidence = make(map[string]string)
		}
		seed.Evidence[label] = DedupeJoin(seed.Evidence[label], loser.Evidence[label])
	}

	if len(loser.Regions) > 0 {
		seed.Regions = UnionRegions(seed.Regions, loser.Regions)
	}

	for _, ref := range loser.Refs {
		dup := false
		for _, have := range seed.Refs {
			if have.System == ref.System && have.Type == ref.Type && normalize.Ref(ref.Type, have.Value) == normalize.Ref(ref.Type, ref.Value) {
				dup = true
				break
			}
		}
		if !dup {
			seed.Refs = append(seed.Refs, ref)
		}
	}
}
