package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/oklog/ulid/v2"

	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/crosswalk"
	"github.com/agentstation/skinmap/pkg/differ"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/evidence"
)

// Summary reports a run so it can be audited without replaying it.
type Summary struct {
	RunID      string
	DryRun     bool
	Canceled   bool
	StartedAt  utc.Time
	FinishedAt utc.Time
	Duration   time.Duration

	Counts      map[State]int
	Seed        evidence.SeedStats
	Ambiguities []*errors.IdentityAmbiguityError
	Crosswalk   map[crosswalk.Outcome]int
	Degraded    int

	ContentConflicts []*errors.ContentConflictError
	Conflicts        *crosswalk.Report // Crosswalk conflicts, ready for a cleanup script
	Outcomes         []Outcome
}

// NewSummary starts a summary with a fresh run ID.
func NewSummary(dryRun bool) *Summary {
	return &Summary{
		RunID:     ulid.Make().String(),
		DryRun:    dryRun,
		StartedAt: utc.Now(),
		Counts:    make(map[State]int),
		Crosswalk: make(map[crosswalk.Outcome]int),
		Conflicts: &crosswalk.Report{},
	}
}

// Record adds one outcome.
func (s *Summary) Record(o Outcome) {
	s.Counts[o.State]++
	if o.Degraded {
		s.Degraded++
	}
	var cc *errors.ContentConflictError
	if o.State == Conflict && errors.As(o.Err, &cc) {
		s.ContentConflicts = append(s.ContentConflicts, cc)
	}
	for _, res := range o.Crosswalk {
		s.Crosswalk[res.Outcome]++
		if res.Conflict != nil {
			s.Conflicts.Add(*res.Conflict)
		}
	}
	s.Outcomes = append(s.Outcomes, o)
}

// Finalize stamps the end of the run.
func (s *Summary) Finalize() {
	s.FinishedAt = utc.Now()
	s.Duration = s.FinishedAt.Sub(s.StartedAt)
}

// Count returns the number of records in state.
func (s *Summary) Count(state State) int {
	return s.Counts[state]
}

// Processed returns the number of records that reached a state.
func (s *Summary) Processed() int {
	return len(s.Outcomes)
}

// HasFailures reports whether any record failed on a store error.
func (s *Summary) HasFailures() bool {
	return s.Counts[Failed] > 0
}

// Errors returns the per-record errors in input order.
func (s *Summary) Errors() []error {
	var errs []error
	for _, o := range s.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}

// Changeset returns every product and mapping change of the run.
func (s *Summary) Changeset() *differ.Changeset {
	products := &differ.ProductChangeset{}
	mappings := &differ.MappingChangeset{}
	for _, o := range s.Outcomes {
		if o.Created != nil {
			products.Added = append(products.Added, o.Created)
		}
		if o.Update != nil {
			products.Updated = append(products.Updated, *o.Update)
		}
		for _, res := range o.Crosswalk {
			switch res.Outcome {
			case crosswalk.Inserted:
				mappings.Added = append(mappings.Added, res.Mapping)
			case crosswalk.Updated:
				mappings.Updated = append(mappings.Updated, differ.MappingUpdate{
					Key:     res.Mapping.Key(),
					New:     res.Mapping,
					Changes: mappingChanges(res.Mapping),
				})
			}
		}
	}
	return differ.NewChangeset(products, mappings)
}

func mappingChanges(m catalogs.Mapping) []differ.FieldChange {
	return []differ.FieldChange{{
		Path:     "metadata",
		NewValue: fmt.Sprint(m.Metadata),
		Type:     differ.ChangeTypeUpdate,
	}}
}

// Summary returns a one-line description of the run.
func (s *Summary) Summary() string {
	parts := make([]string, 0, len(States))
	for _, state := range States {
		parts = append(parts, fmt.Sprintf("%d %s", s.Counts[state], state))
	}
	out := fmt.Sprintf("Run %s: %s", s.RunID, strings.Join(parts, ", "))

	if n := len(s.Crosswalk); n > 0 {
		var cw []string
		for _, outcome := range []crosswalk.Outcome{crosswalk.Inserted, crosswalk.Updated, crosswalk.Unchanged, crosswalk.Conflict, crosswalk.Skipped} {
			if c := s.Crosswalk[outcome]; c > 0 {
				cw = append(cw, fmt.Sprintf("%d %s", c, outcome))
			}
		}
		out += "; crosswalk " + strings.Join(cw, ", ")
	}
	if s.Seed.DuplicateConflicts > 0 {
		out += fmt.Sprintf("; %d duplicate conflicts", s.Seed.DuplicateConflicts)
	}
	if s.Degraded > 0 {
		out += fmt.Sprintf("; %d degraded", s.Degraded)
	}
	if s.DryRun {
		out += " (dry run)"
	}
	if s.Canceled {
		out += " (canceled)"
	}
	return out
}

// String implements fmt.Stringer.
func (s *Summary) String() string {
	return s.Summary()
}
