package ingest

import (
	"github.com/google/uuid"

	"github.com/agentstation/skinmap/pkg/evidence"
	"github.com/agentstation/skinmap/pkg/ingest"
)

// Report is the serialized view of a run.
type Report struct {
	RunID              string             `json:"run_id" yaml:"run_id"`
	DryRun             bool               `json:"dry_run" yaml:"dry_run"`
	Canceled           bool               `json:"canceled,omitempty" yaml:"canceled,omitempty"`
	Duration           string             `json:"duration" yaml:"duration"`
	Processed          int                `json:"processed" yaml:"processed"`
	Counts             map[string]int     `json:"counts" yaml:"counts"`
	Crosswalk          map[string]int     `json:"crosswalk,omitempty" yaml:"crosswalk,omitempty"`
	Seed               evidence.SeedStats `json:"seed" yaml:"seed"`
	Degraded           int                `json:"degraded" yaml:"degraded"`
	CrosswalkConflicts int                `json:"crosswalk_conflicts" yaml:"crosswalk_conflicts"`
	Ambiguities        []string           `json:"ambiguities,omitempty" yaml:"ambiguities,omitempty"`
	ContentConflicts   []string           `json:"content_conflicts,omitempty" yaml:"content_conflicts,omitempty"`
	Errors             []string           `json:"errors,omitempty" yaml:"errors,omitempty"`
	Outcomes           []OutcomeView      `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
}

// OutcomeView is the serialized view of one record outcome.
type OutcomeView struct {
	Source    string   `json:"source" yaml:"source"`
	RowIndex  int      `json:"row_index" yaml:"row_index"`
	Brand     string   `json:"brand" yaml:"brand"`
	Name      string   `json:"name" yaml:"name"`
	State     string   `json:"state" yaml:"state"`
	ProductID string   `json:"product_id,omitempty" yaml:"product_id,omitempty"`
	Match     string   `json:"match,omitempty" yaml:"match,omitempty"`
	Degraded  bool     `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	Changed   []string `json:"changed,omitempty" yaml:"changed,omitempty"`
	Conflicts []string `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Error     string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewReport builds the view of s. Outcomes of records that changed nothing
// are listed only with details.
func NewReport(s *ingest.Summary, details bool) *Report {
	r := &Report{
		RunID:              s.RunID,
		DryRun:             s.DryRun,
		Canceled:           s.Canceled,
		Duration:           s.Duration.String(),
		Processed:          s.Processed(),
		Counts:             make(map[string]int, len(ingest.States)),
		Crosswalk:          make(map[string]int, len(s.Crosswalk)),
		Seed:               s.Seed,
		Degraded:           s.Degraded,
		CrosswalkConflicts: s.Conflicts.Len(),
	}
	for _, state := range ingest.States {
		r.Counts[state.String()] = s.Count(state)
	}
	for outcome, n := range s.Crosswalk {
		r.Crosswalk[outcome.String()] = n
	}
	for _, a := range s.Ambiguities {
		r.Ambiguities = append(r.Ambiguities, a.Error())
	}
	for _, c := range s.ContentConflicts {
		r.ContentConflicts = append(r.ContentConflicts, c.Error())
	}
	for _, err := range s.Errors() {
		r.Errors = append(r.Errors, err.Error())
	}
	if details {
		for _, o := range s.Outcomes {
			r.Outcomes = append(r.Outcomes, newOutcomeView(o))
		}
	}
	return r
}

func newOutcomeView(o ingest.Outcome) OutcomeView {
	v := OutcomeView{
		Source:    o.Source,
		RowIndex:  o.RowIndex,
		Brand:     o.Brand,
		Name:      o.Name,
		State:     o.State.String(),
		Match:     o.Match.Reason.String(),
		Degraded:  o.Degraded,
		Conflicts: o.Conflicts,
	}
	if o.ProductID != uuid.Nil {
		v.ProductID = o.ProductID.String()
	}
	if o.Update != nil {
		v.Changed = o.Update.Paths()
	}
	if o.Err != nil {
		v.Error = o.Err.Error()
	}
	return v
}
