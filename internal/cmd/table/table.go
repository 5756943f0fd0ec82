// Package table converts engine results into rows for CLI output.
package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/skinmap/internal/matcher"
	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/crosswalk"
	"github.com/agentstation/skinmap/pkg/ingest"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment.
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignRight aligns content to the right.
	AlignRight
)

// Data is a rendered table.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align
}

// Tabler is implemented by values with their own table view.
type Tabler interface {
	Table() Data
}

var title = cases.Title(language.English)

// label turns a snake_case key into a column label.
func label(key string) string {
	return title.String(strings.ReplaceAll(key, "_", " "))
}

// Summary lists the per-state counts of a run, followed by the crosswalk
// and seeding counters that are not zero.
func Summary(s *ingest.Summary) Data {
	rows := make([][]string, 0, len(ingest.States)+8)
	for _, state := range ingest.States {
		rows = append(rows, []string{label(state.String()), fmt.Sprint(s.Count(state))})
	}
	for _, outcome := range []crosswalk.Outcome{crosswalk.Inserted, crosswalk.Updated, crosswalk.Unchanged, crosswalk.Conflict, crosswalk.Skipped} {
		if n := s.Crosswalk[outcome]; n > 0 {
			rows = append(rows, []string{"Crosswalk " + label(outcome.String()), fmt.Sprint(n)})
		}
	}
	if s.Seed.DuplicateConflicts > 0 {
		rows = append(rows, []string{"Duplicate Conflicts", fmt.Sprint(s.Seed.DuplicateConflicts)})
	}
	if s.Degraded > 0 {
		rows = append(rows, []string{"Degraded", fmt.Sprint(s.Degraded)})
	}
	rows = append(rows, []string{"Duration", s.Duration.Round(time.Millisecond).String()})
	return Data{
		Headers:         []string{"Run " + s.RunID, "Count"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// Outcomes lists the records of a run that did not end unchanged.
func Outcomes(s *ingest.Summary) Data {
	var rows [][]string
	for _, o := range s.Outcomes {
		if o.State == ingest.SkippedUnchanged {
			continue
		}
		id := ""
		if o.ProductID != uuid.Nil {
			id = o.ProductID.String()
		}
		detail := ""
		if o.Err != nil {
			detail = o.Err.Error()
		}
		rows = append(rows, []string{fmt.Sprint(o.RowIndex), o.Brand, o.Name, o.State.String(), id, detail})
	}
	return Data{
		Headers: []string{"Row", "Brand", "Name", "State", "Product", "Detail"},
		Rows:    rows,
	}
}

// Match shows one match decision.
func Match(brand, name string, res matcher.Result) Data {
	rows := [][]string{
		{"Query", brand + " " + name},
		{"Reason", res.Reason.String()},
		{"Score", fmt.Sprintf("%.2f", res.Score)},
	}
	if res.Candidate != nil {
		rows = append(rows,
			[]string{"Product", res.Candidate.ID},
			[]string{"Canonical", res.Candidate.Brand + " " + res.Candidate.Name},
		)
	}
	return Data{Headers: []string{"Property", "Value"}, Rows: rows}
}

// Risk shows a risk profile and the key actives found with it.
func Risk(risk catalogs.RiskProfile, actives []string) Data {
	flags := "none"
	if len(risk.Flags) > 0 {
		flags = strings.Join(risk.Strings(), ", ")
	}
	rows := [][]string{
		{"Flags", flags},
		{"Burn Rate", fmt.Sprintf("%.2f", risk.BurnRate)},
		{"Version", risk.Version},
	}
	if len(actives) > 0 {
		rows = append(rows, []string{"Key Actives", strings.Join(actives, " | ")})
	}
	return Data{Headers: []string{"Property", "Value"}, Rows: rows}
}

// Conflicts lists the slots of a crosswalk conflict report.
func Conflicts(r *crosswalk.Report) Data {
	rows := make([][]string, 0, r.Len())
	for _, c := range r.Conflicts {
		rows = append(rows, []string{
			c.SourceSystem + "/" + c.SourceType,
			c.NormalizedRef,
			c.ExistingProductID.String(),
			c.IncomingProductID.String(),
			strings.TrimSpace(c.IncomingBrand + " " + c.IncomingName),
		})
	}
	return Data{
		Headers: []string{"Type", "Reference", "Existing", "Incoming", "Incoming Product"},
		Rows:    rows,
	}
}
