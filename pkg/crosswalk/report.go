package crosswalk

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/normalize"
)

// ReportColumns is the header of a conflict report.
var ReportColumns = []string{
	"source_ref_url",
	"source_ref_normalized",
	"existing_product_id",
	"incoming_product_id",
	"incoming_brand",
	"incoming_name",
	"candidate_id",
	"resolution",
}

// Report collects crosswalk conflicts for operator review.
type Report struct {
	Conflicts []ConflictRecord
	seen      map[string]bool
}

// Add records a conflict once per (slot, existing product, incoming product).
func (r *Report) Add(c ConflictRecord) {
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	key := c.Key().String() + "|" + c.ExistingProductID.String() + "|" + c.IncomingProductID.String()
	if r.seen[key] {
		return
	}
	r.seen[key] = true
	if c.Resolution == "" {
		c.Resolution = Resolution
	}
	r.Conflicts = append(r.Conflicts, c)
}

// Len returns the number of conflicts.
func (r *Report) Len() int {
	return len(r.Conflicts)
}

// Keys returns the distinct ambiguous slots in sorted order.
func (r *Report) Keys() []catalogs.MappingKey {
	set := make(map[catalogs.MappingKey]bool)
	var keys []catalogs.MappingKey
	for _, c := range r.Conflicts {
		if k := c.Key(); !set[k] {
			set[k] = true
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// WriteCSV writes one row per conflict.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportColumns); err != nil {
		return errors.WrapIO("write", "conflict report", err)
	}
	for _, c := range r.Conflicts {
		row := []string{
			c.ExternalRef,
			c.NormalizedRef,
			c.ExistingProductID.String(),
			c.IncomingProductID.String(),
			c.IncomingBrand,
			c.IncomingName,
			c.CandidateID,
			c.Resolution,
		}
		if err := cw.Write(row); err != nil {
			return errors.WrapIO("write", "conflict report", err)
		}
	}
	cw.Flush()
	return errors.WrapIO("write", "conflict report", cw.Error())
}

// WriteCleanupSQL writes a reviewable script that deletes every ambiguous
// slot in one transaction, with one DELETE per (system, type).
func (r *Report) WriteCleanupSQL(w io.Writer) error {
	groups := make(map[RefType][]string)
	for _, key := range r.Keys() {
		t := RefType{System: key.SourceSystem, Type: key.SourceType}
		groups[t] = append(groups[t], key.NormalizedRef)
	}
	types := make([]RefType, 0, len(groups))
	for t := range groups {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if types[i].System != types[j].System {
			return types[i].System < types[j].System
		}
		return types[i].Type < types[j].Type
	})

	var b strings.Builder
	b.WriteString("-- Cleanup of ambiguous crosswalk mappings. Review before applying.\n")
	fmt.Fprintf(&b, "-- conflicts=%d\n", r.Len())
	b.WriteString("BEGIN;\n")
	if len(types) == 0 {
		b.WriteString("-- No conflicts found; no-op.\n")
	}
	for _, t := range types {
		refs := groups[t]
		quoted := make([]string, len(refs))
		for i, ref := range refs {
			quoted[i] = quote(ref)
		}
		fmt.Fprintf(&b, "-- source_system=%s, source_type=%s\n", t.System, t.Type)
		b.WriteString("DELETE FROM crosswalk_mappings\n")
		fmt.Fprintf(&b, "WHERE source_system=%s\n", quote(t.System))
		fmt.Fprintf(&b, "  AND source_type=%s\n", quote(t.Type))
		b.WriteString("  AND external_ref_normalized IN (\n")
		b.WriteString("    " + strings.Join(quoted, ",\n    ") + "\n")
		b.WriteString("  );\n")
	}
	b.WriteString("COMMIT;\n")

	_, err := io.WriteString(w, b.String())
	return errors.WrapIO("write", "cleanup script", err)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ReadReport reads a conflict report written by WriteCSV. The CSV does not
// carry the reference type, so every row is attributed to (system, typ).
// Rows whose normalized reference is empty are re-normalized from the raw one.
func ReadReport(rd io.Reader, system, typ string) (*Report, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.WrapParse("csv", "conflict report", err)
	}
	if len(rows) == 0 {
		return &Report{}, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, required := range []string{"source_ref_normalized", "existing_product_id"} {
		if _, ok := index[required]; !ok {
			return nil, errors.NewValidationError(required, nil, "conflict report is missing a column")
		}
	}
	get := func(row []string, col string) string {
		if i, ok := index[col]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	report := &Report{}
	for n, row := range rows[1:] {
		normalized := get(row, "source_ref_normalized")
		if normalized == "" {
			normalized = normalize.Ref(typ, get(row, "source_ref_url"))
		}
		if normalized == "" {
			continue
		}
		existing, err := uuid.Parse(get(row, "existing_product_id"))
		if err != nil {
			return nil, errors.NewRowValidationError(n, "existing_product_id", err.Error())
		}
		incoming, _ := uuid.Parse(get(row, "incoming_product_id"))
		report.Add(ConflictRecord{
			SourceSystem:      system,
			SourceType:        typ,
			ExternalRef:       get(row, "source_ref_url"),
			NormalizedRef:     normalized,
			ExistingProductID: existing,
			IncomingProductID: incoming,
			IncomingBrand:     get(row, "incoming_brand"),
			IncomingName:      get(row, "incoming_name"),
			CandidateID:       get(row, "candidate_id"),
			Resolution:        get(row, "resolution"),
		})
	}
	return report, nil
}
