package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skinmap/internal/matcher"
	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/crosswalk"
	"github.com/agentstation/skinmap/pkg/ingest"
)

func TestSummary(t *testing.T) {
	s := ingest.NewSummary(false)
	s.Record(ingest.Outcome{State: ingest.Inserted, Crosswalk: []crosswalk.Result{{Outcome: crosswalk.Inserted}}})
	s.Record(ingest.Outcome{State: ingest.SkippedUnchanged})
	s.Finalize()

	data := Summary(s)
	require.Len(t, data.Headers, 2)
	assert.Contains(t, data.Headers[0], s.RunID)
	assert.Equal(t, []string{"Inserted", "1"}, data.Rows[0])
	assert.Contains(t, data.Rows, []string{"Skipped Unchanged", "1"})
	assert.Contains(t, data.Rows, []string{"Crosswalk Inserted", "1"})

	outcomes := Outcomes(s)
	assert.Len(t, outcomes.Rows, 1, "unchanged records are left out")
}

func TestMatch(t *testing.T) {
	data := Match("CeraVe", "PM Lotion", matcher.Result{Reason: matcher.NoBrandMatch})
	assert.Len(t, data.Rows, 3)

	data = Match("CeraVe", "PM Lotion", matcher.Result{
		Candidate: &matcher.Candidate{ID: "p-1", Brand: "CeraVe", Name: "PM Facial Moisturizing Lotion"},
		Score:     0.8,
		Reason:    matcher.Fuzzy,
	})
	assert.Contains(t, data.Rows, []string{"Score", "0.80"})
	assert.Contains(t, data.Rows, []string{"Product", "p-1"})
}

func TestRisk(t *testing.T) {
	data := Risk(catalogs.RiskProfile{}, nil)
	assert.Contains(t, data.Rows, []string{"Flags", "none"})

	data = Risk(catalogs.RiskProfile{Flags: []catalogs.Flag{catalogs.FlagStrongAcid, catalogs.FlagHighIrritation}, BurnRate: 0.15}, []string{"BHA (Salicylic Acid)"})
	assert.Contains(t, data.Rows, []string{"Flags", "strong_acid, high_irritation"})
	assert.Contains(t, data.Rows, []string{"Key Actives", "BHA (Salicylic Acid)"})
}
