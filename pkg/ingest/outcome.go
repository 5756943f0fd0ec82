package ingest

import (
	"github.com/google/uuid"

	"github.com/agentstation/skinmap/internal/matcher"
	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/crosswalk"
	"github.com/agentstation/skinmap/pkg/differ"
	"github.com/agentstation/skinmap/pkg/identity"
)

// State is the terminal state of one record in one run.
type State string

// Record states.
const (
	Inserted            State = "inserted"
	SkippedUnchanged    State = "skipped_unchanged"
	Merged              State = "merged"
	Conflict            State = "conflict"
	OverwrittenExplicit State = "overwritten_explicit"
	Invalid             State = "invalid"
	Failed              State = "failed"
)

// States lists every state in report order.
var States = []State{Inserted, Merged, SkippedUnchanged, Conflict, OverwrittenExplicit, Invalid, Failed}

// String returns the state name.
func (s State) String() string {
	return string(s)
}

// Outcome is what happened to one record.
type Outcome struct {
	Source   string
	RowIndex int
	Brand    string
	Name     string

	State     State
	ProductID uuid.UUID      // Nil for invalid records
	Match     matcher.Result // Identity match against the index
	Degraded  bool           // Annotation failed and advisory hints were dropped
	Err       error          // Cause of conflict, invalid or failed

	Created   *catalogs.Product     // Set for inserted records
	Update    *differ.ProductUpdate // Field changes of a matched product
	Conflicts []string              // Exclusive fields that differed
	Crosswalk []crosswalk.Result    // One result per claim
}

// IdentityKey returns the identity key of the record.
func (o *Outcome) IdentityKey() string {
	return identity.Key(o.Brand, o.Name)
}

// Wrote reports whether the record changed the store, or would have in a
// dry run.
func (o *Outcome) Wrote() bool {
	switch o.State {
	case Inserted, Merged, OverwrittenExplicit:
		return true
	}
	return false
}
