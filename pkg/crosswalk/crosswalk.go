// Package crosswalk maps external references onto canonical products.
//
// A crosswalk slot is (source system, source type, normalized reference)
// and belongs to at most one product. A claim on a slot owned by another
// product is a conflict: it is reported and never written. Conflicts are
// resolved only by an explicit cleanup that deletes the ambiguous slot.
package crosswalk

import (
	"context"
	"fmt"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/logging"
	"github.com/agentstation/skinmap/pkg/normalize"
	"github.com/agentstation/skinmap/pkg/records"
	"github.com/agentstation/skinmap/pkg/store"
)

// Resolution is the only resolution a conflict report proposes.
const Resolution = "DELETE_AMBIGUOUS_SOURCE_REF_MAPPING"

// Outcome is the result of one claim.
type Outcome string

// Claim outcomes.
const (
	Inserted  Outcome = "inserted"
	Updated   Outcome = "updated"
	Unchanged Outcome = "unchanged"
	Conflict  Outcome = "conflict"
	Skipped   Outcome = "skipped" // The reference normalized to nothing
)

// String returns the outcome name.
func (o Outcome) String() string {
	return string(o)
}

// RefType is a (system, type) pair.
type RefType struct {
	System string
	Type   string
}

// String returns "system/type".
func (t RefType) String() string {
	return t.System + "/" + t.Type
}

// DefaultRefs holds the confidence of each well-known reference type.
var DefaultRefs = map[RefType]int{
	{System: constants.CatalogSystem, Type: "product_id"}: 100,
	{System: "harvester", Type: "candidate_id"}:           80,
	{System: "pivota", Type: "product_id"}:                95,
	{System: "pivota", Type: "external_product_id"}:       95,
	{System: "pivota", Type: "external_seed_id"}:          90,
	{System: "merchant", Type: "canonical_url"}:           90,
	{System: "merchant", Type: "source_ref_url"}:          85,
}

// DefaultConfidence is used for reference types missing from DefaultRefs.
const DefaultConfidence = 50

// Confidence returns the default confidence of a reference type.
func Confidence(system, typ string) int {
	if c, ok := DefaultRefs[RefType{System: system, Type: typ}]; ok {
		return c
	}
	return DefaultConfidence
}

// Claim asks for an external reference to map to a product.
type Claim struct {
	SourceSystem string
	SourceType   string
	ExternalRef  string
	ProductID    uuid.UUID
	Confidence   int // Zero selects the default confidence of the type

	// Provenance, stored as mapping metadata
	Source   string
	RowIndex int

	// Context reported with a conflict
	Brand       string
	Name        string
	CandidateID string
}

// Key returns the slot the claim targets.
func (c Claim) Key() catalogs.MappingKey {
	return catalogs.MappingKey{
		SourceSystem:  c.SourceSystem,
		SourceType:    c.SourceType,
		NormalizedRef: normalize.Ref(c.SourceType, c.ExternalRef),
	}
}

func (c Claim) metadata() map[string]any {
	return map[string]any{"source": c.Source, "row_index": c.RowIndex}
}

// ConflictRecord describes a refused claim.
type ConflictRecord struct {
	SourceSystem      string
	SourceType        string
	ExternalRef       string
	NormalizedRef     string
	ExistingProductID uuid.UUID
	IncomingProductID uuid.UUID
	IncomingBrand     string
	IncomingName      string
	CandidateID       string
	Resolution        string
}

// Key returns the ambiguous slot.
func (c ConflictRecord) Key() catalogs.MappingKey {
	return catalogs.MappingKey{SourceSystem: c.SourceSystem, SourceType: c.SourceType, NormalizedRef: c.NormalizedRef}
}

// Err returns the conflict as an error.
func (c ConflictRecord) Err() *errors.CrosswalkConflictError {
	return &errors.CrosswalkConflictError{
		SourceSystem:  c.SourceSystem,
		SourceType:    c.SourceType,
		NormalizedRef: c.NormalizedRef,
		ExistingID:    c.ExistingProductID.String(),
		IncomingID:    c.IncomingProductID.String(),
	}
}

func conflictFor(claim Claim, existing catalogs.Mapping) *ConflictRecord {
	ref := existing.ExternalRef
	if ref == "" {
		ref = claim.ExternalRef
	}
	return &ConflictRecord{
		SourceSystem:      claim.SourceSystem,
		SourceType:        claim.SourceType,
		ExternalRef:       ref,
		NormalizedRef:     existing.NormalizedRef,
		ExistingProductID: existing.ProductID,
		IncomingProductID: claim.ProductID,
		IncomingBrand:     claim.Brand,
		IncomingName:      claim.Name,
		CandidateID:       claim.CandidateID,
		Resolution:        Resolution,
	}
}

// Result is the outcome of one Upsert.
type Result struct {
	Outcome  Outcome
	Mapping  catalogs.Mapping // Mapping as stored after the claim
	Conflict *ConflictRecord  // Set only for Conflict
}

// Resolver applies claims inside a store transaction.
type Resolver struct {
	skip map[RefType]bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithoutRefType stops Claims from producing references of a type. The
// merchant source_ref_url type is the usual candidate, since listing URLs
// are often shared between variants.
func WithoutRefType(system, typ string) Option {
	return func(r *Resolver) {
		r.skip[RefType{System: system, Type: typ}] = true
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{skip: make(map[RefType]bool)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Claims returns the claims a record makes for product: the catalog's own
// product ID, then every reference the record carries, deduplicated by slot.
func (r *Resolver) Claims(rec *records.Record, productID uuid.UUID) []Claim {
	base := Claim{
		ProductID: productID,
		Source:    rec.Source,
		RowIndex:  rec.RowIndex,
		Brand:     rec.Brand,
		Name:      rec.Name,
	}
	for _, ref := range rec.Refs {
		if ref.System == "harvester" && ref.Type == "candidate_id" {
			base.CandidateID = ref.Value
		}
	}

	refs := append([]records.Ref{{System: constants.CatalogSystem, Type: "product_id", Value: productID.String()}}, rec.Refs...)
	seen := make(map[catalogs.MappingKey]bool, len(refs))
	claims := make([]Claim, 0, len(refs))
	for _, ref := range refs {
		if r.skip[RefType{System: ref.System, Type: ref.Type}] {
			continue
		}
		c := base
		c.SourceSystem, c.SourceType, c.ExternalRef = ref.System, ref.Type, ref.Value
		key := c.Key()
		if key.NormalizedRef == "" || seen[key] {
			continue
		}
		seen[key] = true
		claims = append(claims, c)
	}
	return claims
}

// Upsert applies one claim. A slot owned by another product is left as is
// and reported as a conflict.
func (r *Resolver) Upsert(ctx context.Context, tx store.Tx, claim Claim) (Result, error) {
	key := claim.Key()
	if key.NormalizedRef == "" {
		return Result{Outcome: Skipped}, nil
	}
	if claim.ProductID == uuid.Nil {
		return Result{}, errors.NewValidationError("product_id", claim.ExternalRef, "claim has no product")
	}
	confidence := claim.Confidence
	if confidence == 0 {
		confidence = Confidence(claim.SourceSystem, claim.SourceType)
	}

	existing, err := tx.Mapping(ctx, key)
	switch {
	case errors.IsNotFound(err):
		m := catalogs.Mapping{
			SourceSystem:  key.SourceSystem,
			SourceType:    key.SourceType,
			ExternalRef:   claim.ExternalRef,
			NormalizedRef: key.NormalizedRef,
			ProductID:     claim.ProductID,
			Confidence:    confidence,
			Metadata:      claim.metadata(),
			UpdatedAt:     utc.Now(),
		}
		if err := tx.SaveMapping(ctx, m); err != nil {
			return Result{}, err
		}
		return Result{Outcome: Inserted, Mapping: m}, nil
	case err != nil:
		return Result{}, err
	}

	if existing.ProductID != claim.ProductID {
		conflict := conflictFor(claim, existing)
		logging.FromContext(ctx).Warn().
			Str("slot", key.String()).
			Str("existing_product_id", existing.ProductID.String()).
			Str("incoming_product_id", claim.ProductID.String()).
			Msg("Crosswalk conflict")
		return Result{Outcome: Conflict, Mapping: existing, Conflict: conflict}, nil
	}

	metadata := claim.metadata()
	if existing.Confidence == confidence && sameMetadata(existing.Metadata, metadata) {
		return Result{Outcome: Unchanged, Mapping: existing}, nil
	}
	existing.Confidence = confidence
	existing.Metadata = metadata
	existing.UpdatedAt = utc.Now()
	if err := tx.SaveMapping(ctx, existing); err != nil {
		return Result{}, err
	}
	return Result{Outcome: Updated, Mapping: existing}, nil
}

// sameMetadata compares metadata by printed value, so numbers decoded from
// JSON equal the integers they were encoded from.
func sameMetadata(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || fmt.Sprint(v) != fmt.Sprint(w) {
			return false
		}
	}
	return true
}

// Detect reports the conflicts claims would raise against existing
// mappings, without writing anything.
func Detect(existing []catalogs.Mapping, claims []Claim) *Report {
	bySlot := make(map[catalogs.MappingKey]catalogs.Mapping, len(existing))
	for _, m := range existing {
		bySlot[m.Key()] = m
	}

	report := &Report{}
	for _, claim := range claims {
		key := claim.Key()
		if key.NormalizedRef == "" || claim.ProductID == uuid.Nil {
			continue
		}
		m, ok := bySlot[key]
		if !ok || m.ProductID == claim.ProductID {
			continue
		}
		report.Add(*conflictFor(claim, m))
	}
	return report
}
