package ingest

import (
	"context"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/crosswalk"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/evidence"
	"github.com/agentstation/skinmap/pkg/normalize"
	"github.com/agentstation/skinmap/pkg/records"
	"github.com/agentstation/skinmap/pkg/store"
)

// Derived snippet field labels.
const (
	FieldKeyActives       = "key_actives"
	FieldSensitivityFlags = "sensitivity_flags"
)

// canonicalKeySource marks canonical keys assigned by the label rules.
const canonicalKeySource = "label_rules"

// writeSnippets stores every evidence cell of the record under its source
// label, plus the derived key actives and sensitivity flags.
func (o *Orchestrator) writeSnippets(ctx context.Context, tx store.Tx, rec *records.Record, p *catalogs.Product, _ *Outcome) (int, error) {
	source := strings.TrimSpace(rec.Source)
	if source == "" {
		source = "input"
	}

	writes := 0
	for _, label := range rec.EvidenceLabels() {
		text := strings.TrimSpace(rec.Evidence[label])
		if text == "" {
			continue
		}
		s := catalogs.Snippet{
			ProductID:   p.ID,
			SourceLabel: source,
			FieldLabel:  normalize.Label(label),
			Content:     text,
			Metadata:    snippetMetadata(p, evidence.ClassifyLabel(label)),
		}
		n, err := saveSnippet(ctx, tx, s, true)
		if err != nil {
			return writes, err
		}
		writes += n
	}

	if !o.opts.DerivedSnippets {
		return writes, nil
	}

	var derived []catalogs.Snippet
	if o.opts.KeyActives {
		if actives := o.opts.Policy.KeyActives(ingredientText(p), p.Evidence.KeyActives); len(actives) > 0 {
			derived = append(derived, catalogs.Snippet{
				ProductID:   p.ID,
				SourceLabel: constants.DerivedSourceLabel,
				FieldLabel:  FieldKeyActives,
				Content:     strings.Join(actives, " | "),
				Metadata:    snippetMetadata(p, evidence.KeyActives),
			})
		}
	}
	if flags := p.Risk.Strings(); len(flags) > 0 {
		derived = append(derived, catalogs.Snippet{
			ProductID:   p.ID,
			SourceLabel: constants.DerivedSourceLabel,
			FieldLabel:  FieldSensitivityFlags,
			Content:     strings.Join(flags, ", "),
			Metadata:    snippetMetadata(p, evidence.KeySensitivity),
		})
	}
	for _, s := range derived {
		n, err := saveSnippet(ctx, tx, s, false)
		if err != nil {
			return writes, err
		}
		writes += n
	}
	return writes, nil
}

func snippetMetadata(p *catalogs.Product, canonicalKey string) map[string]any {
	meta := map[string]any{
		catalogs.MetaBrand: p.Brand,
		catalogs.MetaName:  p.Name,
	}
	if canonicalKey != "" {
		meta[catalogs.MetaCanonicalKey] = canonicalKey
		meta[catalogs.MetaCanonicalKeySource] = canonicalKeySource
	}
	return meta
}

// saveSnippet writes s unless the slot already holds the same content.
// Sourced snippets accumulate fragments; derived ones are replaced.
func saveSnippet(ctx context.Context, tx store.Tx, s catalogs.Snippet, join bool) (int, error) {
	existing, err := tx.Snippet(ctx, s.Key())
	switch {
	case errors.IsNotFound(err):
		if join {
			s.Content = evidence.DedupeJoin("", s.Content)
		}
	case err != nil:
		return 0, err
	default:
		if join {
			s.Content = evidence.DedupeJoin(existing.Content, s.Content)
		}
		if s.Content == existing.Content && existing.CanonicalKey() == s.CanonicalKey() {
			return 0, nil
		}
	}
	s.UpdatedAt = utc.Now()
	if err := tx.SaveSnippet(ctx, s); err != nil {
		return 0, err
	}
	return 1, nil
}

// writeAliases adds the default aliases the product does not carry yet.
// A stored alias keeps its weight unless the new kind is heavier.
func (o *Orchestrator) writeAliases(ctx context.Context, tx store.Tx, _ *records.Record, p *catalogs.Product, _ *Outcome) (int, error) {
	if !o.opts.Aliases {
		return 0, nil
	}
	stored, err := tx.Aliases(ctx, p.ID)
	if err != nil {
		return 0, err
	}
	weights := make(map[string]int, len(stored))
	for _, a := range stored {
		weights[a.NormalizedAlias] = a.Weight
	}

	writes := 0
	for _, a := range o.opts.Keyer.DefaultAliases(p.Brand, p.Name) {
		if w, ok := weights[a.Key]; ok && w >= a.Weight {
			continue
		}
		err := tx.SaveAlias(ctx, catalogs.Alias{
			ProductID:       p.ID,
			Alias:           a.Text,
			NormalizedAlias: a.Key,
			Kind:            string(a.Kind),
			Weight:          a.Weight,
		})
		if err != nil {
			return writes, err
		}
		writes++
	}
	return writes, nil
}

// writeCrosswalk applies the record's crosswalk claims. Conflicts are
// collected on the outcome and never fail the record.
func (o *Orchestrator) writeCrosswalk(ctx context.Context, tx store.Tx, rec *records.Record, p *catalogs.Product, out *Outcome) (int, error) {
	if !o.opts.Crosswalk {
		return 0, nil
	}
	writes := 0
	for _, claim := range o.opts.Resolver.Claims(rec, p.ID) {
		res, err := o.opts.Resolver.Upsert(ctx, tx, claim)
		if err != nil {
			return writes, err
		}
		out.Crosswalk = append(out.Crosswalk, res)
		if res.Outcome == crosswalk.Inserted || res.Outcome == crosswalk.Updated {
			writes++
		}
	}
	return writes, nil
}
