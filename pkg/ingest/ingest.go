// Package ingest drives input records through identity resolution, evidence
// merge, safety classification and crosswalk resolution.
//
// Records are processed one at a time in input order. Each record's writes
// share one store transaction: they all commit or none do. A dry run does
// every step and rolls every transaction back. Cancellation is honored
// between records only, so committed records always stay valid.
package ingest

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/agentstation/skinmap/pkg/annotation"
	"github.com/agentstation/skinmap/pkg/authority"
	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/differ"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/evidence"
	"github.com/agentstation/skinmap/pkg/logging"
	"github.com/agentstation/skinmap/pkg/records"
	"github.com/agentstation/skinmap/pkg/store"
)

// Orchestrator runs ingestion against a repository.
type Orchestrator struct {
	repo   store.Repository
	index  *store.Index
	opts   *Options
	merger *evidence.Merger
	differ differ.Differ
	runLog *RunLog
}

// New creates an orchestrator. A nil index builds one over repo.
func New(repo store.Repository, index *store.Index, opts ...Option) (*Orchestrator, error) {
	o := Defaults().Apply(opts...)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if index == nil {
		index = store.NewIndex(repo, nil)
	}

	mergeOpts := []evidence.Option{
		evidence.WithAuthority(authority.New(authority.WithSourceOfTruth(o.SourceOfTruth))),
		evidence.WithAllowOverwrite(o.AllowOverwrite),
	}
	if o.Tracker != nil {
		mergeOpts = append(mergeOpts, evidence.WithTracker(o.Tracker))
	}

	orch := &Orchestrator{
		repo:   repo,
		index:  index,
		opts:   o,
		merger: evidence.NewMerger(mergeOpts...),
		differ: differ.New(),
	}
	if o.RunLog != nil {
		orch.runLog = NewRunLog(o.RunLog)
	}
	return orch, nil
}

// Options returns the options of the orchestrator.
func (o *Orchestrator) Options() *Options {
	return o.opts
}

// Validate checks every record the source did not exclude by status.
// Rows marked not reviewed or needing a source are left to the seeder.
func Validate(recs []*records.Record) error {
	var errs []error
	for _, rec := range recs {
		if rec.ReviewStatus != "" && !rec.Reviewed() {
			continue
		}
		if rec.ParseStatus == records.StatusNeedsSource {
			continue
		}
		if err := rec.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Preflight checks the store and the input before any write.
func (o *Orchestrator) Preflight(ctx context.Context, recs []*records.Record) error {
	if err := o.repo.Check(ctx); err != nil {
		return err
	}
	if !o.opts.Lenient {
		if err := Validate(recs); err != nil {
			return err
		}
	}
	return nil
}

// Run ingests recs. Per-record errors are counted in the summary; the
// returned error is set only for pre-flight failures and cancellation.
func (o *Orchestrator) Run(ctx context.Context, recs []*records.Record) (*Summary, error) {
	summary := NewSummary(o.opts.DryRun)
	ctx = logging.WithRun(ctx, summary.RunID)
	logger := logging.FromContext(ctx)

	logger.Info().
		Int("records", len(recs)).
		Bool("dry_run", o.opts.DryRun).
		Bool("allow_overwrite", o.opts.AllowOverwrite).
		Bool("annotation", o.opts.Annotation != nil).
		Msg("Starting ingestion")

	if err := o.Preflight(ctx, recs); err != nil {
		summary.Finalize()
		return summary, err
	}
	if err := o.index.Load(ctx); err != nil {
		summary.Finalize()
		return summary, err
	}

	sel := evidence.NewSeeder(evidence.WithExisting(o.index.Contains)).Select(recs)
	summary.Seed = sel.Stats
	summary.Ambiguities = sel.Ambiguities
	for _, amb := range sel.Ambiguities {
		logger.Warn().Err(amb).Msg("Rows share an identity but disagree on ingredients")
	}
	for _, rej := range sel.Rejected {
		o.record(ctx, summary, Outcome{
			Source:   rej.Record.Source,
			RowIndex: rej.Record.RowIndex,
			Brand:    rej.Record.Brand,
			Name:     rej.Record.Name,
			State:    Invalid,
			Err:      rej.Err,
		})
	}

	var runErr error
	for _, rec := range sel.Records {
		if err := ctx.Err(); err != nil {
			summary.Canceled = true
			runErr = fmt.Errorf("%w: %w", errors.ErrCanceled, err)
			break
		}
		o.record(ctx, summary, o.process(ctx, rec))
	}

	summary.Finalize()
	logger.Info().
		Int("inserted", summary.Count(Inserted)).
		Int("merged", summary.Count(Merged)).
		Int("skipped_unchanged", summary.Count(SkippedUnchanged)).
		Int("conflict", summary.Count(Conflict)).
		Int("invalid", summary.Count(Invalid)).
		Int("failed", summary.Count(Failed)).
		Int("crosswalk_conflicts", summary.Conflicts.Len()).
		Dur("duration", summary.Duration).
		Msg("Ingestion finished")
	return summary, runErr
}

func (o *Orchestrator) record(ctx context.Context, summary *Summary, out Outcome) {
	summary.Record(out)
	if o.runLog == nil {
		return
	}
	if err := o.runLog.Write(out); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("Failed to write run log")
	}
}

// process runs one record in its own transaction.
func (o *Orchestrator) process(ctx context.Context, rec *records.Record) Outcome {
	ctx = logging.WithRecord(ctx, rec.Source, rec.RowIndex)
	logger := logging.FromContext(ctx)
	out := Outcome{Source: rec.Source, RowIndex: rec.RowIndex, Brand: rec.Brand, Name: rec.Name}

	tx, err := o.repo.Begin(ctx)
	if err != nil {
		out.State, out.Err = Failed, err
		logger.Error().Err(err).Msg("Failed to begin transaction")
		return out
	}

	structural, err := o.apply(ctx, tx, rec, &out)
	if err != nil {
		_ = tx.Rollback()
		out.State, out.Err = Failed, err
		logger.Error().Err(err).Msg("Record failed, rolled back")
		return out
	}

	if !out.Wrote() || o.opts.DryRun {
		if err := tx.Rollback(); err != nil {
			logger.Warn().Err(err).Msg("Rollback failed")
		}
		logger.Debug().Str("state", out.State.String()).Msg("Record processed")
		return out
	}

	if err := tx.Commit(); err != nil {
		out.State, out.Err = Failed, err
		logger.Error().Err(err).Msg("Commit failed")
		return out
	}
	if structural {
		if err := o.index.Refresh(ctx); err != nil {
			logger.Warn().Err(err).Msg("Identity index refresh failed")
		}
	}
	logger.Debug().
		Str("state", out.State.String()).
		Str("product_id", out.ProductID.String()).
		Msg("Record committed")
	return out
}

// apply does every step of one record inside tx and sets the outcome
// state. It reports whether the write was structural, meaning the index
// must be refreshed after commit.
func (o *Orchestrator) apply(ctx context.Context, tx store.Tx, rec *records.Record, out *Outcome) (bool, error) {
	incoming := evidence.Incoming(rec)

	id, match, found := o.index.Resolve(rec.Brand, rec.Name)
	out.Match = match

	var existing *catalogs.Product
	if found {
		p, err := tx.Product(ctx, id)
		switch {
		case errors.IsNotFound(err):
			found = false
		case err != nil:
			return false, err
		default:
			existing = p
		}
	}

	var res *evidence.Result
	if found {
		res = o.merger.Merge(existing, incoming, rec.Source)
	} else {
		res = o.merger.Create(incoming, rec.Source)
	}
	product := res.Product
	out.ProductID = product.ID
	ctx = logging.WithProduct(ctx, product.ID.String())

	if res.Conflicted() {
		out.Conflicts = res.Conflicts
		if !o.opts.AllowOverwrite {
			out.State, out.Err = Conflict, res.ConflictError()
			logging.FromContext(ctx).Warn().
				Strs("fields", res.Conflicts).
				Msg("Content conflict, record skipped")
			return false, nil
		}
	}

	o.classify(ctx, rec, product, res.Created || res.IngredientsChanged(), out)

	writes := 0
	structural := false
	if res.Created {
		out.Created = product
		structural = true
	} else {
		out.Update = o.differ.Product(existing, product)
		if out.Update != nil {
			paths := out.Update.Paths()
			structural = slices.Contains(paths, "brand") || slices.Contains(paths, "name")
		}
	}
	if res.Created || out.Update != nil {
		if err := tx.SaveProduct(ctx, product); err != nil {
			return false, err
		}
		writes++
	}

	for _, step := range []func(context.Context, store.Tx, *records.Record, *catalogs.Product, *Outcome) (int, error){
		o.writeSnippets,
		o.writeAliases,
		o.writeCrosswalk,
	} {
		n, err := step(ctx, tx, rec, product, out)
		if err != nil {
			return false, err
		}
		writes += n
	}

	switch {
	case res.Created:
		out.State = Inserted
	case res.Conflicted():
		out.State = OverwrittenExplicit
	case writes == 0:
		out.State = SkippedUnchanged
	default:
		out.State = Merged
	}
	return structural, nil
}

// classify refreshes the annotation and the risk profile. Annotation runs
// only when refresh is set, that is for a new product or new ingredients.
// A stored profile from another engine version is re-derived from the
// same ingredients and burn rate.
func (o *Orchestrator) classify(ctx context.Context, rec *records.Record, p *catalogs.Product, refresh bool, out *Outcome) {
	hints := append([]string(nil), rec.Hints...)
	var suggested *float64

	if refresh && o.opts.Annotation != nil {
		est, err := o.opts.Annotation.Annotate(ctx, annotation.Request{
			Brand:          p.Brand,
			Name:           p.Name,
			IngredientText: ingredientText(p),
		})
		if err != nil {
			out.Degraded = true
			logging.FromContext(ctx).Warn().
				Err(err).
				Str("service", o.opts.Annotation.Name()).
				Msg("Annotation unavailable, continuing without advisory hints")
		} else {
			hints = append(hints, est.RiskHints...)
			suggested = est.SuggestedBurnRate
			p.Annotation = est.Annotation()
		}
	}

	if !refresh && p.Risk.Version == o.opts.Version {
		return
	}
	if !refresh && p.Risk.BurnRate > 0 {
		rate := p.Risk.BurnRate
		suggested = &rate
	}
	risk := o.opts.Policy.Profile(p.Name, ingredientText(p), hints, suggested)
	risk.Version = o.opts.Version
	p.Risk = risk
	if p.Annotation != nil && p.Annotation.Social != nil {
		p.Annotation.Social.BurnRate = risk.BurnRate
	}
}

func ingredientText(p *catalogs.Product) string {
	if strings.TrimSpace(p.IngredientText) != "" {
		return p.IngredientText
	}
	return strings.Join(p.Ingredients, ", ")
}
