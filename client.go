// Package skinmap is the entry point of the skincare product knowledge base
// engine. It resolves the identity of incoming product records, merges their
// evidence into one canonical entry per product and derives a conservative
// safety classification from the ingredient text.
//
// A Client wires the canonical store, the identity index, the optional
// annotation backends and the capability flags into one versioned engine:
//
//	sm, err := skinmap.New(ctx,
//	    skinmap.WithDatabase("kb.db"),
//	    skinmap.WithCapabilities(skinmap.Capabilities{Annotation: true, Crosswalk: true}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sm.Close()
//
//	summary, err := sm.IngestFile(ctx, "products.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(summary)
package skinmap

import (
	"context"
	"sync"

	"github.com/agentstation/skinmap/internal/config"
	"github.com/agentstation/skinmap/internal/matcher"
	"github.com/agentstation/skinmap/pkg/annotation"
	"github.com/agentstation/skinmap/pkg/catalogs"
	"github.com/agentstation/skinmap/pkg/crosswalk"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/ingest"
	"github.com/agentstation/skinmap/pkg/logging"
	"github.com/agentstation/skinmap/pkg/records"
	"github.com/agentstation/skinmap/pkg/store"
	"github.com/agentstation/skinmap/pkg/store/sqlite"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Ingester runs records through the identity and merge pipeline.
type Ingester interface {
	// Ingest runs recs. Options override the client defaults for this run.
	Ingest(ctx context.Context, recs []*records.Record, opts ...ingest.Option) (*ingest.Summary, error)

	// IngestFile reads a CSV, JSON, JSONL or YAML file and ingests it.
	IngestFile(ctx context.Context, path string, opts ...ingest.Option) (*ingest.Summary, error)
}

// Matcher resolves a (brand, name) pair against the canonical products.
type Matcher interface {
	Match(ctx context.Context, brand, name string) (matcher.Result, error)
}

// Classifier derives the safety classification of an ingredient text.
type Classifier interface {
	Classify(productName, ingredientText string) Classification
}

// Crosswalk reports and cleans up ambiguous external references.
type Crosswalk interface {
	// Conflicts runs recs without committing and reports the crosswalk
	// conflicts they raise.
	Conflicts(ctx context.Context, recs []*records.Record) (*crosswalk.Report, error)

	// Cleanup deletes every slot named by report and returns the number of
	// mappings removed.
	Cleanup(ctx context.Context, report *crosswalk.Report) (int, error)
}

// Client is a versioned engine over one canonical store.
type Client interface {
	Ingester
	Matcher
	Classifier
	Crosswalk
	Hooks

	// Capabilities returns the capability set the client was built with
	Capabilities() Capabilities

	// Store returns the canonical store
	Store() store.Repository

	// Close releases the store
	Close() error
}

// Classification is the derived safety view of one product.
type Classification struct {
	Risk       catalogs.RiskProfile `json:"risk" yaml:"risk"`
	KeyActives []string             `json:"key_actives" yaml:"key_actives"`
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options

	mu         sync.Mutex // serializes runs; the pipeline is the sole writer
	repo       store.Repository
	index      *store.Index
	annotation annotation.Service
	resolver   *crosswalk.Resolver
	*hooks
}

// New creates a Client. When the Annotation capability is on and no
// service was given, the Gemini backend is built from GEMINI_API_KEY or
// GOOGLE_API_KEY; missing credentials are a fatal ConfigError.
func New(ctx context.Context, opts ...Option) (Client, error) {
	o := defaultOptions()
	if err := o.apply(opts...); err != nil {
		return nil, err
	}

	svc, err := newAnnotation(ctx, o)
	if err != nil {
		return nil, err
	}

	repo := o.repo
	if repo == nil {
		if o.dbPath != "" {
			if repo, err = sqlite.Open(o.dbPath); err != nil {
				return nil, err
			}
		} else {
			repo = store.NewMemory()
		}
	}

	var skip []crosswalk.Option
	for _, t := range o.skipRefTypes {
		skip = append(skip, crosswalk.WithoutRefType(t[0], t[1]))
	}

	logging.FromContext(ctx).Debug().
		Str("version", Version).
		Bool("annotation", svc != nil).
		Bool("crosswalk", o.capabilities.Crosswalk).
		Msg("Engine ready")

	return &client{
		options:    o,
		repo:       repo,
		index:      store.NewIndex(repo, nil),
		annotation: svc,
		resolver:   crosswalk.NewResolver(skip...),
		hooks:      newHooks(),
	}, nil
}

// newAnnotation builds the annotation backends the capabilities ask for,
// behind the estimate cache when one is configured.
func newAnnotation(ctx context.Context, o *options) (annotation.Service, error) {
	if !o.capabilities.Annotation {
		return nil, nil
	}
	if o.annotation != nil {
		return annotation.WithCache(o.annotation, o.cacheTTL), nil
	}

	key, err := config.APIKey(annotation.GeminiAPIKeyNames...)
	if err != nil {
		return nil, err
	}
	gemini, err := annotation.NewGemini(ctx, annotation.GeminiConfig{APIKey: key, Model: o.geminiModel})
	if err != nil {
		return nil, err
	}
	svc := annotation.WithRetry(gemini, o.retry)
	if o.capabilities.SocialStats {
		cfg := o.social
		if cfg.APIKey == "" {
			if cfg.APIKey, err = config.APIKey(annotation.SocialAPIKeyNames...); err != nil {
				return nil, err
			}
		}
		social, err := annotation.NewSocial(cfg)
		if err != nil {
			return nil, err
		}
		svc = annotation.Combine(svc, annotation.WithRetry(social, o.retry))
	}
	return annotation.WithCache(svc, o.cacheTTL), nil
}

// Capabilities returns the capability set.
func (c *client) Capabilities() Capabilities {
	return c.options.capabilities
}

// Store returns the canonical store.
func (c *client) Store() store.Repository {
	return c.repo
}

// Close closes the store.
func (c *client) Close() error {
	return c.repo.Close()
}

// orchestrator builds an orchestrator with the client defaults, then opts.
func (c *client) orchestrator(opts ...ingest.Option) (*ingest.Orchestrator, error) {
	caps := c.options.capabilities
	base := []ingest.Option{
		ingest.WithVersion(Version),
		ingest.WithPolicy(c.options.policy),
		ingest.WithSourceOfTruth(c.options.sourceOfTruth),
		ingest.WithResolver(c.resolver),
		ingest.WithAllowOverwrite(c.options.allowOverwrite),
		ingest.WithLenient(c.options.lenient),
		ingest.WithRunLog(c.options.runLog),
		ingest.WithCapabilities(caps.KeyActives, caps.Aliases, caps.DerivedSnippets, caps.Crosswalk),
	}
	if c.annotation != nil {
		base = append(base, ingest.WithAnnotation(c.annotation))
	}
	return ingest.New(c.repo, c.index, append(base, opts...)...)
}

// Ingest runs recs through the pipeline and fires the hooks of a
// committed run.
func (c *client) Ingest(ctx context.Context, recs []*records.Record, opts ...ingest.Option) (*ingest.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	orch, err := c.orchestrator(opts...)
	if err != nil {
		return nil, err
	}
	summary, err := orch.Run(ctx, recs)
	c.hooks.trigger(summary)
	return summary, err
}

// IngestFile reads path and ingests its records.
func (c *client) IngestFile(ctx context.Context, path string, opts ...ingest.Option) (*ingest.Summary, error) {
	recs, err := records.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.Ingest(ctx, recs, opts...)
}

// Match resolves (brand, name) against the canonical products.
func (c *client) Match(ctx context.Context, brand, name string) (matcher.Result, error) {
	if err := c.index.Load(ctx); err != nil {
		return matcher.Result{}, err
	}
	return c.index.Match(brand, name), nil
}

// Classify derives the risk profile and key actives of an ingredient text
// without advisory hints.
func (c *client) Classify(productName, ingredientText string) Classification {
	risk := c.options.policy.Profile(productName, ingredientText, nil, nil)
	risk.Version = Version
	out := Classification{Risk: risk}
	if c.options.capabilities.KeyActives {
		out.KeyActives = c.options.policy.KeyActives(ingredientText, "")
	}
	return out
}

// Conflicts runs recs as a dry run with annotation off and returns the
// crosswalk conflicts.
func (c *client) Conflicts(ctx context.Context, recs []*records.Record) (*crosswalk.Report, error) {
	summary, err := c.Ingest(ctx, recs, ingest.WithDryRun(true), ingest.WithAnnotation(nil), ingest.WithLenient(true))
	if err != nil {
		return nil, err
	}
	return summary.Conflicts, nil
}

// Cleanup deletes the ambiguous slots of report.
func (c *client) Cleanup(ctx context.Context, report *crosswalk.Report) (int, error) {
	if report == nil || report.Len() == 0 {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.repo.DeleteMappings(ctx, report.Keys())
	if err != nil {
		return n, errors.WrapResource("delete", "crosswalk mappings", "", err)
	}
	logging.FromContext(ctx).Info().
		Int("slots", len(report.Keys())).
		Int("deleted", n).
		Msg("Removed ambiguous crosswalk mappings")
	return n, nil
}
