package ingest

import (
	"io"

	"github.com/agentstation/skinmap/pkg/annotation"
	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/crosswalk"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/identity"
	"github.com/agentstation/skinmap/pkg/provenance"
	"github.com/agentstation/skinmap/pkg/safety"
)

// Options controls one ingestion run.
type Options struct {
	// Run control
	DryRun         bool // Run the whole pipeline but commit nothing
	AllowOverwrite bool // Let incoming exclusive fields replace existing ones
	Lenient        bool // Count invalid rows instead of aborting the run

	// Precedence
	SourceOfTruth string // Source label whose ingredients and category win

	// Collaborators
	Annotation annotation.Service // Nil disables annotation
	Policy     *safety.Policy
	Keyer      *identity.Keyer
	Resolver   *crosswalk.Resolver
	Tracker    provenance.Tracker
	RunLog     io.Writer // Optional CSV run log

	// Capabilities
	KeyActives      bool
	Aliases         bool
	DerivedSnippets bool
	Crosswalk       bool

	Version string // Stamped on every derived risk profile
}

// Option configures Options.
type Option func(*Options)

// Defaults returns the default options: every capability on, annotation off.
func Defaults() *Options {
	return &Options{
		SourceOfTruth:   constants.SourceOfTruth,
		Policy:          safety.DefaultPolicy(),
		Keyer:           identity.Default(),
		Resolver:        crosswalk.NewResolver(),
		KeyActives:      true,
		Aliases:         true,
		DerivedSnippets: true,
		Crosswalk:       true,
	}
}

// Apply applies opts and returns o.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks the options for a run.
func (o *Options) Validate() error {
	if o.SourceOfTruth == "" {
		return errors.NewValidationError("SourceOfTruth", o.SourceOfTruth, "source of truth label must not be empty")
	}
	if o.Policy == nil {
		return errors.NewValidationError("Policy", nil, "a safety policy is required")
	}
	return o.Policy.Validate()
}

// WithDryRun runs without committing.
func WithDryRun(dryRun bool) Option {
	return func(o *Options) {
		o.DryRun = dryRun
	}
}

// WithAllowOverwrite lets incoming exclusive fields win over existing ones.
func WithAllowOverwrite(allow bool) Option {
	return func(o *Options) {
		o.AllowOverwrite = allow
	}
}

// WithLenient counts invalid rows instead of aborting.
func WithLenient(lenient bool) Option {
	return func(o *Options) {
		o.Lenient = lenient
	}
}

// WithSourceOfTruth sets the authoritative source label.
func WithSourceOfTruth(label string) Option {
	return func(o *Options) {
		o.SourceOfTruth = label
	}
}

// WithAnnotation enables annotation through svc.
func WithAnnotation(svc annotation.Service) Option {
	return func(o *Options) {
		o.Annotation = svc
	}
}

// WithPolicy replaces the safety policy.
func WithPolicy(p *safety.Policy) Option {
	return func(o *Options) {
		if p != nil {
			o.Policy = p
		}
	}
}

// WithKeyer replaces the identity keyer used for aliases.
func WithKeyer(k *identity.Keyer) Option {
	return func(o *Options) {
		if k != nil {
			o.Keyer = k
		}
	}
}

// WithResolver replaces the crosswalk resolver.
func WithResolver(r *crosswalk.Resolver) Option {
	return func(o *Options) {
		if r != nil {
			o.Resolver = r
		}
	}
}

// WithTracker records every merge decision.
func WithTracker(t provenance.Tracker) Option {
	return func(o *Options) {
		o.Tracker = t
	}
}

// WithRunLog writes one CSV row per record to w.
func WithRunLog(w io.Writer) Option {
	return func(o *Options) {
		o.RunLog = w
	}
}

// WithVersion stamps derived risk profiles.
func WithVersion(v string) Option {
	return func(o *Options) {
		o.Version = v
	}
}

// WithCapabilities toggles the optional write steps.
func WithCapabilities(keyActives, aliases, derivedSnippets, crosswalk bool) Option {
	return func(o *Options) {
		o.KeyActives = keyActives
		o.Aliases = aliases
		o.DerivedSnippets = derivedSnippets
		o.Crosswalk = crosswalk
	}
}
