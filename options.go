package skinmap

import (
	"io"
	"time"

	"github.com/agentstation/skinmap/pkg/annotation"
	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/safety"
	"github.com/agentstation/skinmap/pkg/store"
)

// Option is a function that configures a Client instance.
type Option func(*options) error

// options holds the configuration of a Client.
type options struct {
	repo   store.Repository
	dbPath string

	capabilities  Capabilities
	policy        *safety.Policy
	sourceOfTruth string

	annotation   annotation.Service
	geminiModel  string
	social       annotation.SocialConfig
	retry        *annotation.RetryOptions
	cacheTTL     time.Duration
	skipRefTypes [][2]string

	allowOverwrite bool
	lenient        bool
	runLog         io.Writer
}

func defaultOptions() *options {
	return &options{
		capabilities:  DefaultCapabilities(),
		policy:        safety.DefaultPolicy(),
		sourceOfTruth: constants.SourceOfTruth,
		geminiModel:   annotation.DefaultGeminiModel,
		retry:         annotation.DefaultRetryOptions(),
	}
}

func (o *options) apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

// WithStore uses repo as the canonical store. The client takes ownership
// and closes it on Close.
func WithStore(repo store.Repository) Option {
	return func(o *options) error {
		if repo == nil {
			return errors.NewValidationError("store", nil, "store must not be nil")
		}
		o.repo = repo
		return nil
	}
}

// WithDatabase opens the SQLite database at path as the canonical store.
func WithDatabase(path string) Option {
	return func(o *options) error {
		if path == "" {
			return errors.NewValidationError("database", path, "database path must not be empty")
		}
		o.dbPath = path
		return nil
	}
}

// WithCapabilities replaces the capability set.
func WithCapabilities(c Capabilities) Option {
	return func(o *options) error {
		o.capabilities = c
		return nil
	}
}

// WithAnnotation toggles the annotation capabilities and leaves the rest
// of the capability set as is. Social stats need annotation.
func WithAnnotation(enabled, socialStats bool) Option {
	return func(o *options) error {
		o.capabilities.Annotation = enabled
		o.capabilities.SocialStats = enabled && socialStats
		return nil
	}
}

// WithPolicy replaces the safety policy.
func WithPolicy(p *safety.Policy) Option {
	return func(o *options) error {
		if p == nil {
			return errors.NewValidationError("policy", nil, "policy must not be nil")
		}
		if err := p.Validate(); err != nil {
			return err
		}
		o.policy = p
		return nil
	}
}

// WithSourceOfTruth sets the source label whose ingredients and category win.
func WithSourceOfTruth(label string) Option {
	return func(o *options) error {
		o.sourceOfTruth = label
		return nil
	}
}

// WithAnnotationService annotates through svc instead of the configured
// backends. It also turns the Annotation capability on. Retries are not
// added around svc.
func WithAnnotationService(svc annotation.Service) Option {
	return func(o *options) error {
		o.annotation = svc
		o.capabilities.Annotation = svc != nil
		return nil
	}
}

// WithGeminiModel selects the Gemini model.
func WithGeminiModel(model string) Option {
	return func(o *options) error {
		if model != "" {
			o.geminiModel = model
		}
		return nil
	}
}

// WithSocialConfig configures the social-stats backend. An empty API key
// is resolved from the environment.
func WithSocialConfig(cfg annotation.SocialConfig) Option {
	return func(o *options) error {
		o.social = cfg
		return nil
	}
}

// WithRetryOptions bounds the retries of the configured backends.
func WithRetryOptions(r *annotation.RetryOptions) Option {
	return func(o *options) error {
		o.retry = r
		return nil
	}
}

// WithAnnotationCache reuses estimates for ttl, so a product re-ingested
// with the same ingredient text is not annotated again. Zero disables it.
func WithAnnotationCache(ttl time.Duration) Option {
	return func(o *options) error {
		if ttl < 0 {
			return errors.NewValidationError("annotation_cache_ttl", ttl, "must not be negative")
		}
		o.cacheTTL = ttl
		return nil
	}
}

// WithoutRefType stops ingestion from claiming references of a type.
func WithoutRefType(system, typ string) Option {
	return func(o *options) error {
		o.skipRefTypes = append(o.skipRefTypes, [2]string{system, typ})
		return nil
	}
}

// WithAllowOverwrite lets incoming exclusive fields replace existing ones.
func WithAllowOverwrite(allow bool) Option {
	return func(o *options) error {
		o.allowOverwrite = allow
		return nil
	}
}

// WithLenient counts invalid rows instead of aborting the run.
func WithLenient(lenient bool) Option {
	return func(o *options) error {
		o.lenient = lenient
		return nil
	}
}

// WithRunLog writes one CSV row per ingested record to w.
func WithRunLog(w io.Writer) Option {
	return func(o *options) error {
		o.runLog = w
		return nil
	}
}
