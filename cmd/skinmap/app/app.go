// Package app wires configuration, logging and the engine for the skinmap
// CLI.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/skinmap"
	"github.com/agentstation/skinmap/cmd/application"
	"github.com/agentstation/skinmap/pkg/annotation"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/logging"
	"github.com/agentstation/skinmap/pkg/safety"
)

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// App holds the configuration, the logger and the shared engine.
type App struct {
	version string
	commit  string
	date    string

	config *Config
	logger *zerolog.Logger

	mu     sync.Mutex
	client skinmap.Client
}

// New creates an App, loading the configuration and building the logger.
func New(version, commit, date string, opts ...Option) (*App, error) {
	a := &App{version: version, commit: commit, date: date}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	a.config = config
	logger := NewLogger(config)
	a.logger = &logger

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Context returns ctx carrying the application logger.
func (a *App) Context(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, a.logger)
}

// Policy returns the default safety policy, or the configured YAML
// override.
func (a *App) Policy() (*safety.Policy, error) {
	if a.config.PolicyFile == "" {
		return safety.DefaultPolicy(), nil
	}
	return safety.LoadPolicy(a.config.PolicyFile)
}

// Client returns the shared engine, creating it on first use. With
// options a new engine is returned and the caller owns it.
func (a *App) Client(opts ...skinmap.Option) (skinmap.Client, error) {
	if len(opts) > 0 {
		return a.newClient(opts...)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}
	sm, err := a.newClient()
	if err != nil {
		return nil, err
	}
	a.client = sm
	return sm, nil
}

func (a *App) newClient(extra ...skinmap.Option) (skinmap.Client, error) {
	opts, err := a.clientOptions()
	if err != nil {
		return nil, err
	}
	ctx := logging.WithLogger(context.Background(), a.logger)
	sm, err := skinmap.New(ctx, append(opts, extra...)...)
	if err != nil {
		return nil, errors.WrapResource("create", "engine", "", err)
	}
	return sm, nil
}

// clientOptions builds engine options from the configuration.
func (a *App) clientOptions() ([]skinmap.Option, error) {
	policy, err := a.Policy()
	if err != nil {
		return nil, err
	}

	caps := skinmap.DefaultCapabilities()
	caps.Annotation = a.config.Annotate
	caps.SocialStats = a.config.Annotate && a.config.SocialStats

	opts := []skinmap.Option{
		skinmap.WithPolicy(policy),
		skinmap.WithCapabilities(caps),
		skinmap.WithSourceOfTruth(a.config.SourceOfTruth),
		skinmap.WithGeminiModel(a.config.GeminiModel),
		skinmap.WithSocialConfig(annotation.SocialConfig{
			BaseURL:    a.config.SocialBaseURL,
			Model:      a.config.SocialModel,
			AuthScheme: a.config.SocialAuth,
		}),
		skinmap.WithAnnotationCache(a.config.CacheTTL),
	}
	if a.config.Database != "" {
		opts = append(opts, skinmap.WithDatabase(a.config.Database))
	}
	return opts, nil
}

// Shutdown closes the shared engine.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets the shared engine (useful for testing).
func WithClient(sm skinmap.Client) Option {
	return func(a *App) error {
		a.client = sm
		return nil
	}
}
