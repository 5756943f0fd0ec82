package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/skinmap/pkg/annotation"
	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/errors"
)

// EnvPrefix prefixes every skinmap environment variable.
const EnvPrefix = "SKINMAP"

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose  bool
	Quiet    bool
	NoColor  bool
	Format   string
	LogLevel string

	// Config file
	ConfigFile string

	// Engine configuration
	Database      string // SQLite path; empty selects the in-memory store
	PolicyFile    string // YAML safety policy override
	SourceOfTruth string
	Annotate      bool
	SocialStats   bool
	GeminiModel   string
	SocialBaseURL string
	SocialModel   string
	SocialAuth    string
	CacheTTL      time.Duration // Annotation estimate cache lifetime

	// Logging configuration
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (SKINMAP_*)
// 3. .env files
// 4. Config file (~/.skinmap.yaml or ./.skinmap.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	bindAPIKeys()
	setDefaults()

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".skinmap")
	}
	var notFound viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return nil, errors.NewConfigError("config", "reading config file", err)
	}

	return &Config{
		Verbose:  viper.GetBool("verbose"),
		Quiet:    viper.GetBool("quiet"),
		NoColor:  viper.GetBool("no_color"),
		Format:   viper.GetString("format"),
		LogLevel: os.Getenv("LOG_LEVEL"),

		ConfigFile: viper.ConfigFileUsed(),

		Database:      viper.GetString("db"),
		PolicyFile:    viper.GetString("policy"),
		SourceOfTruth: viper.GetString("source_of_truth"),
		Annotate:      viper.GetBool("annotate"),
		SocialStats:   viper.GetBool("social_stats"),
		GeminiModel:   viper.GetString("gemini_model"),
		SocialBaseURL: viper.GetString("social.base_url"),
		SocialModel:   viper.GetString("social.model"),
		SocialAuth:    viper.GetString("social.auth"),
		CacheTTL:      viper.GetDuration("annotation_cache_ttl"),

		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}, nil
}

func setDefaults() {
	viper.SetDefault("db", "skinmap.db")
	viper.SetDefault("source_of_truth", constants.SourceOfTruth)
	viper.SetDefault("gemini_model", annotation.DefaultGeminiModel)
	viper.SetDefault("social.base_url", annotation.DefaultSocialBaseURL)
	viper.SetDefault("social.model", annotation.DefaultSocialModel)
	viper.SetDefault("social.auth", "bearer")
	viper.SetDefault("annotation_cache_ttl", constants.AnnotationCacheTTL)
}

// UpdateFromFlags updates config values from parsed command flags so that
// flags take precedence over the config file and the environment.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads .env then .env.local. Variables already set win.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// bindAPIKeys binds the unprefixed credential variables the annotation
// backends read.
func bindAPIKeys() {
	keys := append(append([]string(nil), annotation.GeminiAPIKeyNames...), annotation.SocialAPIKeyNames...)
	for _, key := range keys {
		if err := viper.BindEnv(key, key); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind environment variable %s: %v\n", key, err)
		}
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
