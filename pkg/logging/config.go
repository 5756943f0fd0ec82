package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/skinmap/pkg/constants"
)

// Config holds logger configuration.
type Config struct {
	Level      string         // trace, debug, info, warn, error or off
	Format     string         // json, console or auto (console on a terminal)
	Output     string         // stderr, stdout, discard or a file path
	TimeFormat string         // kitchen, rfc3339, rfc3339nano, unix or a Go layout
	NoColor    bool           // Plain console output
	AddCaller  bool           // Include file:line, always on at debug and below
	Fields     map[string]any // Attached to every event, e.g. the engine version
}

// DefaultConfig returns an info level logger on stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "auto",
		Output:     "stderr",
		TimeFormat: "kitchen",
		NoColor:    os.Getenv("NO_COLOR") != "",
		Fields:     make(map[string]any),
	}
}

// NewLoggerFromConfig builds a logger and sets the zerolog global level to
// match. A file output that cannot be opened falls back to stderr.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	c := zerolog.New(newWriter(cfg)).Level(level).With().Timestamp()
	if cfg.AddCaller || level <= zerolog.DebugLevel {
		c = c.Caller()
	}
	for k, v := range cfg.Fields {
		c = addField(c, k, v)
	}
	return c.Logger()
}

// Configure replaces the package logger.
func Configure(cfg *Config) {
	SetDefault(NewLoggerFromConfig(cfg))
}

func newWriter(cfg *Config) io.Writer {
	out := os.Stderr
	var w io.Writer = out
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
	case "stdout":
		out, w = os.Stdout, os.Stdout
	case "discard", "none":
		out, w = nil, io.Discard
	default:
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions); err == nil {
			out, w = nil, f
		}
	}

	console := false
	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		console = true
	case "", "auto":
		console = out != nil && terminal(out)
	}
	if !console {
		return w
	}
	return zerolog.ConsoleWriter{Out: w, TimeFormat: parseTimeFormat(cfg.TimeFormat), NoColor: cfg.NoColor}
}

var levelAliases = map[string]zerolog.Level{
	"warning":  zerolog.WarnLevel,
	"disabled": zerolog.Disabled,
	"none":     zerolog.Disabled,
	"off":      zerolog.Disabled,
}

// parseLevel parses a level name. Unknown names mean info.
func parseLevel(name string) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if l, ok := levelAliases[name]; ok {
		return l
	}
	if name == "" {
		return zerolog.InfoLevel
	}
	if l, err := zerolog.ParseLevel(name); err == nil {
		return l
	}
	return zerolog.InfoLevel
}

var timeFormats = map[string]string{
	"":            time.Kitchen,
	"kitchen":     time.Kitchen,
	"rfc3339":     time.RFC3339,
	"rfc3339nano": time.RFC3339Nano,
	"unix":        "",
	"epoch":       "",
}

func parseTimeFormat(name string) string {
	if f, ok := timeFormats[strings.ToLower(name)]; ok {
		return f
	}
	if strings.Contains(name, "2006") || strings.Contains(name, "15:04") {
		return name
	}
	return time.Kitchen
}

// addField attaches a typed field. Errors under "error" or "err" use the
// zerolog error field.
func addField(c zerolog.Context, key string, value any) zerolog.Context {
	switch v := value.(type) {
	case string:
		return c.Str(key, v)
	case int:
		return c.Int(key, v)
	case bool:
		return c.Bool(key, v)
	case float64:
		return c.Float64(key, v)
	case time.Duration:
		return c.Dur(key, v)
	case error:
		if key == "error" || key == "err" {
			return c.Err(v)
		}
		return c.Str(key, v.Error())
	default:
		return c.Interface(key, v)
	}
}
