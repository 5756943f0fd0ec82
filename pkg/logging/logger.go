// Package logging provides structured logging for skinmap using zerolog.
//
// Ingestion is a long sequential batch, so every record carries its own
// logger in the context with run, source and row fields attached:
//
//	ctx = logging.WithRun(ctx, runID)
//	ctx = logging.WithRecord(ctx, "Ingredients_Collected", 12)
//	logging.FromContext(ctx).Info().Str("outcome", "inserted").Msg("Record processed")
//
// Console output is used when stderr is a terminal, JSON otherwise. The
// package logger is configured from LOG_LEVEL, LOG_FORMAT and DEBUG until
// Configure replaces it.
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger = NewLoggerFromConfig(envConfig())

// envConfig builds the configuration of the package logger.
func envConfig() *Config {
	cfg := DefaultConfig()
	cfg.Format = os.Getenv("LOG_FORMAT")
	switch level := os.Getenv("LOG_LEVEL"); {
	case level != "":
		cfg.Level = level
	case os.Getenv("DEBUG") != "":
		cfg.Level = "debug"
	}
	return cfg
}

// Default returns the package logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the package logger and zerolog's global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// Debug starts a debug event on the package logger.
func Debug() *zerolog.Event {
	return defaultLogger.Debug()
}

// Info starts an info event on the package logger.
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn starts a warning event on the package logger.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error starts an error event on the package logger.
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

func terminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
