package logging

import (
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// Config holds the logging options, read from the environment.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is one of text, json.
	Format string
	// AddSource attaches the source file position to each record.
	AddSource bool
}

// NewConfigFromEnv builds a logging config from LOG_LEVEL, LOG_FORMAT and
// LOG_ADD_SOURCE, with sensible defaults when they are unset.
func NewConfigFromEnv() *Config {
	return &Config{
		Level:     envOrDefault("LOG_LEVEL", "info"),
		Format:    envOrDefault("LOG_FORMAT", "text"),
		AddSource: strings.EqualFold(os.Getenv("LOG_ADD_SOURCE"), "true"),
	}
}

// Init sets up the process-wide slog logger. Passing nil uses the
// environment-derived config.
func Init(cfg *Config) {
	if cfg == nil {
		cfg = NewConfigFromEnv()
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	defaultLogger = slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", "solidity-audit-bot"),
	}))
	slog.SetDefault(defaultLogger)
}

// Get returns the process logger, initializing it from the environment if
// Init has not been called yet.
func Get() *slog.Logger {
	if defaultLogger == nil {
		Init(nil)
	}
	return defaultLogger
}

// NewModuleLogger returns a logger annotated with the given module and
// component names.
func NewModuleLogger(module, component string) *slog.Logger {
	return Get().With(
		slog.String("module", module),
		slog.String("component", component),
	)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
