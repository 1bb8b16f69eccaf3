package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Type aliases for commonly used slog types.
type (
	Logger = *slog.Logger
	Level  = slog.Level
)

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Config holds logging settings, read from LOG_* variables.
type Config struct {
	// Output is "stdout", "stderr", "discard" or a file path.
	Output string `env:"OUTPUT" envDefault:"stderr"`

	// Level is one of debug, info, warn, error.
	Level string `env:"LEVEL" envDefault:"info"`

	// JSON switches from text to JSON records.
	JSON bool `env:"JSON" envDefault:"false"`

	OutputHandle io.Writer
}

var (
	Group = slog.Group

	config     Config
	configLock sync.Mutex
)

// Configure sets the process-wide logging configuration. Loggers obtained
// before Configure write nowhere.
func Configure(cfg Config) {
	configLock.Lock()
	defer configLock.Unlock()

	config = cfg

	if cfg.OutputHandle == nil {
		switch cfg.Output {
		case "", "discard":
			config.OutputHandle = io.Discard
		case "stdout":
			config.OutputHandle = os.Stdout
		case "stderr":
			config.OutputHandle = os.Stderr
		default:
			file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				panic(fmt.Errorf("open log file: %w", err))
			}

			config.OutputHandle = file
		}
	}

	slog.SetLogLoggerLevel(ParseLevel(config.Level, LevelInfo))
}

// GetLogger returns a logger tagged with the given component name.
func GetLogger(name string) Logger {
	configLock.Lock()
	cfg := config
	configLock.Unlock()

	output := cfg.OutputHandle
	if output == nil || output == io.Discard {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level, LevelInfo)}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler).With("logger", name)
}

// ParseLevel maps a level name to a slog level, returning fallback for
// unknown names.
func ParseLevel(s string, fallback Level) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return fallback
	}
}
