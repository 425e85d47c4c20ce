package observability

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig selects level, encoding and destination for the process logger.
type LogConfig struct {
	Level  string    `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string    `mapstructure:"format" validate:"omitempty,oneof=console json"`
	Output io.Writer `mapstructure:"-"`
}

var logger atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	logger.Store(&l)
}

// NewLogger builds a zerolog logger from cfg. Unknown levels fall back to info.
func NewLogger(cfg LogConfig) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// SetLogger replaces the process logger returned by Log.
func SetLogger(l zerolog.Logger) { logger.Store(&l) }

// Log returns the process logger.
func Log() *zerolog.Logger { return logger.Load() }

// Component returns a child of the process logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return Log().With().Str("component", name).Logger()
}

// LoggerOr returns l when set, otherwise a component logger.
func LoggerOr(l *zerolog.Logger, component string) zerolog.Logger {
	if l != nil {
		return *l
	}
	return Component(component)
}
