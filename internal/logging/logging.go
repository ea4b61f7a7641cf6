// Package logging builds the zerolog loggers used by the inked binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Environment variables that override the configured logger.
const (
	EnvLogLevel     = "INKED_LOG_LEVEL"
	EnvLogFormat    = "INKED_LOG_FORMAT"
	EnvLogTimestamp = "INKED_LOG_TIMESTAMP"
	EnvLogNoColor   = "INKED_LOG_NOCOLOR"
)

// Output formats accepted by Config.Format.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Profile selects the logger defaults for a kind of process.
type Profile int

// Profiles.
const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config describes a logger. Empty fields take the profile defaults.
type Config struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	Timestamp bool   `toml:"timestamp"`
	NoColor   bool   `toml:"no_color"`
}

var configureOnce sync.Once

// ConfigureRuntime applies the runtime profile for long-running binaries.
func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

// ConfigureTests applies the test profile; call it from TestMain.
func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure sets process-wide zerolog options once. INKED_LOG_LEVEL caps the
// global level.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		cfg := DefaultConfig(profile)
		ApplyEnv(&cfg)
		lvl, _ := ParseLevel(cfg.Level)
		zerolog.SetGlobalLevel(lvl)
	})
}

// DefaultConfig returns the defaults of a profile.
func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: "debug", Format: FormatConsole, Timestamp: false, NoColor: true}
	default:
		return Config{Level: "info", Format: FormatJSON, Timestamp: true}
	}
}

// ApplyEnv overrides cfg from INKED_LOG_* variables. Unparseable values are
// ignored.
func ApplyEnv(cfg *Config) {
	if raw := os.Getenv(EnvLogLevel); raw != "" {
		if _, ok := ParseLevel(raw); ok {
			cfg.Level = raw
		}
	}
	switch f := strings.ToLower(strings.TrimSpace(os.Getenv(EnvLogFormat))); f {
	case FormatJSON, FormatConsole:
		cfg.Format = f
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

// Validate reports unknown levels or formats.
func (c Config) Validate() error {
	if c.Level != "" {
		if _, ok := ParseLevel(c.Level); !ok {
			return fmt.Errorf("unknown log level %q", c.Level)
		}
	}
	switch c.Format {
	case "", FormatJSON, FormatConsole:
		return nil
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
}

// New builds a logger writing to w.
func New(cfg Config, w io.Writer) (zerolog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return zerolog.Nop(), err
	}
	lvl := zerolog.InfoLevel
	if cfg.Level != "" {
		lvl, _ = ParseLevel(cfg.Level)
	}
	if cfg.Format == FormatConsole {
		cw := zerolog.ConsoleWriter{Out: w, NoColor: cfg.NoColor, TimeFormat: time.RFC3339}
		if !cfg.Timestamp {
			cw.PartsExclude = []string{zerolog.TimestampFieldName}
		}
		w = cw
	}
	ctx := zerolog.New(w).Level(lvl).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger(), nil
}

// ParseLevel maps a level name, including a few aliases, to a zerolog level.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace", "diagnostics":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
