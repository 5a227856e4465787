// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

const (
	// LogLevelDebug enables debug output.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn shows warnings and errors only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError shows errors only.
	LogLevelError LogLevel = "error"

	// DefaultOutputDir is where discovery writes when nothing is configured.
	DefaultOutputDir = "build"
	// DefaultGlueFile is the default registration file name.
	DefaultGlueFile = "modular_gen.go"
	// DefaultDebounceMS is the default watch debounce in milliseconds.
	DefaultDebounceMS = 250
)

var (
	// ErrInvalidLogLevel is the sentinel error wrapped by InvalidLogLevelError.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidLoadOptions is the sentinel error wrapped by InvalidLoadOptionsError.
	ErrInvalidLoadOptions = errors.New("invalid load options")
)

type (
	// LogLevel is a configured log verbosity.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// Config is the modular configuration.
	Config struct {
		// Classpath is the default classpath of inspect and watch.
		Classpath []string        `json:"classpath" mapstructure:"classpath"`
		Discovery DiscoveryConfig `json:"discovery" mapstructure:"discovery"`
		Log       LogConfig       `json:"log" mapstructure:"log"`
		Watch     WatchConfig     `json:"watch" mapstructure:"watch"`
	}

	// DiscoveryConfig configures the discover command.
	DiscoveryConfig struct {
		Output   string   `json:"output" mapstructure:"output"`
		Glue     bool     `json:"glue" mapstructure:"glue"`
		GlueFile string   `json:"glue_file" mapstructure:"glue_file"`
		Markers  []string `json:"markers" mapstructure:"markers"`
		Patterns []string `json:"patterns" mapstructure:"patterns"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
	}

	// WatchConfig configures the watch command.
	WatchConfig struct {
		DebounceMS int `json:"debounce_ms" mapstructure:"debounce_ms"`
	}

	// InvalidConfigError collects the field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// InvalidLoadOptionsError collects the field errors of LoadOptions.
	InvalidLoadOptionsError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Classpath: []string{DefaultOutputDir},
		Discovery: DiscoveryConfig{
			Output:   DefaultOutputDir,
			Glue:     true,
			GlueFile: DefaultGlueFile,
			Markers:  []string{},
			Patterns: []string{"./..."},
		},
		Log:   LogConfig{Level: LogLevelInfo},
		Watch: WatchConfig{DebounceMS: DefaultDebounceMS},
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels,
// and a list of validation errors if it is not.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Slog converts the level. Unknown levels map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel so callers can use errors.Is.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Debounce returns the configured debounce as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// Validate checks the constraints the schema cannot express.
func (c *Config) Validate() error {
	var errs []error
	if ok, levelErrs := c.Log.Level.IsValid(); !ok {
		errs = append(errs, levelErrs...)
	}
	if c.Discovery.Output == "" {
		errs = append(errs, errors.New("discovery.output must not be empty"))
	}
	if name := c.Discovery.GlueFile; name != filepath.Base(name) || !strings.HasSuffix(name, ".go") {
		errs = append(errs, fmt.Errorf("discovery.glue_file %q must be a .go file name without directories", name))
	}
	if c.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMS))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return joinFieldErrors("invalid config", e.FieldErrors)
}

// Unwrap returns ErrInvalidConfig so callers can use errors.Is.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Error implements the error interface.
func (e *InvalidLoadOptionsError) Error() string {
	return joinFieldErrors("invalid load options", e.FieldErrors)
}

// Unwrap returns ErrInvalidLoadOptions so callers can use errors.Is.
func (e *InvalidLoadOptionsError) Unwrap() error { return ErrInvalidLoadOptions }

func joinFieldErrors(prefix string, errs []error) string {
	if len(errs) == 1 {
		return prefix + ": " + errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %d errors: %s", prefix, len(errs), strings.Join(msgs, "; "))
}
