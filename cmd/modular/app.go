// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/daylightnebula/modular/internal/config"
	"github.com/daylightnebula/modular/internal/issue"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. Cobra handlers receive
	// an App and read configuration and output streams through it.
	App struct {
		Config config.Provider

		stdout io.Writer
		stderr io.Writer

		// set by setup before any RunE
		cfg     *config.Config
		cfgPath string
		verbose bool
		logger  *slog.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		logger: slog.New(slog.DiscardHandler),
	}
}

// setup loads configuration and installs the logger. Flags win over the
// config file; --verbose forces debug logging.
func (a *App) setup(ctx context.Context, flags *rootFlagValues) error {
	a.verbose = flags.verbose

	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return newServiceError(err, issue.ConfigLoadFailedId, "")
	}
	a.cfg, a.cfgPath = cfg, path

	level := cfg.Log.Level
	if flags.logLevel != "" {
		level = config.LogLevel(flags.logLevel)
		if ok, errs := level.IsValid(); !ok {
			return issue.NewErrorContext().
				WithOperation("parse --log-level").
				WithSuggestion("Use one of: debug, info, warn, error").
				Wrap(errs[0]).
				BuildError()
		}
	}
	if a.verbose {
		level = config.LogLevelDebug
	}

	a.logger = newLogger(a.stderr, level)
	slog.SetDefault(a.logger)
	return nil
}

// newLogger returns a slog logger backed by charmbracelet/log.
func newLogger(w io.Writer, level config.LogLevel) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Prefix: "modular",
		Level:  log.Level(level.Slog()),
	})
	return slog.New(handler)
}
