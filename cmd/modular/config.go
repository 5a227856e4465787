// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/daylightnebula/modular/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `modular config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect modular configuration",
		Long: `Inspect modular configuration.

Configuration is read from --config, else from config.cue in the user
config directory (for example ~/.config/modular/config.cue), else from
modular.cue in the working directory. MODULAR_* environment variables
override file values (MODULAR_DISCOVERY_OUTPUT=out).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(*cobra.Command, []string) error {
			showConfig(app)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file in use",
		RunE: func(*cobra.Command, []string) error {
			if app.cfgPath == "" {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("(no config file, using defaults)"))
				return nil
			}
			fmt.Fprintln(app.stdout, app.cfgPath)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprint(app.stdout, config.GenerateCUE(app.cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(app *App) {
	cfg := app.cfg
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	source := SubtitleStyle.Render("(using defaults)")
	if app.cfgPath != "" {
		source = app.cfgPath
	}
	fmt.Fprintf(w, "%s: %s\n\n", KeyStyle.Render("Config file"), source)

	rows := []struct{ key, value string }{
		{"classpath", strings.Join(cfg.Classpath, ", ")},
		{"discovery.output", cfg.Discovery.Output},
		{"discovery.glue", fmt.Sprint(cfg.Discovery.Glue)},
		{"discovery.glue_file", cfg.Discovery.GlueFile},
		{"discovery.markers", strings.Join(cfg.Discovery.Markers, ", ")},
		{"discovery.patterns", strings.Join(cfg.Discovery.Patterns, ", ")},
		{"log.level", cfg.Log.Level.String()},
		{"watch.debounce_ms", fmt.Sprint(cfg.Watch.DebounceMS)},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render(r.key), SuccessStyle.Render(r.value))
	}
}
