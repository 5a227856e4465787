// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/daylightnebula/modular/internal/issue"
	"github.com/daylightnebula/modular/pkg/modular"

	"github.com/spf13/cobra"
)

func newWatchCommand(app *App) *cobra.Command {
	var cp []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the registry whenever fragments change",
		Long: `Load the classpath, then watch its directories and archives and reload
the aggregated registry after every change, printing the new key count.
Stops on Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("classpath") {
				cp = app.cfg.Classpath
			}

			reg := modular.New(modular.WithLogger(app.logger))
			if err := reg.Init(cp...); err != nil {
				return newServiceError(err, issue.ClasspathEntryInvalidId, "")
			}
			printReload(app, reg.Snapshot())
			fmt.Fprintf(app.stdout, "%s Watching for changes (Ctrl+C to stop)...\n", KeyStyle.Render("→"))

			err := reg.Watch(cmd.Context(), modular.WatchConfig{
				Debounce: app.cfg.Watch.Debounce(),
				OnReload: func(s *modular.Snapshot) { printReload(app, s) },
			})
			if errors.Is(err, modular.ErrNothingToWatch) {
				return issue.NewErrorContext().
					WithOperation("watch classpath").
					WithSuggestion("Pass at least one existing directory or archive with --classpath").
					Wrap(err).
					BuildError()
			}
			return err
		},
	}

	cmd.Flags().StringSliceVar(&cp, "classpath", nil, "classpath entries to watch (default from config)")
	return cmd
}

func printReload(app *App, s *modular.Snapshot) {
	fmt.Fprintf(app.stdout, "%s %s %d key(s), %d descriptor(s), %d problem(s)\n",
		SubtitleStyle.Render(s.LoadedAt().Format(time.TimeOnly)),
		SuccessStyle.Render("loaded"), len(s.Keys()), s.Len(), len(s.Problems()))
}
