// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/daylightnebula/modular/internal/issue"
	"github.com/daylightnebula/modular/internal/packaging"

	"github.com/spf13/cobra"
)

func newPackCommand(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pack [dir]",
		Short: "Bundle a discovery output directory into a zip archive",
		Long: `Zip the modular/ resource tree of dir (default: discovery.output) so the
archive can be shipped and put on a classpath like a directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := app.cfg.Discovery.Output
			if len(args) == 1 {
				dir = args[0]
			}

			summary, err := packaging.Archive(dir, output)
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("pack fragments").
					WithResource(dir).
					WithSuggestion("Run 'modular discover' first to produce the modular/ tree").
					Wrap(err).
					BuildError()
			}

			fmt.Fprintf(app.stdout, "%s Packed %d file(s), %d fragment(s) into %s\n",
				SuccessStyle.Render("✓"), len(summary.Files), summary.Fragments, KeyStyle.Render(summary.Path))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "archive path (default is <dir>.zip)")
	return cmd
}
