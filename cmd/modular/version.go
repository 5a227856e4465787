// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the modular version",
		Args:  cobra.NoArgs,
		// Version must work with a broken config file.
		PersistentPreRun: func(*cobra.Command, []string) {},
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintln(app.stdout, "modular "+getVersionString())
			return nil
		},
	}
}
