// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/daylightnebula/modular/internal/discovery"
	"github.com/daylightnebula/modular/internal/issue"
	"github.com/daylightnebula/modular/internal/scan"

	"github.com/spf13/cobra"
)

type discoverFlagValues struct {
	dir       string
	out       string
	classpath []string
	markers   []string
	noGlue    bool
	glueFile  string
}

func newDiscoverCommand(app *App) *cobra.Command {
	flags := &discoverFlagValues{}

	cmd := &cobra.Command{
		Use:   "discover [patterns...]",
		Short: "Scan packages and write registry fragments",
		Long: `Scan the packages matched by patterns for functions tagged with
//modular:on directives and write one fragment per owner under
<out>/modular/listeners/. Fragments already on the classpath are merged
with the new ones. Registration code is written next to the tagged
functions unless --no-glue is given.

Patterns are directories relative to --dir, optionally ending in /...
Without patterns the discovery.patterns config value is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, app, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.dir, "dir", "C", "", "module directory to scan from (default is the working directory)")
	cmd.Flags().StringVar(&flags.out, "out", "", "output directory for the modular/ resource tree (default from config)")
	cmd.Flags().StringSliceVar(&flags.classpath, "classpath", nil, "classpath entries to read markers and fragments from (repeatable)")
	cmd.Flags().StringSliceVar(&flags.markers, "marker", nil, "extra marker keys to recognize (repeatable)")
	cmd.Flags().BoolVar(&flags.noGlue, "no-glue", false, "do not write registration code")
	cmd.Flags().StringVar(&flags.glueFile, "glue-file", "", "registration file name (default from config)")
	return cmd
}

func runDiscover(cmd *cobra.Command, app *App, flags *discoverFlagValues, patterns []string) error {
	ctx := cmd.Context()
	cfg := app.cfg

	if len(patterns) == 0 {
		patterns = cfg.Discovery.Patterns
	}
	out := flags.out
	if out == "" {
		out = cfg.Discovery.Output
	}
	glueFile := flags.glueFile
	if glueFile == "" {
		glueFile = cfg.Discovery.GlueFile
	}
	cp := flags.classpath
	if !cmd.Flags().Changed("classpath") {
		cp = cfg.Classpath
	}
	// Relative paths follow the scanned module, not the caller.
	if flags.dir != "" {
		out = underDir(flags.dir, out)
		cp = slices.Clone(cp)
		for i, e := range cp {
			cp[i] = underDir(flags.dir, e)
		}
	}

	scanner := &scan.Scanner{Dir: flags.dir}
	src, err := scanner.Scan(ctx, patterns...)
	if err != nil {
		if errors.Is(err, scan.ErrNoModule) {
			return newServiceError(issue.NewErrorContext().
				WithOperation("scan packages").
				WithResource(flags.dir).
				WithSuggestion("Run discover inside a Go module or pass --dir").
				Wrap(err).
				BuildError(), issue.NoModuleId, "")
		}
		return issue.NewErrorContext().
			WithOperation("scan packages").
			WithSuggestion("Check that every pattern names a directory inside the module").
			Wrap(err).
			BuildError()
	}

	analyzer := discovery.New(discovery.Options{
		OutputDir: out,
		Classpath: cp,
		Markers:   slices.Concat(cfg.Discovery.Markers, flags.markers),
		Glue:      cfg.Discovery.Glue && !flags.noGlue,
		GlueFile:  glueFile,
		Logger:    app.logger,
	})
	res, err := analyzer.Run(ctx, src)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("write registry fragments").
			WithResource(out).
			WithSuggestion("Check that the output directory is writable").
			Wrap(err).
			BuildError()
	}

	diags := append(discovery.SourceDiagnostics(src.Problems), res.Diagnostics...)
	renderDiagnostics(app.stderr, diags)
	printDiscoverSummary(app.stdout, src, res)

	if hasErrors(diags) {
		if app.verbose {
			renderIssue(app.stderr, issue.FragmentWriteFailedId)
		}
		return &ExitError{Code: 1}
	}
	return nil
}

func printDiscoverSummary(w io.Writer, src *scan.Result, res *discovery.Result) {
	functions := 0
	for _, f := range res.Fragments {
		functions += f.Len()
	}
	fmt.Fprintf(w, "%s %d package(s), %d marker(s), %d descriptor(s) in %d fragment(s)\n",
		SuccessStyle.Render("✓"), len(src.Packages), len(res.Markers), functions, len(res.Fragments))
	for _, p := range res.Written {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("wrote"), KeyStyle.Render(p))
	}
	for _, p := range res.RemovedGlue {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("removed"), KeyStyle.Render(p))
	}
	if len(res.Unchanged) > 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render(fmt.Sprintf("%d fragment(s) unchanged", len(res.Unchanged))))
	}
}

func renderDiagnostics(w io.Writer, diags []discovery.Diagnostic) {
	for _, d := range diags {
		style := WarningStyle
		if d.Severity == discovery.SeverityError {
			style = ErrorStyle
		}
		fmt.Fprintln(w, style.Render(string(d.Severity)+":")+" "+diagnosticText(d))
	}
}

func diagnosticText(d discovery.Diagnostic) string {
	msg := d.Message
	if d.Path != "" {
		msg = d.Path + ": " + msg
	}
	if d.Cause != nil {
		msg += ": " + d.Cause.Error()
	}
	return msg + " " + SubtitleStyle.Render("["+string(d.Code)+"]")
}

func hasErrors(diags []discovery.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == discovery.SeverityError {
			return true
		}
	}
	return false
}

func underDir(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
