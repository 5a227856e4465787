// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/daylightnebula/modular/internal/issue"
	"github.com/daylightnebula/modular/pkg/fragment"
	"github.com/daylightnebula/modular/pkg/modular"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

type (
	inspectFlagValues struct {
		classpath []string
		key       string
		format    string
	}

	// inspectReport is the JSON form of an aggregated registry.
	inspectReport struct {
		Entries  []string        `json:"entries"`
		Markers  []string        `json:"markers"`
		Keys     []keyReport     `json:"keys"`
		Problems []problemReport `json:"problems,omitempty"`
	}

	keyReport struct {
		Key         string                `json:"key"`
		Descriptors []fragment.Descriptor `json:"descriptors"`
	}

	problemReport struct {
		Entry string `json:"entry"`
		Path  string `json:"path,omitempty"`
		Error string `json:"error"`
	}
)

// renderMarkdown is swapped in tests.
var renderMarkdown = glamour.Render

func newInspectCommand(app *App) *cobra.Command {
	flags := &inspectFlagValues{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the aggregated registry of a classpath",
		Long: `Load every fragment reachable from the classpath, exactly as the
runtime dispatcher does, and print the descriptors registered under each
dispatch key in dispatch order. Invalid descriptors are listed with the
reason they are never called.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("classpath") {
				flags.classpath = app.cfg.Classpath
			}
			return runInspect(app, flags)
		},
	}

	cmd.Flags().StringSliceVar(&flags.classpath, "classpath", nil, "classpath entries: directories, zip archives or globs (default from config)")
	cmd.Flags().StringVarP(&flags.key, "key", "k", "", "show only this dispatch key")
	cmd.Flags().StringVarP(&flags.format, "format", "f", formatText, "output format: text, json or markdown")
	return cmd
}

func runInspect(app *App, flags *inspectFlagValues) error {
	switch flags.format {
	case formatText, formatJSON, formatMarkdown:
	default:
		return issue.NewErrorContext().
			WithOperation("inspect registry").
			WithSuggestion("Use --format text, json or markdown").
			Wrap(fmt.Errorf("unknown format %q", flags.format)).
			BuildError()
	}

	reg := modular.New(modular.WithLogger(app.logger))
	if err := reg.Init(flags.classpath...); err != nil {
		return newServiceError(issue.NewErrorContext().
			WithOperation("load classpath").
			WithResource(strings.Join(flags.classpath, ", ")).
			WithSuggestion("Check that glob entries are valid doublestar patterns").
			Wrap(err).
			BuildError(), issue.ClasspathEntryInvalidId, "")
	}

	report := buildReport(reg.Snapshot(), flags.key)
	switch flags.format {
	case formatJSON:
		enc := json.NewEncoder(app.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case formatMarkdown:
		out, err := renderMarkdown(reportMarkdown(report), "auto")
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		_, err = io.WriteString(app.stdout, out)
		return err
	default:
		printReport(app.stdout, report)
		return nil
	}
}

func buildReport(snap *modular.Snapshot, only string) inspectReport {
	report := inspectReport{
		Entries: snap.Entries(),
		Markers: snap.Markers(),
		Keys:    []keyReport{},
	}
	for _, key := range snap.Keys() {
		if only != "" && key != only {
			continue
		}
		report.Keys = append(report.Keys, keyReport{Key: key, Descriptors: snap.Descriptors(key)})
	}
	for _, p := range snap.Problems() {
		report.Problems = append(report.Problems, problemReport{Entry: p.Entry, Path: p.Path, Error: p.Err.Error()})
	}
	slices.Sort(report.Markers)
	return report
}

func printReport(w io.Writer, r inspectReport) {
	fmt.Fprintln(w, TitleStyle.Render("Classpath"))
	for _, e := range r.Entries {
		fmt.Fprintf(w, "  %s\n", e)
	}
	fmt.Fprintln(w)

	if len(r.Keys) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("no descriptors registered"))
	}
	for _, k := range r.Keys {
		fmt.Fprintln(w, KeyStyle.Render(k.Key))
		for _, d := range k.Descriptors {
			line := fmt.Sprintf("  %-20s %s", d.Kind, d.Path)
			switch {
			case !d.Valid:
				line = WarningStyle.Render(line) + SubtitleStyle.Render(" (never called: "+d.Reason+")")
			case d.Reason != "":
				line += SubtitleStyle.Render(" (" + d.Reason + ")")
			}
			fmt.Fprintln(w, line)
		}
	}

	if len(r.Problems) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, WarningStyle.Render("Skipped resources"))
		for _, p := range r.Problems {
			fmt.Fprintf(w, "  %s %s: %s\n", p.Entry, p.Path, p.Error)
		}
	}
}

func reportMarkdown(r inspectReport) string {
	var sb strings.Builder
	sb.WriteString("# Registry\n\n")
	for _, e := range r.Entries {
		fmt.Fprintf(&sb, "- `%s`\n", e)
	}
	if len(r.Markers) > 0 {
		sb.WriteString("\n**Markers:** ")
		for i, m := range r.Markers {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "`%s`", m)
		}
		sb.WriteString("\n")
	}
	for _, k := range r.Keys {
		fmt.Fprintf(&sb, "\n## `%s`\n\n", k.Key)
		sb.WriteString("| Kind | Function | Notes |\n|---|---|---|\n")
		for _, d := range k.Descriptors {
			notes := d.Reason
			if !d.Valid {
				notes = "never called: " + d.Reason
			}
			fmt.Fprintf(&sb, "| %s | `%s` | %s |\n", d.Kind, d.Path, notes)
		}
	}
	if len(r.Problems) > 0 {
		sb.WriteString("\n## Skipped resources\n\n")
		for _, p := range r.Problems {
			fmt.Fprintf(&sb, "- `%s` %s: %s\n", p.Entry, p.Path, p.Error)
		}
	}
	return sb.String()
}
