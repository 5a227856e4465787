// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Id identifies a catalogued issue.
//
//nolint:revive // Id matches the catalog's established naming.
type Id int

const (
	FragmentWriteFailedId Id = iota + 1
	FragmentParseFailedId
	UnsupportedInvocationId
	OverloadMismatchId
	InvocationFailedId
	UnknownMarkerId
	ClasspathEntryInvalidId
	ConfigLoadFailedId
	NoModuleId
)

type (
	// MarkdownMsg is the Markdown body of an issue.
	MarkdownMsg string

	// HttpLink is a documentation link shown under an issue.
	HttpLink string

	// Issue is a catalogued failure class with remediation guidance.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

// Id returns the issue identifier.
func (i *Issue) Id() Id {
	return i.id
}

// MarkdownMsg returns the unrendered Markdown body.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// DocLinks returns a copy of the documentation links.
func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// ExtLinks returns a copy of the external links.
func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue for the terminal. stylePath is a glamour style
// name or path; empty selects the automatic style.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md.WriteString("\n- <" + string(link) + ">")
		}
	}
	if stylePath == "" {
		stylePath = "auto"
	}
	return render(md.String(), stylePath)
}

// Get returns the issue with the given id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

// Values returns every catalogued issue ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, id := range slices.Sorted(maps.Keys(issues)) {
		out = append(out, issues[id])
	}
	return out
}

const docsURL = "https://github.com/daylightnebula/modular#"

var (
	render = glamour.Render

	issues = map[Id]*Issue{
		FragmentWriteFailedId: {
			id: FragmentWriteFailedId,
			mdMsg: `
# Failed to write a registry fragment

Discovery could not write one or more files below the output directory.
The other fragments were still written, but the registry built from this
output is incomplete.

## Things you can try
- Check that the output directory is writable:
~~~
$ ls -ld build/modular
~~~
- Make sure the output path is a directory and not a file.
- Run discovery again with ` + "`--verbose`" + ` to see every path it writes.`,
			docLinks: []HttpLink{docsURL + "discovery"},
		},

		FragmentParseFailedId: {
			id: FragmentParseFailedId,
			mdMsg: `
# A registry fragment could not be parsed

A file below ` + "`modular/listeners/`" + ` is not a valid fragment. The loader
skips it, so its functions are never dispatched.

## Things you can try
- Regenerate the fragments with ` + "`modular discover`" + `.
- Inspect the classpath to see which entry holds the broken file:
~~~
$ modular inspect --classpath build --verbose
~~~`,
			docLinks: []HttpLink{docsURL + "fragment-format"},
		},

		UnsupportedInvocationId: {
			id: UnsupportedInvocationId,
			mdMsg: `
# Instance methods cannot be dispatched

A tagged method needs a receiver that the dispatcher cannot locate. Only
package functions, methods of singleton types and methods of companion
holders are dispatchable.

## Things you can try
- Move the function to package level.
- Declare a package variable named ` + "`Instance`" + ` of the receiver type.
- Move the method to a ` + "`<Type>Companion`" + ` holder type.`,
			docLinks: []HttpLink{docsURL + "invocation-kinds"},
		},

		OverloadMismatchId: {
			id: OverloadMismatchId,
			mdMsg: `
# No function matched the arguments

A registered function was skipped because the arguments passed to the
event did not match its parameters exactly. Matching compares dynamic
types and does not convert values.

## Things you can try
- Compare the parameter list with the arguments passed to ` + "`Execute`" + `.
- Pass the exact parameter type, for example ` + "`int64(1)`" + ` instead of ` + "`1`" + `.`,
			docLinks: []HttpLink{docsURL + "overload-matching"},
		},

		InvocationFailedId: {
			id: InvocationFailedId,
			mdMsg: `
# A dispatched function failed

A function invoked for an event panicked or returned an error. Other
functions registered for the same event still ran.

## Things you can try
- Read the error chain printed with ` + "`--verbose`" + `.
- Install a failure handler with ` + "`modular.WithFailureHandler`" + ` to collect failures.`,
		},

		UnknownMarkerId: {
			id: UnknownMarkerId,
			mdMsg: `
# A tag names an unknown marker

A ` + "`//modular:on`" + ` directive references a marker that is neither
declared in the scanned packages, present on the build classpath nor listed
in the configuration. The tag is ignored.

## Things you can try
- Declare the marker type with ` + "`//modular:marker`" + `.
- Add the library that declares it to ` + "`--classpath`" + `.
- List it under ` + "`discovery.markers`" + ` in the configuration file.`,
			docLinks: []HttpLink{docsURL + "markers"},
		},

		ClasspathEntryInvalidId: {
			id: ClasspathEntryInvalidId,
			mdMsg: `
# A classpath entry could not be used

Classpath entries must be directories, zip archives or glob patterns
matching them. Unusable entries are skipped.

## Things you can try
- Check that the path exists.
- Rebuild archives with ` + "`modular pack`" + `.
- Quote glob patterns so the shell does not expand them.`,
		},

		ConfigLoadFailedId: {
			id: ConfigLoadFailedId,
			mdMsg: `
# Failed to load configuration

The configuration file could not be read or does not match the schema.

## Things you can try
- Print the effective configuration:
~~~
$ modular config show
~~~
- Print the schema defaults as a starting point:
~~~
$ modular config dump > modular.cue
~~~`,
			docLinks: []HttpLink{docsURL + "configuration"},
		},

		NoModuleId: {
			id: NoModuleId,
			mdMsg: `
# No Go module found

Discovery scans the packages of a Go module and could not find a
` + "`go.mod`" + ` file in the working directory or any parent.

## Things you can try
- Run the command from inside your module.
- Pass package patterns relative to the module root, for example ` + "`./...`" + `.`,
			extLinks: []HttpLink{"https://go.dev/ref/mod#go-mod-file"},
		},
	}
)
