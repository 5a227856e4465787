// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for modular.
//
// The command tree is built by NewRootCommand around an App, the composition
// root holding the config provider and output streams. Command handlers
// return errors; the fang error handler renders actionable errors and, in
// verbose mode, the matching issue catalog entry.
package cmd
