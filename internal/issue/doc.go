// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// suggested fixes. The issue catalog maps each failure class of the modular
// tools to a Markdown explanation that the CLI renders in verbose mode.
package issue
