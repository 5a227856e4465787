// SPDX-License-Identifier: MPL-2.0

// Package scan reads Go source trees and reports the marker types and tagged
// functions that discovery classifies.
//
// Markers are declared with a directive on a type:
//
//	//modular:marker
//	type OnStartup struct{}
//
// and functions are tagged with one or more markers:
//
//	//modular:on OnStartup, events.OnReload
//	func Setup() {}
//
// A marker reference is a type name in the same package, a name qualified by
// an imported package, or a full dispatch key (import path, dot, type name).
// Directives are comments, so a qualified reference alone does not count as a
// use of the import; the file must refer to the package in code as well:
//
//	import "example.com/app/events"
//
//	var _ events.OnReload
//
// Full dispatch keys need no import.
//
// File organization:
//   - directive.go: directive parsing and marker reference resolution
//   - package.go: the per-package model built from parsed files
//   - scanner.go: module lookup and package pattern expansion
//   - result.go: the scan result consumed by discovery
package scan
