// SPDX-License-Identifier: MPL-2.0

// Package discovery turns tagged functions found in Go source into registry
// fragments.
//
// The analyzer classifies every function tagged with a recognized marker,
// groups the resulting descriptors by owner and writes one fragment per owner
// under the output directory. Fragments already present on the build
// classpath at the same resource path are merged in first, so a run that
// discovers nothing new reproduces its input byte for byte.
//
// Alongside the fragments the analyzer writes marker files, the output
// manifest and, per package, the generated registration file that makes the
// discovered functions reachable by the dispatcher.
//
// File organization:
//   - classify.go: descriptor classification of one tagged function
//   - analyzer.go: the Analyzer and its Run pipeline
//   - output.go: fragment, marker and manifest writing
//   - glue.go: registration code generation
//   - diagnostic.go: non-fatal diagnostics returned to callers
package discovery
