// SPDX-License-Identifier: MPL-2.0

// Package fragment defines the registry fragment format shared by the
// build-time discovery step and the run-time loader.
//
// A fragment maps dispatch keys to ordered lists of function descriptors. One
// fragment is written per owning type under [ListenerPrefix]; the loader reads
// every fragment reachable on the classpath and merges them with [Merge].
//
// File organization:
//   - descriptor.go: InvocationKind and Descriptor
//   - fragment.go: Fragment, Merge and Dedupe
//   - codec.go: JSON encoding of fragments and manifests
//   - paths.go: reserved resource paths and path matching
//   - read.go: reading fragments and markers out of an fs.FS
package fragment
