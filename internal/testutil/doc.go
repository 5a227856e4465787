// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on error instead
// of returning it: writing source and fragment trees, reading files back and
// closing resources.
package testutil
