// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"

	"github.com/daylightnebula/modular/internal/scan"
)

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"

	// CodeFragmentWriteFailed is reported when a fragment cannot be written.
	CodeFragmentWriteFailed DiagnosticCode = "fragment_write_failed"
	// CodeMarkerWriteFailed is reported when a marker file cannot be written.
	CodeMarkerWriteFailed DiagnosticCode = "marker_write_failed"
	// CodeManifestWriteFailed is reported when the manifest cannot be written.
	CodeManifestWriteFailed DiagnosticCode = "manifest_write_failed"
	// CodeGlueWriteFailed is reported when a registration file cannot be
	// generated, written or removed.
	CodeGlueWriteFailed DiagnosticCode = "glue_write_failed"
	// CodeFragmentParseSkipped is reported for classpath fragments that could
	// not be read.
	CodeFragmentParseSkipped DiagnosticCode = "fragment_parse_skipped"
	// CodeClasspathEntryInvalid is reported for classpath entries that could
	// not be expanded or opened.
	CodeClasspathEntryInvalid DiagnosticCode = "classpath_entry_invalid"
	// CodeUnknownMarker is reported for tags naming an unrecognized marker.
	CodeUnknownMarker DiagnosticCode = "unknown_marker"
	// CodeSourceProblem is reported for directives the scanner could not use.
	CodeSourceProblem DiagnosticCode = "source_problem"
)

var (
	// ErrInvalidSeverity is the sentinel error wrapped by InvalidSeverityError.
	ErrInvalidSeverity = errors.New("invalid diagnostic severity")
	// ErrInvalidDiagnosticCode is the sentinel error wrapped by InvalidDiagnosticCodeError.
	ErrInvalidDiagnosticCode = errors.New("invalid diagnostic code")
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// DiagnosticCode is a machine-readable diagnostic identifier.
	DiagnosticCode string

	// InvalidSeverityError is returned when a Severity value is unknown.
	InvalidSeverityError struct {
		Value Severity
	}

	// InvalidDiagnosticCodeError is returned when a DiagnosticCode value is unknown.
	InvalidDiagnosticCodeError struct {
		Value DiagnosticCode
	}

	// Diagnostic represents a structured discovery diagnostic that is returned
	// to callers (rather than written to stderr) for consistent rendering policy.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "fragment_write_failed").
		Code DiagnosticCode
		// Message is the human-readable description.
		Message string
		// Path is the file path associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}
)

// Error implements the error interface.
func (e *InvalidSeverityError) Error() string {
	return fmt.Sprintf("invalid diagnostic severity %q (valid: warning, error)", e.Value)
}

// Unwrap returns ErrInvalidSeverity so callers can use errors.Is.
func (e *InvalidSeverityError) Unwrap() error { return ErrInvalidSeverity }

// Error implements the error interface.
func (e *InvalidDiagnosticCodeError) Error() string {
	return fmt.Sprintf("invalid diagnostic code %q", e.Value)
}

// Unwrap returns ErrInvalidDiagnosticCode so callers can use errors.Is.
func (e *InvalidDiagnosticCodeError) Unwrap() error { return ErrInvalidDiagnosticCode }

// IsValid returns whether the Severity is one of the defined levels,
// and a list of validation errors if it is not.
func (s Severity) IsValid() (bool, []error) {
	switch s {
	case SeverityWarning, SeverityError:
		return true, nil
	default:
		return false, []error{&InvalidSeverityError{Value: s}}
	}
}

// IsValid returns whether the DiagnosticCode is one of the defined codes,
// and a list of validation errors if it is not.
func (c DiagnosticCode) IsValid() (bool, []error) {
	switch c {
	case CodeFragmentWriteFailed, CodeMarkerWriteFailed, CodeManifestWriteFailed,
		CodeGlueWriteFailed, CodeFragmentParseSkipped, CodeClasspathEntryInvalid,
		CodeUnknownMarker, CodeSourceProblem:
		return true, nil
	default:
		return false, []error{&InvalidDiagnosticCodeError{Value: c}}
	}
}

// String renders the diagnostic on one line.
func (d Diagnostic) String() string {
	msg := d.Message
	if d.Path != "" {
		msg = d.Path + ": " + msg
	}
	if d.Cause != nil {
		msg += ": " + d.Cause.Error()
	}
	return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, msg)
}

// SourceDiagnostics converts scanner problems into warning diagnostics.
func SourceDiagnostics(problems []scan.Problem) []Diagnostic {
	out := make([]Diagnostic, 0, len(problems))
	for _, p := range problems {
		out = append(out, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeSourceProblem,
			Message:  "directive ignored",
			Path:     p.Pos.String(),
			Cause:    p.Err,
		})
	}
	return out
}

func warning(code DiagnosticCode, path, msg string, cause error) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Code: code, Message: msg, Path: path, Cause: cause}
}

func failure(code DiagnosticCode, path, msg string, cause error) Diagnostic {
	return Diagnostic{Severity: SeverityError, Code: code, Message: msg, Path: path, Cause: cause}
}
