// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/daylightnebula/modular/internal/issue"

	"github.com/charmbracelet/fang"
)

type (
	// ExitError signals a non-zero exit code without forcing os.Exit in RunE
	// handlers. A nil Err means the command already reported the problem.
	ExitError struct {
		Code int
		Err  error
	}

	// ServiceError is an error that carries an optional issue catalog ID and
	// a pre-rendered styled message for the CLI layer. Always create it via
	// newServiceError.
	ServiceError struct {
		// Err is the underlying error (must not be nil).
		Err error
		// IssueID is the optional issue catalog ID for rendering help text.
		IssueID issue.Id
		// StyledMessage is the optional pre-rendered styled error text.
		StyledMessage string
	}
)

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error { return e.Err }

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID, StyledMessage: styledMessage}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// handleError is the fang error handler. Actionable errors print their
// suggestions; verbose mode adds the error chain and the issue catalog entry.
func (a *App) handleError(w io.Writer, _ fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.StyledMessage != "" {
		fmt.Fprint(w, svcErr.StyledMessage)
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.verbose))

	if a.verbose && svcErr != nil {
		renderIssue(w, svcErr.IssueID)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatErrorForDisplay(err error, verbose bool) string {
	if ae, ok := issue.As(err); ok {
		return ae.Format(verbose)
	}
	return err.Error()
}

func renderIssue(w io.Writer, id issue.Id) {
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render("dark")
	if err != nil {
		fmt.Fprintln(w, WarningStyle.Render("failed to render issue help: ")+err.Error())
		return
	}
	fmt.Fprint(w, rendered)
}
