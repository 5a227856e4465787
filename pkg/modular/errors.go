// SPDX-License-Identifier: MPL-2.0

package modular

import (
	"errors"
	"fmt"

	"github.com/daylightnebula/modular/pkg/fragment"
)

var (
	// ErrUnsupportedInvocation is returned when a descriptor's kind cannot be
	// dispatched, which is always the case for instance methods.
	ErrUnsupportedInvocation = errors.New("unsupported invocation kind")

	// ErrUnresolved is returned when the function or receiver named by a
	// descriptor was never registered in the symbol table. This usually means
	// the package's generated registration file is missing or not linked.
	ErrUnresolved = errors.New("invocation target not registered")

	// ErrNoMatchingMember is returned by Invoke when the arguments do not
	// structurally match the target's parameters.
	ErrNoMatchingMember = errors.New("no member matches the argument types")

	// ErrInvalidDescriptor is returned by Invoke for descriptors marked invalid.
	ErrInvalidDescriptor = errors.New("descriptor is marked invalid")
)

type (
	// ResolveError reports a descriptor whose target could not be located.
	ResolveError struct {
		Path string
		Kind fragment.InvocationKind
		Err  error
	}

	// InvocationError reports a target that panicked or returned an error.
	InvocationError struct {
		Path string
		Err  error
	}

	// PanicError wraps a value recovered from a panicking target.
	PanicError struct {
		Value any
		Stack []byte
	}
)

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s (%s): %v", e.Path, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResolveError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *InvocationError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
