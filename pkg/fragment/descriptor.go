// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"errors"
	"fmt"
)

const (
	// KindStaticFunction is a package-level function with no receiver.
	KindStaticFunction InvocationKind = "STATIC_FUNCTION"
	// KindSingletonMethod is a method on a type with exactly one
	// process-wide instance.
	KindSingletonMethod InvocationKind = "SINGLETON_METHOD"
	// KindSharedHolderMethod is a method on the companion holder of an
	// enclosing type.
	KindSharedHolderMethod InvocationKind = "SHARED_HOLDER_METHOD"
	// KindInstanceMethod is a method that needs a caller-supplied receiver.
	// It is recorded for diagnostics only and can never be dispatched.
	KindInstanceMethod InvocationKind = "INSTANCE_METHOD"
)

// ErrInvalidInvocationKind is the sentinel error wrapped by InvalidInvocationKindError.
var ErrInvalidInvocationKind = errors.New("invalid invocation kind")

type (
	// InvocationKind classifies how a descriptor's target is reached at dispatch time.
	InvocationKind string

	// InvalidInvocationKindError is returned when an InvocationKind value is not
	// one of the defined kinds.
	InvalidInvocationKindError struct {
		Value InvocationKind
	}

	// Descriptor describes one tagged function.
	//
	// Descriptors are written by discovery and never mutated afterwards. An
	// invalid descriptor is still listed so that tooling can explain why a
	// tagged function is never called.
	Descriptor struct {
		// Kind selects the resolution strategy used by the dispatcher.
		Kind InvocationKind `json:"invocationKind"`
		// Owner is the fully qualified owning type. For shared-holder methods
		// this is the enclosing type; for static functions it is the package
		// import path.
		Owner string `json:"ownerTypeName"`
		// Function is the simple function or method name.
		Function string `json:"functionName"`
		// Path is Owner + "." + Function.
		Path string `json:"qualifiedPath"`
		// Valid is false when the function can never be dispatched.
		Valid bool `json:"isValid"`
		// Reason names how a valid descriptor is reached, or explains why
		// an invalid one is never called.
		Reason string `json:"validationReason,omitempty"`
	}
)

// String returns the string representation of the InvocationKind.
func (k InvocationKind) String() string { return string(k) }

// Validate returns nil if the kind is one of the defined kinds.
func (k InvocationKind) Validate() error {
	switch k {
	case KindStaticFunction, KindSingletonMethod, KindSharedHolderMethod, KindInstanceMethod:
		return nil
	default:
		return &InvalidInvocationKindError{Value: k}
	}
}

// Dispatchable reports whether descriptors of this kind can ever be invoked.
func (k InvocationKind) Dispatchable() bool {
	return k == KindStaticFunction || k == KindSingletonMethod || k == KindSharedHolderMethod
}

// Error implements the error interface.
func (e *InvalidInvocationKindError) Error() string {
	return fmt.Sprintf("invalid invocation kind %q (valid: %s, %s, %s, %s)",
		e.Value, KindStaticFunction, KindSingletonMethod, KindSharedHolderMethod, KindInstanceMethod)
}

// Unwrap returns ErrInvalidInvocationKind so callers can use errors.Is.
func (e *InvalidInvocationKindError) Unwrap() error { return ErrInvalidInvocationKind }

// NewDescriptor builds a valid descriptor for owner.function, deriving Path.
func NewDescriptor(kind InvocationKind, owner, function string) Descriptor {
	return Descriptor{
		Kind:     kind,
		Owner:    owner,
		Function: function,
		Path:     QualifiedPath(owner, function),
		Valid:    true,
	}
}

// Invalid returns a copy of d marked invalid with the given reason.
func (d Descriptor) Invalid(reason string) Descriptor {
	d.Valid = false
	d.Reason = reason
	return d
}

// WithReason returns a copy of d with its reason set and validity unchanged.
func (d Descriptor) WithReason(reason string) Descriptor {
	d.Reason = reason
	return d
}

// String renders the descriptor as "<path> (<kind>)".
func (d Descriptor) String() string {
	return d.Path + " (" + string(d.Kind) + ")"
}

// QualifiedPath joins an owner and a member name.
func QualifiedPath(owner, function string) string {
	return owner + "." + function
}
