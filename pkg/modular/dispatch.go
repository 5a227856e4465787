// SPDX-License-Identifier: MPL-2.0

package modular

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/daylightnebula/modular/pkg/fragment"
)

const (
	// OutcomeInvoked means the target ran and returned normally.
	OutcomeInvoked Outcome = "invoked"
	// OutcomeSkipped means the descriptor was not attempted.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means resolution or invocation failed.
	OutcomeFailed Outcome = "failed"
)

const (
	// ReasonInvalidDescriptor marks a skipped descriptor that discovery
	// flagged as invalid.
	ReasonInvalidDescriptor = "invalid_descriptor"
	// ReasonNoMatchingMember marks a skipped descriptor whose parameters do
	// not match the arguments.
	ReasonNoMatchingMember = "no_matching_member"
	// ReasonUnresolved marks a failure to find the registered target.
	ReasonUnresolved = "unresolved"
	// ReasonUnsupportedInvocation marks a descriptor kind that cannot be
	// dispatched.
	ReasonUnsupportedInvocation = "unsupported_invocation"
	// ReasonInvocationFailed marks a target that panicked or returned an error.
	ReasonInvocationFailed = "invocation_failed"
)

type (
	// Outcome is what happened to one descriptor during a dispatch.
	Outcome string

	// Call is the record of one descriptor during a dispatch.
	Call struct {
		Descriptor fragment.Descriptor
		Outcome    Outcome
		// Reason is one of the Reason constants for skipped and failed calls.
		Reason string
		Err    error
	}

	// Result is the record of one dispatch.
	Result struct {
		Key   string
		Calls []Call
	}
)

// Invoked returns the number of targets that ran successfully.
func (r Result) Invoked() int { return r.count(OutcomeInvoked) }

// Skipped returns the calls that were not attempted.
func (r Result) Skipped() []Call { return r.filter(OutcomeSkipped) }

// Failures returns the calls that failed.
func (r Result) Failures() []Call { return r.filter(OutcomeFailed) }

func (r Result) count(o Outcome) int {
	n := 0
	for _, c := range r.Calls {
		if c.Outcome == o {
			n++
		}
	}
	return n
}

func (r Result) filter(o Outcome) []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Outcome == o {
			out = append(out, c)
		}
	}
	return out
}

// Execute invokes every function registered under key whose parameters
// match args. Unknown keys are a no-op. Failures are logged and reported to
// the failure handler; they never stop the remaining functions.
func (r *Registry) Execute(key string, args ...any) {
	r.Dispatch(key, args...)
}

// Dispatch is Execute returning a record of what happened.
func (r *Registry) Dispatch(key string, args ...any) Result {
	result := Result{Key: key}
	descriptors := r.Snapshot().byKey[key]
	if len(descriptors) == 0 {
		return result
	}

	logger := r.log()
	for _, d := range descriptors {
		call := r.dispatchOne(d, args)
		result.Calls = append(result.Calls, call)

		switch call.Outcome {
		case OutcomeInvoked:
		case OutcomeSkipped:
			if call.Reason == ReasonInvalidDescriptor {
				logger.Warn("skipping invalid listener", "key", key, "path", d.Path, "reason", d.Reason)
			} else {
				logger.Debug("listener does not match arguments", "key", key, "path", d.Path, "args", typeNames(args))
			}
		case OutcomeFailed:
			logger.Error("listener failed", "key", key, "path", d.Path, "kind", d.Kind, "reason", call.Reason, "error", call.Err)
			if r.onFailure != nil {
				r.onFailure(key, call)
			}
		}
	}
	return result
}

func (r *Registry) dispatchOne(d fragment.Descriptor, args []any) Call {
	call := Call{Descriptor: d}
	if !d.Valid {
		call.Outcome = OutcomeSkipped
		call.Reason = ReasonInvalidDescriptor
		return call
	}

	target, err := r.symbols.resolve(d)
	if err != nil {
		call.Outcome = OutcomeFailed
		call.Reason = ReasonUnresolved
		if errors.Is(err, ErrUnsupportedInvocation) {
			call.Reason = ReasonUnsupportedInvocation
		}
		call.Err = err
		return call
	}

	if !target.Matches(args) {
		call.Outcome = OutcomeSkipped
		call.Reason = ReasonNoMatchingMember
		return call
	}

	if err := target.Call(args); err != nil {
		call.Outcome = OutcomeFailed
		call.Reason = ReasonInvocationFailed
		call.Err = &InvocationError{Path: d.Path, Err: err}
		return call
	}
	call.Outcome = OutcomeInvoked
	return call
}

// Invoke calls the single function described by d with args, bypassing the
// key lookup. Unlike Execute it reports every problem as an error: invalid
// descriptors, unsupported kinds, unresolved targets, argument mismatches and
// failures of the target itself.
func (r *Registry) Invoke(d fragment.Descriptor, args ...any) error {
	if d.Kind == fragment.KindInstanceMethod {
		return &ResolveError{Path: d.Path, Kind: d.Kind, Err: ErrUnsupportedInvocation}
	}
	if !d.Valid {
		return fmt.Errorf("%w: %s: %s", ErrInvalidDescriptor, d.Path, d.Reason)
	}

	target, err := r.symbols.resolve(d)
	if err != nil {
		return err
	}
	if !target.Matches(args) {
		return fmt.Errorf("%w: %s takes %v, got %v", ErrNoMatchingMember, d.Path, target.Params(), typeNames(args))
	}
	if err := target.Call(args); err != nil {
		return &InvocationError{Path: d.Path, Err: err}
	}
	return nil
}

// ReflectFunction resolves d to its receiver, member name and owner type
// without calling it. It returns false for instance methods and for targets
// that are not registered.
func (r *Registry) ReflectFunction(d fragment.Descriptor) (Target, bool) {
	target, err := r.symbols.resolve(d)
	if err != nil {
		return Target{}, false
	}
	return target, true
}

func typeNames(args []any) []string {
	names := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			names[i] = "nil"
			continue
		}
		names[i] = reflect.TypeOf(a).String()
	}
	return names
}
