// SPDX-License-Identifier: MPL-2.0

package modular

import (
	"reflect"
	"runtime/debug"

	"github.com/daylightnebula/modular/pkg/fragment"
)

// Target is a resolved invocation target: the receiver (if any), the member
// name and the owner type. It is what ReflectFunction hands to callers that
// want to inspect or call a listener themselves.
type Target struct {
	// Receiver is the registered pointer to the singleton or holder instance.
	// It is the zero Value for static functions.
	Receiver reflect.Value
	// Member is the function or method name.
	Member string
	// Owner is the receiver's type (the pointed-to type): the singleton type
	// or the companion holder type. It is nil for static functions, whose
	// owner is a package.
	Owner reflect.Type
	// OwnerName is the descriptor's owner: a type path or a package path.
	OwnerName string
	Kind      fragment.InvocationKind

	fn   reflect.Value
	self reflect.Value
}

// Func returns the underlying function value. For methods this is the method
// expression, whose first parameter is the receiver.
func (t Target) Func() reflect.Value { return t.fn }

// Params returns the parameter types callers must supply, excluding the
// receiver.
func (t Target) Params() []reflect.Type {
	if !t.fn.IsValid() {
		return nil
	}
	ft := t.fn.Type()
	offset := t.offset()
	params := make([]reflect.Type, 0, ft.NumIn()-offset)
	for i := offset; i < ft.NumIn(); i++ {
		params = append(params, ft.In(i))
	}
	return params
}

// Matches reports whether args structurally match the parameters: same count,
// and each argument's dynamic type identical to the parameter type. A nil
// argument matches only parameters that can hold nil.
func (t Target) Matches(args []any) bool {
	params := t.Params()
	if len(params) != len(args) {
		return false
	}
	for i, p := range params {
		if args[i] == nil {
			if !nilable(p) {
				return false
			}
			continue
		}
		if reflect.TypeOf(args[i]) != p {
			return false
		}
	}
	return true
}

// Call invokes the target with args, which must match. A panic in the target
// is recovered and returned as a *PanicError; a non-nil trailing error result
// is returned as is.
func (t Target) Call(args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	params := t.Params()
	in := make([]reflect.Value, 0, len(args)+1)
	if t.offset() == 1 {
		in = append(in, t.self)
	}
	for i, a := range args {
		if a == nil {
			in = append(in, reflect.Zero(params[i]))
			continue
		}
		in = append(in, reflect.ValueOf(a))
	}

	var out []reflect.Value
	if t.fn.Type().IsVariadic() {
		out = t.fn.CallSlice(in)
	} else {
		out = t.fn.Call(in)
	}

	if n := len(out); n > 0 {
		last := out[n-1]
		if last.Type() == errorType && !last.IsNil() {
			return last.Interface().(error)
		}
	}
	return nil
}

func (t Target) offset() int {
	if t.self.IsValid() {
		return 1
	}
	return 0
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}
