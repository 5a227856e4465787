// SPDX-License-Identifier: MPL-2.0

package modular

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/daylightnebula/modular/pkg/fragment"
)

type (
	// Symbols maps the names used in fragments to live Go values. It replaces
	// a by-name type lookup: every dispatchable function, receiver and method
	// is registered explicitly, normally from generated init functions.
	//
	// Registration panics on programmer errors (wrong value shapes, duplicate
	// names) because it runs during package initialization.
	Symbols struct {
		mu        sync.RWMutex
		funcs     map[string]reflect.Value
		receivers map[ownerKey]reflect.Value
		methods   map[ownerKey]map[string]reflect.Value
	}

	ownerKey struct {
		kind  fragment.InvocationKind
		owner string
	}
)

var errorType = reflect.TypeFor[error]()

// NewSymbols returns an empty symbol table.
func NewSymbols() *Symbols {
	return &Symbols{
		funcs:     make(map[string]reflect.Value),
		receivers: make(map[ownerKey]reflect.Value),
		methods:   make(map[ownerKey]map[string]reflect.Value),
	}
}

// RegisterFunc registers a package-level function under its qualified path.
func (s *Symbols) RegisterFunc(path string, fn any) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		panic(fmt.Sprintf("modular: RegisterFunc(%q): %T is not a function", path, fn))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.funcs[path]; dup {
		panic(fmt.Sprintf("modular: function %q registered twice", path))
	}
	s.funcs[path] = v
}

// RegisterSingleton registers the single instance of owner. instance must be
// a non-nil pointer so that state changes made by methods are kept.
func (s *Symbols) RegisterSingleton(owner string, instance any) {
	s.registerReceiver(fragment.KindSingletonMethod, owner, instance)
}

// RegisterSingletonMethod registers a method of a singleton as a method
// expression, e.g. (*Server).start.
func (s *Symbols) RegisterSingletonMethod(owner, name string, method any) {
	s.registerMethod(fragment.KindSingletonMethod, owner, name, method)
}

// RegisterHolder registers the companion holder instance of the enclosing
// type owner.
func (s *Symbols) RegisterHolder(owner string, holder any) {
	s.registerReceiver(fragment.KindSharedHolderMethod, owner, holder)
}

// RegisterHolderMethod registers a companion method as a method expression.
// owner is the enclosing type, not the holder type.
func (s *Symbols) RegisterHolderMethod(owner, name string, method any) {
	s.registerMethod(fragment.KindSharedHolderMethod, owner, name, method)
}

func (s *Symbols) registerReceiver(kind fragment.InvocationKind, owner string, instance any) {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		panic(fmt.Sprintf("modular: receiver for %q must be a non-nil pointer, got %T", owner, instance))
	}

	key := ownerKey{kind: kind, owner: owner}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.receivers[key]; dup {
		panic(fmt.Sprintf("modular: %s receiver %q registered twice", kind, owner))
	}
	s.receivers[key] = v
}

func (s *Symbols) registerMethod(kind fragment.InvocationKind, owner, name string, method any) {
	v := reflect.ValueOf(method)
	if v.Kind() != reflect.Func || v.IsNil() || v.Type().NumIn() == 0 {
		panic(fmt.Sprintf("modular: method %s.%s must be a method expression, got %T", owner, name, method))
	}

	key := ownerKey{kind: kind, owner: owner}
	s.mu.Lock()
	defer s.mu.Unlock()
	byName := s.methods[key]
	if byName == nil {
		byName = make(map[string]reflect.Value)
		s.methods[key] = byName
	}
	if _, dup := byName[name]; dup {
		panic(fmt.Sprintf("modular: %s method %s.%s registered twice", kind, owner, name))
	}
	byName[name] = v
}

// resolve locates the target described by d.
func (s *Symbols) resolve(d fragment.Descriptor) (Target, error) {
	fail := func(err error) (Target, error) {
		return Target{}, &ResolveError{Path: d.Path, Kind: d.Kind, Err: err}
	}

	switch d.Kind {
	case fragment.KindStaticFunction:
		s.mu.RLock()
		fn, ok := s.funcs[d.Path]
		s.mu.RUnlock()
		if !ok {
			return fail(ErrUnresolved)
		}
		return Target{Member: d.Function, OwnerName: d.Owner, Kind: d.Kind, fn: fn}, nil

	case fragment.KindSingletonMethod, fragment.KindSharedHolderMethod:
		key := ownerKey{kind: d.Kind, owner: d.Owner}
		s.mu.RLock()
		recv, okRecv := s.receivers[key]
		method, okMethod := s.methods[key][d.Function]
		s.mu.RUnlock()
		if !okRecv || !okMethod {
			return fail(ErrUnresolved)
		}

		self, err := receiverArg(recv, method.Type().In(0))
		if err != nil {
			return fail(err)
		}
		return Target{
			Receiver:  recv,
			Member:    d.Function,
			Owner:     recv.Type().Elem(),
			OwnerName: d.Owner,
			Kind:      d.Kind,
			fn:        method,
			self:      self,
		}, nil

	case fragment.KindInstanceMethod:
		return fail(ErrUnsupportedInvocation)

	default:
		return fail(fmt.Errorf("%w: %w", ErrUnsupportedInvocation, d.Kind.Validate()))
	}
}

// receiverArg adapts the registered pointer to the receiver parameter of a
// method expression: (*T).m takes the pointer, T.m takes the value.
func receiverArg(recv reflect.Value, param reflect.Type) (reflect.Value, error) {
	switch {
	case recv.Type() == param:
		return recv, nil
	case recv.Type().Elem() == param:
		return recv.Elem(), nil
	default:
		return reflect.Value{}, fmt.Errorf("%w: method receiver %s does not fit registered %s", ErrUnresolved, param, recv.Type())
	}
}
