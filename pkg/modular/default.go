// SPDX-License-Identifier: MPL-2.0

package modular

import "github.com/daylightnebula/modular/pkg/fragment"

var (
	globalSymbols = NewSymbols()
	std           = New()
)

// Default returns the process-wide registry used by the package-level
// functions.
func Default() *Registry { return std }

// Init initializes the process-wide registry. See Registry.Init.
func Init(entries ...string) error { return std.Init(entries...) }

// Reload rescans the process-wide registry's classpath. See Registry.Reload.
func Reload() error { return std.Reload() }

// Execute dispatches key on the process-wide registry. See Registry.Execute.
func Execute(key string, args ...any) { std.Execute(key, args...) }

// Dispatch dispatches key on the process-wide registry and returns what
// happened. See Registry.Dispatch.
func Dispatch(key string, args ...any) Result { return std.Dispatch(key, args...) }

// Invoke calls one descriptor on the process-wide registry. See Registry.Invoke.
func Invoke(d fragment.Descriptor, args ...any) error { return std.Invoke(d, args...) }

// ReflectFunction resolves d against the process-wide symbol table.
func ReflectFunction(d fragment.Descriptor) (Target, bool) { return std.ReflectFunction(d) }

// Fragments returns the fragment view of the process-wide registry.
func Fragments() map[string]*fragment.Fragment { return std.Fragments() }

// RegisterFunc registers a package-level function in the process-wide table.
// Generated code calls it from init.
func RegisterFunc(path string, fn any) { globalSymbols.RegisterFunc(path, fn) }

// RegisterSingleton registers a singleton instance in the process-wide table.
func RegisterSingleton(owner string, instance any) { globalSymbols.RegisterSingleton(owner, instance) }

// RegisterSingletonMethod registers a singleton method expression in the
// process-wide table.
func RegisterSingletonMethod(owner, name string, method any) {
	globalSymbols.RegisterSingletonMethod(owner, name, method)
}

// RegisterHolder registers a companion holder in the process-wide table.
func RegisterHolder(owner string, holder any) { globalSymbols.RegisterHolder(owner, holder) }

// RegisterHolderMethod registers a companion method expression in the
// process-wide table.
func RegisterHolderMethod(owner, name string, method any) {
	globalSymbols.RegisterHolderMethod(owner, name, method)
}
