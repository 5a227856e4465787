// SPDX-License-Identifier: MPL-2.0

// Package modular is the run-time half of the framework: it loads registry
// fragments from the classpath into an immutable snapshot and dispatches
// events to the functions they describe.
//
// Tagged functions are reachable because the generated modular_gen.go file
// of each package registers them in a process-wide symbol table during
// package initialization:
//
//	func init() {
//		modular.RegisterFunc("example.com/app/hooks.Setup", Setup)
//		modular.RegisterSingleton("example.com/app/hooks.Server", &Instance)
//		modular.RegisterSingletonMethod("example.com/app/hooks.Server", "start", (*Server).start)
//	}
//
// A program then calls [Init] once with its classpath and [Execute] for every
// event:
//
//	if err := modular.Init("build/classes", "lib/*.zip"); err != nil {
//		return err
//	}
//	modular.Execute(modular.KeyOf[events.OnStartup]())
//	modular.Execute(modular.KeyOf[events.OnReload](), "reason")
//
// KeyOf names marker types declared in package main by the import path of
// the main package, as discovery does. That path comes from the binary's
// build information, which programs built from a list of .go files lack.
//
// Dispatch matches arguments structurally: a function is called only when it
// takes exactly len(args) parameters and every argument's dynamic type is
// identical to the corresponding parameter type. Functions that do not match
// are skipped; functions that panic or return a non-nil error are reported
// without affecting the others.
package modular
