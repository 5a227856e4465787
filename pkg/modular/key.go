// SPDX-License-Identifier: MPL-2.0

package modular

import (
	"reflect"
	"runtime/debug"
	"sync"
)

// commandLinePackage is the package path the go command gives to a main
// package built from a list of files.
const commandLinePackage = "command-line-arguments"

// mainPackagePath is the import path of the running program's main package,
// or "" when the binary carries no build information.
var mainPackagePath = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Path == commandLinePackage {
		return ""
	}
	return info.Path
})

// KeyOf returns the dispatch key of marker type M: its package path and type
// name joined by a dot. KeyOf[*M] and KeyOf[M] are equal.
//
// Types declared in package main report the package path "main"; KeyOf
// substitutes the import path recorded in the binary's build information so
// the key matches the one written by discovery. Binaries built from a list of
// files have no such path and keep "main".
func KeyOf[M any]() string {
	t := reflect.TypeFor[M]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return qualify(t.PkgPath(), t.Name(), mainPackagePath())
}

func qualify(pkgPath, name, mainPath string) string {
	if pkgPath == "main" && mainPath != "" {
		pkgPath = mainPath
	}
	return pkgPath + "." + name
}
