// SPDX-License-Identifier: MPL-2.0

// modular-vet reports //modular: tags that can never be dispatched.
//
// Usage:
//
//	modular-vet ./...
//	go vet -vettool=$(which modular-vet) ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/daylightnebula/modular/internal/vet"
)

func main() {
	singlechecker.Main(vet.Analyzer)
}
