// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"strings"

	"github.com/daylightnebula/modular/internal/scan"
	"github.com/daylightnebula/modular/pkg/fragment"
)

// CompanionSuffix marks a type as the shared holder of the type named by the
// rest of its name.
const CompanionSuffix = "Companion"

const (
	reasonStaticFunction  = "package function"
	reasonSingletonMethod = "method on the package's singleton instance"
	reasonHolderMethod    = "method on the companion holder"
	reasonInstanceMethod  = "instance methods are not supported: use a package function, a singleton or a companion method"
	reasonGeneric         = "generic functions cannot be dispatched"
)

// Classify builds the descriptor of one tagged function.
//
// The first matching rule wins:
//  1. a method on a singleton type that is not a companion is a singleton method
//  2. a method on <Outer>Companion, with Outer declared in the same package,
//     is a shared-holder method owned by Outer
//  3. a function without receiver is a static function owned by the package
//  4. any other method is an instance method and is never valid
//
// Valid descriptors carry a short note on how they are reached. Generic
// functions keep their kind but are marked invalid.
func Classify(el scan.Element) fragment.Descriptor {
	pkg, fn := el.Package, el.Func

	var d fragment.Descriptor
	switch {
	case fn.Recv == "":
		d = fragment.NewDescriptor(fragment.KindStaticFunction, pkg.ImportPath, fn.Name).
			WithReason(reasonStaticFunction)
	case companionOuter(pkg, fn.Recv) == "" && singletonReceiver(pkg, fn.Recv) != nil:
		d = fragment.NewDescriptor(fragment.KindSingletonMethod, typeKey(pkg, fn.Recv), fn.Name).
			WithReason(reasonSingletonMethod)
	case companionOuter(pkg, fn.Recv) != "":
		d = fragment.NewDescriptor(fragment.KindSharedHolderMethod, typeKey(pkg, companionOuter(pkg, fn.Recv)), fn.Name).
			WithReason(reasonHolderMethod)
	default:
		return fragment.NewDescriptor(fragment.KindInstanceMethod, typeKey(pkg, fn.Recv), fn.Name).Invalid(reasonInstanceMethod)
	}

	if fn.Generic {
		return d.Invalid(reasonGeneric)
	}
	return d
}

// companionOuter returns the enclosing type name when typeName is a
// companion holder, or "".
func companionOuter(pkg *scan.Package, typeName string) string {
	outer, ok := strings.CutSuffix(typeName, CompanionSuffix)
	if !ok || outer == "" || pkg.Type(outer) == nil {
		return ""
	}
	return outer
}

// singletonReceiver returns the process-wide instance variable of typeName:
// a variable named Instance, or the only variable of the type when the
// package offers no exported constructor for it.
func singletonReceiver(pkg *scan.Package, typeName string) *scan.Var {
	t := pkg.Type(typeName)
	if t == nil {
		return nil
	}
	vars := pkg.VarsOf(typeName)
	for i := range vars {
		if vars[i].Name == "Instance" {
			return &vars[i]
		}
	}
	if len(vars) == 1 && len(t.Constructors) == 0 {
		return &vars[0]
	}
	return nil
}

// holderReceiver returns the variable holding the companion instance, using
// the same rules as singletonReceiver. A nil result means the generated code
// allocates the holder.
func holderReceiver(pkg *scan.Package, companion string) *scan.Var {
	return singletonReceiver(pkg, companion)
}

func typeKey(pkg *scan.Package, typeName string) string {
	return pkg.ImportPath + "." + typeName
}
