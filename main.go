// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/daylightnebula/modular/cmd/modular"

func main() {
	cmd.Execute()
}
