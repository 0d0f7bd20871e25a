// Command cosimkit aggregates vcache stats and generates co-simulation grids.
// Subcommands live in cmd/.
package main

import (
	"github.com/bsg-tools/cosimkit/cmd"
)

func main() {
	cmd.Execute()
}
