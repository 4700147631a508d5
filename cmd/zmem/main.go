// Command zmem is the interactive CLI for saving, recalling, and
// maintaining local memory items.
package main

import (
	"os"

	"github.com/cosmiclasagnadev/zmem/cmd/zmem/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
