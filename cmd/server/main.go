// Command newsroomd serves the newsroom rundown API and its maintenance
// subcommands.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "newsroomd:", err)
		os.Exit(1)
	}
}
