// Command reactorrt runs, inspects and verifies reactor programs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/reactorrt/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
