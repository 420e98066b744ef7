package main

import (
	"fmt"
	"os"

	"github.com/roach88/physutils/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands report their own errors in the chosen format; only
		// errors from flag parsing and setup still need printing.
		if !cli.Reported(err) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
