// Command qm builds, inspects and runs query documents.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/querymodel/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands report their own errors; only cobra's usage errors are
		// still unprinted.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
