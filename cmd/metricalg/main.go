package main

import (
	"fmt"
	"os"

	"github.com/roach88/metricalg/internal/cli"
)

// Version is set by build flags.
var Version = "dev"

func main() {
	cmd := cli.NewRootCommand()
	cmd.Version = Version
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
