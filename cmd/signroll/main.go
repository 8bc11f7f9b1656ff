// cmd/signroll/main.go
//
// This is the entry point for the signroll CLI.
// Running `signroll` with no subcommand opens the signature form in the
// current directory (or $SIGNROLL_HOME).

package main

import (
	"fmt"
	"os"

	"github.com/kingrea/signroll/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
